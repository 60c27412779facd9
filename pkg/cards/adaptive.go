package cards

// AdaptiveContentType is the attachment content type for adaptive cards.
const AdaptiveContentType = "application/vnd.microsoft.card.adaptive"

// Adaptive renders c as an Adaptive Card 1.2 document.
func Adaptive(c *Card) map[string]any {
	body := make([]any, 0, len(c.Body)+len(c.Rows)+1)
	if c.Title != "" {
		body = append(body, map[string]any{
			"type":   "TextBlock",
			"text":   c.Title,
			"size":   "Large",
			"weight": "Bolder",
			"wrap":   true,
		})
	}
	for _, e := range c.Body {
		body = append(body, adaptiveElement(e))
	}
	for _, r := range c.Rows {
		body = append(body, map[string]any{
			"type": "Container",
			"items": []any{
				map[string]any{"type": "TextBlock", "text": r.Text, "wrap": true},
				map[string]any{"type": "ActionSet", "actions": adaptiveActions(r.Actions)},
			},
			"separator": true,
		})
	}

	doc := map[string]any{
		"$schema": "http://adaptivecards.io/schemas/adaptive-card.json",
		"type":    "AdaptiveCard",
		"version": "1.2",
		"body":    body,
	}
	if len(c.Actions) > 0 {
		doc["actions"] = adaptiveActions(c.Actions)
	}
	return doc
}

func adaptiveElement(e Element) map[string]any {
	if e.Input == nil {
		tb := map[string]any{"type": "TextBlock", "text": e.Text, "wrap": true}
		if e.Bold {
			tb["weight"] = "Bolder"
		}
		return tb
	}

	in := e.Input
	m := map[string]any{"id": in.ID}
	if in.Label != "" {
		m["label"] = in.Label
	}
	if in.Value != "" {
		m["value"] = in.Value
	}
	if in.Placeholder != "" {
		m["placeholder"] = in.Placeholder
	}
	if in.Required {
		m["isRequired"] = true
	}
	switch in.Kind {
	case InputDate:
		m["type"] = "Input.Date"
	case InputTime:
		m["type"] = "Input.Time"
	case InputChoice:
		m["type"] = "Input.ChoiceSet"
		m["style"] = "compact"
		choices := make([]any, 0, len(in.Choices))
		for _, c := range in.Choices {
			choices = append(choices, map[string]any{"title": c.Title, "value": c.Value})
		}
		m["choices"] = choices
	default:
		m["type"] = "Input.Text"
	}
	return m
}

func adaptiveActions(actions []Action) []any {
	out := make([]any, 0, len(actions))
	for _, a := range actions {
		data := make(map[string]any, len(a.Data))
		for k, v := range a.Data {
			data[k] = v
		}
		m := map[string]any{"type": "Action.Submit", "title": a.Title, "data": data}
		if a.Danger {
			m["style"] = "destructive"
		}
		out = append(out, m)
	}
	return out
}
