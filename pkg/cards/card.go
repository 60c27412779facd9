// Package cards describes interactive messages independently of any chat
// platform. Channels render a Card into their own markup.
package cards

import (
	"fmt"
	"strings"
)

type InputKind string

const (
	InputText   InputKind = "text"
	InputDate   InputKind = "date"
	InputTime   InputKind = "time"
	InputChoice InputKind = "choice"
)

// Element is a TextBlock when Input is nil, otherwise a form input.
type Element struct {
	Text  string
	Bold  bool
	Input *Input
}

type Input struct {
	ID          string
	Kind        InputKind
	Label       string
	Value       string
	Placeholder string
	Required    bool
	Choices     []Choice
}

type Choice struct {
	Title string
	Value string
}

// Action is a submit button. Data is returned verbatim in the submission and
// always carries an "action" key.
type Action struct {
	Title string
	Data  map[string]string
	// Danger marks destructive actions.
	Danger bool
}

type Card struct {
	Title   string
	Body    []Element
	Actions []Action
	// Rows groups per-item actions, e.g. one row of buttons per task.
	Rows []Row
}

type Row struct {
	Text    string
	Actions []Action
}

func TextBlock(text string) Element { return Element{Text: text} }

func Heading(text string) Element { return Element{Text: text, Bold: true} }

func (c *Card) HasInputs() bool {
	for _, e := range c.Body {
		if e.Input != nil {
			return true
		}
	}
	return false
}

// PlainText renders the card as text, for platforms without forms and for
// message fallbacks.
func PlainText(c *Card) string {
	var b strings.Builder
	if c.Title != "" {
		b.WriteString(c.Title)
		b.WriteString("\n")
	}
	for _, e := range c.Body {
		if e.Input != nil {
			fmt.Fprintf(&b, "- %s", e.Input.Label)
			if e.Input.Value != "" {
				fmt.Fprintf(&b, " [%s]", e.Input.Value)
			}
			b.WriteString("\n")
			continue
		}
		b.WriteString(e.Text)
		b.WriteString("\n")
	}
	for _, r := range c.Rows {
		b.WriteString(r.Text)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
