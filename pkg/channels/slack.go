package channels

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"

	"github.com/tinyland-inc/botper/pkg/bus"
	"github.com/tinyland-inc/botper/pkg/cards"
	"github.com/tinyland-inc/botper/pkg/config"
	"github.com/tinyland-inc/botper/pkg/events"
)

const slackMaxMessage = 39000

var slackMention = regexp.MustCompile(`<@[A-Z0-9]+>`)

// SlackChannel receives Events API and interactivity deliveries and posts
// replies as Block Kit messages.
type SlackChannel struct {
	*BaseChannel
	api    *slack.Client
	secret string
}

func NewSlackChannel(cfg config.SlackConfig, opts ...slack.Option) *SlackChannel {
	return &SlackChannel{
		BaseChannel: NewBaseChannel("slack", cfg.AllowFrom, WithMaxMessageLength(slackMaxMessage)),
		api:         slack.New(cfg.BotToken, opts...),
		secret:      cfg.SigningSecret,
	}
}

func (c *SlackChannel) Send(ctx context.Context, msg bus.OutboundMessage) error {
	opts := []slack.MsgOption{slack.MsgOptionText(msg.Content, false)}
	if msg.Card != nil {
		blocks := SlackBlocks(msg.Content, msg.Card)
		opts = append(opts, slack.MsgOptionBlocks(blocks...))
	}
	if _, _, err := c.api.PostMessageContext(ctx, msg.ChatID, opts...); err != nil {
		return fmt.Errorf("slack post message: %w", err)
	}
	return nil
}

func (c *SlackChannel) Verify(header http.Header, body []byte) error {
	if c.secret == "" {
		return nil
	}
	sv, err := slack.NewSecretsVerifier(header, c.secret)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSignature, err)
	}
	if _, err := sv.Write(body); err != nil {
		return fmt.Errorf("%w: %v", ErrSignature, err)
	}
	if err := sv.Ensure(); err != nil {
		return fmt.Errorf("%w: %v", ErrSignature, err)
	}
	return nil
}

// Challenge answers the Events API url_verification handshake.
func (c *SlackChannel) Challenge(body []byte) (string, bool) {
	ev, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil || ev.Type != slackevents.URLVerification {
		return "", false
	}
	v, ok := ev.Data.(*slackevents.EventsAPIURLVerificationEvent)
	if !ok {
		return "", false
	}
	return v.Challenge, true
}

// Decode accepts both Events API JSON bodies and form-encoded interactivity
// payloads.
func (c *SlackChannel) Decode(header http.Header, body []byte) (events.InboundEvent, error) {
	if strings.HasPrefix(header.Get("Content-Type"), "application/x-www-form-urlencoded") ||
		strings.HasPrefix(string(body), "payload=") {
		return decodeSlackInteraction(body)
	}

	outer, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil {
		return events.InboundEvent{}, fmt.Errorf("%w: %v", events.ErrMalformed, err)
	}
	ev := events.InboundEvent{Platform: "slack"}
	if outer.Type != slackevents.CallbackEvent {
		return ev, nil
	}
	if cb, ok := outer.Data.(*slackevents.EventsAPICallbackEvent); ok {
		ev.EventID = cb.EventID
	}

	switch inner := outer.InnerEvent.Data.(type) {
	case *slackevents.AppMentionEvent:
		ev.Resource, ev.Event = events.ResourceMessages, events.EventCreated
		ev.RoomID = inner.Channel
		ev.ActorID = inner.User
		ev.MessageID = inner.TimeStamp
		ev.Text = stripSlackMention(inner.Text)
	case *slackevents.MessageEvent:
		// Channel messages that mention the bot also arrive as app_mention.
		if inner.ChannelType != "im" || inner.SubType != "" {
			ev.Resource = "message_" + inner.ChannelType
			return ev, nil
		}
		ev.Resource, ev.Event = events.ResourceMessages, events.EventCreated
		ev.RoomID = inner.Channel
		ev.ActorID = inner.User
		if ev.ActorID == "" {
			ev.ActorID = inner.BotID
		}
		ev.MessageID = inner.TimeStamp
		ev.Text = stripSlackMention(inner.Text)
	case *slackevents.MemberJoinedChannelEvent:
		ev.Resource, ev.Event = events.ResourceMemberships, events.EventCreated
		ev.RoomID = inner.Channel
		ev.Membership = &events.MembershipDescriptor{RoomID: inner.Channel, PersonID: inner.User}
	default:
		ev.Resource = outer.InnerEvent.Type
	}
	return ev, nil
}

func decodeSlackInteraction(body []byte) (events.InboundEvent, error) {
	form, err := url.ParseQuery(string(body))
	if err != nil {
		return events.InboundEvent{}, fmt.Errorf("%w: %v", events.ErrMalformed, err)
	}
	var cb slack.InteractionCallback
	if err := json.Unmarshal([]byte(form.Get("payload")), &cb); err != nil {
		return events.InboundEvent{}, fmt.Errorf("%w: payload: %v", events.ErrMalformed, err)
	}

	ev := events.InboundEvent{Platform: "slack", Resource: string(cb.Type)}
	if cb.Type != slack.InteractionTypeBlockActions || len(cb.ActionCallback.BlockActions) == 0 {
		return ev, nil
	}

	pressed := cb.ActionCallback.BlockActions[0]
	inputs := make(map[string]string)
	if cb.BlockActionState != nil {
		for _, block := range cb.BlockActionState.Values {
			for id, a := range block {
				inputs[id] = slackActionValue(a)
			}
		}
	}
	var data map[string]string
	if err := json.Unmarshal([]byte(pressed.Value), &data); err == nil {
		for k, v := range data {
			inputs[k] = v
		}
	}

	ev.Resource, ev.Event = events.ResourceAttachmentActions, events.EventCreated
	ev.EventID = pressed.ActionTs
	ev.ActionID = pressed.ActionID
	ev.RoomID = cb.Channel.ID
	ev.ActorID = cb.User.ID
	ev.CardInputs = inputs
	return ev, nil
}

func slackActionValue(a slack.BlockAction) string {
	switch {
	case a.Value != "":
		return a.Value
	case a.SelectedOption.Value != "":
		return a.SelectedOption.Value
	case a.SelectedDate != "":
		return a.SelectedDate
	default:
		return a.SelectedTime
	}
}

// SelfID returns the bot user id.
func (c *SlackChannel) SelfID(ctx context.Context) (string, error) {
	resp, err := c.api.AuthTestContext(ctx)
	if err != nil {
		return "", fmt.Errorf("slack auth test: %w", err)
	}
	return resp.UserID, nil
}

// ResolveEmail looks up a user's profile email. It needs the
// users:read.email scope.
func (c *SlackChannel) ResolveEmail(ctx context.Context, actorID string) (string, error) {
	u, err := c.api.GetUserInfoContext(ctx, actorID)
	if err != nil {
		return "", fmt.Errorf("slack user info: %w", err)
	}
	return u.Profile.Email, nil
}

func (c *SlackChannel) MessageText(_ context.Context, ev events.InboundEvent) (string, error) {
	return ev.Text, nil
}

func (c *SlackChannel) CardInputs(_ context.Context, ev events.InboundEvent) (map[string]string, error) {
	return ev.CardInputs, nil
}

func stripSlackMention(text string) string {
	return strings.TrimSpace(slackMention.ReplaceAllString(text, ""))
}

// SlackBlocks renders a card as Block Kit blocks, with text as the leading
// section.
func SlackBlocks(text string, c *cards.Card) []slack.Block {
	var blocks []slack.Block
	if c.Title != "" {
		blocks = append(blocks, slack.NewHeaderBlock(plain(c.Title)))
	}
	if text != "" {
		blocks = append(blocks, section(text))
	}

	for _, e := range c.Body {
		if e.Input == nil {
			t := e.Text
			if e.Bold {
				t = "*" + t + "*"
			}
			blocks = append(blocks, section(t))
			continue
		}
		in := slack.NewInputBlock(e.Input.ID+"_block", plain(e.Input.Label), nil, slackInput(e.Input))
		in.Optional = !e.Input.Required
		blocks = append(blocks, in)
	}

	for i, r := range c.Rows {
		blocks = append(blocks, section(r.Text))
		blocks = append(blocks, slack.NewActionBlock(fmt.Sprintf("row_%d", i), slackButtons(r.Actions)...))
	}
	if len(c.Actions) > 0 {
		blocks = append(blocks, slack.NewActionBlock("actions", slackButtons(c.Actions)...))
	}
	return blocks
}

func slackInput(in *cards.Input) slack.BlockElement {
	var placeholder *slack.TextBlockObject
	if in.Placeholder != "" {
		placeholder = plain(in.Placeholder)
	}

	switch in.Kind {
	case cards.InputDate:
		el := slack.NewDatePickerBlockElement(in.ID)
		el.InitialDate = in.Value
		return el
	case cards.InputTime:
		el := slack.NewTimePickerBlockElement(in.ID)
		el.InitialTime = in.Value
		return el
	case cards.InputChoice:
		opts := make([]*slack.OptionBlockObject, 0, len(in.Choices))
		var initial *slack.OptionBlockObject
		for _, ch := range in.Choices {
			o := slack.NewOptionBlockObject(ch.Value, plain(ch.Title), nil)
			if ch.Value == in.Value {
				initial = o
			}
			opts = append(opts, o)
		}
		el := slack.NewOptionsSelectBlockElement(slack.OptTypeStatic, placeholder, in.ID, opts...)
		el.InitialOption = initial
		return el
	default:
		el := slack.NewPlainTextInputBlockElement(placeholder, in.ID)
		el.InitialValue = in.Value
		return el
	}
}

func slackButtons(actions []cards.Action) []slack.BlockElement {
	out := make([]slack.BlockElement, 0, len(actions))
	for i, a := range actions {
		value, _ := json.Marshal(a.Data)
		btn := slack.NewButtonBlockElement(fmt.Sprintf("%s_%d", a.Data["action"], i), string(value), plain(a.Title))
		if a.Danger {
			btn = btn.WithStyle(slack.StyleDanger)
		}
		out = append(out, btn)
	}
	return out
}

func plain(s string) *slack.TextBlockObject {
	return slack.NewTextBlockObject(slack.PlainTextType, s, false, false)
}

func section(s string) *slack.SectionBlock {
	return slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, s, false, false), nil, nil)
}
