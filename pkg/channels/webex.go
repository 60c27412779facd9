package channels

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/tinyland-inc/botper/pkg/bus"
	"github.com/tinyland-inc/botper/pkg/cards"
	"github.com/tinyland-inc/botper/pkg/config"
	"github.com/tinyland-inc/botper/pkg/events"
	"github.com/tinyland-inc/botper/pkg/logger"
)

const (
	webexSignatureHeader = "X-Spark-Signature"
	webexMaxMessage      = 7000
)

// Webhook is a Webex webhook registration.
type Webhook struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	TargetURL string `json:"targetUrl"`
	Resource  string `json:"resource"`
	Event     string `json:"event"`
	Secret    string `json:"secret,omitempty"`
	Status    string `json:"status,omitempty"`
}

// Room is the subset of a Webex room the bot uses.
type Room struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Type  string `json:"type"`
}

type webexMessage struct {
	ID     string `json:"id"`
	RoomID string `json:"roomId"`
	Text   string `json:"text"`
}

type webexAction struct {
	ID     string         `json:"id"`
	Type   string         `json:"type"`
	Inputs map[string]any `json:"inputs"`
}

type webexPerson struct {
	ID     string   `json:"id"`
	Emails []string `json:"emails"`
}

type webexAttachment struct {
	ContentType string         `json:"contentType"`
	Content     map[string]any `json:"content"`
}

type webexPost struct {
	RoomID      string            `json:"roomId"`
	Markdown    string            `json:"markdown,omitempty"`
	Text        string            `json:"text,omitempty"`
	Attachments []webexAttachment `json:"attachments,omitempty"`
}

// WebexChannel talks to the Webex messaging API with the bot token.
type WebexChannel struct {
	*BaseChannel
	rest   *resty.Client
	secret string
}

func NewWebexChannel(cfg config.WebexConfig) *WebexChannel {
	base := cfg.BaseURL
	if base == "" {
		base = "https://webexapis.com/v1"
	}
	rest := resty.New().
		SetBaseURL(strings.TrimRight(base, "/")).
		SetAuthToken(cfg.BotToken).
		SetTimeout(30*time.Second).
		SetHeader("Accept", "application/json")

	return &WebexChannel{
		BaseChannel: NewBaseChannel("webex", cfg.AllowFrom, WithMaxMessageLength(webexMaxMessage)),
		rest:        rest,
		secret:      cfg.WebhookSecret,
	}
}

func (c *WebexChannel) Send(ctx context.Context, msg bus.OutboundMessage) error {
	post := webexPost{RoomID: msg.ChatID, Markdown: msg.Content}
	if msg.Card != nil {
		if post.Markdown == "" {
			post.Markdown = cards.PlainText(msg.Card)
		}
		post.Attachments = []webexAttachment{{
			ContentType: cards.AdaptiveContentType,
			Content:     cards.Adaptive(msg.Card),
		}}
	}
	resp, err := c.rest.R().SetContext(ctx).SetBody(post).Post("/messages")
	return webexCheck(resp, err, "send message")
}

// Verify checks the HMAC-SHA1 signature Webex computes over the body with
// the webhook secret.
func (c *WebexChannel) Verify(header http.Header, body []byte) error {
	if c.secret == "" {
		return nil
	}
	got, err := hex.DecodeString(header.Get(webexSignatureHeader))
	if err != nil || len(got) == 0 {
		return ErrSignature
	}
	mac := hmac.New(sha1.New, []byte(c.secret))
	mac.Write(body)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return ErrSignature
	}
	return nil
}

func (c *WebexChannel) Decode(_ http.Header, body []byte) (events.InboundEvent, error) {
	return events.DecodeWebex(body)
}

// SelfID returns the bot's person id.
func (c *WebexChannel) SelfID(ctx context.Context) (string, error) {
	var me webexPerson
	resp, err := c.rest.R().SetContext(ctx).SetResult(&me).Get("/people/me")
	if err := webexCheck(resp, err, "get bot identity"); err != nil {
		return "", err
	}
	return me.ID, nil
}

// MessageText fetches the message body, since Webex webhooks only carry ids.
func (c *WebexChannel) MessageText(ctx context.Context, ev events.InboundEvent) (string, error) {
	if ev.Text != "" {
		return ev.Text, nil
	}
	var m webexMessage
	resp, err := c.rest.R().SetContext(ctx).SetResult(&m).
		SetPathParam("id", ev.MessageID).Get("/messages/{id}")
	if err := webexCheck(resp, err, "get message"); err != nil {
		return "", err
	}
	return m.Text, nil
}

func (c *WebexChannel) CardInputs(ctx context.Context, ev events.InboundEvent) (map[string]string, error) {
	if ev.CardInputs != nil {
		return ev.CardInputs, nil
	}
	var a webexAction
	resp, err := c.rest.R().SetContext(ctx).SetResult(&a).
		SetPathParam("id", ev.ActionID).Get("/attachment/actions/{id}")
	if err := webexCheck(resp, err, "get card action"); err != nil {
		return nil, err
	}
	return events.StringInputs(a.Inputs), nil
}

func (c *WebexChannel) GetRoom(ctx context.Context, roomID string) (Room, error) {
	var r Room
	resp, err := c.rest.R().SetContext(ctx).SetResult(&r).
		SetPathParam("id", roomID).Get("/rooms/{id}")
	if err := webexCheck(resp, err, "get room"); err != nil {
		return Room{}, err
	}
	return r, nil
}

// RoomTitle is used to address greetings.
func (c *WebexChannel) RoomTitle(ctx context.Context, roomID string) (string, error) {
	r, err := c.GetRoom(ctx, roomID)
	return r.Title, err
}

func (c *WebexChannel) ListWebhooks(ctx context.Context) ([]Webhook, error) {
	var out struct {
		Items []Webhook `json:"items"`
	}
	resp, err := c.rest.R().SetContext(ctx).SetResult(&out).Get("/webhooks")
	if err := webexCheck(resp, err, "list webhooks"); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (c *WebexChannel) CreateWebhook(ctx context.Context, w Webhook) (Webhook, error) {
	var out Webhook
	resp, err := c.rest.R().SetContext(ctx).SetBody(w).SetResult(&out).Post("/webhooks")
	if err := webexCheck(resp, err, "create webhook"); err != nil {
		return Webhook{}, err
	}
	return out, nil
}

func (c *WebexChannel) DeleteWebhook(ctx context.Context, id string) error {
	resp, err := c.rest.R().SetContext(ctx).SetPathParam("id", id).Delete("/webhooks/{id}")
	return webexCheck(resp, err, "delete webhook")
}

// RegisterWebhooks replaces every webhook of the bot with one per resource
// the gateway handles, all pointing at targetURL.
func (c *WebexChannel) RegisterWebhooks(ctx context.Context, targetURL string) ([]Webhook, error) {
	existing, err := c.ListWebhooks(ctx)
	if err != nil {
		return nil, err
	}
	for _, w := range existing {
		if err := c.DeleteWebhook(ctx, w.ID); err != nil {
			return nil, err
		}
		logger.InfoCF("webex", "Deleted webhook", map[string]any{"id": w.ID, "name": w.Name})
	}

	// Bot tokens cannot subscribe to the meetings resource; a token holding
	// meeting:schedules_read registers that one with `webhooks create`.
	wanted := []Webhook{
		{Name: "Botper Message Webhook", Resource: events.ResourceMessages, Event: events.EventCreated},
		{Name: "Botper Actions Webhook", Resource: events.ResourceAttachmentActions, Event: events.EventCreated},
		{Name: "Botper Membership Webhook", Resource: events.ResourceMemberships, Event: events.EventCreated},
	}
	created := make([]Webhook, 0, len(wanted))
	for _, w := range wanted {
		w.TargetURL = targetURL
		w.Secret = c.secret
		out, err := c.CreateWebhook(ctx, w)
		if err != nil {
			return created, err
		}
		logger.InfoCF("webex", "Created webhook", map[string]any{
			"id":       out.ID,
			"resource": w.Resource,
			"event":    w.Event,
		})
		created = append(created, out)
	}
	return created, nil
}

func webexCheck(resp *resty.Response, err error, op string) error {
	if err != nil {
		return fmt.Errorf("webex %s: %w", op, err)
	}
	switch code := resp.StatusCode(); {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusForbidden || code == http.StatusNotFound:
		return fmt.Errorf("webex %s: status %d: %w", op, code, ErrNotAccessible)
	default:
		return fmt.Errorf("webex %s: status %d: %s", op, code, resp.String())
	}
}
