package channels

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/tinyland-inc/botper/pkg/bus"
	"github.com/tinyland-inc/botper/pkg/cards"
	"github.com/tinyland-inc/botper/pkg/config"
	"github.com/tinyland-inc/botper/pkg/events"
	"github.com/tinyland-inc/botper/pkg/logger"
)

const (
	telegramSecretHeader = "X-Telegram-Bot-Api-Secret-Token"
	telegramMaxMessage   = 4000
	// Telegram rejects callback data longer than this.
	telegramMaxCallback = 64
)

// Short keys keep card action data inside the callback limit.
var callbackKeys = map[string]string{
	"action":        "a",
	"task_id":       "t",
	"completed":     "c",
	"meeting_title": "m",
}

// TelegramChannel receives webhook updates and answers with inline
// keyboards. Telegram has no forms, so card inputs are rendered as text.
type TelegramChannel struct {
	*BaseChannel
	bot    *telego.Bot
	secret string
}

func NewTelegramChannel(cfg config.TelegramConfig, opts ...telego.BotOption) (*TelegramChannel, error) {
	opts = append([]telego.BotOption{telego.WithDiscardLogger()}, opts...)
	bot, err := telego.NewBot(cfg.Token, opts...)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return &TelegramChannel{
		BaseChannel: NewBaseChannel("telegram", cfg.AllowFrom, WithMaxMessageLength(telegramMaxMessage)),
		bot:         bot,
		secret:      cfg.SecretToken,
	}, nil
}

func (c *TelegramChannel) Send(ctx context.Context, msg bus.OutboundMessage) error {
	chatID, err := strconv.ParseInt(msg.ChatID, 10, 64)
	if err != nil {
		return fmt.Errorf("telegram chat id %q: %w", msg.ChatID, err)
	}

	text := msg.Content
	params := tu.Message(tu.ID(chatID), text)
	if msg.Card != nil {
		body, keyboard := telegramCard(msg.Card)
		if text != "" {
			body = text + "\n\n" + body
		}
		params.Text = body
		if len(keyboard) > 0 {
			params = params.WithReplyMarkup(tu.InlineKeyboard(keyboard...))
		}
	}
	if _, err := c.bot.SendMessage(ctx, params); err != nil {
		return fmt.Errorf("telegram send message: %w", err)
	}
	return nil
}

func (c *TelegramChannel) Verify(header http.Header, _ []byte) error {
	if c.secret == "" {
		return nil
	}
	got := header.Get(telegramSecretHeader)
	if subtle.ConstantTimeCompare([]byte(got), []byte(c.secret)) != 1 {
		return ErrSignature
	}
	return nil
}

func (c *TelegramChannel) Decode(_ http.Header, body []byte) (events.InboundEvent, error) {
	var u telego.Update
	if err := json.Unmarshal(body, &u); err != nil {
		return events.InboundEvent{}, fmt.Errorf("%w: %v", events.ErrMalformed, err)
	}

	ev := events.InboundEvent{Platform: "telegram", EventID: strconv.Itoa(u.UpdateID)}
	switch {
	case u.CallbackQuery != nil:
		cq := u.CallbackQuery
		ev.Resource, ev.Event = events.ResourceAttachmentActions, events.EventCreated
		ev.ActionID = cq.ID
		ev.ActorID = strconv.FormatInt(cq.From.ID, 10)
		if cq.Message != nil {
			ev.RoomID = strconv.FormatInt(cq.Message.GetChat().ID, 10)
		}
		ev.CardInputs = decodeCallback(cq.Data)

	case u.Message != nil && len(u.Message.NewChatMembers) > 0:
		m := u.Message
		member := m.NewChatMembers[0]
		for _, nm := range m.NewChatMembers {
			if nm.IsBot {
				member = nm
				break
			}
		}
		ev.Resource, ev.Event = events.ResourceMemberships, events.EventCreated
		ev.RoomID = strconv.FormatInt(m.Chat.ID, 10)
		ev.Membership = &events.MembershipDescriptor{
			RoomID:   ev.RoomID,
			PersonID: strconv.FormatInt(member.ID, 10),
		}

	case u.Message != nil:
		m := u.Message
		ev.Resource, ev.Event = events.ResourceMessages, events.EventCreated
		ev.RoomID = strconv.FormatInt(m.Chat.ID, 10)
		ev.MessageID = strconv.Itoa(m.MessageID)
		if m.From != nil {
			ev.ActorID = strconv.FormatInt(m.From.ID, 10)
		}
		ev.Text = telegramCommandText(m.Text)
	}
	return ev, nil
}

// telegramCommandText turns "/list@botper_bot" into "list" so slash
// commands reach the same parser as plain text.
func telegramCommandText(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return text
	}
	cmd, rest, _ := strings.Cut(text[1:], " ")
	cmd, _, _ = strings.Cut(cmd, "@")
	cmd = strings.ReplaceAll(cmd, "_", " ")
	if cmd == "start" {
		cmd = "hello"
	}
	return strings.TrimSpace(cmd + " " + rest)
}

func (c *TelegramChannel) SelfID(ctx context.Context) (string, error) {
	me, err := c.bot.GetMe(ctx)
	if err != nil {
		return "", fmt.Errorf("telegram get me: %w", err)
	}
	return strconv.FormatInt(me.ID, 10), nil
}

func (c *TelegramChannel) MessageText(_ context.Context, ev events.InboundEvent) (string, error) {
	return ev.Text, nil
}

// CardInputs acknowledges the button press so the client stops its spinner
// and returns the decoded callback data.
func (c *TelegramChannel) CardInputs(ctx context.Context, ev events.InboundEvent) (map[string]string, error) {
	if ev.ActionID != "" {
		err := c.bot.AnswerCallbackQuery(ctx, &telego.AnswerCallbackQueryParams{CallbackQueryID: ev.ActionID})
		if err != nil {
			logger.WarnCF("telegram", "Callback answer failed", map[string]any{"error": err.Error()})
		}
	}
	return ev.CardInputs, nil
}

func telegramCard(c *cards.Card) (string, [][]telego.InlineKeyboardButton) {
	var b strings.Builder
	if c.Title != "" {
		b.WriteString(c.Title + "\n")
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
		b.WriteString(e.Text + "\n")
	}

	var keyboard [][]telego.InlineKeyboardButton
	for i, r := range c.Rows {
		fmt.Fprintf(&b, "%d. %s\n", i+1, r.Text)
		row := make([]telego.InlineKeyboardButton, 0, len(r.Actions))
		for _, a := range r.Actions {
			row = append(row, tu.InlineKeyboardButton(fmt.Sprintf("%s %d", a.Title, i+1)).
				WithCallbackData(encodeCallback(a.Data)))
		}
		keyboard = append(keyboard, row)
	}
	if len(c.Actions) > 0 {
		row := make([]telego.InlineKeyboardButton, 0, len(c.Actions))
		for _, a := range c.Actions {
			row = append(row, tu.InlineKeyboardButton(a.Title).WithCallbackData(encodeCallback(a.Data)))
		}
		keyboard = append(keyboard, row)
	}
	return strings.TrimRight(b.String(), "\n"), keyboard
}

// encodeCallback packs action data as a short query string. Keys that would
// push it past the callback limit are dropped, longest first; the session
// still carries anything dropped.
func encodeCallback(data map[string]string) string {
	v := url.Values{}
	for k, val := range data {
		if short, ok := callbackKeys[k]; ok {
			k = short
		}
		v.Set(k, val)
	}
	for len(v.Encode()) > telegramMaxCallback {
		longest := ""
		for k := range v {
			if k != "a" && (longest == "" || len(v.Get(k)) > len(v.Get(longest))) {
				longest = k
			}
		}
		if longest == "" {
			break
		}
		v.Del(longest)
	}
	return v.Encode()
}

func decodeCallback(s string) map[string]string {
	v, err := url.ParseQuery(s)
	if err != nil {
		return map[string]string{}
	}
	long := make(map[string]string, len(callbackKeys))
	for k, short := range callbackKeys {
		long[short] = k
	}
	out := make(map[string]string, len(v))
	for k := range v {
		name := k
		if l, ok := long[k]; ok {
			name = l
		}
		out[name] = v.Get(k)
	}
	return out
}

// RegisterWebhook points the bot's update webhook at targetURL, carrying the
// secret token Verify checks.
func (c *TelegramChannel) RegisterWebhook(ctx context.Context, targetURL string) error {
	err := c.bot.SetWebhook(ctx, &telego.SetWebhookParams{
		URL:            targetURL,
		SecretToken:    c.secret,
		AllowedUpdates: []string{"message", "callback_query"},
	})
	if err != nil {
		return fmt.Errorf("telegram set webhook: %w", err)
	}
	logger.InfoCF("telegram", "Webhook registered", map[string]any{"url": targetURL})
	return nil
}

// WebhookURL reports where Telegram currently delivers updates.
func (c *TelegramChannel) WebhookURL(ctx context.Context) (string, error) {
	info, err := c.bot.GetWebhookInfo(ctx)
	if err != nil {
		return "", fmt.Errorf("telegram webhook info: %w", err)
	}
	return info.URL, nil
}

func (c *TelegramChannel) DeleteWebhook(ctx context.Context) error {
	if err := c.bot.DeleteWebhook(ctx, &telego.DeleteWebhookParams{}); err != nil {
		return fmt.Errorf("telegram delete webhook: %w", err)
	}
	return nil
}
