package channels

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/mymmrac/telego"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyland-inc/botper/pkg/bus"
	"github.com/tinyland-inc/botper/pkg/cards"
	"github.com/tinyland-inc/botper/pkg/config"
	"github.com/tinyland-inc/botper/pkg/events"
)

const testTelegramToken = "123456:ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghi"

func newTelegram(t *testing.T, opts ...telego.BotOption) *TelegramChannel {
	t.Helper()
	ch, err := NewTelegramChannel(config.TelegramConfig{Token: testTelegramToken, SecretToken: "tg-secret"}, opts...)
	require.NoError(t, err)
	return ch
}

func TestTelegramVerify(t *testing.T) {
	ch := newTelegram(t)
	assert.NoError(t, ch.Verify(http.Header{telegramSecretHeader: {"tg-secret"}}, nil))
	assert.ErrorIs(t, ch.Verify(http.Header{telegramSecretHeader: {"nope"}}, nil), ErrSignature)
	assert.ErrorIs(t, ch.Verify(http.Header{}, nil), ErrSignature)
}

func TestTelegramDecodeMessage(t *testing.T) {
	ch := newTelegram(t)
	body := []byte(`{"update_id": 77, "message": {"message_id": 5, "date": 0,
		"from": {"id": 42, "is_bot": false, "first_name": "Al"},
		"chat": {"id": -100, "type": "group"},
		"text": "/my_meetings@botper_bot"}}`)
	ev, err := ch.Decode(nil, body)
	require.NoError(t, err)
	assert.Equal(t, events.InboundEvent{
		Platform:  "telegram",
		EventID:   "77",
		Resource:  events.ResourceMessages,
		Event:     events.EventCreated,
		RoomID:    "-100",
		ActorID:   "42",
		MessageID: "5",
		Text:      "my meetings",
	}, ev)
}

func TestTelegramDecodeBotAdded(t *testing.T) {
	ch := newTelegram(t)
	body := []byte(`{"update_id": 78, "message": {"message_id": 6, "date": 0,
		"chat": {"id": -100, "type": "group"},
		"new_chat_members": [{"id": 1, "is_bot": false, "first_name": "A"}, {"id": 999, "is_bot": true, "first_name": "Botper"}]}}`)
	ev, err := ch.Decode(nil, body)
	require.NoError(t, err)
	assert.Equal(t, events.ResourceMemberships, ev.Resource)
	require.NotNil(t, ev.Membership)
	assert.Equal(t, "999", ev.Membership.PersonID)
}

func TestTelegramDecodeCallback(t *testing.T) {
	ch := newTelegram(t)
	data := encodeCallback(map[string]string{"action": "toggle", "task_id": "t-1", "completed": "false"})
	body := []byte(`{"update_id": 79, "callback_query": {"id": "cq1",
		"from": {"id": 42, "is_bot": false, "first_name": "Al"},
		"message": {"message_id": 9, "date": 1, "chat": {"id": 7, "type": "private"}},
		"chat_instance": "x", "data": "` + data + `"}}`)
	ev, err := ch.Decode(nil, body)
	require.NoError(t, err)
	assert.Equal(t, events.ResourceAttachmentActions, ev.Resource)
	assert.Equal(t, "cq1", ev.ActionID)
	assert.Equal(t, "7", ev.RoomID)
	assert.Equal(t, map[string]string{"action": "toggle", "task_id": "t-1", "completed": "false"}, ev.CardInputs)
}

func TestTelegramCommandText(t *testing.T) {
	assert.Equal(t, "hello", telegramCommandText("/start"))
	assert.Equal(t, "task buy milk", telegramCommandText("/task buy milk"))
	assert.Equal(t, "instant meeting Sync", telegramCommandText("/instant_meeting@bot Sync"))
	assert.Equal(t, "list", telegramCommandText(" list "))
}

func TestEncodeCallbackFitsLimit(t *testing.T) {
	data := map[string]string{
		"action":        "save_meeting_link",
		"meeting_title": strings.Repeat("very long title ", 8),
	}
	enc := encodeCallback(data)
	assert.LessOrEqual(t, len(enc), telegramMaxCallback)
	assert.Equal(t, map[string]string{"action": "save_meeting_link"}, decodeCallback(enc))
}

func TestTelegramSend(t *testing.T) {
	var (
		mu   sync.Mutex
		sent map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/sendMessage") {
			body, _ := io.ReadAll(r.Body)
			mu.Lock()
			_ = json.Unmarshal(body, &sent)
			mu.Unlock()
			_, _ = io.WriteString(w, `{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":42,"type":"private"}}}`)
			return
		}
		if strings.HasSuffix(r.URL.Path, "/getMe") {
			_, _ = io.WriteString(w, `{"ok":true,"result":{"id":999,"is_bot":true,"first_name":"Botper"}}`)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	ch := newTelegram(t, telego.WithAPIServer(srv.URL))
	ctx := context.Background()

	card := &cards.Card{
		Title: "Your Tasks",
		Rows: []cards.Row{{
			Text:    "milk (id: t1)",
			Actions: []cards.Action{{Title: "Done", Data: map[string]string{"action": "toggle", "task_id": "t1"}}},
		}},
	}
	require.NoError(t, ch.Send(ctx, bus.OutboundMessage{ChatID: "42", Content: "Here are your tasks:", Card: card}))

	mu.Lock()
	assert.EqualValues(t, 42, sent["chat_id"])
	assert.Contains(t, sent["text"], "1. milk (id: t1)")
	assert.NotNil(t, sent["reply_markup"])
	mu.Unlock()

	self, err := ch.SelfID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "999", self)

	assert.Error(t, ch.Send(ctx, bus.OutboundMessage{ChatID: "not-a-number", Content: "x"}))
}

func TestTelegramWebhookRegistration(t *testing.T) {
	var (
		mu  sync.Mutex
		set map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/setWebhook"):
			body, _ := io.ReadAll(r.Body)
			mu.Lock()
			_ = json.Unmarshal(body, &set)
			mu.Unlock()
			_, _ = io.WriteString(w, `{"ok":true,"result":true}`)
		case strings.HasSuffix(r.URL.Path, "/getWebhookInfo"):
			_, _ = io.WriteString(w, `{"ok":true,"result":{"url":"https://bot.example.com/telegram/webhook","has_custom_certificate":false,"pending_update_count":0}}`)
		case strings.HasSuffix(r.URL.Path, "/deleteWebhook"):
			_, _ = io.WriteString(w, `{"ok":true,"result":true}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	ch := newTelegram(t, telego.WithAPIServer(srv.URL))
	ctx := context.Background()

	require.NoError(t, ch.RegisterWebhook(ctx, "https://bot.example.com/telegram/webhook"))
	mu.Lock()
	assert.Equal(t, "https://bot.example.com/telegram/webhook", set["url"])
	assert.Equal(t, "tg-secret", set["secret_token"])
	mu.Unlock()

	got, err := ch.WebhookURL(ctx)
	require.NoError(t, err)
	assert.Equal(t, "https://bot.example.com/telegram/webhook", got)

	assert.NoError(t, ch.DeleteWebhook(ctx))
}
