package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyland-inc/botper/pkg/config"
)

func TestNewWebhooksCommand(t *testing.T) {
	cmd := NewWebhooksCommand()
	require.NotNil(t, cmd)

	assert.Equal(t, "webhooks", cmd.Use)
	assert.True(t, cmd.HasExample())
	assert.True(t, cmd.HasSubCommands())

	for _, name := range []string{"list", "register", "create", "delete"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.NotNil(t, sub.RunE, name)
	}

	register, _, _ := cmd.Find([]string{"register"})
	assert.Equal(t, "all", register.Flags().Lookup("platform").DefValue)
	create, _, _ := cmd.Find([]string{"create"})
	assert.Equal(t, "messages", create.Flags().Lookup("resource").DefValue)
}

func TestTargetURL(t *testing.T) {
	assert.Equal(t, "https://bot.example.com/webex/webhook", TargetURL("https://bot.example.com/", "webex"))
	assert.Equal(t, "http://h:8001/telegram/webhook", TargetURL("http://h:8001", "telegram"))
}

// fakeWebex keeps webhooks in memory behind the subset of the REST API the
// commands use.
type fakeWebex struct {
	mu    sync.Mutex
	hooks []map[string]any
	next  int
}

func (f *fakeWebex) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/webhooks":
		_ = json.NewEncoder(w).Encode(map[string]any{"items": f.hooks})
	case r.Method == http.MethodPost && r.URL.Path == "/webhooks":
		body, _ := io.ReadAll(r.Body)
		var h map[string]any
		_ = json.Unmarshal(body, &h)
		f.next++
		h["id"] = "wh-" + string(rune('0'+f.next))
		h["status"] = "active"
		f.hooks = append(f.hooks, h)
		_ = json.NewEncoder(w).Encode(h)
	case r.Method == http.MethodDelete:
		id := r.URL.Path[len("/webhooks/"):]
		for i, h := range f.hooks {
			if h["id"] == id {
				f.hooks = append(f.hooks[:i], f.hooks[i+1:]...)
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func withFakeWebex(t *testing.T) *fakeWebex {
	t.Helper()
	fake := &fakeWebex{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	prev := loadConfig
	t.Cleanup(func() { loadConfig = prev })
	loadConfig = func() (*config.Config, error) {
		cfg := config.DefaultConfig()
		cfg.Channels.Webex.Enabled = true
		cfg.Channels.Webex.BotToken = "webex-token"
		cfg.Channels.Webex.BaseURL = srv.URL
		cfg.Channels.Webex.WebhookSecret = "shh"
		cfg.Channels.Slack.Enabled = true
		return cfg, nil
	}
	return fake
}

func TestWebhookLifecycle(t *testing.T) {
	fake := withFakeWebex(t)
	ctx := context.Background()
	var out bytes.Buffer

	require.NoError(t, listCmd(ctx, &out))
	assert.Contains(t, out.String(), "No webhooks registered.")

	out.Reset()
	require.NoError(t, createCmd(ctx, &out, "https://old.example.com/hook", "messages", "created", ""))
	assert.Contains(t, out.String(), "Created webhook wh-1")

	out.Reset()
	require.NoError(t, registerCmd(ctx, &out, "https://bot.example.com", "all"))
	assert.Contains(t, out.String(), "slack: set the Event Subscriptions")
	assert.Contains(t, out.String(), "https://bot.example.com/webex/webhook")

	fake.mu.Lock()
	require.Len(t, fake.hooks, 3)
	for _, h := range fake.hooks {
		assert.Equal(t, "https://bot.example.com/webex/webhook", h["targetUrl"])
		assert.Equal(t, "shh", h["secret"])
	}
	firstID := fake.hooks[0]["id"].(string)
	fake.mu.Unlock()

	out.Reset()
	require.NoError(t, listCmd(ctx, &out))
	assert.Contains(t, out.String(), "memberships")

	out.Reset()
	require.NoError(t, deleteCmd(ctx, &out, "webex", firstID))
	assert.Contains(t, out.String(), "Deleted webhook "+firstID)
	assert.Error(t, deleteCmd(ctx, &out, "webex", firstID))
	assert.Error(t, deleteCmd(ctx, &out, "webex", ""))
	assert.Error(t, deleteCmd(ctx, &out, "discord", "x"))
}

func TestRegisterRejectsUnknownPlatform(t *testing.T) {
	withFakeWebex(t)
	err := registerCmd(context.Background(), io.Discard, "https://bot.example.com", "irc")
	assert.ErrorContains(t, err, "unknown platform")
}
