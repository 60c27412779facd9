package check

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyland-inc/botper/pkg/config"
)

func TestNewCheckCommand(t *testing.T) {
	cmd := NewCheckCommand()
	require.NotNil(t, cmd)

	assert.Equal(t, "check", cmd.Use)
	assert.NotNil(t, cmd.RunE)
	assert.False(t, cmd.HasSubCommands())
	assert.NotNil(t, cmd.Flags().Lookup("skip-meetings"))
}

func webexConfig(url string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Channels.Webex.Enabled = true
	cfg.Channels.Webex.BotToken = "webex-token"
	cfg.Channels.Webex.BaseURL = url
	cfg.Meetings.BaseURL = url
	return cfg
}

func TestRunChecks(t *testing.T) {
	meetingsStatus := http.StatusOK
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/people/me":
			_, _ = w.Write([]byte(`{"id":"bot-1","emails":["botper@webex.bot"]}`))
		case "/meetings":
			w.WriteHeader(meetingsStatus)
			_, _ = w.Write([]byte(`{"items":[]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()
	ctx := context.Background()

	var out bytes.Buffer
	assert.True(t, runChecks(ctx, &out, webexConfig(srv.URL), false))
	assert.Contains(t, out.String(), "OK    webex token (bot id bot-1)")
	assert.Contains(t, out.String(), "OK    meetings: scheduling scopes granted")

	meetingsStatus = http.StatusForbidden
	out.Reset()
	assert.False(t, runChecks(ctx, &out, webexConfig(srv.URL), false))
	assert.Contains(t, out.String(), "FAIL  meetings")
	assert.Contains(t, out.String(), "meeting:schedules_write")

	out.Reset()
	assert.True(t, runChecks(ctx, &out, webexConfig(srv.URL), true))
	assert.NotContains(t, out.String(), "meetings")
}

func TestCheckCmdFailsOnBadToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	prev := loadConfig
	t.Cleanup(func() { loadConfig = prev })
	loadConfig = func() (*config.Config, error) { return webexConfig(srv.URL), nil }

	var out bytes.Buffer
	err := checkCmd(context.Background(), &out, true)
	assert.ErrorIs(t, err, errChecksFailed)
	assert.Contains(t, out.String(), "FAIL  webex token")
}

func TestRunChecksWithoutChannels(t *testing.T) {
	var out bytes.Buffer
	assert.True(t, runChecks(context.Background(), &out, config.DefaultConfig(), false))
	assert.Contains(t, out.String(), "WARN  no channels enabled")
	assert.Contains(t, out.String(), "SKIP  meetings")
}
