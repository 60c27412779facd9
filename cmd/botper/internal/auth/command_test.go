package auth

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyland-inc/botper/pkg/config"
)

func TestNewAuthCommand(t *testing.T) {
	cmd := NewAuthCommand()
	require.NotNil(t, cmd)

	assert.Equal(t, "auth", cmd.Use)
	assert.True(t, cmd.HasSubCommands())
	assert.Nil(t, cmd.RunE)

	login, _, err := cmd.Find([]string{"login"})
	require.NoError(t, err)
	assert.Equal(t, "webex", login.Flags().Lookup("platform").DefValue)
	assert.True(t, login.HasExample())

	status, _, err := cmd.Find([]string{"status"})
	require.NoError(t, err)
	assert.NotNil(t, status.RunE)
}

func useConfigFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	prevLoad, prevPath := loadConfig, configPath
	t.Cleanup(func() { loadConfig, configPath = prevLoad, prevPath })
	loadConfig = func() (*config.Config, error) { return config.LoadConfig(path) }
	configPath = func() string { return path }
	return path
}

func TestLoginSavesToken(t *testing.T) {
	path := useConfigFile(t)

	var out bytes.Buffer
	require.NoError(t, loginCmd("telegram", strings.NewReader("123:abcdef\n"), &out))
	assert.Contains(t, out.String(), "@BotFather")
	assert.Contains(t, out.String(), "123:********")

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "123:abcdef", cfg.Channels.Telegram.Token)
	assert.True(t, cfg.Channels.Telegram.Enabled)

	out.Reset()
	require.NoError(t, statusCmd(&out))
	assert.Contains(t, out.String(), "telegram  enabled  123:********")
	assert.Contains(t, out.String(), "webex     disabled (none)")
}

func TestLoginRejectsEmptyAndUnknown(t *testing.T) {
	useConfigFile(t)
	var out bytes.Buffer

	assert.Error(t, loginCmd("webex", strings.NewReader("\n"), &out))
	assert.ErrorContains(t, loginCmd("irc", strings.NewReader("tok\n"), &out), "unknown platform")
}
