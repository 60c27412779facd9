package migrate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyland-inc/botper/pkg/config"
)

func TestConfigToYAML_DefaultConfig(t *testing.T) {
	out, err := configToYAML(config.DefaultConfig(), false, &ToYAMLResult{})
	require.NoError(t, err)

	for _, expected := range []string{
		"# Botper configuration",
		"gateway:",
		"channels:",
		"sessions:",
		"self_check_policy: continue",
		"housekeeping:",
	} {
		assert.Contains(t, out, expected)
	}
}

func TestConfigToYAML_CredentialRedaction(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Channels.Webex.BotToken = "webex-secret-12345"
	cfg.Channels.Telegram.Token = "123:abc"

	result := &ToYAMLResult{}
	out, err := configToYAML(cfg, false, result)
	require.NoError(t, err)

	assert.NotContains(t, out, "webex-secret-12345")
	assert.NotContains(t, out, "123:abc")
	assert.Len(t, result.Warnings, 2)
	assert.Contains(t, strings.Join(result.Warnings, "\n"), "BOTPER_CHANNELS_WEBEX_BOT_TOKEN")
	// the caller's config is untouched
	assert.Equal(t, "webex-secret-12345", cfg.Channels.Webex.BotToken)

	kept, err := configToYAML(cfg, true, &ToYAMLResult{})
	require.NoError(t, err)
	assert.Contains(t, kept, "webex-secret-12345")
}

func TestRunToYAML_Roundtrip(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "config.json")

	cfg := config.DefaultConfig()
	cfg.Gateway.Port = 9123
	cfg.Channels.Slack.Enabled = true
	cfg.Channels.Slack.AllowFrom = config.FlexibleStringSlice{"U1"}
	require.NoError(t, config.SaveConfig(jsonPath, cfg))

	result, err := RunToYAML(ToYAMLOptions{ConfigPath: jsonPath})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config.yaml"), result.OutputPath)

	loaded, err := config.LoadYAMLConfig(result.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, 9123, loaded.Gateway.Port)
	assert.True(t, loaded.Channels.Slack.Enabled)
	assert.Equal(t, config.FlexibleStringSlice{"U1"}, loaded.Channels.Slack.AllowFrom)

	_, err = RunToYAML(ToYAMLOptions{ConfigPath: jsonPath})
	assert.ErrorContains(t, err, "already exists")

	_, err = RunToYAML(ToYAMLOptions{ConfigPath: jsonPath, Force: true})
	assert.NoError(t, err)
}

func TestRunToYAML_DryRunWritesNothing(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "config.json")
	require.NoError(t, config.SaveConfig(jsonPath, config.DefaultConfig()))

	result, err := RunToYAML(ToYAMLOptions{ConfigPath: jsonPath, DryRun: true})
	require.NoError(t, err)
	assert.NotEmpty(t, result.YAML)

	_, err = os.Stat(result.OutputPath)
	assert.True(t, os.IsNotExist(err))
}

func TestRunToYAML_MissingConfig(t *testing.T) {
	_, err := RunToYAML(ToYAMLOptions{ConfigPath: filepath.Join(t.TempDir(), "nope.json")})
	assert.ErrorContains(t, err, "config file not found")
}
