// Package migrate converts a JSON config file into the YAML form read by
// config.LoadYAMLConfig.
package migrate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tinyland-inc/botper/pkg/config"
)

// ToYAMLOptions controls JSON-to-YAML config migration.
type ToYAMLOptions struct {
	ConfigPath string // JSON config path (default: ~/.botper/config.json)
	OutputPath string // YAML output path (default: same dir, .yaml extension)
	DryRun     bool
	Force      bool
	// KeepSecrets writes credentials verbatim instead of blanking them.
	KeepSecrets bool
}

// ToYAMLResult summarizes the conversion.
type ToYAMLResult struct {
	OutputPath string
	YAML       string
	Warnings   []string
}

// secret names a credential field and the env var that can supply it.
type secret struct {
	field string
	env   string
	value *string
}

func secrets(cfg *config.Config) []secret {
	return []secret{
		{"channels.webex.bot_token", "BOTPER_CHANNELS_WEBEX_BOT_TOKEN", &cfg.Channels.Webex.BotToken},
		{"channels.webex.webhook_secret", "BOTPER_CHANNELS_WEBEX_WEBHOOK_SECRET", &cfg.Channels.Webex.WebhookSecret},
		{"channels.slack.bot_token", "BOTPER_CHANNELS_SLACK_BOT_TOKEN", &cfg.Channels.Slack.BotToken},
		{"channels.slack.signing_secret", "BOTPER_CHANNELS_SLACK_SIGNING_SECRET", &cfg.Channels.Slack.SigningSecret},
		{"channels.telegram.token", "BOTPER_CHANNELS_TELEGRAM_TOKEN", &cfg.Channels.Telegram.Token},
		{"channels.telegram.secret_token", "BOTPER_CHANNELS_TELEGRAM_SECRET_TOKEN", &cfg.Channels.Telegram.SecretToken},
		{"oauth.client_secret", "BOTPER_OAUTH_CLIENT_SECRET", &cfg.OAuth.ClientSecret},
	}
}

// RunToYAML converts a JSON config file to YAML.
func RunToYAML(opts ToYAMLOptions) (*ToYAMLResult, error) {
	configPath := opts.ConfigPath
	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving home directory: %w", err)
		}
		configPath = filepath.Join(home, ".botper", "config.json")
	}

	outputPath := opts.OutputPath
	if outputPath == "" {
		outputPath = strings.TrimSuffix(configPath, ".json") + ".yaml"
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", configPath)
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	result := &ToYAMLResult{OutputPath: outputPath}
	out, err := configToYAML(cfg, opts.KeepSecrets, result)
	if err != nil {
		return nil, err
	}
	result.YAML = out

	if opts.DryRun {
		return result, nil
	}

	if !opts.Force {
		if _, err := os.Stat(outputPath); err == nil {
			return nil, fmt.Errorf("output file already exists: %s (use --force to overwrite)", outputPath)
		}
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(outputPath, []byte(out), 0o600); err != nil {
		return nil, err
	}
	return result, nil
}

// configToYAML renders cfg as YAML. Unless keepSecrets is set, credentials
// are blanked and a warning names the env var to supply them with.
func configToYAML(cfg *config.Config, keepSecrets bool, result *ToYAMLResult) (string, error) {
	c := *cfg
	if !keepSecrets {
		for _, s := range secrets(&c) {
			if *s.value == "" {
				continue
			}
			*s.value = ""
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("%s redacted; set %s to supply it", s.field, s.env))
		}
	}

	// Round-trip through the JSON field names so keys match the JSON file.
	doc, err := toMap(&c)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	buf.WriteString("# Botper configuration (generated from JSON)\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return "", fmt.Errorf("encoding yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("encoding yaml: %w", err)
	}
	return buf.String(), nil
}

// toMap converts v to a generic map through its JSON tags.
func toMap(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return m, nil
}
