package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Self-identity check policies for inbound messages.
const (
	SelfCheckContinue = "continue"
	SelfCheckDrop     = "drop"
)

// FlexibleStringSlice is a []string that also accepts JSON numbers,
// so allow_from can contain both "123" and 123.
type FlexibleStringSlice []string

func (f *FlexibleStringSlice) UnmarshalJSON(data []byte) error {
	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*f = ss
		return nil
	}

	var raw []any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	result := make([]string, 0, len(raw))
	for _, v := range raw {
		switch val := v.(type) {
		case string:
			result = append(result, val)
		case float64:
			result = append(result, fmt.Sprintf("%.0f", val))
		default:
			result = append(result, fmt.Sprintf("%v", val))
		}
	}
	*f = result
	return nil
}

type Config struct {
	Gateway      GatewayConfig      `json:"gateway"`
	Channels     ChannelsConfig     `json:"channels"`
	Store        StoreConfig        `json:"store"`
	Sessions     SessionsConfig     `json:"sessions"`
	Meetings     MeetingsConfig     `json:"meetings"`
	OAuth        OAuthConfig        `json:"oauth,omitzero"`
	Housekeeping HousekeepingConfig `json:"housekeeping"`
	Logging      LoggingConfig      `json:"logging"`
}

type GatewayConfig struct {
	Host string `env:"BOTPER_GATEWAY_HOST" json:"host"`
	Port int    `env:"BOTPER_GATEWAY_PORT" json:"port"`
}

type ChannelsConfig struct {
	Webex    WebexConfig    `json:"webex"`
	Slack    SlackConfig    `json:"slack"`
	Telegram TelegramConfig `json:"telegram"`
}

type WebexConfig struct {
	Enabled       bool                `env:"BOTPER_CHANNELS_WEBEX_ENABLED"        json:"enabled"`
	BotToken      string              `env:"BOTPER_CHANNELS_WEBEX_BOT_TOKEN"      json:"bot_token"`
	BaseURL       string              `env:"BOTPER_CHANNELS_WEBEX_BASE_URL"       json:"base_url"`
	WebhookSecret string              `env:"BOTPER_CHANNELS_WEBEX_WEBHOOK_SECRET" json:"webhook_secret"`
	AllowFrom     FlexibleStringSlice `env:"BOTPER_CHANNELS_WEBEX_ALLOW_FROM"     json:"allow_from"`
}

type SlackConfig struct {
	Enabled       bool                `env:"BOTPER_CHANNELS_SLACK_ENABLED"        json:"enabled"`
	BotToken      string              `env:"BOTPER_CHANNELS_SLACK_BOT_TOKEN"      json:"bot_token"`
	SigningSecret string              `env:"BOTPER_CHANNELS_SLACK_SIGNING_SECRET" json:"signing_secret"`
	AllowFrom     FlexibleStringSlice `env:"BOTPER_CHANNELS_SLACK_ALLOW_FROM"     json:"allow_from"`
}

type TelegramConfig struct {
	Enabled     bool                `env:"BOTPER_CHANNELS_TELEGRAM_ENABLED"      json:"enabled"`
	Token       string              `env:"BOTPER_CHANNELS_TELEGRAM_TOKEN"        json:"token"`
	SecretToken string              `env:"BOTPER_CHANNELS_TELEGRAM_SECRET_TOKEN" json:"secret_token"`
	AllowFrom   FlexibleStringSlice `env:"BOTPER_CHANNELS_TELEGRAM_ALLOW_FROM"   json:"allow_from"`
}

type StoreConfig struct {
	Path string `env:"BOTPER_STORE_PATH" json:"path"`
}

type SessionsConfig struct {
	TTLSeconds      int    `env:"BOTPER_SESSIONS_TTL_SECONDS"       json:"ttl_seconds"`
	DedupWindow     int    `env:"BOTPER_SESSIONS_DEDUP_WINDOW"      json:"dedup_window"`
	SelfCheckPolicy string `env:"BOTPER_SESSIONS_SELF_CHECK_POLICY" json:"self_check_policy"`
	FetchAttempts   int    `env:"BOTPER_SESSIONS_FETCH_ATTEMPTS"    json:"fetch_attempts"`
	FetchBackoffMS  int    `env:"BOTPER_SESSIONS_FETCH_BACKOFF_MS"  json:"fetch_backoff_ms"`
}

func (s SessionsConfig) TTL() time.Duration {
	return time.Duration(s.TTLSeconds) * time.Second
}

func (s SessionsConfig) FetchBackoff() time.Duration {
	return time.Duration(s.FetchBackoffMS) * time.Millisecond
}

type MeetingsConfig struct {
	Enabled            bool   `env:"BOTPER_MEETINGS_ENABLED"              json:"enabled"`
	BaseURL            string `env:"BOTPER_MEETINGS_BASE_URL"             json:"base_url"`
	DurationMinutes    int    `env:"BOTPER_MEETINGS_DURATION_MINUTES"     json:"duration_minutes"`
	StartBufferMinutes int    `env:"BOTPER_MEETINGS_START_BUFFER_MINUTES" json:"start_buffer_minutes"`
}

func (m MeetingsConfig) Duration() time.Duration {
	return time.Duration(m.DurationMinutes) * time.Minute
}

func (m MeetingsConfig) StartBuffer() time.Duration {
	return time.Duration(m.StartBufferMinutes) * time.Minute
}

type OAuthConfig struct {
	Enabled      bool     `env:"BOTPER_OAUTH_ENABLED"       json:"enabled"`
	ClientID     string   `env:"BOTPER_OAUTH_CLIENT_ID"     json:"client_id"`
	ClientSecret string   `env:"BOTPER_OAUTH_CLIENT_SECRET" json:"client_secret"`
	RedirectURL  string   `env:"BOTPER_OAUTH_REDIRECT_URL"  json:"redirect_url"`
	Scopes       []string `env:"BOTPER_OAUTH_SCOPES"        json:"scopes,omitempty"`
}

type HousekeepingConfig struct {
	Enabled  bool   `env:"BOTPER_HOUSEKEEPING_ENABLED"  json:"enabled"`
	Schedule string `env:"BOTPER_HOUSEKEEPING_SCHEDULE" json:"schedule"`
}

type LoggingConfig struct {
	Level string `env:"BOTPER_LOGGING_LEVEL" json:"level"`
	JSON  bool   `env:"BOTPER_LOGGING_JSON"  json:"json"`
}

// LoadYAMLConfig loads configuration from a YAML file. The document is
// converted to JSON first so it goes through the same decoding, defaults and
// env overrides as LoadConfig.
func LoadYAMLConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("error parsing yaml config %s: %w", path, err)
	}

	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("error converting yaml config %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(out, cfg); err != nil {
		return nil, fmt.Errorf("error decoding yaml config %s: %w", path, err)
	}
	return finish(cfg)
}

func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return finish(cfg)
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

// Validate rejects values the gateway cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Gateway.Port < 0 || c.Gateway.Port > 65535 {
		errs = append(errs, fmt.Errorf("gateway.port %d out of range", c.Gateway.Port))
	}
	if c.Sessions.TTLSeconds <= 0 {
		errs = append(errs, errors.New("sessions.ttl_seconds must be positive"))
	}
	if c.Sessions.DedupWindow <= 0 {
		errs = append(errs, errors.New("sessions.dedup_window must be positive"))
	}
	if c.Sessions.FetchAttempts <= 0 {
		errs = append(errs, errors.New("sessions.fetch_attempts must be positive"))
	}
	switch c.Sessions.SelfCheckPolicy {
	case SelfCheckContinue, SelfCheckDrop:
	default:
		errs = append(errs, fmt.Errorf("sessions.self_check_policy %q must be %q or %q",
			c.Sessions.SelfCheckPolicy, SelfCheckContinue, SelfCheckDrop))
	}
	if c.Meetings.DurationMinutes <= 0 {
		errs = append(errs, errors.New("meetings.duration_minutes must be positive"))
	}
	if c.OAuth.Enabled && (c.OAuth.ClientID == "" || c.OAuth.ClientSecret == "") {
		errs = append(errs, errors.New("oauth.client_id and oauth.client_secret are required when oauth is enabled"))
	}
	return errors.Join(errs...)
}

func (c *Config) StorePath() string {
	return expandHome(c.Store.Path)
}

// EnabledChannels lists enabled platform names in a stable order.
func (c *Config) EnabledChannels() []string {
	var names []string
	if c.Channels.Webex.Enabled {
		names = append(names, "webex")
	}
	if c.Channels.Slack.Enabled {
		names = append(names, "slack")
	}
	if c.Channels.Telegram.Enabled {
		names = append(names, "telegram")
	}
	return names
}

func expandHome(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		home, _ := os.UserHomeDir()
		if len(path) > 1 && path[1] == '/' {
			return home + path[1:]
		}
		return home
	}
	return path
}

// RedactSecret keeps the first four characters of a credential for display.
func RedactSecret(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", 8)
}
