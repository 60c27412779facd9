package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/tinyland-inc/botper/pkg/channels"
	"github.com/tinyland-inc/botper/pkg/config"
	"github.com/tinyland-inc/botper/pkg/logger"
	"github.com/tinyland-inc/botper/pkg/meetings"
)

const Logo = "🤖"

var (
	version   = "dev"
	gitCommit string
	buildTime string
	goVersion string
)

// configOverride is set by the root --config flag.
var configOverride string

func SetConfigPath(path string) { configOverride = path }

func GetConfigPath() string {
	if configOverride != "" {
		return configOverride
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".botper", "config.json")
}

func GetYAMLConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".botper", "config.yaml")
}

// LoadConfig reads the explicit --config path if given, then
// ~/.botper/config.yaml if it exists, then ~/.botper/config.json.
func LoadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	switch {
	case configOverride != "" && isYAML(configOverride):
		cfg, err = config.LoadYAMLConfig(configOverride)
	case configOverride != "":
		cfg, err = config.LoadConfig(configOverride)
	case fileExists(GetYAMLConfigPath()):
		cfg, err = config.LoadYAMLConfig(GetYAMLConfigPath())
	default:
		cfg, err = config.LoadConfig(GetConfigPath())
	}
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}
	if err := logger.Configure(cfg.Logging.Level, cfg.Logging.JSON); err != nil {
		return nil, fmt.Errorf("error configuring logging: %w", err)
	}
	return cfg, nil
}

// NewChannel builds the webhook channel for an enabled platform name.
func NewChannel(cfg *config.Config, name string) (channels.WebhookChannel, error) {
	switch name {
	case "webex":
		return channels.NewWebexChannel(cfg.Channels.Webex), nil
	case "slack":
		return channels.NewSlackChannel(cfg.Channels.Slack), nil
	case "telegram":
		return channels.NewTelegramChannel(cfg.Channels.Telegram)
	}
	return nil, fmt.Errorf("unknown channel %q", name)
}

// MeetingClient returns nil when scheduling is disabled or there is no
// Webex token to schedule with.
func MeetingClient(cfg *config.Config, tokens meetings.TokenProvider) *meetings.Client {
	if !cfg.Meetings.Enabled || cfg.Channels.Webex.BotToken == "" {
		return nil
	}
	var opts []meetings.Option
	if tokens != nil {
		opts = append(opts, meetings.WithTokenProvider(tokens))
	}
	return meetings.NewClient(cfg.Meetings.BaseURL, cfg.Channels.Webex.BotToken, opts...)
}

func isYAML(path string) bool {
	ext := filepath.Ext(path)
	return ext == ".yaml" || ext == ".yml"
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// FormatVersion returns the version string with optional git commit
func FormatVersion() string {
	v := version
	if gitCommit != "" {
		v += fmt.Sprintf(" (git: %s)", gitCommit)
	}
	return v
}

// FormatBuildInfo returns build time and go version info
func FormatBuildInfo() (string, string) {
	build := buildTime
	goVer := goVersion
	if goVer == "" {
		goVer = runtime.Version()
	}
	return build, goVer
}

func GetVersion() string {
	return version
}
