package auth

import (
	"fmt"
	"io"

	"github.com/tinyland-inc/botper/cmd/botper/internal"
	"github.com/tinyland-inc/botper/pkg/auth"
	"github.com/tinyland-inc/botper/pkg/config"
)

var (
	loadConfig = internal.LoadConfig
	configPath = internal.GetConfigPath
)

func loginCmd(platform string, in io.Reader, out io.Writer) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	cred, err := auth.LoginPasteToken(platform, in, out)
	if err != nil {
		return err
	}
	if err := applyToken(cfg, cred); err != nil {
		return err
	}

	path := configPath()
	if err := config.SaveConfig(path, cfg); err != nil {
		return fmt.Errorf("error saving config: %w", err)
	}
	fmt.Fprintf(out, "\nSaved %s token %s to %s\n", platform, config.RedactSecret(cred.AccessToken), path)
	return nil
}

// applyToken stores the credential and enables its channel.
func applyToken(cfg *config.Config, cred *auth.AuthCredential) error {
	switch cred.Provider {
	case "webex":
		cfg.Channels.Webex.BotToken = cred.AccessToken
		cfg.Channels.Webex.Enabled = true
	case "slack":
		cfg.Channels.Slack.BotToken = cred.AccessToken
		cfg.Channels.Slack.Enabled = true
	case "telegram":
		cfg.Channels.Telegram.Token = cred.AccessToken
		cfg.Channels.Telegram.Enabled = true
	default:
		return fmt.Errorf("unknown platform %q", cred.Provider)
	}
	return nil
}

func statusCmd(out io.Writer) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	rows := []struct {
		name    string
		enabled bool
		token   string
	}{
		{"webex", cfg.Channels.Webex.Enabled, cfg.Channels.Webex.BotToken},
		{"slack", cfg.Channels.Slack.Enabled, cfg.Channels.Slack.BotToken},
		{"telegram", cfg.Channels.Telegram.Enabled, cfg.Channels.Telegram.Token},
	}
	for _, r := range rows {
		token := "(none)"
		if r.token != "" {
			token = config.RedactSecret(r.token)
		}
		state := "disabled"
		if r.enabled {
			state = "enabled"
		}
		fmt.Fprintf(out, "%-9s %-8s %s\n", r.name, state, token)
	}
	if cfg.OAuth.Enabled {
		fmt.Fprintf(out, "oauth     enabled  client %s\n", cfg.OAuth.ClientID)
	}
	return nil
}
