package webhooks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/tinyland-inc/botper/cmd/botper/internal"
	"github.com/tinyland-inc/botper/pkg/channels"
	"github.com/tinyland-inc/botper/pkg/config"
)

var loadConfig = internal.LoadConfig

var errNoToken = errors.New("webex bot token is not configured")

func webexChannel() (*channels.WebexChannel, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if cfg.Channels.Webex.BotToken == "" {
		return nil, nil, errNoToken
	}
	return channels.NewWebexChannel(cfg.Channels.Webex), cfg, nil
}

func telegramChannel(cfg *config.Config) (*channels.TelegramChannel, error) {
	if cfg.Channels.Telegram.Token == "" {
		return nil, errors.New("telegram token is not configured")
	}
	return channels.NewTelegramChannel(cfg.Channels.Telegram)
}

// TargetURL is where the gateway serves platform's webhook under base.
func TargetURL(base, platform string) string {
	return strings.TrimRight(base, "/") + "/" + platform + "/webhook"
}

func listCmd(ctx context.Context, out io.Writer) error {
	ch, _, err := webexChannel()
	if err != nil {
		return err
	}
	hooks, err := ch.ListWebhooks(ctx)
	if err != nil {
		return err
	}
	if len(hooks) == 0 {
		fmt.Fprintln(out, "No webhooks registered.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tRESOURCE\tEVENT\tSTATUS\tTARGET")
	for _, w := range hooks {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", w.ID, w.Name, w.Resource, w.Event, w.Status, w.TargetURL)
	}
	return tw.Flush()
}

func registerCmd(ctx context.Context, out io.Writer, base, platform string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var targets []string
	switch platform {
	case "all":
		for _, name := range cfg.EnabledChannels() {
			if name != "slack" {
				targets = append(targets, name)
			}
		}
		if cfg.Channels.Slack.Enabled {
			fmt.Fprintf(out, "slack: set the Event Subscriptions and Interactivity request URL to %s\n",
				TargetURL(base, "slack"))
		}
	case "webex", "telegram":
		targets = []string{platform}
	default:
		return fmt.Errorf("unknown platform %q", platform)
	}

	for _, name := range targets {
		target := TargetURL(base, name)
		switch name {
		case "webex":
			if cfg.Channels.Webex.BotToken == "" {
				return errNoToken
			}
			created, err := channels.NewWebexChannel(cfg.Channels.Webex).RegisterWebhooks(ctx, target)
			if err != nil {
				return err
			}
			for _, w := range created {
				fmt.Fprintf(out, "webex: %s (%s/%s) -> %s\n", w.ID, w.Resource, w.Event, target)
			}
		case "telegram":
			ch, err := telegramChannel(cfg)
			if err != nil {
				return err
			}
			if err := ch.RegisterWebhook(ctx, target); err != nil {
				return err
			}
			fmt.Fprintf(out, "telegram: -> %s\n", target)
		}
	}
	return nil
}

func createCmd(ctx context.Context, out io.Writer, target, resource, event, name string) error {
	ch, cfg, err := webexChannel()
	if err != nil {
		return err
	}
	if name == "" {
		name = "Botper " + resource + " webhook"
	}
	w, err := ch.CreateWebhook(ctx, channels.Webhook{
		Name:      name,
		TargetURL: target,
		Resource:  resource,
		Event:     event,
		Secret:    cfg.Channels.Webex.WebhookSecret,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Created webhook %s (%s/%s) -> %s\n", w.ID, resource, event, target)
	return nil
}

func deleteCmd(ctx context.Context, out io.Writer, platform, id string) error {
	switch platform {
	case "webex":
		if id == "" {
			return errors.New("a webhook id is required")
		}
		ch, _, err := webexChannel()
		if err != nil {
			return err
		}
		if err := ch.DeleteWebhook(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(out, "Deleted webhook %s\n", id)
		return nil
	case "telegram":
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ch, err := telegramChannel(cfg)
		if err != nil {
			return err
		}
		if err := ch.DeleteWebhook(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "Deleted telegram webhook")
		return nil
	}
	return fmt.Errorf("unknown platform %q", platform)
}
