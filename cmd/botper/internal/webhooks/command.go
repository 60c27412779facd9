package webhooks

import (
	"github.com/spf13/cobra"
)

func NewWebhooksCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webhooks",
		Short: "Manage platform webhook registrations",
		Example: `  botper webhooks list
  botper webhooks register https://bot.example.com
  botper webhooks register https://bot.example.com --platform telegram
  botper webhooks create https://bot.example.com/webex/webhook --resource messages
  botper webhooks delete <webhook-id>`,
	}

	cmd.AddCommand(
		newListCommand(),
		newRegisterCommand(),
		newCreateCommand(),
		newDeleteCommand(),
	)
	return cmd
}

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the Webex bot's webhooks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return listCmd(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

func newRegisterCommand() *cobra.Command {
	var platform string
	cmd := &cobra.Command{
		Use:   "register <base-url>",
		Short: "Point platform webhooks at <base-url>/<platform>/webhook",
		Long: "Replaces the bot's Webex webhooks with one per handled resource, " +
			"and/or sets the Telegram webhook. Slack request URLs are set in the app settings.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return registerCmd(cmd.Context(), cmd.OutOrStdout(), args[0], platform)
		},
	}
	cmd.Flags().StringVarP(&platform, "platform", "p", "all", "Platform to register: webex, telegram or all enabled")
	return cmd
}

func newCreateCommand() *cobra.Command {
	var resource, event, name string
	cmd := &cobra.Command{
		Use:   "create <target-url>",
		Short: "Create a single Webex webhook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return createCmd(cmd.Context(), cmd.OutOrStdout(), args[0], resource, event, name)
		},
	}
	cmd.Flags().StringVar(&resource, "resource", "messages", "Webex resource (messages, attachmentActions, memberships, meetings)")
	cmd.Flags().StringVar(&event, "event", "created", "Webex event")
	cmd.Flags().StringVar(&name, "name", "", "Webhook name (default: derived from the resource)")
	return cmd
}

func newDeleteCommand() *cobra.Command {
	var platform string
	cmd := &cobra.Command{
		Use:   "delete [webhook-id]",
		Short: "Delete a Webex webhook by id, or the Telegram webhook",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var id string
			if len(args) == 1 {
				id = args[0]
			}
			return deleteCmd(cmd.Context(), cmd.OutOrStdout(), platform, id)
		},
	}
	cmd.Flags().StringVarP(&platform, "platform", "p", "webex", "Platform: webex or telegram")
	return cmd
}
