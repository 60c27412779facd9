package auth

import (
	"os"

	"github.com/spf13/cobra"
)

func NewAuthCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage bot credentials",
	}
	cmd.AddCommand(newLoginCommand(), newStatusCommand())
	return cmd
}

func newLoginCommand() *cobra.Command {
	var platform string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Paste a bot token into the config file",
		Args:  cobra.NoArgs,
		Example: `  botper auth login
  botper auth login --platform telegram`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return loginCmd(platform, os.Stdin, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&platform, "platform", "p", "webex", "Platform: webex, slack or telegram")
	return cmd
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which platforms have credentials configured",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return statusCmd(cmd.OutOrStdout())
		},
	}
}
