// Botper - chat bot for tasks and meetings on Webex, Slack and Telegram

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tinyland-inc/botper/cmd/botper/internal"
	"github.com/tinyland-inc/botper/cmd/botper/internal/auth"
	"github.com/tinyland-inc/botper/cmd/botper/internal/check"
	"github.com/tinyland-inc/botper/cmd/botper/internal/console"
	"github.com/tinyland-inc/botper/cmd/botper/internal/gateway"
	"github.com/tinyland-inc/botper/cmd/botper/internal/migrate"
	"github.com/tinyland-inc/botper/cmd/botper/internal/version"
	"github.com/tinyland-inc/botper/cmd/botper/internal/webhooks"
	"github.com/tinyland-inc/botper/pkg/logger"
)

func NewBotperCommand() *cobra.Command {
	short := fmt.Sprintf("%s botper - tasks and meetings from chat v%s\n\n", internal.Logo, internal.GetVersion())

	var configPath string
	cmd := &cobra.Command{
		Use:     "botper",
		Short:   short,
		Example: "botper gateway",
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			internal.SetConfigPath(configPath)
		},
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"Config file path (default: ~/.botper/config.yaml or ~/.botper/config.json)")

	cmd.AddCommand(
		gateway.NewGatewayCommand(),
		console.NewConsoleCommand(),
		webhooks.NewWebhooksCommand(),
		check.NewCheckCommand(),
		auth.NewAuthCommand(),
		migrate.NewMigrateCommand(),
		version.NewVersionCommand(),
	)

	return cmd
}

func main() {
	cmd := NewBotperCommand()
	err := cmd.Execute()
	logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}
