package console

import (
	"github.com/spf13/cobra"
)

func NewConsoleCommand() *cobra.Command {
	var (
		message string
		email   string
		room    string
		debug   bool
	)

	cmd := &cobra.Command{
		Use:     "console",
		Aliases: []string{"repl"},
		Short:   "Run bot commands locally without a chat platform",
		Args:    cobra.NoArgs,
		Example: `  botper console
  botper console -m "task buy milk"
  botper console --email alice@example.com -m "my meetings"`,
		RunE: func(_ *cobra.Command, _ []string) error {
			return consoleCmd(message, email, room, debug)
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "Run a single command and exit")
	cmd.Flags().StringVar(&email, "email", "", "Email to act as (meeting commands need one)")
	cmd.Flags().StringVar(&room, "room", "console", "Room id replies are addressed to")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")

	return cmd
}
