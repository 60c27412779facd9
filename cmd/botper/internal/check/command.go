package check

import (
	"github.com/spf13/cobra"
)

func NewCheckCommand() *cobra.Command {
	var skipMeetings bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify bot tokens and meeting scheduling permissions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return checkCmd(cmd.Context(), cmd.OutOrStdout(), skipMeetings)
		},
	}
	cmd.Flags().BoolVar(&skipMeetings, "skip-meetings", false, "Do not probe the meetings API")
	return cmd
}
