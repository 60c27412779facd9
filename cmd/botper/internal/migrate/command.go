package migrate

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tinyland-inc/botper/cmd/botper/internal"
	"github.com/tinyland-inc/botper/pkg/migrate"
)

func NewMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Migrate configuration between formats",
		Example: `  botper migrate to-yaml
  botper migrate to-yaml --dry-run
  botper migrate to-yaml --from /path/to/config.json --keep-secrets`,
	}

	var opts migrate.ToYAMLOptions

	toYAMLCmd := &cobra.Command{
		Use:   "to-yaml",
		Short: "Convert JSON config to YAML format",
		Args:  cobra.NoArgs,
		Example: `  botper migrate to-yaml
  botper migrate to-yaml --dry-run
  botper migrate to-yaml --output ~/.botper/config.yaml --force`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.ConfigPath == "" {
				opts.ConfigPath = internal.GetConfigPath()
			}
			result, err := migrate.RunToYAML(opts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if opts.DryRun {
				fmt.Fprint(out, result.YAML)
			} else {
				fmt.Fprintf(out, "YAML config written to %s\n", result.OutputPath)
			}
			if len(result.Warnings) > 0 {
				fmt.Fprintln(out, "\nWarnings:")
				for _, w := range result.Warnings {
					fmt.Fprintf(out, "  - %s\n", w)
				}
			}
			return nil
		},
	}

	toYAMLCmd.Flags().StringVar(&opts.ConfigPath, "from", "",
		"JSON config file path (default: ~/.botper/config.json)")
	toYAMLCmd.Flags().StringVar(&opts.OutputPath, "output", "",
		"YAML output file path (default: same dir as input, .yaml extension)")
	toYAMLCmd.Flags().BoolVar(&opts.DryRun, "dry-run", false,
		"Print generated YAML without writing")
	toYAMLCmd.Flags().BoolVar(&opts.Force, "force", false,
		"Overwrite existing output file")
	toYAMLCmd.Flags().BoolVar(&opts.KeepSecrets, "keep-secrets", false,
		"Write credentials into the YAML file instead of blanking them")

	cmd.AddCommand(toYAMLCmd)
	return cmd
}
