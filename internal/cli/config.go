package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/downbeat/internal/config"
)

// NewConfigCommand creates the config command.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the built-in defaults, or with --config the result of merging
a file over them. The text output is valid input for --config.

Examples:
  downbeat config > downbeat.yaml
  downbeat config --config ./downbeat.yaml --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfig(rootOpts, path, cmd)
		},
	}

	cmd.Flags().StringVarP(&path, "config", "c", "", "configuration file to merge over the defaults")

	return cmd
}

func runConfig(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	cfg := config.Default()
	if path != "" {
		loaded, err := config.Load(opts.fs(), path)
		if err != nil {
			_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to load config", err)
		}
		cfg = loaded
	}

	if formatter.Format == "json" {
		return formatter.Success(cfg)
	}

	data, err := config.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
