package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/huangang/sdrdesk/internal/config"
	"github.com/spf13/cobra"
)

type InitConfigOptions struct {
	*RootOptions
	Output string
	Force  bool
}

// NewInitConfigCommand creates the init-config command.
func NewInitConfigCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InitConfigOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "init-config",
		Short: "Write a config file with the default settings",
		Example: `  sdrctl init-config
  sdrctl init-config --output /etc/sdrdesk/config.yaml --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInitConfig(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "config.yaml", "file to write")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "overwrite an existing file")
	return cmd
}

func runInitConfig(cmd *cobra.Command, opts *InitConfigOptions) error {
	if _, err := os.Stat(opts.Output); err == nil && !opts.Force {
		return NewExitError(ExitCommandError, fmt.Sprintf("%s already exists, use --force to overwrite", opts.Output))
	}

	if err := config.DefaultConfig().Save(opts.Output); err != nil {
		return WrapExitError(ExitCommandError, "failed to write config", err)
	}

	data := map[string]string{"path": opts.Output}
	return opts.formatter(cmd.OutOrStdout()).Result(data, func(w io.Writer) {
		fmt.Fprintf(w, "wrote %s\n", opts.Output)
	})
}
