// Package cli implements sdrctl, the operator command line for recovery and
// the missing submission monitor.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/huangang/sdrdesk/internal/app"
	"github.com/huangang/sdrdesk/internal/config"
	"github.com/huangang/sdrdesk/internal/services"
	"github.com/huangang/sdrdesk/pkg/logger"
	"github.com/spf13/cobra"
)

type Recoverer interface {
	RecoverMissingMeetings(ctx context.Context) (*services.RecoveryReport, error)
}

type Monitor interface {
	Check(ctx context.Context, date string) (*services.MissingSubmissionResult, error)
	RunScheduled(ctx context.Context) (*services.MissingSubmissionResult, error)
}

// Backend is what the commands run against.
type Backend struct {
	Recovery Recoverer
	Monitor  Monitor
	Close    func()
}

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Format     string // "json" | "text"
	Verbose    bool

	// Open builds the backend; tests replace it.
	Open func(opts *RootOptions) (*Backend, error)
}

var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for sdrctl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{Open: openBackend}
	return newRootCommand(opts)
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "sdrctl",
		Short:         "Operate the SDR daily report service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to config.yaml (defaults to $CONFIG_PATH or ./config.yaml)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewRecoverCommand(opts))
	cmd.AddCommand(NewMissingCommand(opts))
	cmd.AddCommand(NewInitConfigCommand(opts))
	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

func (o *RootOptions) formatter(w io.Writer) *OutputFormatter {
	return &OutputFormatter{Format: o.Format, Writer: w}
}

func openBackend(opts *RootOptions) (*Backend, error) {
	path := opts.ConfigPath
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	level := "warn"
	if opts.Verbose {
		level = "debug"
	}
	logger.InitWithWriter(level, os.Stderr)

	a, err := app.New(cfg)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to initialize", err)
	}
	return &Backend{Recovery: a.Recovery, Monitor: a.Monitor, Close: a.Close}, nil
}

// withBackend opens the backend for one command and closes it afterwards.
func withBackend(opts *RootOptions, fn func(b *Backend) error) error {
	b, err := opts.Open(opts)
	if err != nil {
		return err
	}
	if b.Close != nil {
		defer b.Close()
	}
	return fn(b)
}
