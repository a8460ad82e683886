package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/huangang/sdrdesk/internal/models"
	"github.com/huangang/sdrdesk/internal/services"
	"github.com/spf13/cobra"
)

type MissingOptions struct {
	*RootOptions
	Date  string
	Alert bool
}

// NewMissingCommand creates the missing command.
func NewMissingCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MissingOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "missing",
		Short: "List SDRs who have not submitted a daily report",
		Long: `List active SDRs with no report for a date. Weekends and holidays of the
configured calendar have nobody missing.

With --alert the check runs for today under the monitor job lock and the
admins are emailed, exactly as the scheduled monitor does.

Example:
  sdrctl missing --date 2024-03-04
  sdrctl missing --alert`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(opts.RootOptions, func(b *Backend) error {
				return runMissing(cmd, opts, b)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Date, "date", "", "day to check, YYYY-MM-DD (default today)")
	cmd.Flags().BoolVar(&opts.Alert, "alert", false, "check today and email the admins")
	cmd.MarkFlagsMutuallyExclusive("date", "alert")
	return cmd
}

func runMissing(cmd *cobra.Command, opts *MissingOptions, b *Backend) error {
	var result *services.MissingSubmissionResult
	var err error
	if opts.Alert {
		result, err = b.Monitor.RunScheduled(cmd.Context())
	} else {
		date := opts.Date
		if date == "" {
			date = time.Now().Format(models.DateLayout)
		}
		result, err = b.Monitor.Check(cmd.Context(), date)
	}
	if services.IsJobLocked(err) {
		return NewExitError(ExitCommandError, "the monitor is already running")
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "check failed", err)
	}

	return opts.formatter(cmd.OutOrStdout()).Result(result, func(w io.Writer) {
		writeMissingText(w, result)
	})
}

func writeMissingText(w io.Writer, r *services.MissingSubmissionResult) {
	if !r.Workday {
		fmt.Fprintf(w, "%s is not a workday\n", r.Date)
		return
	}
	fmt.Fprintf(w, "%s: %d of %d reps submitted\n", r.Date, r.Submitted, r.Expected)
	for _, m := range r.Missing {
		if m.Email != "" {
			fmt.Fprintf(w, "  - %s (%s, %s)\n", m.SalesRepName, m.Username, m.Email)
		} else {
			fmt.Fprintf(w, "  - %s (%s)\n", m.SalesRepName, m.Username)
		}
	}
}
