package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/huangang/sdrdesk/internal/services"
	"github.com/spf13/cobra"
)

// NewRecoverCommand creates the recover command.
func NewRecoverCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "recover",
		Short: "Rebuild missing meeting rows from the submission audit trail",
		Long: `Scan every report that has no meetings and rebuild them from the latest
audited submission by the same rep inside the recovery window.

Exits 1 when at least one report failed, 2 when the run could not start
(for example because another recovery holds the job lock).

Example:
  sdrctl recover --config /etc/sdrdesk/config.yaml
  sdrctl recover --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(opts, func(b *Backend) error {
				return runRecover(cmd, opts, b)
			})
		},
	}
}

func runRecover(cmd *cobra.Command, opts *RootOptions, b *Backend) error {
	report, err := b.Recovery.RecoverMissingMeetings(cmd.Context())
	if services.IsJobLocked(err) {
		return NewExitError(ExitCommandError, "recovery is already running")
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "recovery failed", err)
	}

	if err := opts.formatter(cmd.OutOrStdout()).Result(report, func(w io.Writer) {
		writeRecoveryText(w, report)
	}); err != nil {
		return err
	}

	if report.Summary.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d report(s) failed to recover", report.Summary.Failed))
	}
	return nil
}

func writeRecoveryText(w io.Writer, report *services.RecoveryReport) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "REPORT\tVENDEDOR\tDATA\tSTATUS\tEXPECTED\tRECOVERED\tDETAIL")
	for _, r := range report.Results {
		detail := r.Error
		if detail == "" {
			detail = r.Note
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			r.ReportID, r.Vendedor, r.Data, r.Status, r.ExpectedMeetings, r.RecoveredMeetings, detail)
	}
	tw.Flush()

	s := report.Summary
	fmt.Fprintf(w, "\nscanned %d, recovered %d, skipped %d, failed %d, meetings inserted %d\n",
		s.Scanned, s.Recovered, s.Skipped, s.Failed, s.MeetingsInserted)
}
