package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/huangang/sdrdesk/internal/models"
	"github.com/huangang/sdrdesk/pkg/logger"
)

const recoveryLockName = "recovery:missing-meetings"

// Recovery outcome values.
const (
	RecoveryStatusSuccess = "success"
	RecoveryStatusError   = "error"
	RecoveryStatusSkipped = "skipped"

	RecoveryNoteHasMeetings    = "has_meetings"
	RecoveryNoteNoAuditMatch   = "no_audit_match"
	RecoveryNoteNoMeetingsSent = "no_meetings_in_payload"
)

type RecoveryReportSource interface {
	ListNewestFirst(ctx context.Context) ([]models.Report, error)
}

type RecoveryMeetingStore interface {
	CountByReport(ctx context.Context, reportID string) (int64, error)
	CreateBatchIfNone(ctx context.Context, reportID string, meetings []models.MeetingDetail) (bool, error)
}

type AuditFinder interface {
	FindInWindow(ctx context.Context, userIdentifier string, from, to time.Time) ([]models.AuditEntry, error)
}

// RecoveryOutcome is the result for one report.
type RecoveryOutcome struct {
	ReportID          string `json:"reportId"`
	Vendedor          string `json:"vendedor"`
	Data              string `json:"data"`
	Status            string `json:"status"`
	Note              string `json:"note,omitempty"`
	Error             string `json:"error,omitempty"`
	ExpectedMeetings  int    `json:"expectedMeetings"`
	RecoveredMeetings int    `json:"recoveredMeetings"`
}

type RecoverySummary struct {
	Scanned          int `json:"scanned"`
	Recovered        int `json:"recovered"`
	Skipped          int `json:"skipped"`
	Failed           int `json:"failed"`
	MeetingsInserted int `json:"meetingsInserted"`
}

type RecoveryReport struct {
	Results []RecoveryOutcome `json:"results"`
	Summary RecoverySummary   `json:"summary"`
}

type RecoveryService struct {
	reports  RecoveryReportSource
	meetings RecoveryMeetingStore
	audit    AuditFinder
	locker   Locker
	window   time.Duration
	lockTTL  time.Duration
}

func NewRecoveryService(reports RecoveryReportSource, meetings RecoveryMeetingStore, audit AuditFinder, locker Locker, window, lockTTL time.Duration) *RecoveryService {
	if window <= 0 {
		window = 24 * time.Hour
	}
	if lockTTL <= 0 {
		lockTTL = 10 * time.Minute
	}
	return &RecoveryService{
		reports:  reports,
		meetings: meetings,
		audit:    audit,
		locker:   locker,
		window:   window,
		lockTTL:  lockTTL,
	}
}

// RecoverMissingMeetings rebuilds meeting rows for reports that have none,
// from the latest audited submission by the same rep inside the window after
// the report was created. Per-report failures are recorded and the scan goes
// on; only failing to list reports or to take the job lock aborts the run.
func (s *RecoveryService) RecoverMissingMeetings(ctx context.Context) (*RecoveryReport, error) {
	if s.locker != nil {
		lock, err := s.locker.Obtain(ctx, recoveryLockName, "", s.lockTTL)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
				logger.Warnf("[Recovery] Failed to release lock: %v", err)
			}
		}()
	}

	reports, err := s.reports.ListNewestFirst(ctx)
	if err != nil {
		return nil, fmt.Errorf("load reports: %w", err)
	}

	out := &RecoveryReport{Results: make([]RecoveryOutcome, 0, len(reports))}
	for i := range reports {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		outcome := s.recoverReport(ctx, &reports[i])
		out.Results = append(out.Results, outcome)

		switch outcome.Status {
		case RecoveryStatusSuccess:
			out.Summary.Recovered++
			out.Summary.MeetingsInserted += outcome.RecoveredMeetings
		case RecoveryStatusSkipped:
			out.Summary.Skipped++
		case RecoveryStatusError:
			out.Summary.Failed++
		}
	}
	out.Summary.Scanned = len(reports)

	logger.Info().Int("scanned", out.Summary.Scanned).Int("recovered", out.Summary.Recovered).
		Int("failed", out.Summary.Failed).Int("meetings", out.Summary.MeetingsInserted).
		Msg("[Recovery] Run finished")
	return out, nil
}

func (s *RecoveryService) recoverReport(ctx context.Context, r *models.Report) RecoveryOutcome {
	outcome := RecoveryOutcome{
		ReportID:         r.ID,
		Vendedor:         r.SalesRepName,
		Data:             r.RegistrationDate,
		ExpectedMeetings: r.MeetingsScheduledCount,
	}
	fail := func(err error) RecoveryOutcome {
		logger.Error().Err(err).Str("report_id", r.ID).Msg("[Recovery] Report failed")
		outcome.Status = RecoveryStatusError
		outcome.Error = err.Error()
		return outcome
	}
	skip := func(note string) RecoveryOutcome {
		outcome.Status = RecoveryStatusSkipped
		outcome.Note = note
		return outcome
	}

	count, err := s.meetings.CountByReport(ctx, r.ID)
	if err != nil {
		return fail(fmt.Errorf("count meetings: %w", err))
	}
	if count > 0 {
		return skip(RecoveryNoteHasMeetings)
	}

	from := r.CreatedAt.UTC()
	entries, err := s.audit.FindInWindow(ctx, r.SalesRepName, from, from.Add(s.window))
	if err != nil {
		return fail(fmt.Errorf("search audit entries: %w", err))
	}
	if len(entries) == 0 {
		return skip(RecoveryNoteNoAuditMatch)
	}
	entry := pickAuditEntry(entries, r.RegistrationDate)

	var payload struct {
		Reunioes []MeetingPayload `json:"reunioes"`
	}
	if err := json.Unmarshal(entry.SubmissionPayload, &payload); err != nil {
		return fail(fmt.Errorf("decode audit entry %s: %w", entry.ID, err))
	}

	meetings := meetingsFromPayload(r.ID, payload.Reunioes, models.MeetingSourceRecovery, models.MeetingStatusScheduled)
	if len(meetings) == 0 {
		return skip(RecoveryNoteNoMeetingsSent)
	}

	inserted, err := s.meetings.CreateBatchIfNone(ctx, r.ID, meetings)
	if err != nil {
		return fail(fmt.Errorf("insert meetings: %w", err))
	}
	if !inserted {
		// A submission stored meetings between the count and the insert.
		return skip(RecoveryNoteHasMeetings)
	}

	logger.Info().Str("report_id", r.ID).Str("audit_id", entry.ID).Int("meetings", len(meetings)).
		Msg("[Recovery] Meetings recovered")
	outcome.Status = RecoveryStatusSuccess
	outcome.RecoveredMeetings = len(meetings)
	return outcome
}

// pickAuditEntry takes the newest entry submitted for the report's own date.
// When none carries that date, the newest entry in the window wins. entries
// must be newest first and non-empty.
func pickAuditEntry(entries []models.AuditEntry, registrationDate string) *models.AuditEntry {
	for i := range entries {
		var probe struct {
			DataRegistro any `json:"dataRegistro"`
		}
		if err := json.Unmarshal(entries[i].SubmissionPayload, &probe); err != nil {
			continue
		}
		if date, ok := probe.DataRegistro.(string); ok && strings.TrimSpace(date) == registrationDate {
			return &entries[i]
		}
	}
	return &entries[0]
}

// IsJobLocked reports whether err means the job is already running.
func IsJobLocked(err error) bool {
	return errors.Is(err, ErrJobLocked)
}
