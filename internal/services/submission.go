package services

import (
	"context"
	"time"

	"github.com/huangang/sdrdesk/internal/models"
	"github.com/huangang/sdrdesk/pkg/logger"
)

// ReportWriter stores the primary report row.
type ReportWriter interface {
	Create(ctx context.Context, report *models.Report) error
}

// MeetingWriter stores meeting rows in one batch.
type MeetingWriter interface {
	CreateBatch(ctx context.Context, meetings []models.MeetingDetail) error
}

// PersistenceError means the report itself could not be stored. Its message
// is safe to show to clients; the cause is kept for logs.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return "failed to save " + e.Op
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// SubmitResult is what a successful submission reports back. MeetingsError
// and EmailError describe degraded side effects; they never make the
// submission fail.
type SubmitResult struct {
	ReportID      string
	MeetingsSaved int
	MeetingsError string
	EmailStatus   string
	EmailID       string
	EmailError    string
}

type SubmissionService struct {
	reports    ReportWriter
	meetings   MeetingWriter
	dispatcher NotificationDispatcher
	notifyWait time.Duration
}

func NewSubmissionService(reports ReportWriter, meetings MeetingWriter, dispatcher NotificationDispatcher, notifyWait time.Duration) *SubmissionService {
	if notifyWait <= 0 {
		notifyWait = 10 * time.Second
	}
	return &SubmissionService{
		reports:    reports,
		meetings:   meetings,
		dispatcher: dispatcher,
		notifyWait: notifyWait,
	}
}

// SubmitReport validates and stores a daily report, then stores its meetings
// and notifies. Only a *ValidationError or a *PersistenceError on the report
// row is returned as an error.
func (s *SubmissionService) SubmitReport(ctx context.Context, p *SubmissionPayload) (*SubmitResult, error) {
	if v := ValidateSubmission(p); !v.Valid {
		return nil, &ValidationError{Errors: v.Errors}
	}

	report := normalizedReport(p)
	if err := s.reports.Create(ctx, report); err != nil {
		logger.Error().Err(err).Str("vendedor", report.SalesRepName).Msg("[Submission] Failed to insert report")
		return nil, &PersistenceError{Op: "report", Err: err}
	}

	result := &SubmitResult{ReportID: report.ID}

	// The report stays stored even if its meetings cannot be.
	meetings := meetingsFromPayload(report.ID, p.Reunioes, models.MeetingSourceSubmission, "")
	if len(meetings) > 0 {
		if err := s.meetings.CreateBatch(ctx, meetings); err != nil {
			logger.Error().Err(err).Str("report_id", report.ID).Int("meetings", len(meetings)).
				Msg("[Submission] Failed to insert meeting details")
			result.MeetingsError = "failed to save meeting details"
		} else {
			result.MeetingsSaved = len(meetings)
		}
	}

	s.notify(ctx, NewReportNotification(report, meetings), result)

	logger.Info().Str("report_id", report.ID).Str("vendedor", report.SalesRepName).
		Str("date", report.RegistrationDate).Int("meetings", result.MeetingsSaved).
		Str("email_status", result.EmailStatus).Msg("[Submission] Report submitted")
	return result, nil
}

// notify waits a bounded time for the notification outcome. A late outcome
// is only logged.
func (s *SubmissionService) notify(ctx context.Context, n *ReportNotification, result *SubmitResult) {
	if s.dispatcher == nil {
		result.EmailStatus = EmailStatusDisabled
		return
	}

	ch := s.dispatcher.Dispatch(ctx, n)
	timer := time.NewTimer(s.notifyWait)
	defer timer.Stop()

	select {
	case res := <-ch:
		applyNotificationResult(result, res)
	case <-timer.C:
		result.EmailStatus = EmailStatusPending
		go logLateNotification(n.ReportID, ch)
	case <-ctx.Done():
		result.EmailStatus = EmailStatusPending
		go logLateNotification(n.ReportID, ch)
	}
}

func applyNotificationResult(result *SubmitResult, res NotificationResult) {
	result.EmailStatus = res.Status
	result.EmailID = res.ID
	if res.Status == EmailStatusFailed && res.Err != nil {
		logger.Error().Err(res.Err).Str("report_id", result.ReportID).Msg("[Submission] Notification failed")
		result.EmailError = res.Err.Error()
	}
}

func logLateNotification(reportID string, ch <-chan NotificationResult) {
	res, ok := <-ch
	if !ok {
		return
	}
	if res.Err != nil && res.Status == EmailStatusFailed {
		logger.Error().Err(res.Err).Str("report_id", reportID).Msg("[Submission] Late notification failed")
		return
	}
	logger.Info().Str("report_id", reportID).Str("status", res.Status).Msg("[Submission] Late notification finished")
}
