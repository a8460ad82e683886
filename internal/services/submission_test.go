package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/huangang/sdrdesk/internal/models"
)

type fakeReportWriter struct {
	mu      sync.Mutex
	err     error
	created []*models.Report
}

func (f *fakeReportWriter) Create(ctx context.Context, r *models.Report) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	r.ID = fmt.Sprintf("report-%d", len(f.created)+1)
	f.created = append(f.created, r)
	return nil
}

type fakeMeetingWriter struct {
	err     error
	batches [][]models.MeetingDetail
}

func (f *fakeMeetingWriter) CreateBatch(ctx context.Context, meetings []models.MeetingDetail) error {
	f.batches = append(f.batches, meetings)
	return f.err
}

func (f *fakeMeetingWriter) stored() []models.MeetingDetail {
	if f.err != nil {
		return nil
	}
	var all []models.MeetingDetail
	for _, b := range f.batches {
		all = append(all, b...)
	}
	return all
}

type submissionFixture struct {
	reports  *fakeReportWriter
	meetings *fakeMeetingWriter
	notifier *fakeNotifier
	svc      *SubmissionService
}

func newSubmissionFixture(wait time.Duration) *submissionFixture {
	f := &submissionFixture{
		reports:  &fakeReportWriter{},
		meetings: &fakeMeetingWriter{},
		notifier: &fakeNotifier{id: "<msg-1@smtp>"},
	}
	f.svc = NewSubmissionService(f.reports, f.meetings, NewInlineDispatcher(f.notifier), wait)
	return f
}

const anaPayload = `{"vendedor":"Ana","dataRegistro":"2024-03-01","reunioesAgendadas":5,"reunioesRealizadas":2,
	"reunioes":[{"nomeLead":"João","dataAgendamento":"2024-03-02","horarioAgendamento":"14:00","status":"Agendado","vendedorResponsavel":"Ana"}]}`

func TestSubmitReport_AnaScenario(t *testing.T) {
	f := newSubmissionFixture(time.Second)

	res, err := f.svc.SubmitReport(context.Background(), mustParse(t, anaPayload))
	if err != nil {
		t.Fatalf("SubmitReport() error = %v", err)
	}

	if len(f.reports.created) != 1 {
		t.Fatalf("expected 1 report, got %d", len(f.reports.created))
	}
	report := f.reports.created[0]
	if report.SalesRepName != "Ana" || report.MeetingsScheduledCount != 5 || report.MeetingsCompletedCount != 2 {
		t.Errorf("report = %+v", report)
	}
	if res.ReportID != report.ID {
		t.Errorf("ReportID = %q, expected %q", res.ReportID, report.ID)
	}

	meetings := f.meetings.stored()
	if len(meetings) != 1 {
		t.Fatalf("expected 1 meeting, got %d", len(meetings))
	}
	m := meetings[0]
	if m.LeadName != "João" || m.Status != "Agendado" {
		t.Errorf("meeting = %+v", m)
	}
	if m.ReportID == nil || *m.ReportID != report.ID {
		t.Errorf("meeting ReportID = %v, expected %q", m.ReportID, report.ID)
	}
	if m.Source != models.MeetingSourceSubmission {
		t.Errorf("Source = %q, expected submission", m.Source)
	}

	if res.EmailStatus != EmailStatusSent || res.EmailID != "<msg-1@smtp>" {
		t.Errorf("email status/id = %q/%q", res.EmailStatus, res.EmailID)
	}
	if res.MeetingsSaved != 1 || res.MeetingsError != "" {
		t.Errorf("MeetingsSaved/Error = %d/%q", res.MeetingsSaved, res.MeetingsError)
	}

	if f.notifier.sentCount() != 1 {
		t.Fatalf("expected 1 notification, got %d", f.notifier.sentCount())
	}
	n := f.notifier.sent[0]
	if n.SalesRepName != "Ana" || n.ScheduledCount != 5 || len(n.Meetings) != 1 {
		t.Errorf("notification = %+v", n)
	}
}

func TestSubmitReport_ValidationErrorWritesNothing(t *testing.T) {
	bodies := []string{
		`{"dataRegistro":"2024-03-01","reunioesAgendadas":1,"reunioesRealizadas":1,"reunioes":[{"nomeLead":"João"}]}`,
		`{"vendedor":"Ana","dataRegistro":"1/3/2024","reunioesAgendadas":1,"reunioesRealizadas":1}`,
		`{"vendedor":"Ana","dataRegistro":"2024-03-01","reunioesAgendadas":1,"reunioesRealizadas":0,"reunioes":[{"nomeLead":42,"status":"x"}]}`,
	}

	for _, body := range bodies {
		f := newSubmissionFixture(time.Second)
		_, err := f.svc.SubmitReport(context.Background(), mustParse(t, body))

		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("expected *ValidationError, got %v", err)
		}
		if len(f.reports.created) != 0 || len(f.meetings.batches) != 0 || f.notifier.sentCount() != 0 {
			t.Errorf("validation failure must not write: reports=%d batches=%d notified=%d",
				len(f.reports.created), len(f.meetings.batches), f.notifier.sentCount())
		}
	}
}

func TestSubmitReport_ZeroCountsPersisted(t *testing.T) {
	f := newSubmissionFixture(time.Second)

	_, err := f.svc.SubmitReport(context.Background(),
		mustParse(t, `{"vendedor":" Ana ","dataRegistro":"2024-03-01","reunioesAgendadas":0,"reunioesRealizadas":0}`))
	if err != nil {
		t.Fatalf("SubmitReport() error = %v", err)
	}

	r := f.reports.created[0]
	if r.MeetingsScheduledCount != 0 || r.MeetingsCompletedCount != 0 {
		t.Errorf("counts = %d/%d, expected 0/0", r.MeetingsScheduledCount, r.MeetingsCompletedCount)
	}
	if r.SalesRepName != "Ana" {
		t.Errorf("SalesRepName = %q, expected trimmed", r.SalesRepName)
	}
	if len(f.meetings.batches) != 0 {
		t.Error("no meeting batch expected without meetings")
	}
}

func TestSubmitReport_DropsBlankLeads(t *testing.T) {
	f := newSubmissionFixture(time.Second)
	body := `{"vendedor":"Ana","dataRegistro":"2024-03-01","reunioesAgendadas":3,"reunioesRealizadas":0,"reunioes":[
		{"nomeLead":" João ","dataAgendamento":"2024-03-02","horarioAgendamento":"14:00","status":"Agendado","vendedorResponsavel":" Ana "},
		{"nomeLead":"   ","dataAgendamento":"","horarioAgendamento":"","status":"","vendedorResponsavel":""},
		{"nomeLead":"Maria","dataAgendamento":"2024-03-03","horarioAgendamento":"10:00","status":"Realizado","vendedorResponsavel":"Bia"}]}`

	res, err := f.svc.SubmitReport(context.Background(), mustParse(t, body))
	if err != nil {
		t.Fatalf("SubmitReport() error = %v", err)
	}

	meetings := f.meetings.stored()
	if len(meetings) != 2 || res.MeetingsSaved != 2 {
		t.Fatalf("expected 2 meetings, got %d (saved %d)", len(meetings), res.MeetingsSaved)
	}
	if meetings[0].LeadName != "João" || *meetings[0].ResponsibleRep != "Ana" {
		t.Errorf("names should be trimmed, got %q / %q", meetings[0].LeadName, *meetings[0].ResponsibleRep)
	}
	if meetings[1].LeadName != "Maria" {
		t.Errorf("second meeting = %q, expected Maria", meetings[1].LeadName)
	}
}

func TestSubmitReport_NotifierFailureStillSucceeds(t *testing.T) {
	f := newSubmissionFixture(time.Second)
	f.notifier.err = errors.New("smtp: 554 rejected")

	res, err := f.svc.SubmitReport(context.Background(), mustParse(t, anaPayload))
	if err != nil {
		t.Fatalf("SubmitReport() error = %v", err)
	}
	if res.EmailStatus != EmailStatusFailed {
		t.Errorf("EmailStatus = %q, expected failed", res.EmailStatus)
	}
	if !strings.Contains(res.EmailError, "554") {
		t.Errorf("EmailError = %q, expected smtp detail", res.EmailError)
	}
	if len(f.reports.created) != 1 {
		t.Error("report must exist despite notifier failure")
	}
}

func TestSubmitReport_NotifierDisabled(t *testing.T) {
	f := newSubmissionFixture(time.Second)
	f.notifier.err = ErrNotifierDisabled

	res, err := f.svc.SubmitReport(context.Background(), mustParse(t, anaPayload))
	if err != nil {
		t.Fatalf("SubmitReport() error = %v", err)
	}
	if res.EmailStatus != EmailStatusDisabled || res.EmailError != "" {
		t.Errorf("EmailStatus/Error = %q/%q, expected disabled with no error", res.EmailStatus, res.EmailError)
	}
}

func TestSubmitReport_SlowNotifierIsPending(t *testing.T) {
	f := newSubmissionFixture(20 * time.Millisecond)
	f.notifier.delay = 300 * time.Millisecond

	start := time.Now()
	res, err := f.svc.SubmitReport(context.Background(), mustParse(t, anaPayload))
	if err != nil {
		t.Fatalf("SubmitReport() error = %v", err)
	}
	if res.EmailStatus != EmailStatusPending {
		t.Errorf("EmailStatus = %q, expected pending", res.EmailStatus)
	}
	if elapsed := time.Since(start); elapsed > 250*time.Millisecond {
		t.Errorf("submission waited %v for a slow notifier", elapsed)
	}
}

func TestSubmitReport_MeetingInsertFailureIsNotFatal(t *testing.T) {
	f := newSubmissionFixture(time.Second)
	f.meetings.err = errors.New("disk full")

	res, err := f.svc.SubmitReport(context.Background(), mustParse(t, anaPayload))
	if err != nil {
		t.Fatalf("SubmitReport() error = %v", err)
	}
	if res.MeetingsError == "" || res.MeetingsSaved != 0 {
		t.Errorf("MeetingsError/Saved = %q/%d", res.MeetingsError, res.MeetingsSaved)
	}
	if strings.Contains(res.MeetingsError, "disk full") {
		t.Error("storage detail must not be exposed")
	}
	if len(f.reports.created) != 1 {
		t.Error("report must remain stored")
	}
	if f.notifier.sentCount() != 1 {
		t.Error("notification should still be sent")
	}
}

func TestSubmitReport_ReportInsertFailure(t *testing.T) {
	f := newSubmissionFixture(time.Second)
	cause := errors.New("connection refused")
	f.reports.err = cause

	res, err := f.svc.SubmitReport(context.Background(), mustParse(t, anaPayload))
	if res != nil {
		t.Errorf("expected nil result, got %+v", res)
	}

	var perr *PersistenceError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *PersistenceError, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Error("PersistenceError should wrap its cause")
	}
	if perr.Error() != "failed to save report" {
		t.Errorf("Error() = %q", perr.Error())
	}
	if len(f.meetings.batches) != 0 || f.notifier.sentCount() != 0 {
		t.Error("nothing may happen after a failed report insert")
	}
}

func TestSubmitReport_NotIdempotent(t *testing.T) {
	f := newSubmissionFixture(time.Second)
	for i := 0; i < 2; i++ {
		if _, err := f.svc.SubmitReport(context.Background(), mustParse(t, anaPayload)); err != nil {
			t.Fatalf("SubmitReport() error = %v", err)
		}
	}
	if len(f.reports.created) != 2 {
		t.Errorf("expected 2 reports, got %d", len(f.reports.created))
	}
}

func TestSubmitReport_NoDispatcher(t *testing.T) {
	svc := NewSubmissionService(&fakeReportWriter{}, &fakeMeetingWriter{}, nil, 0)

	res, err := svc.SubmitReport(context.Background(), mustParse(t, anaPayload))
	if err != nil {
		t.Fatalf("SubmitReport() error = %v", err)
	}
	if res.EmailStatus != EmailStatusDisabled {
		t.Errorf("EmailStatus = %q, expected disabled", res.EmailStatus)
	}
}
