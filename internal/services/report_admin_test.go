package services

import (
	"context"
	"errors"
	"testing"

	"github.com/huangang/sdrdesk/internal/models"
	"github.com/huangang/sdrdesk/internal/repository"
)

func newReportServiceFixture(t *testing.T) (*ReportService, *models.Report) {
	t.Helper()
	ctx := context.Background()
	db := newTestDB(t)
	reports := repository.NewReportRepository(db)
	meetings := repository.NewMeetingRepository(db)

	var first *models.Report
	for i, r := range []*models.Report{
		{SalesRepName: "Ana", RegistrationDate: "2024-03-01", MeetingsScheduledCount: 5},
		{SalesRepName: "Ana", RegistrationDate: "2024-03-02", MeetingsScheduledCount: 3},
		{SalesRepName: "Bia", RegistrationDate: "2024-03-02", MeetingsScheduledCount: 1},
	} {
		if err := reports.Create(ctx, r); err != nil {
			t.Fatalf("create report: %v", err)
		}
		if i == 0 {
			first = r
		}
	}
	if err := meetings.Create(ctx, &models.MeetingDetail{ReportID: &first.ID, LeadName: "João", Status: "Agendado"}); err != nil {
		t.Fatalf("create meeting: %v", err)
	}
	return NewReportService(reports, meetings), first
}

func TestReportService_ListReports(t *testing.T) {
	svc, _ := newReportServiceFixture(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		req   ReportListRequest
		total int64
	}{
		{"all", ReportListRequest{}, 3},
		{"by rep, any case", ReportListRequest{Vendedor: " ANA "}, 2},
		{"date range", ReportListRequest{StartDate: "2024-03-02", EndDate: "2024-03-02"}, 2},
		{"rep and date", ReportListRequest{Vendedor: "ana", StartDate: "2024-03-02"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.ListReports(ctx, &tt.req)
			if err != nil {
				t.Fatalf("ListReports() error = %v", err)
			}
			if res.Total != tt.total {
				t.Errorf("Total = %d, expected %d", res.Total, tt.total)
			}
		})
	}

	res, err := svc.ListReports(ctx, &ReportListRequest{Page: 2, PageSize: 2})
	if err != nil {
		t.Fatalf("ListReports() error = %v", err)
	}
	if items := res.Items.([]models.Report); len(items) != 1 || res.Total != 3 {
		t.Errorf("page 2 = %d items of %d", len(items), res.Total)
	}

	var verr *ValidationError
	if _, err := svc.ListReports(ctx, &ReportListRequest{StartDate: "2024-3-1"}); !errors.As(err, &verr) {
		t.Errorf("expected *ValidationError, got %v", err)
	}
}

func TestNormalizePage(t *testing.T) {
	tests := []struct{ page, size, wantPage, wantSize int }{
		{0, 0, 1, defaultPageSize},
		{3, 50, 3, 50},
		{-1, 1000, 1, maxPageSize},
	}
	for _, tt := range tests {
		if p, s := normalizePage(tt.page, tt.size); p != tt.wantPage || s != tt.wantSize {
			t.Errorf("normalizePage(%d, %d) = %d, %d", tt.page, tt.size, p, s)
		}
	}
}

func TestReportService_GetAndUpdateReport(t *testing.T) {
	svc, first := newReportServiceFixture(t)
	ctx := context.Background()

	got, err := svc.GetReport(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetReport() error = %v", err)
	}
	if len(got.Meetings) != 1 {
		t.Errorf("expected linked meeting, got %d", len(got.Meetings))
	}

	updated, err := svc.UpdateReport(ctx, first.ID, &ReportUpdateRequest{
		SalesRepName:           strPtr(" Ana Souza "),
		MeetingsCompletedCount: intPtr(0),
	})
	if err != nil {
		t.Fatalf("UpdateReport() error = %v", err)
	}
	if updated.SalesRepName != "Ana Souza" || updated.MeetingsScheduledCount != 5 || updated.MeetingsCompletedCount != 0 {
		t.Errorf("updated = %+v", updated)
	}

	if _, err := svc.GetReport(ctx, "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.UpdateReport(ctx, "missing", &ReportUpdateRequest{MeetingsScheduledCount: intPtr(1)}); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestReportUpdateRequest_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  ReportUpdateRequest
	}{
		{"empty", ReportUpdateRequest{}},
		{"blank name", ReportUpdateRequest{SalesRepName: strPtr("  ")}},
		{"bad date", ReportUpdateRequest{RegistrationDate: strPtr("2024-02-30")}},
		{"negative count", ReportUpdateRequest{MeetingsScheduledCount: intPtr(-1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var verr *ValidationError
			if _, err := tt.req.updates(); !errors.As(err, &verr) {
				t.Errorf("expected *ValidationError, got %v", err)
			}
		})
	}
}

func TestReportService_DeleteReportUnlinksMeetings(t *testing.T) {
	svc, first := newReportServiceFixture(t)
	ctx := context.Background()

	if err := svc.DeleteReport(ctx, first.ID); err != nil {
		t.Fatalf("DeleteReport() error = %v", err)
	}
	if err := svc.DeleteReport(ctx, first.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("second delete error = %v, expected ErrNotFound", err)
	}

	res, err := svc.ListMeetings(ctx, &MeetingListRequest{Unlinked: true})
	if err != nil {
		t.Fatalf("ListMeetings() error = %v", err)
	}
	if res.Total != 1 {
		t.Errorf("expected the meeting to survive unlinked, got %d", res.Total)
	}
}

func TestReportService_CreateMeeting(t *testing.T) {
	svc, first := newReportServiceFixture(t)
	ctx := context.Background()

	m, err := svc.CreateMeeting(ctx, &ManualMeetingRequest{LeadName: " Pedro ", ResponsibleRep: strPtr(" ")})
	if err != nil {
		t.Fatalf("CreateMeeting() error = %v", err)
	}
	if m.LeadName != "Pedro" || m.Status != models.MeetingStatusScheduled || m.Source != models.MeetingSourceManual {
		t.Errorf("meeting = %+v", m)
	}
	if m.ReportID != nil || m.ResponsibleRep != nil {
		t.Errorf("expected unlinked meeting without rep, got %+v", m)
	}

	linked, err := svc.CreateMeeting(ctx, &ManualMeetingRequest{ReportID: &first.ID, LeadName: "Lia", Status: models.MeetingStatusCompleted})
	if err != nil {
		t.Fatalf("CreateMeeting() error = %v", err)
	}
	if linked.ReportID == nil || *linked.ReportID != first.ID {
		t.Errorf("ReportID = %v", linked.ReportID)
	}

	tests := []struct {
		name string
		req  ManualMeetingRequest
	}{
		{"no lead", ManualMeetingRequest{LeadName: " "}},
		{"bad status", ManualMeetingRequest{LeadName: "X", Status: "Done"}},
		{"bad date", ManualMeetingRequest{LeadName: "X", ScheduledDate: "amanhã"}},
		{"unknown report", ManualMeetingRequest{LeadName: "X", ReportID: strPtr("nope")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var verr *ValidationError
			if _, err := svc.CreateMeeting(ctx, &tt.req); !errors.As(err, &verr) {
				t.Errorf("expected *ValidationError, got %v", err)
			}
		})
	}
}

func TestReportService_UpdateAndDeleteMeeting(t *testing.T) {
	svc, first := newReportServiceFixture(t)
	ctx := context.Background()

	m, err := svc.CreateMeeting(ctx, &ManualMeetingRequest{ReportID: &first.ID, LeadName: "Pedro", ResponsibleRep: strPtr("Ana")})
	if err != nil {
		t.Fatalf("CreateMeeting() error = %v", err)
	}

	updated, err := svc.UpdateMeeting(ctx, m.ID, &MeetingUpdateRequest{
		Status:         strPtr(models.MeetingStatusNoShow),
		ReportID:       strPtr(""),
		ResponsibleRep: strPtr(""),
	})
	if err != nil {
		t.Fatalf("UpdateMeeting() error = %v", err)
	}
	if updated.Status != models.MeetingStatusNoShow || updated.ReportID != nil || updated.ResponsibleRep != nil {
		t.Errorf("updated = %+v", updated)
	}

	var verr *ValidationError
	if _, err := svc.UpdateMeeting(ctx, m.ID, &MeetingUpdateRequest{}); !errors.As(err, &verr) {
		t.Errorf("empty update error = %v", err)
	}
	if _, err := svc.UpdateMeeting(ctx, m.ID, &MeetingUpdateRequest{Status: strPtr("Feito")}); !errors.As(err, &verr) {
		t.Errorf("bad status error = %v", err)
	}

	if err := svc.DeleteMeeting(ctx, m.ID); err != nil {
		t.Fatalf("DeleteMeeting() error = %v", err)
	}
	if err := svc.DeleteMeeting(ctx, m.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
