package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/huangang/sdrdesk/internal/models"
	"github.com/huangang/sdrdesk/internal/repository"
)

func TestConversionRate(t *testing.T) {
	tests := []struct {
		completed, scheduled int
		expected             float64
	}{
		{2, 5, 0.4},
		{1, 3, 0.33},
		{2, 3, 0.67},
		{1, 8, 0.13},
		{3, 8, 0.38},
		{0, 0, 0},
		{5, 0, 0},
		{3, 3, 1},
		{6, 4, 1.5},
	}

	for _, tt := range tests {
		if got := ConversionRate(tt.completed, tt.scheduled); got != tt.expected {
			t.Errorf("ConversionRate(%d, %d) = %v, expected %v", tt.completed, tt.scheduled, got, tt.expected)
		}
	}
}

func TestAggregateReports(t *testing.T) {
	reports := []models.Report{
		{SalesRepName: "Ana", RegistrationDate: "2024-03-01", MeetingsScheduledCount: 5, MeetingsCompletedCount: 2},
		{SalesRepName: "Ana", RegistrationDate: "2024-03-01", MeetingsScheduledCount: 3, MeetingsCompletedCount: 1},
		{SalesRepName: "Bia", RegistrationDate: "2024-03-02", MeetingsScheduledCount: 4, MeetingsCompletedCount: 4},
	}

	stats := aggregateReports(reports)

	if stats.Totals.Reports != 3 || stats.Totals.SalesReps != 2 {
		t.Errorf("totals = %+v", stats.Totals)
	}
	if stats.Totals.Scheduled != 12 || stats.Totals.Completed != 7 || stats.Totals.ConversionRate != 0.58 {
		t.Errorf("totals = %+v", stats.Totals)
	}

	if len(stats.ByRep) != 2 || stats.ByRep[0].Vendedor != "Ana" {
		t.Fatalf("ByRep = %+v", stats.ByRep)
	}
	ana := stats.ByRep[0]
	if ana.Reports != 2 || ana.Scheduled != 8 || ana.Completed != 3 || ana.ConversionRate != 0.38 {
		t.Errorf("Ana = %+v", ana)
	}

	if len(stats.ByDay) != 2 || stats.ByDay[0].Date != "2024-03-01" || stats.ByDay[0].Reports != 2 {
		t.Errorf("ByDay = %+v", stats.ByDay)
	}

	if len(stats.Duplicates) != 1 {
		t.Fatalf("Duplicates = %+v", stats.Duplicates)
	}
	if d := stats.Duplicates[0]; d.Vendedor != "Ana" || d.Date != "2024-03-01" || d.Count != 2 {
		t.Errorf("duplicate = %+v", d)
	}
}

func TestAggregateReports_Empty(t *testing.T) {
	stats := aggregateReports(nil)
	if stats.ByRep == nil || stats.ByDay == nil || stats.Duplicates == nil {
		t.Error("empty aggregates should be empty slices")
	}
	if stats.Totals.ConversionRate != 0 {
		t.Errorf("ConversionRate = %v", stats.Totals.ConversionRate)
	}
}

func TestDashboardService_Stats(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	reports := repository.NewReportRepository(db)
	meetings := repository.NewMeetingRepository(db)

	for _, r := range []*models.Report{
		{SalesRepName: "Ana", RegistrationDate: "2024-03-01", MeetingsScheduledCount: 5, MeetingsCompletedCount: 2},
		{SalesRepName: "Ana", RegistrationDate: "2024-01-01", MeetingsScheduledCount: 9, MeetingsCompletedCount: 9},
	} {
		if err := reports.Create(ctx, r); err != nil {
			t.Fatalf("create report: %v", err)
		}
	}
	for _, m := range []*models.MeetingDetail{
		{LeadName: "João", ScheduledDate: "2024-03-02", Status: models.MeetingStatusScheduled},
		{LeadName: "Maria", ScheduledDate: "2024-03-03", Status: models.MeetingStatusScheduled},
		{LeadName: "Pedro", ScheduledDate: "2024-03-03", Status: models.MeetingStatusCompleted},
	} {
		if err := meetings.Create(ctx, m); err != nil {
			t.Fatalf("create meeting: %v", err)
		}
	}

	svc := NewDashboardService(reports, meetings)
	svc.now = func() time.Time { return time.Date(2024, 3, 10, 9, 0, 0, 0, time.Local) }

	stats, err := svc.Stats(ctx, &DashboardStatsRequest{})
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.StartDate != "2024-02-10" || stats.EndDate != "2024-03-10" {
		t.Errorf("default range = %s..%s", stats.StartDate, stats.EndDate)
	}
	if stats.Totals.Reports != 1 || stats.Totals.ConversionRate != 0.4 {
		t.Errorf("totals = %+v", stats.Totals)
	}

	counts := map[string]int64{}
	for _, c := range stats.MeetingStatus {
		counts[c.Status] = c.Count
	}
	if counts[models.MeetingStatusScheduled] != 2 || counts[models.MeetingStatusCompleted] != 1 {
		t.Errorf("MeetingStatus = %+v", stats.MeetingStatus)
	}
}

func TestDashboardService_StatsValidation(t *testing.T) {
	svc := NewDashboardService(nil, nil)

	for _, req := range []*DashboardStatsRequest{
		{StartDate: "2024-03-10", EndDate: "2024-03-01"},
		{StartDate: "March", EndDate: "2024-03-01"},
		{EndDate: "2024/03/01"},
	} {
		var verr *ValidationError
		if _, err := svc.Stats(context.Background(), req); !errors.As(err, &verr) {
			t.Errorf("Stats(%+v) error = %v, expected *ValidationError", req, err)
		}
	}
}
