package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/huangang/sdrdesk/internal/models"
	"github.com/huangang/sdrdesk/internal/repository"
	"github.com/shopspring/decimal"
)

type ReportLister interface {
	List(ctx context.Context, f repository.ReportFilter) ([]models.Report, int64, error)
}

type MeetingStatusCounter interface {
	CountByStatus(ctx context.Context, startDate, endDate string) ([]repository.StatusCount, error)
}

type DashboardService struct {
	reports  ReportLister
	meetings MeetingStatusCounter
	now      func() time.Time
}

func NewDashboardService(reports ReportLister, meetings MeetingStatusCounter) *DashboardService {
	return &DashboardService{reports: reports, meetings: meetings, now: time.Now}
}

type DashboardStatsRequest struct {
	StartDate string `form:"start_date"`
	EndDate   string `form:"end_date"`
}

type DashboardTotals struct {
	Reports        int     `json:"reports"`
	SalesReps      int     `json:"sales_reps"`
	Scheduled      int     `json:"scheduled"`
	Completed      int     `json:"completed"`
	ConversionRate float64 `json:"conversion_rate"`
}

type RepStat struct {
	Vendedor       string  `json:"vendedor"`
	Reports        int     `json:"reports"`
	Scheduled      int     `json:"scheduled"`
	Completed      int     `json:"completed"`
	ConversionRate float64 `json:"conversion_rate"`
}

type DayStat struct {
	Date      string `json:"date"`
	Reports   int    `json:"reports"`
	Scheduled int    `json:"scheduled"`
	Completed int    `json:"completed"`
}

// DuplicateDay is a rep with more than one report for the same date.
type DuplicateDay struct {
	Vendedor string `json:"vendedor"`
	Date     string `json:"date"`
	Count    int    `json:"count"`
}

type DashboardStats struct {
	StartDate     string                   `json:"start_date"`
	EndDate       string                   `json:"end_date"`
	Totals        DashboardTotals          `json:"totals"`
	ByRep         []RepStat                `json:"by_rep"`
	ByDay         []DayStat                `json:"by_day"`
	MeetingStatus []repository.StatusCount `json:"meeting_status"`
	Duplicates    []DuplicateDay           `json:"duplicates"`
}

// Stats aggregates reports registered in [start, end]. The range defaults to
// the 30 days ending today. Duplicate reports are summed as stored.
func (s *DashboardService) Stats(ctx context.Context, req *DashboardStatsRequest) (*DashboardStats, error) {
	start, end := req.StartDate, req.EndDate
	if end == "" {
		end = s.now().Format(models.DateLayout)
	}
	if start == "" {
		endDay, err := time.Parse(models.DateLayout, end)
		if err != nil {
			return nil, &ValidationError{Errors: []string{"end_date must match YYYY-MM-DD"}}
		}
		start = endDay.AddDate(0, 0, -29).Format(models.DateLayout)
	}

	var errs []string
	if !isDate(start) {
		errs = append(errs, "start_date must match YYYY-MM-DD")
	}
	if !isDate(end) {
		errs = append(errs, "end_date must match YYYY-MM-DD")
	}
	if len(errs) == 0 && start > end {
		errs = append(errs, "start_date must not be after end_date")
	}
	if len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	reports, _, err := s.reports.List(ctx, repository.ReportFilter{StartDate: start, EndDate: end})
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	statuses, err := s.meetings.CountByStatus(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("count meetings by status: %w", err)
	}

	stats := aggregateReports(reports)
	stats.StartDate = start
	stats.EndDate = end
	stats.MeetingStatus = statuses
	if stats.MeetingStatus == nil {
		stats.MeetingStatus = []repository.StatusCount{}
	}
	return stats, nil
}

func aggregateReports(reports []models.Report) *DashboardStats {
	stats := &DashboardStats{
		ByRep:      []RepStat{},
		ByDay:      []DayStat{},
		Duplicates: []DuplicateDay{},
	}

	reps := make(map[string]*RepStat)
	days := make(map[string]*DayStat)
	type repDay struct{ rep, date string }
	perRepDay := make(map[repDay]int)

	for _, r := range reports {
		key := repKey(r.SalesRepName)
		rep, ok := reps[key]
		if !ok {
			rep = &RepStat{Vendedor: r.SalesRepName}
			reps[key] = rep
		}
		rep.Reports++
		rep.Scheduled += r.MeetingsScheduledCount
		rep.Completed += r.MeetingsCompletedCount

		day, ok := days[r.RegistrationDate]
		if !ok {
			day = &DayStat{Date: r.RegistrationDate}
			days[r.RegistrationDate] = day
		}
		day.Reports++
		day.Scheduled += r.MeetingsScheduledCount
		day.Completed += r.MeetingsCompletedCount

		perRepDay[repDay{key, r.RegistrationDate}]++

		stats.Totals.Reports++
		stats.Totals.Scheduled += r.MeetingsScheduledCount
		stats.Totals.Completed += r.MeetingsCompletedCount
	}

	for _, rep := range reps {
		rep.ConversionRate = ConversionRate(rep.Completed, rep.Scheduled)
		stats.ByRep = append(stats.ByRep, *rep)
	}
	sort.Slice(stats.ByRep, func(i, j int) bool {
		if stats.ByRep[i].Scheduled != stats.ByRep[j].Scheduled {
			return stats.ByRep[i].Scheduled > stats.ByRep[j].Scheduled
		}
		return stats.ByRep[i].Vendedor < stats.ByRep[j].Vendedor
	})

	for _, day := range days {
		stats.ByDay = append(stats.ByDay, *day)
	}
	sort.Slice(stats.ByDay, func(i, j int) bool { return stats.ByDay[i].Date < stats.ByDay[j].Date })

	for k, n := range perRepDay {
		if n > 1 {
			stats.Duplicates = append(stats.Duplicates, DuplicateDay{Vendedor: reps[k.rep].Vendedor, Date: k.date, Count: n})
		}
	}
	sort.Slice(stats.Duplicates, func(i, j int) bool {
		if stats.Duplicates[i].Date != stats.Duplicates[j].Date {
			return stats.Duplicates[i].Date < stats.Duplicates[j].Date
		}
		return stats.Duplicates[i].Vendedor < stats.Duplicates[j].Vendedor
	})

	stats.Totals.SalesReps = len(reps)
	stats.Totals.ConversionRate = ConversionRate(stats.Totals.Completed, stats.Totals.Scheduled)
	return stats
}

// ConversionRate is completed/scheduled rounded half away from zero to two
// places, and 0 when nothing was scheduled.
func ConversionRate(completed, scheduled int) float64 {
	if scheduled <= 0 {
		return 0
	}
	return decimal.NewFromInt(int64(completed)).
		Div(decimal.NewFromInt(int64(scheduled))).
		Round(2).
		InexactFloat64()
}
