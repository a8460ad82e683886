package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/huangang/sdrdesk/internal/models"
	"github.com/huangang/sdrdesk/internal/repository"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type ReportStore interface {
	GetByID(ctx context.Context, id string) (*models.Report, error)
	List(ctx context.Context, f repository.ReportFilter) ([]models.Report, int64, error)
	Update(ctx context.Context, id string, updates map[string]interface{}) (*models.Report, error)
	Delete(ctx context.Context, id string) error
}

type MeetingStore interface {
	Create(ctx context.Context, meeting *models.MeetingDetail) error
	GetByID(ctx context.Context, id string) (*models.MeetingDetail, error)
	List(ctx context.Context, f repository.MeetingFilter) ([]models.MeetingDetail, int64, error)
	Update(ctx context.Context, id string, updates map[string]interface{}) (*models.MeetingDetail, error)
	Delete(ctx context.Context, id string) error
}

// ReportService is the admin view over reports and meetings.
type ReportService struct {
	reports  ReportStore
	meetings MeetingStore
}

func NewReportService(reports ReportStore, meetings MeetingStore) *ReportService {
	return &ReportService{reports: reports, meetings: meetings}
}

type ListResult struct {
	Items    interface{} `json:"items"`
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

type ReportListRequest struct {
	Vendedor  string `form:"vendedor"`
	StartDate string `form:"start_date"`
	EndDate   string `form:"end_date"`
	Page      int    `form:"page"`
	PageSize  int    `form:"page_size"`
}

func (r *ReportListRequest) validate() error {
	var errs []string
	for _, d := range []struct{ name, value string }{{"start_date", r.StartDate}, {"end_date", r.EndDate}} {
		if d.value != "" && !isDate(d.value) {
			errs = append(errs, d.name+" must match YYYY-MM-DD")
		}
	}
	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

func (s *ReportService) ListReports(ctx context.Context, req *ReportListRequest) (*ListResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	page, pageSize := normalizePage(req.Page, req.PageSize)

	reports, total, err := s.reports.List(ctx, repository.ReportFilter{
		SalesRepName: req.Vendedor,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		Page:         page,
		PageSize:     pageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return &ListResult{Items: reports, Total: total, Page: page, PageSize: pageSize}, nil
}

func (s *ReportService) GetReport(ctx context.Context, id string) (*models.Report, error) {
	return s.reports.GetByID(ctx, id)
}

// ReportUpdateRequest changes only the fields that are set.
type ReportUpdateRequest struct {
	SalesRepName           *string `json:"sales_rep_name"`
	RegistrationDate       *string `json:"registration_date"`
	MeetingsScheduledCount *int    `json:"meetings_scheduled_count"`
	MeetingsCompletedCount *int    `json:"meetings_completed_count"`
}

func (r *ReportUpdateRequest) updates() (map[string]interface{}, error) {
	updates := make(map[string]interface{})
	var errs []string

	if r.SalesRepName != nil {
		name := strings.TrimSpace(*r.SalesRepName)
		if name == "" {
			errs = append(errs, "sales_rep_name must not be blank")
		}
		updates["sales_rep_name"] = name
	}
	if r.RegistrationDate != nil {
		if !isDate(*r.RegistrationDate) {
			errs = append(errs, "registration_date must match YYYY-MM-DD")
		}
		updates["registration_date"] = *r.RegistrationDate
	}
	if r.MeetingsScheduledCount != nil {
		if *r.MeetingsScheduledCount < 0 {
			errs = append(errs, "meetings_scheduled_count must be a number >= 0")
		}
		updates["meetings_scheduled_count"] = *r.MeetingsScheduledCount
	}
	if r.MeetingsCompletedCount != nil {
		if *r.MeetingsCompletedCount < 0 {
			errs = append(errs, "meetings_completed_count must be a number >= 0")
		}
		updates["meetings_completed_count"] = *r.MeetingsCompletedCount
	}

	if len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}
	if len(updates) == 0 {
		return nil, &ValidationError{Errors: []string{"no fields to update"}}
	}
	return updates, nil
}

func (s *ReportService) UpdateReport(ctx context.Context, id string, req *ReportUpdateRequest) (*models.Report, error) {
	updates, err := req.updates()
	if err != nil {
		return nil, err
	}
	return s.reports.Update(ctx, id, updates)
}

// DeleteReport removes the report and leaves its meetings unlinked.
func (s *ReportService) DeleteReport(ctx context.Context, id string) error {
	return s.reports.Delete(ctx, id)
}

type MeetingListRequest struct {
	ReportID       string `form:"report_id"`
	Unlinked       bool   `form:"unlinked"`
	Status         string `form:"status"`
	ResponsibleRep string `form:"responsible_rep"`
	StartDate      string `form:"start_date"`
	EndDate        string `form:"end_date"`
	Page           int    `form:"page"`
	PageSize       int    `form:"page_size"`
}

func (s *ReportService) ListMeetings(ctx context.Context, req *MeetingListRequest) (*ListResult, error) {
	page, pageSize := normalizePage(req.Page, req.PageSize)

	meetings, total, err := s.meetings.List(ctx, repository.MeetingFilter{
		ReportID:       req.ReportID,
		Unlinked:       req.Unlinked,
		Status:         req.Status,
		ResponsibleRep: req.ResponsibleRep,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		Page:           page,
		PageSize:       pageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("list meetings: %w", err)
	}
	return &ListResult{Items: meetings, Total: total, Page: page, PageSize: pageSize}, nil
}

// ManualMeetingRequest is a meeting typed in by an admin. ReportID may be
// omitted to keep the meeting unlinked.
type ManualMeetingRequest struct {
	ReportID       *string `json:"report_id"`
	LeadName       string  `json:"lead_name"`
	ScheduledDate  string  `json:"scheduled_date"`
	ScheduledTime  string  `json:"scheduled_time"`
	Status         string  `json:"status"`
	ResponsibleRep *string `json:"responsible_rep"`
}

func (s *ReportService) CreateMeeting(ctx context.Context, req *ManualMeetingRequest) (*models.MeetingDetail, error) {
	var errs []string

	lead := strings.TrimSpace(req.LeadName)
	if lead == "" {
		errs = append(errs, "lead_name is required")
	}
	status := req.Status
	if status == "" {
		status = models.MeetingStatusScheduled
	}
	if !models.IsMeetingStatus(status) {
		errs = append(errs, statusMessage())
	}
	if req.ScheduledDate != "" && !isDate(req.ScheduledDate) {
		errs = append(errs, "scheduled_date must match YYYY-MM-DD")
	}
	if len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	reportID, err := s.linkedReportID(ctx, req.ReportID)
	if err != nil {
		return nil, err
	}

	meeting := &models.MeetingDetail{
		ReportID:       reportID,
		LeadName:       lead,
		ScheduledDate:  req.ScheduledDate,
		ScheduledTime:  strings.TrimSpace(req.ScheduledTime),
		Status:         status,
		ResponsibleRep: trimmedOrNil(req.ResponsibleRep),
		Source:         models.MeetingSourceManual,
	}
	if err := s.meetings.Create(ctx, meeting); err != nil {
		return nil, fmt.Errorf("create meeting: %w", err)
	}
	return meeting, nil
}

// MeetingUpdateRequest changes only the fields that are set. An empty
// report_id unlinks the meeting.
type MeetingUpdateRequest struct {
	ReportID       *string `json:"report_id"`
	LeadName       *string `json:"lead_name"`
	ScheduledDate  *string `json:"scheduled_date"`
	ScheduledTime  *string `json:"scheduled_time"`
	Status         *string `json:"status"`
	ResponsibleRep *string `json:"responsible_rep"`
}

func (s *ReportService) UpdateMeeting(ctx context.Context, id string, req *MeetingUpdateRequest) (*models.MeetingDetail, error) {
	updates := make(map[string]interface{})
	var errs []string

	if req.LeadName != nil {
		lead := strings.TrimSpace(*req.LeadName)
		if lead == "" {
			errs = append(errs, "lead_name must not be blank")
		}
		updates["lead_name"] = lead
	}
	if req.ScheduledDate != nil {
		if *req.ScheduledDate != "" && !isDate(*req.ScheduledDate) {
			errs = append(errs, "scheduled_date must match YYYY-MM-DD")
		}
		updates["scheduled_date"] = *req.ScheduledDate
	}
	if req.ScheduledTime != nil {
		updates["scheduled_time"] = strings.TrimSpace(*req.ScheduledTime)
	}
	if req.Status != nil {
		if !models.IsMeetingStatus(*req.Status) {
			errs = append(errs, statusMessage())
		}
		updates["status"] = *req.Status
	}
	if req.ResponsibleRep != nil {
		updates["responsible_rep"] = trimmedOrNil(req.ResponsibleRep)
	}
	if len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	if req.ReportID != nil {
		reportID, err := s.linkedReportID(ctx, req.ReportID)
		if err != nil {
			return nil, err
		}
		updates["report_id"] = reportID
	}
	if len(updates) == 0 {
		return nil, &ValidationError{Errors: []string{"no fields to update"}}
	}

	return s.meetings.Update(ctx, id, updates)
}

func (s *ReportService) DeleteMeeting(ctx context.Context, id string) error {
	return s.meetings.Delete(ctx, id)
}

// linkedReportID returns nil for an absent or blank id and checks that any
// other id names an existing report.
func (s *ReportService) linkedReportID(ctx context.Context, id *string) (*string, error) {
	if id == nil || strings.TrimSpace(*id) == "" {
		return nil, nil
	}
	reportID := strings.TrimSpace(*id)
	if _, err := s.reports.GetByID(ctx, reportID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &ValidationError{Errors: []string{"report_id does not exist"}}
		}
		return nil, err
	}
	return &reportID, nil
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func statusMessage() string {
	return "status must be one of " + strings.Join(models.MeetingStatuses, ", ")
}

func isDate(s string) bool {
	return validateDateString(s) == nil
}
