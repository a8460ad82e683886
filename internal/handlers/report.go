package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/sdrdesk/internal/middleware"
	"github.com/huangang/sdrdesk/internal/services"
	"github.com/huangang/sdrdesk/pkg/response"
)

// ReportHandler serves reports and meetings to signed-in users.
type ReportHandler struct {
	reports *services.ReportService
}

func NewReportHandler(reports *services.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// List GET /api/reports
func (h *ReportHandler) List(c *gin.Context) {
	var req services.ReportListRequest
	if !bindQuery(c, &req) {
		return
	}
	result, err := h.reports.ListReports(c.Request.Context(), &req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, result)
}

// Mine lists the caller's own reports, matched on their sales rep name.
// GET /api/reports/mine
func (h *ReportHandler) Mine(c *gin.Context) {
	session := middleware.GetSession(c)
	if session == nil {
		response.Unauthorized(c, "authentication required")
		return
	}
	profile, err := session.Profile(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}

	var req services.ReportListRequest
	if !bindQuery(c, &req) {
		return
	}
	req.Vendedor = profile.SalesRepName

	result, err := h.reports.ListReports(c.Request.Context(), &req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, result)
}

// Get GET /api/reports/:id
func (h *ReportHandler) Get(c *gin.Context) {
	report, err := h.reports.GetReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, report)
}

// Update PUT /api/reports/:id
func (h *ReportHandler) Update(c *gin.Context) {
	var req services.ReportUpdateRequest
	if !bindJSON(c, &req) {
		return
	}
	report, err := h.reports.UpdateReport(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, report)
}

// Delete removes a report; its meetings stay, unlinked.
// DELETE /api/reports/:id
func (h *ReportHandler) Delete(c *gin.Context) {
	if err := h.reports.DeleteReport(c.Request.Context(), c.Param("id")); err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "report deleted"})
}

// ListMeetings GET /api/meetings
func (h *ReportHandler) ListMeetings(c *gin.Context) {
	var req services.MeetingListRequest
	if !bindQuery(c, &req) {
		return
	}
	result, err := h.reports.ListMeetings(c.Request.Context(), &req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, result)
}

// CreateMeeting POST /api/meetings
func (h *ReportHandler) CreateMeeting(c *gin.Context) {
	var req services.ManualMeetingRequest
	if !bindJSON(c, &req) {
		return
	}
	meeting, err := h.reports.CreateMeeting(c.Request.Context(), &req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Created(c, meeting)
}

// UpdateMeeting PUT /api/meetings/:id
func (h *ReportHandler) UpdateMeeting(c *gin.Context) {
	var req services.MeetingUpdateRequest
	if !bindJSON(c, &req) {
		return
	}
	meeting, err := h.reports.UpdateMeeting(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, meeting)
}

// DeleteMeeting DELETE /api/meetings/:id
func (h *ReportHandler) DeleteMeeting(c *gin.Context) {
	if err := h.reports.DeleteMeeting(c.Request.Context(), c.Param("id")); err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "meeting deleted"})
}
