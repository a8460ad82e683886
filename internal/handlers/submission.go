package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/huangang/sdrdesk/internal/middleware"
	"github.com/huangang/sdrdesk/internal/services"
	"github.com/huangang/sdrdesk/pkg/logger"
	"github.com/huangang/sdrdesk/pkg/response"
)

type ReportSubmitter interface {
	SubmitReport(ctx context.Context, p *services.SubmissionPayload) (*services.SubmitResult, error)
}

// SubmissionHandler serves the public daily report form.
type SubmissionHandler struct {
	submitter ReportSubmitter
}

func NewSubmissionHandler(submitter ReportSubmitter) *SubmissionHandler {
	return &SubmissionHandler{submitter: submitter}
}

type submitResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	ReportID      string `json:"reportId"`
	EmailID       string `json:"emailId,omitempty"`
	EmailError    string `json:"emailError,omitempty"`
	EmailStatus   string `json:"emailStatus"`
	MeetingsSaved int    `json:"meetingsSaved"`
	MeetingsError string `json:"meetingsError,omitempty"`
}

// Submit stores one daily report.
// POST /api/submit-report
func (h *SubmissionHandler) Submit(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, middleware.MaxSubmissionBody))
	if err != nil {
		middleware.SetAuditError(c, "request body too large")
		response.Fail(c, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}

	payload, err := services.ParseSubmission(body)
	if err == nil {
		var result *services.SubmitResult
		result, err = h.submitter.SubmitReport(c.Request.Context(), payload)
		if err == nil {
			c.JSON(http.StatusOK, submitResponse{
				Success:       true,
				Message:       "report submitted successfully",
				ReportID:      result.ReportID,
				EmailID:       result.EmailID,
				EmailError:    result.EmailError,
				EmailStatus:   result.EmailStatus,
				MeetingsSaved: result.MeetingsSaved,
				MeetingsError: result.MeetingsError,
			})
			return
		}
	}

	var verr *services.ValidationError
	var perr *services.PersistenceError
	switch {
	case errors.As(err, &verr):
		middleware.SetAuditError(c, verr.Error())
		response.BadRequest(c, verr.Error())
	case errors.As(err, &perr):
		logger.Errorf("[Submission] %v: %v", perr, perr.Err)
		middleware.SetAuditError(c, fmt.Sprintf("%v: %v", perr, perr.Err))
		response.ServerError(c, perr.Error())
	default:
		logger.Errorf("[Submission] Unexpected failure: %v", err)
		middleware.SetAuditError(c, err.Error())
		response.ServerError(c, "failed to save report")
	}
}

// Preflight answers an OPTIONS request that carries no Origin header.
func (h *SubmissionHandler) Preflight(c *gin.Context) {
	c.Status(http.StatusOK)
}
