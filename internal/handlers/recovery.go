package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/huangang/sdrdesk/internal/services"
	"github.com/huangang/sdrdesk/pkg/logger"
	"github.com/huangang/sdrdesk/pkg/response"
)

type MeetingRecoverer interface {
	RecoverMissingMeetings(ctx context.Context) (*services.RecoveryReport, error)
}

type RecoveryHandler struct {
	recoverer MeetingRecoverer
}

func NewRecoveryHandler(recoverer MeetingRecoverer) *RecoveryHandler {
	return &RecoveryHandler{recoverer: recoverer}
}

// Recover rebuilds missing meeting rows from the audit trail.
// POST /api/admin/recover-meetings
func (h *RecoveryHandler) Recover(c *gin.Context) {
	report, err := h.recoverer.RecoverMissingMeetings(c.Request.Context())
	if services.IsJobLocked(err) {
		response.Conflict(c, "recovery is already running")
		return
	}
	if err != nil {
		logger.Errorf("[Recovery] Run failed: %v", err)
		response.ServerError(c, "failed to recover meetings")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("recovered meetings for %d of %d reports", report.Summary.Recovered, report.Summary.Scanned),
		"results": report.Results,
		"summary": report.Summary,
	})
}
