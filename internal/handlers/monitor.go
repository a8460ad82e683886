package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/huangang/sdrdesk/internal/models"
	"github.com/huangang/sdrdesk/internal/services"
	"github.com/huangang/sdrdesk/pkg/response"
)

type MonitorHandler struct {
	monitor *services.MissingSubmissionService
}

func NewMonitorHandler(monitor *services.MissingSubmissionService) *MonitorHandler {
	return &MonitorHandler{monitor: monitor}
}

// Missing lists SDRs without a report for date, today by default.
// GET /api/monitor/missing?date=YYYY-MM-DD
func (h *MonitorHandler) Missing(c *gin.Context) {
	date := c.DefaultQuery("date", time.Now().Format(models.DateLayout))
	result, err := h.monitor.Check(c.Request.Context(), date)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, result)
}
