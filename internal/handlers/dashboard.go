package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/sdrdesk/internal/services"
	"github.com/huangang/sdrdesk/pkg/response"
)

type DashboardHandler struct {
	dashboard *services.DashboardService
}

func NewDashboardHandler(dashboard *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

// Stats GET /api/dashboard/stats?start_date&end_date
func (h *DashboardHandler) Stats(c *gin.Context) {
	var req services.DashboardStatsRequest
	if !bindQuery(c, &req) {
		return
	}
	stats, err := h.dashboard.Stats(c.Request.Context(), &req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, stats)
}
