package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/sdrdesk/internal/services"
	"github.com/huangang/sdrdesk/pkg/response"
)

// AuditHandler exposes the submission audit trail read only.
type AuditHandler struct {
	audit *services.AuditService
}

func NewAuditHandler(audit *services.AuditService) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// List GET /api/audit-entries
func (h *AuditHandler) List(c *gin.Context) {
	var req services.AuditListRequest
	if !bindQuery(c, &req) {
		return
	}
	result, err := h.audit.List(c.Request.Context(), &req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, result)
}
