package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/huangang/sdrdesk/internal/services"
	"gorm.io/gorm"
)

// HealthHandler reports the state of the database and notification queue.
type HealthHandler struct {
	db         *gorm.DB
	dispatcher services.NotificationDispatcher
}

func NewHealthHandler(db *gorm.DB, dispatcher services.NotificationDispatcher) *HealthHandler {
	return &HealthHandler{db: db, dispatcher: dispatcher}
}

// CheckHealth returns the health status of all subsystems.
func (h *HealthHandler) CheckHealth(c *gin.Context) {
	overall := "healthy"
	status := http.StatusOK

	dbStatus := "ok"
	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		dbStatus = "error: " + err.Error()
		overall = "unhealthy"
		status = http.StatusServiceUnavailable
	}

	queueMode := "inline"
	if h.dispatcher != nil && h.dispatcher.IsAsync() {
		queueMode = "async (Redis)"
	}

	c.JSON(status, gin.H{
		"status":  overall,
		"service": "sdrdesk",
		"components": gin.H{
			"database":   dbStatus,
			"queue_mode": queueMode,
		},
	})
}
