package handlers

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/huangang/sdrdesk/internal/models"
	"github.com/huangang/sdrdesk/internal/services"
	"gorm.io/gorm"
)

var startTime = time.Now()

type MetricsHandler struct {
	db         *gorm.DB
	dispatcher services.NotificationDispatcher
}

func NewMetricsHandler(db *gorm.DB, dispatcher services.NotificationDispatcher) *MetricsHandler {
	return &MetricsHandler{db: db, dispatcher: dispatcher}
}

// Metrics returns Prometheus-compatible text format metrics.
func (h *MetricsHandler) Metrics(c *gin.Context) {
	var b strings.Builder

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	writeGauge(&b, "sdrdesk_uptime_seconds", "Time since server start in seconds", time.Since(startTime).Seconds())
	writeGauge(&b, "sdrdesk_goroutines", "Number of active goroutines", float64(runtime.NumGoroutine()))
	writeGauge(&b, "sdrdesk_memory_alloc_bytes", "Current heap allocation in bytes", float64(m.Alloc))
	writeGauge(&b, "sdrdesk_gc_runs_total", "Total number of GC runs", float64(m.NumGC))

	if sqlDB, err := h.db.DB(); err == nil {
		stats := sqlDB.Stats()
		writeGauge(&b, "sdrdesk_db_open_connections", "Number of open DB connections", float64(stats.OpenConnections))
		writeGauge(&b, "sdrdesk_db_in_use_connections", "Number of in-use DB connections", float64(stats.InUse))
	}

	queueAsync := 0.0
	if h.dispatcher != nil && h.dispatcher.IsAsync() {
		queueAsync = 1.0
	}
	writeGauge(&b, "sdrdesk_queue_async_enabled", "Whether async queue (Redis) is enabled (1=yes, 0=no)", queueAsync)

	ctx := c.Request.Context()
	today := time.Now().Format(models.DateLayout)
	since24h := time.Now().Add(-24 * time.Hour)

	var reports, reportsToday, unlinked, auditFailures24h int64
	h.db.WithContext(ctx).Model(&models.Report{}).Count(&reports)
	h.db.WithContext(ctx).Model(&models.Report{}).Where("registration_date = ?", today).Count(&reportsToday)
	h.db.WithContext(ctx).Model(&models.MeetingDetail{}).Where("report_id IS NULL").Count(&unlinked)
	h.db.WithContext(ctx).Model(&models.AuditEntry{}).
		Where("status <> ? AND created_at >= ?", models.AuditStatusSuccess, since24h).Count(&auditFailures24h)

	writeGauge(&b, "sdrdesk_reports_total", "Total number of daily reports", float64(reports))
	writeGauge(&b, "sdrdesk_reports_today", "Reports registered for today", float64(reportsToday))
	writeGauge(&b, "sdrdesk_meetings_unlinked", "Meetings with no report", float64(unlinked))
	writeGauge(&b, "sdrdesk_submission_failures_24h", "Failed or retried submissions in the last 24 hours", float64(auditFailures24h))

	c.Data(200, "text/plain; version=0.0.4; charset=utf-8", []byte(b.String()))
}

func writeGauge(b *strings.Builder, name, help string, value float64) {
	fmt.Fprintf(b, "# HELP %s %s\n", name, help)
	fmt.Fprintf(b, "# TYPE %s gauge\n", name)
	fmt.Fprintf(b, "%s %g\n\n", name, value)
}
