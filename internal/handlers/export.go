package handlers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/huangang/sdrdesk/internal/services"
)

const (
	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type ExportHandler struct {
	export *services.ExportService
}

func NewExportHandler(export *services.ExportService) *ExportHandler {
	return &ExportHandler{export: export}
}

// ReportsCSV GET /api/export/reports.csv
func (h *ExportHandler) ReportsCSV(c *gin.Context) {
	h.serve(c, "relatorios", "csv", contentTypeCSV, h.export.WriteReportsCSV)
}

// MeetingsCSV GET /api/export/meetings.csv
func (h *ExportHandler) MeetingsCSV(c *gin.Context) {
	h.serve(c, "reunioes", "csv", contentTypeCSV, h.export.WriteMeetingsCSV)
}

// Workbook GET /api/export/workbook.xlsx
func (h *ExportHandler) Workbook(c *gin.Context) {
	h.serve(c, "sdr-export", "xlsx", contentTypeXLSX, h.export.WriteWorkbook)
}

type exportWriter func(ctx context.Context, w io.Writer, req *services.ExportRequest) error

// serve renders into memory first so a failure can still answer with JSON.
func (h *ExportHandler) serve(c *gin.Context, name, ext, contentType string, write exportWriter) {
	var req services.ExportRequest
	if !bindQuery(c, &req) {
		return
	}

	var buf bytes.Buffer
	if err := write(c.Request.Context(), &buf, &req); err != nil {
		writeServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("%s-%s.%s", name, time.Now().Format("20060102"), ext)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}
