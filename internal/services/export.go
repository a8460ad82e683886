package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/huangang/sdrdesk/internal/models"
	"github.com/huangang/sdrdesk/internal/repository"
	"github.com/xuri/excelize/v2"
)

const (
	SheetReports  = "Relatórios"
	SheetMeetings = "Reuniões"

	exportTimeLayout = "2006-01-02 15:04:05"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var (
	reportColumns  = []string{"ID", "Vendedor", "Data", "Reuniões Agendadas", "Reuniões Realizadas", "Criado Em"}
	reportWidths   = []float64{38, 25, 14, 20, 20, 22}
	meetingColumns = []string{"ID", "Relatório", "Lead", "Data", "Horário", "Status", "Vendedor Responsável"}
	meetingWidths  = []float64{38, 38, 30, 14, 10, 16, 25}
)

type MeetingLister interface {
	List(ctx context.Context, f repository.MeetingFilter) ([]models.MeetingDetail, int64, error)
}

type ExportService struct {
	reports  ReportLister
	meetings MeetingLister
}

func NewExportService(reports ReportLister, meetings MeetingLister) *ExportService {
	return &ExportService{reports: reports, meetings: meetings}
}

// ExportRequest bounds an export. Dates apply to registration_date for
// reports and scheduled_date for meetings.
type ExportRequest struct {
	Vendedor  string `form:"vendedor"`
	StartDate string `form:"start_date"`
	EndDate   string `form:"end_date"`
}

func (r *ExportRequest) validate() error {
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

func (s *ExportService) reportRows(ctx context.Context, req *ExportRequest) ([][]interface{}, error) {
	reports, _, err := s.reports.List(ctx, repository.ReportFilter{
		SalesRepName: req.Vendedor,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
	})
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}

	rows := make([][]interface{}, 0, len(reports))
	for _, r := range reports {
		rows = append(rows, []interface{}{
			r.ID,
			r.SalesRepName,
			r.RegistrationDate,
			r.MeetingsScheduledCount,
			r.MeetingsCompletedCount,
			r.CreatedAt.UTC().Format(exportTimeLayout),
		})
	}
	return rows, nil
}

func (s *ExportService) meetingRows(ctx context.Context, req *ExportRequest) ([][]interface{}, error) {
	meetings, _, err := s.meetings.List(ctx, repository.MeetingFilter{
		ResponsibleRep: req.Vendedor,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
	})
	if err != nil {
		return nil, fmt.Errorf("list meetings: %w", err)
	}

	rows := make([][]interface{}, 0, len(meetings))
	for _, m := range meetings {
		rows = append(rows, []interface{}{
			m.ID,
			derefString(m.ReportID),
			m.LeadName,
			m.ScheduledDate,
			m.ScheduledTime,
			m.Status,
			derefString(m.ResponsibleRep),
		})
	}
	return rows, nil
}

func (s *ExportService) WriteReportsCSV(ctx context.Context, w io.Writer, req *ExportRequest) error {
	if err := req.validate(); err != nil {
		return err
	}
	rows, err := s.reportRows(ctx, req)
	if err != nil {
		return err
	}
	return WriteCSV(w, reportColumns, rows)
}

func (s *ExportService) WriteMeetingsCSV(ctx context.Context, w io.Writer, req *ExportRequest) error {
	if err := req.validate(); err != nil {
		return err
	}
	rows, err := s.meetingRows(ctx, req)
	if err != nil {
		return err
	}
	return WriteCSV(w, meetingColumns, rows)
}

// WriteWorkbook writes an XLSX file with a reports sheet and a meetings sheet.
func (s *ExportService) WriteWorkbook(ctx context.Context, w io.Writer, req *ExportRequest) error {
	if err := req.validate(); err != nil {
		return err
	}
	reportRows, err := s.reportRows(ctx, req)
	if err != nil {
		return err
	}
	meetingRows, err := s.meetingRows(ctx, req)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetReports); err != nil {
		return err
	}
	if _, err := f.NewSheet(SheetMeetings); err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	if err != nil {
		return err
	}

	if err := writeSheet(f, SheetReports, reportColumns, reportWidths, reportRows, headerStyle); err != nil {
		return err
	}
	if err := writeSheet(f, SheetMeetings, meetingColumns, meetingWidths, meetingRows, headerStyle); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	return f.Write(w)
}

func writeSheet(f *excelize.File, sheet string, columns []string, widths []float64, rows [][]interface{}, headerStyle int) error {
	header := make([]interface{}, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	lastCol, err := excelize.ColumnNumberToName(len(columns))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", lastCol+"1", headerStyle); err != nil {
		return err
	}

	for i, width := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return err
		}
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := row
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

// WriteCSV writes a UTF-8 BOM, then header and rows. Values containing a
// comma, quote or line break are quoted with inner quotes doubled.
func WriteCSV(w io.Writer, header []string, rows [][]interface{}) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	record := make([]string, len(header))
	for _, row := range rows {
		for i, v := range row {
			record[i] = csvValue(v)
		}
		if err := cw.Write(record[:len(row)]); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvValue(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
