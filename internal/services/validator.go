package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/huangang/sdrdesk/internal/models"
)

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// SubmissionPayload is the raw daily report as posted by the form. Fields are
// left untyped so that the validator, not the decoder, decides what is wrong.
type SubmissionPayload struct {
	Vendedor           any              `json:"vendedor"`
	DataRegistro       any              `json:"dataRegistro"`
	ReunioesAgendadas  any              `json:"reunioesAgendadas"`
	ReunioesRealizadas any              `json:"reunioesRealizadas"`
	Reunioes           []MeetingPayload `json:"reunioes"`
}

type MeetingPayload struct {
	NomeLead            any `json:"nomeLead"`
	DataAgendamento     any `json:"dataAgendamento"`
	HorarioAgendamento  any `json:"horarioAgendamento"`
	Status              any `json:"status"`
	VendedorResponsavel any `json:"vendedorResponsavel"`
}

// ValidationResult lists every problem found, in field order.
type ValidationResult struct {
	Valid  bool
	Errors []string
}

// ValidationError carries validator messages back to the handler.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Errors, "; ")
}

// ParseSubmission decodes a request body. A body that is not a JSON object of
// the expected shape is reported as a ValidationError.
func ParseSubmission(body []byte) (*SubmissionPayload, error) {
	var p SubmissionPayload
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(&p); err != nil {
		return nil, &ValidationError{Errors: []string{"invalid JSON payload"}}
	}
	return &p, nil
}

// ValidateSubmission checks a payload without side effects.
func ValidateSubmission(p *SubmissionPayload) ValidationResult {
	var errs []string

	if name, ok := p.Vendedor.(string); !ok || strings.TrimSpace(name) == "" {
		errs = append(errs, "vendedor is required")
	}

	if msg := validateDate(p.DataRegistro); msg != "" {
		errs = append(errs, msg)
	}

	for _, field := range []struct {
		name  string
		value any
	}{
		{"reunioesAgendadas", p.ReunioesAgendadas},
		{"reunioesRealizadas", p.ReunioesRealizadas},
	} {
		if _, ok := countValue(field.value); !ok {
			errs = append(errs, fmt.Sprintf("%s must be a number >= 0", field.name))
		}
	}

	for i, m := range p.Reunioes {
		if _, isString := m.NomeLead.(string); m.NomeLead != nil && !isString {
			errs = append(errs, fmt.Sprintf("meeting %d: field nomeLead must be a string", i+1))
			continue
		}
		// Rows without a lead are blank form lines and are dropped later.
		if !hasLead(m) {
			continue
		}
		for _, field := range []struct {
			name  string
			value any
		}{
			{"dataAgendamento", m.DataAgendamento},
			{"horarioAgendamento", m.HorarioAgendamento},
			{"status", m.Status},
			{"vendedorResponsavel", m.VendedorResponsavel},
		} {
			if _, ok := field.value.(string); !ok {
				errs = append(errs, fmt.Sprintf("meeting %d: field %s required", i+1, field.name))
			}
		}
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

var (
	errDatePattern  = errors.New("must match YYYY-MM-DD")
	errCalendarDate = errors.New("is not a valid calendar date")
)

func validateDateString(s string) error {
	if !datePattern.MatchString(s) {
		return errDatePattern
	}
	if _, err := time.Parse(models.DateLayout, s); err != nil {
		return errCalendarDate
	}
	return nil
}

func validateDate(v any) string {
	s, ok := v.(string)
	if !ok {
		return "dataRegistro " + errDatePattern.Error()
	}
	if err := validateDateString(s); err != nil {
		return "dataRegistro " + err.Error()
	}
	return ""
}

// countValue accepts JSON numbers that are non-negative whole numbers.
func countValue(v any) (int, bool) {
	f, ok := v.(float64)
	if !ok || f < 0 || math.IsInf(f, 0) || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

func hasLead(m MeetingPayload) bool {
	lead, ok := m.NomeLead.(string)
	return ok && strings.TrimSpace(lead) != ""
}

func optionalString(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

// normalizedReport maps a validated payload onto the stored report shape.
func normalizedReport(p *SubmissionPayload) *models.Report {
	scheduled, _ := countValue(p.ReunioesAgendadas)
	completed, _ := countValue(p.ReunioesRealizadas)
	return &models.Report{
		SalesRepName:           optionalString(p.Vendedor),
		RegistrationDate:       optionalString(p.DataRegistro),
		MeetingsScheduledCount: scheduled,
		MeetingsCompletedCount: completed,
	}
}

// meetingsFromPayload builds meeting rows for every entry that names a lead.
// A blank status becomes defaultStatus and a blank responsible rep is stored
// as NULL.
func meetingsFromPayload(reportID string, rows []MeetingPayload, source, defaultStatus string) []models.MeetingDetail {
	meetings := make([]models.MeetingDetail, 0, len(rows))
	for _, m := range rows {
		if !hasLead(m) {
			continue
		}
		status := optionalString(m.Status)
		if status == "" {
			status = defaultStatus
		}
		var rep *string
		if name := optionalString(m.VendedorResponsavel); name != "" {
			rep = &name
		}
		id := reportID
		meetings = append(meetings, models.MeetingDetail{
			ReportID:       &id,
			LeadName:       optionalString(m.NomeLead),
			ScheduledDate:  optionalString(m.DataAgendamento),
			ScheduledTime:  optionalString(m.HorarioAgendamento),
			Status:         status,
			ResponsibleRep: rep,
			Source:         source,
		})
	}
	return meetings
}
