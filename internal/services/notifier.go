package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/huangang/sdrdesk/internal/models"
)

// ErrNotifierDisabled means no delivery was attempted because email is off or
// nobody is configured to receive it.
var ErrNotifierDisabled = errors.New("notifier disabled")

// Email status values returned to submitters.
const (
	EmailStatusSent     = "sent"
	EmailStatusFailed   = "failed"
	EmailStatusQueued   = "queued"
	EmailStatusPending  = "pending"
	EmailStatusDisabled = "disabled"
)

// Notifier delivers a report summary. The returned id identifies the message
// at the provider, if it has one.
type Notifier interface {
	Send(ctx context.Context, n *ReportNotification) (string, error)
}

// ReportNotification is the summary sent after a report is stored.
type ReportNotification struct {
	ReportID         string                `json:"report_id"`
	SalesRepName     string                `json:"sales_rep_name"`
	RegistrationDate string                `json:"registration_date"`
	ScheduledCount   int                   `json:"scheduled_count"`
	CompletedCount   int                   `json:"completed_count"`
	Meetings         []NotificationMeeting `json:"meetings"`
}

type NotificationMeeting struct {
	LeadName       string `json:"lead_name"`
	Date           string `json:"date"`
	Time           string `json:"time"`
	Status         string `json:"status"`
	ResponsibleRep string `json:"responsible_rep"`
}

// NewReportNotification summarises a stored report and the meetings that
// were submitted with it.
func NewReportNotification(report *models.Report, meetings []models.MeetingDetail) *ReportNotification {
	n := &ReportNotification{
		ReportID:         report.ID,
		SalesRepName:     report.SalesRepName,
		RegistrationDate: report.RegistrationDate,
		ScheduledCount:   report.MeetingsScheduledCount,
		CompletedCount:   report.MeetingsCompletedCount,
		Meetings:         make([]NotificationMeeting, 0, len(meetings)),
	}
	for _, m := range meetings {
		rep := ""
		if m.ResponsibleRep != nil {
			rep = *m.ResponsibleRep
		}
		n.Meetings = append(n.Meetings, NotificationMeeting{
			LeadName:       m.LeadName,
			Date:           m.ScheduledDate,
			Time:           m.ScheduledTime,
			Status:         m.Status,
			ResponsibleRep: rep,
		})
	}
	return n
}

// Subject is the email subject line.
func (n *ReportNotification) Subject() string {
	return fmt.Sprintf("[SDR] Relatório diário: %s - %s", n.SalesRepName, n.RegistrationDate)
}

// FormatMeetingList renders the meetings as numbered plain-text lines.
func FormatMeetingList(meetings []NotificationMeeting) string {
	if len(meetings) == 0 {
		return "Nenhuma reunião detalhada."
	}

	var sb strings.Builder
	for i, m := range meetings {
		when := strings.TrimSpace(m.Date + " " + m.Time)
		if when == "" {
			when = "sem data"
		}
		fmt.Fprintf(&sb, "%d. %s - %s - %s", i+1, m.LeadName, when, m.Status)
		if m.ResponsibleRep != "" {
			fmt.Fprintf(&sb, " (%s)", m.ResponsibleRep)
		}
		if i < len(meetings)-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// PlainText renders the full notification body without markup.
func (n *ReportNotification) PlainText() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Vendedor: %s\n", n.SalesRepName)
	fmt.Fprintf(&sb, "Data: %s\n", n.RegistrationDate)
	fmt.Fprintf(&sb, "Reuniões agendadas: %d\n", n.ScheduledCount)
	fmt.Fprintf(&sb, "Reuniões realizadas: %d\n", n.CompletedCount)
	sb.WriteString("\nReuniões:\n")
	sb.WriteString(FormatMeetingList(n.Meetings))
	return sb.String()
}
