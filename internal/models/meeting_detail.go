package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Meeting status values as sent by the submission form.
const (
	MeetingStatusScheduled   = "Agendado"
	MeetingStatusCompleted   = "Realizado"
	MeetingStatusCancelled   = "Cancelado"
	MeetingStatusRescheduled = "Reagendado"
	MeetingStatusNoShow      = "No-show"
)

// MeetingStatuses lists every accepted status, in display order.
var MeetingStatuses = []string{
	MeetingStatusScheduled,
	MeetingStatusCompleted,
	MeetingStatusCancelled,
	MeetingStatusRescheduled,
	MeetingStatusNoShow,
}

// IsMeetingStatus reports whether s is one of MeetingStatuses.
func IsMeetingStatus(s string) bool {
	for _, status := range MeetingStatuses {
		if status == s {
			return true
		}
	}
	return false
}

// Where a meeting row came from.
const (
	MeetingSourceSubmission = "submission"
	MeetingSourceRecovery   = "recovery"
	MeetingSourceManual     = "manual"
)

// MeetingDetail is one meeting booked or held by an SDR. ReportID is nil for
// rows entered by an admin without a parent report.
type MeetingDetail struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	ReportID       *string   `gorm:"size:36;index" json:"report_id"`
	LeadName       string    `gorm:"size:200;not null" json:"lead_name"`
	ScheduledDate  string    `gorm:"size:10" json:"scheduled_date"`
	ScheduledTime  string    `gorm:"size:8" json:"scheduled_time"`
	Status         string    `gorm:"size:20;index" json:"status"`
	ResponsibleRep *string   `gorm:"size:200" json:"responsible_rep"`
	Source         string    `gorm:"size:20;default:submission" json:"source"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (MeetingDetail) TableName() string { return "meeting_details" }

func (m *MeetingDetail) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
