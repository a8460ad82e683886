package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DateLayout is the wire and storage format of calendar dates.
const DateLayout = "2006-01-02"

// Report is one SDR's aggregate activity for one day. Nothing enforces one
// report per (SalesRepName, RegistrationDate); readers must tolerate duplicates.
type Report struct {
	ID                     string          `gorm:"primaryKey;size:36" json:"id"`
	SalesRepName           string          `gorm:"size:200;not null;index" json:"sales_rep_name"`
	RegistrationDate       string          `gorm:"size:10;not null;index" json:"registration_date"`
	MeetingsScheduledCount int             `gorm:"not null;default:0" json:"meetings_scheduled_count"`
	MeetingsCompletedCount int             `gorm:"not null;default:0" json:"meetings_completed_count"`
	Meetings               []MeetingDetail `gorm:"foreignKey:ReportID" json:"meetings,omitempty"`
	CreatedAt              time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt              time.Time       `json:"updated_at"`
}

func (Report) TableName() string { return "reports" }

func (r *Report) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
