package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	AuditStatusSuccess = "Success"
	AuditStatusError   = "Error"
	AuditStatusRetry   = "Retry"
)

// ErrAuditImmutable is returned when something tries to rewrite an audit entry.
var ErrAuditImmutable = errors.New("audit entries are append-only")

// AuditEntry is the raw record of one submission attempt. Entries are written
// once and never updated; the recovery job treats them as the source of truth.
type AuditEntry struct {
	ID                string         `gorm:"primaryKey;size:36" json:"id"`
	UserIdentifier    string         `gorm:"size:200;index" json:"user_identifier"`
	SubmissionPayload datatypes.JSON `json:"submission_payload"`
	Status            string         `gorm:"size:20;index" json:"status"` // Success, Error, Retry
	ErrorMessage      *string        `gorm:"type:text" json:"error_message"`
	IP                string         `gorm:"size:50" json:"ip"`
	UserAgent         string         `gorm:"size:500" json:"user_agent"`
	CreatedAt         time.Time      `gorm:"index" json:"created_at"`
}

func (AuditEntry) TableName() string { return "audit_entries" }

func (a *AuditEntry) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

func (a *AuditEntry) BeforeUpdate(tx *gorm.DB) error {
	return ErrAuditImmutable
}
