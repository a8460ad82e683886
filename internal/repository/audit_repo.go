package repository

import (
	"context"
	"time"

	"github.com/huangang/sdrdesk/internal/models"
	"gorm.io/gorm"
)

// AuditRepository only appends and reads; audit entries are never updated.
type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

type AuditFilter struct {
	UserIdentifier string
	Status         string
	Since          time.Time
	Until          time.Time
	Page           int
	PageSize       int
}

func (r *AuditRepository) Create(ctx context.Context, entry *models.AuditEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// FindInWindow returns the entries for userIdentifier created within
// [from, to], newest first.
func (r *AuditRepository) FindInWindow(ctx context.Context, userIdentifier string, from, to time.Time) ([]models.AuditEntry, error) {
	var entries []models.AuditEntry
	err := r.db.WithContext(ctx).
		Where("user_identifier = ?", userIdentifier).
		Where("created_at >= ? AND created_at <= ?", from.UTC(), to.UTC()).
		Order("created_at DESC").
		Find(&entries).Error
	return entries, err
}

func (r *AuditRepository) filtered(ctx context.Context, f AuditFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.AuditEntry{})
	if f.UserIdentifier != "" {
		q = q.Where("user_identifier = ?", f.UserIdentifier)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if !f.Since.IsZero() {
		q = q.Where("created_at >= ?", f.Since.UTC())
	}
	if !f.Until.IsZero() {
		q = q.Where("created_at <= ?", f.Until.UTC())
	}
	return q
}

func (r *AuditRepository) List(ctx context.Context, f AuditFilter) ([]models.AuditEntry, int64, error) {
	var total int64
	if err := r.filtered(ctx, f).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []models.AuditEntry
	err := paginate(r.filtered(ctx, f), f.Page, f.PageSize).
		Order("created_at DESC").
		Find(&entries).Error
	return entries, total, err
}
