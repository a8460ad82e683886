package repository

import (
	"context"
	"strings"

	"github.com/huangang/sdrdesk/internal/models"
	"gorm.io/gorm"
)

type ReportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// ReportFilter narrows report listings. Empty fields are ignored; dates are
// inclusive YYYY-MM-DD bounds on registration_date.
type ReportFilter struct {
	SalesRepName string
	StartDate    string
	EndDate      string
	Page         int
	PageSize     int
}

func (r *ReportRepository) Create(ctx context.Context, report *models.Report) error {
	return r.db.WithContext(ctx).Omit("Meetings").Create(report).Error
}

// GetByID loads a report together with its linked meetings.
func (r *ReportRepository) GetByID(ctx context.Context, id string) (*models.Report, error) {
	var report models.Report
	err := r.db.WithContext(ctx).
		Preload("Meetings", func(db *gorm.DB) *gorm.DB { return db.Order("scheduled_date, scheduled_time") }).
		First(&report, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &report, nil
}

func (r *ReportRepository) filtered(ctx context.Context, f ReportFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.Report{})
	if f.SalesRepName != "" {
		q = q.Where("LOWER(sales_rep_name) = ?", strings.ToLower(strings.TrimSpace(f.SalesRepName)))
	}
	if f.StartDate != "" {
		q = q.Where("registration_date >= ?", f.StartDate)
	}
	if f.EndDate != "" {
		q = q.Where("registration_date <= ?", f.EndDate)
	}
	return q
}

// List returns one page of reports, newest registration first, and the total
// number of matches.
func (r *ReportRepository) List(ctx context.Context, f ReportFilter) ([]models.Report, int64, error) {
	var total int64
	if err := r.filtered(ctx, f).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var reports []models.Report
	err := paginate(r.filtered(ctx, f), f.Page, f.PageSize).
		Order("registration_date DESC, created_at DESC").
		Find(&reports).Error
	return reports, total, err
}

// ListNewestFirst returns every report ordered by creation time, newest first.
func (r *ReportRepository) ListNewestFirst(ctx context.Context) ([]models.Report, error) {
	var reports []models.Report
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&reports).Error
	return reports, err
}

func (r *ReportRepository) ListByDate(ctx context.Context, date string) ([]models.Report, error) {
	var reports []models.Report
	err := r.db.WithContext(ctx).Where("registration_date = ?", date).Find(&reports).Error
	return reports, err
}

// Update applies the given column updates and returns the refreshed row.
func (r *ReportRepository) Update(ctx context.Context, id string, updates map[string]interface{}) (*models.Report, error) {
	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(&models.Report{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// Delete removes a report. Its meetings are kept and unlinked.
func (r *ReportRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.MeetingDetail{}).
			Where("report_id = ?", id).
			Update("report_id", nil).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.Report{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}
