package repository

import (
	"context"

	"github.com/huangang/sdrdesk/internal/models"
	"gorm.io/gorm"
)

type MeetingRepository struct {
	db *gorm.DB
}

func NewMeetingRepository(db *gorm.DB) *MeetingRepository {
	return &MeetingRepository{db: db}
}

// MeetingFilter narrows meeting listings. Unlinked selects rows with no report.
type MeetingFilter struct {
	ReportID       string
	Unlinked       bool
	Status         string
	ResponsibleRep string
	StartDate      string
	EndDate        string
	Page           int
	PageSize       int
}

// StatusCount is the number of meetings in one status.
type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

func (r *MeetingRepository) Create(ctx context.Context, meeting *models.MeetingDetail) error {
	return r.db.WithContext(ctx).Create(meeting).Error
}

// CreateBatch inserts all meetings in one statement.
func (r *MeetingRepository) CreateBatch(ctx context.Context, meetings []models.MeetingDetail) error {
	if len(meetings) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&meetings).Error
}

func (r *MeetingRepository) CountByReport(ctx context.Context, reportID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.MeetingDetail{}).
		Where("report_id = ?", reportID).
		Count(&count).Error
	return count, err
}

// CreateBatchIfNone inserts meetings for a report only when it still has none,
// re-checking inside the same transaction. It reports whether rows were written.
func (r *MeetingRepository) CreateBatchIfNone(ctx context.Context, reportID string, meetings []models.MeetingDetail) (bool, error) {
	if len(meetings) == 0 {
		return false, nil
	}

	inserted := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.MeetingDetail{}).
			Where("report_id = ?", reportID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		for i := range meetings {
			meetings[i].ReportID = &reportID
		}
		if err := tx.Create(&meetings).Error; err != nil {
			return err
		}
		inserted = true
		return nil
	})
	return inserted, err
}

func (r *MeetingRepository) filtered(ctx context.Context, f MeetingFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.MeetingDetail{})
	if f.ReportID != "" {
		q = q.Where("report_id = ?", f.ReportID)
	} else if f.Unlinked {
		q = q.Where("report_id IS NULL")
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.ResponsibleRep != "" {
		q = q.Where("responsible_rep = ?", f.ResponsibleRep)
	}
	if f.StartDate != "" {
		q = q.Where("scheduled_date >= ?", f.StartDate)
	}
	if f.EndDate != "" {
		q = q.Where("scheduled_date <= ?", f.EndDate)
	}
	return q
}

func (r *MeetingRepository) List(ctx context.Context, f MeetingFilter) ([]models.MeetingDetail, int64, error) {
	var total int64
	if err := r.filtered(ctx, f).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var meetings []models.MeetingDetail
	err := paginate(r.filtered(ctx, f), f.Page, f.PageSize).
		Order("scheduled_date DESC, scheduled_time DESC").
		Find(&meetings).Error
	return meetings, total, err
}

// CountByStatus groups meetings scheduled within the date bounds by status.
func (r *MeetingRepository) CountByStatus(ctx context.Context, startDate, endDate string) ([]StatusCount, error) {
	var counts []StatusCount
	err := r.filtered(ctx, MeetingFilter{StartDate: startDate, EndDate: endDate}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Order("status").
		Scan(&counts).Error
	return counts, err
}

func (r *MeetingRepository) GetByID(ctx context.Context, id string) (*models.MeetingDetail, error) {
	var meeting models.MeetingDetail
	if err := r.db.WithContext(ctx).First(&meeting, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &meeting, nil
}

func (r *MeetingRepository) Update(ctx context.Context, id string, updates map[string]interface{}) (*models.MeetingDetail, error) {
	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(&models.MeetingDetail{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *MeetingRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.MeetingDetail{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
