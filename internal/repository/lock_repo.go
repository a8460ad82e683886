package repository

import (
	"context"
	"errors"
	"time"

	"github.com/huangang/sdrdesk/internal/models"
	"gorm.io/gorm"
)

type LockRepository struct {
	db *gorm.DB
}

func NewLockRepository(db *gorm.DB) *LockRepository {
	return &LockRepository{db: db}
}

// TryAcquire clears an expired holder and inserts a lock row for owner. The
// unique index on (lock_name, lock_key) rejects a second live holder, so false
// means someone else has it.
func (r *LockRepository) TryAcquire(ctx context.Context, name, key, owner string, ttl time.Duration) (bool, error) {
	now := time.Now().UTC()

	if err := r.db.WithContext(ctx).
		Where("lock_name = ? AND lock_key = ? AND expires_at < ?", name, key, now).
		Delete(&models.JobLock{}).Error; err != nil {
		return false, err
	}

	var held int64
	if err := r.db.WithContext(ctx).Model(&models.JobLock{}).
		Where("lock_name = ? AND lock_key = ?", name, key).
		Count(&held).Error; err != nil {
		return false, err
	}
	if held > 0 {
		return false, nil
	}

	lock := models.JobLock{
		LockName:  name,
		LockKey:   key,
		LockedBy:  owner,
		LockedAt:  now,
		ExpiresAt: now.Add(ttl),
	}
	err := r.db.WithContext(ctx).Create(&lock).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// Lost the race to another instance between count and insert.
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *LockRepository) Release(ctx context.Context, name, key, owner string) error {
	return r.db.WithContext(ctx).
		Where("lock_name = ? AND lock_key = ? AND locked_by = ?", name, key, owner).
		Delete(&models.JobLock{}).Error
}
