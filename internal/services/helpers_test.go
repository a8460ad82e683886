package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/huangang/sdrdesk/internal/config"
	"github.com/huangang/sdrdesk/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := models.Open(&config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "services.db"),
	}, logger.Silent)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

// fakeNotifier records what it was asked to send.
type fakeNotifier struct {
	mu    sync.Mutex
	id    string
	err   error
	delay time.Duration
	sent  []*ReportNotification
}

func (f *fakeNotifier) Send(ctx context.Context, n *ReportNotification) (string, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, n)
	if f.err != nil {
		return "", f.err
	}
	return f.id, nil
}

func (f *fakeNotifier) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}
