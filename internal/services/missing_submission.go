package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/huangang/sdrdesk/internal/config"
	"github.com/huangang/sdrdesk/internal/models"
	"github.com/huangang/sdrdesk/pkg/logger"
	"github.com/robfig/cron/v3"
)

const monitorLockName = "monitor:missing-submissions"

type ActiveUserLister interface {
	ListActiveByRole(ctx context.Context, role string) ([]models.User, error)
}

type ReportsByDate interface {
	ListByDate(ctx context.Context, date string) ([]models.Report, error)
}

type MissingSubmissionAlerter interface {
	SendMissingSubmissionAlert(ctx context.Context, result *MissingSubmissionResult, recipients []string) error
}

// MissingRep is an active SDR with no report for the checked day.
type MissingRep struct {
	UserID       uint   `json:"user_id"`
	Username     string `json:"username"`
	SalesRepName string `json:"sales_rep_name"`
	Email        string `json:"email,omitempty"`
}

type MissingSubmissionResult struct {
	Date      string       `json:"date"`
	Workday   bool         `json:"workday"`
	Expected  int          `json:"expected"`
	Submitted int          `json:"submitted"`
	Missing   []MissingRep `json:"missing"`
}

type MissingSubmissionService struct {
	users    ActiveUserLister
	reports  ReportsByDate
	holidays *HolidayService
	alerter  MissingSubmissionAlerter
	locker   Locker
	cfg      config.MonitorConfig

	mu            sync.Mutex
	cronScheduler *cron.Cron
	now           func() time.Time
}

func NewMissingSubmissionService(users ActiveUserLister, reports ReportsByDate, holidays *HolidayService,
	alerter MissingSubmissionAlerter, locker Locker, cfg config.MonitorConfig) *MissingSubmissionService {
	return &MissingSubmissionService{
		users:    users,
		reports:  reports,
		holidays: holidays,
		alerter:  alerter,
		locker:   locker,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Check lists the SDRs who have not reported for date (YYYY-MM-DD). Rep names
// match case-insensitively after trimming, the same way reports are filtered.
func (s *MissingSubmissionService) Check(ctx context.Context, date string) (*MissingSubmissionResult, error) {
	day, err := time.ParseInLocation(models.DateLayout, date, time.Local)
	if err != nil {
		return nil, &ValidationError{Errors: []string{"date must match YYYY-MM-DD"}}
	}

	result := &MissingSubmissionResult{
		Date:    date,
		Workday: s.holidays.IsWorkday(day, s.cfg.Country),
		Missing: []MissingRep{},
	}
	if !result.Workday {
		return result, nil
	}

	users, err := s.users.ListActiveByRole(ctx, models.RoleUser)
	if err != nil {
		return nil, fmt.Errorf("list reps: %w", err)
	}
	reports, err := s.reports.ListByDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("list reports for %s: %w", date, err)
	}

	submitted := make(map[string]bool, len(reports))
	for _, r := range reports {
		submitted[repKey(r.SalesRepName)] = true
	}

	for _, u := range users {
		name := u.SalesRepName
		if strings.TrimSpace(name) == "" {
			name = u.Username
		}
		result.Expected++
		if submitted[repKey(name)] {
			result.Submitted++
			continue
		}
		result.Missing = append(result.Missing, MissingRep{
			UserID:       u.ID,
			Username:     u.Username,
			SalesRepName: name,
			Email:        u.Email,
		})
	}
	return result, nil
}

func repKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// RunScheduled checks today and alerts admins. Replicas race for a per-day
// lock so only one of them sends the alert.
func (s *MissingSubmissionService) RunScheduled(ctx context.Context) (*MissingSubmissionResult, error) {
	date := s.now().Format(models.DateLayout)

	if s.locker != nil {
		lock, err := s.locker.Obtain(ctx, monitorLockName, date, time.Hour)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
				logger.Warnf("[Monitor] Failed to release lock: %v", err)
			}
		}()
	}

	result, err := s.Check(ctx, date)
	if err != nil {
		return nil, err
	}
	if !result.Workday || len(result.Missing) == 0 {
		logger.Infof("[Monitor] %s: nothing to report (workday=%v, missing=%d)", date, result.Workday, len(result.Missing))
		return result, nil
	}

	if s.alerter != nil {
		recipients := s.adminEmails(ctx)
		err := s.alerter.SendMissingSubmissionAlert(ctx, result, recipients)
		switch {
		case errors.Is(err, ErrNotifierDisabled):
			logger.Infof("[Monitor] %s: %d reps missing, email disabled", date, len(result.Missing))
		case err != nil:
			logger.Errorf("[Monitor] Failed to send alert for %s: %v", date, err)
		default:
			logger.Infof("[Monitor] %s: alerted about %d missing reps", date, len(result.Missing))
		}
	}
	return result, nil
}

func (s *MissingSubmissionService) adminEmails(ctx context.Context) []string {
	admins, err := s.users.ListActiveByRole(ctx, models.RoleAdmin)
	if err != nil {
		logger.Warnf("[Monitor] Failed to list admins: %v", err)
		return nil
	}
	var emails []string
	for _, a := range admins {
		if a.Email != "" {
			emails = append(emails, a.Email)
		}
	}
	return emails
}

func (s *MissingSubmissionService) StartScheduler() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.cfg.Enabled {
		logger.Infof("[Monitor] Scheduler disabled")
		return nil
	}

	cronExpr, err := cronExprForTime(s.cfg.Time)
	if err != nil {
		return err
	}

	s.cronScheduler = cron.New()
	_, err = s.cronScheduler.AddFunc(cronExpr, func() {
		if _, err := s.RunScheduled(context.Background()); err != nil && !errors.Is(err, ErrJobLocked) {
			logger.Errorf("[Monitor] Scheduled check failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("add cron job: %w", err)
	}
	s.cronScheduler.Start()

	logger.Infof("[Monitor] Scheduled at %s (cron: %s, calendar: %s)", s.cfg.Time, cronExpr, s.cfg.Country)
	return nil
}

func (s *MissingSubmissionService) StopScheduler() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cronScheduler != nil {
		<-s.cronScheduler.Stop().Done()
		s.cronScheduler = nil
	}
}

// cronExprForTime turns HH:MM into a daily cron expression.
func cronExprForTime(hhmm string) (string, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(hhmm))
	if err != nil {
		return "", fmt.Errorf("monitor time %q must be HH:MM", hhmm)
	}
	return fmt.Sprintf("%d %d * * *", t.Minute(), t.Hour()), nil
}
