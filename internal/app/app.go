// Package app builds the storage, services and job lock shared by the HTTP
// server and the operator CLI.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/huangang/sdrdesk/internal/config"
	"github.com/huangang/sdrdesk/internal/models"
	"github.com/huangang/sdrdesk/internal/repository"
	"github.com/huangang/sdrdesk/internal/services"
	"github.com/huangang/sdrdesk/internal/utils"
	"github.com/huangang/sdrdesk/pkg/logger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type Repositories struct {
	Reports  *repository.ReportRepository
	Meetings *repository.MeetingRepository
	Audit    *repository.AuditRepository
	Users    *repository.UserRepository
	Locks    *repository.LockRepository
}

// App holds every long-lived dependency. Close releases them.
type App struct {
	Config *config.Config
	DB     *gorm.DB
	Repos  Repositories
	Redis  *redis.Client
	Locker services.Locker

	Email      *services.EmailService
	Dispatcher services.NotificationDispatcher
	Resolver   *services.UserAccessResolver

	Auth       *services.AuthService
	Audit      *services.AuditService
	Submission *services.SubmissionService
	Recovery   *services.RecoveryService
	Reports    *services.ReportService
	Dashboard  *services.DashboardService
	Export     *services.ExportService
	Monitor    *services.MissingSubmissionService
}

// New opens the database, migrates it and wires the services. Redis is used
// for job locks when enabled and reachable; otherwise locks live in the
// database.
func New(cfg *config.Config) (*App, error) {
	utils.SetJWTSecret(cfg.JWT.Secret)

	level := gormlogger.Warn
	if cfg.Log.Level == "debug" {
		level = gormlogger.Info
	}
	db, err := models.Open(&cfg.Database, level)
	if err != nil {
		return nil, err
	}
	if err := models.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	a := &App{
		Config: cfg,
		DB:     db,
		Repos: Repositories{
			Reports:  repository.NewReportRepository(db),
			Meetings: repository.NewMeetingRepository(db),
			Audit:    repository.NewAuditRepository(db),
			Users:    repository.NewUserRepository(db),
			Locks:    repository.NewLockRepository(db),
		},
	}

	a.Locker = a.initLocker()

	a.Email = services.NewEmailService(&cfg.Email)
	a.Dispatcher = services.InitDispatcher(cfg, a.Email)
	a.Resolver = services.NewUserAccessResolver(a.Repos.Users)

	a.Auth = services.NewAuthService(a.Repos.Users, &cfg.JWT, &cfg.LDAP)
	a.Audit = services.NewAuditService(a.Repos.Audit)
	a.Submission = services.NewSubmissionService(a.Repos.Reports, a.Repos.Meetings, a.Dispatcher, cfg.Notify.Wait)
	a.Recovery = services.NewRecoveryService(a.Repos.Reports, a.Repos.Meetings, a.Repos.Audit, a.Locker,
		cfg.Recovery.Window, cfg.Recovery.LockTTL)
	a.Reports = services.NewReportService(a.Repos.Reports, a.Repos.Meetings)
	a.Dashboard = services.NewDashboardService(a.Repos.Reports, a.Repos.Meetings)
	a.Export = services.NewExportService(a.Repos.Reports, a.Repos.Meetings)
	a.Monitor = services.NewMissingSubmissionService(a.Repos.Users, a.Repos.Reports, services.NewHolidayService(),
		a.Email, a.Locker, cfg.Monitor)

	return a, nil
}

func (a *App) initLocker() services.Locker {
	if a.Config.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     a.Config.Redis.Addr,
			Password: a.Config.Redis.Password,
			DB:       a.Config.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		err := rdb.Ping(ctx).Err()
		if err == nil {
			a.Redis = rdb
			logger.Infof("[App] Job locks use Redis at %s", a.Config.Redis.Addr)
			return services.NewRedisLocker(rdb)
		}
		logger.Warnf("[App] Redis unavailable for job locks, using the database: %v", err)
		rdb.Close()
	}
	return services.NewDBLocker(a.Repos.Locks)
}

func (a *App) Close() {
	if a.Dispatcher != nil {
		if err := a.Dispatcher.Close(); err != nil {
			logger.Warnf("[App] Failed to close notification queue: %v", err)
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		sqlDB.Close()
	}
}
