package main

import (
	"context"

	"github.com/huangang/sdrdesk/internal/app"
	"github.com/huangang/sdrdesk/internal/config"
	"github.com/huangang/sdrdesk/internal/handlers"
	"github.com/huangang/sdrdesk/internal/middleware"
	"github.com/huangang/sdrdesk/internal/services"
	"github.com/huangang/sdrdesk/pkg/logger"
)

// appServices holds the wired application and the HTTP handlers built on it.
type appServices struct {
	app           *app.App
	worker        *services.Worker
	submitLimiter *middleware.RateLimiter

	authHandler       *handlers.AuthHandler
	userHandler       *handlers.UserHandler
	submissionHandler *handlers.SubmissionHandler
	recoveryHandler   *handlers.RecoveryHandler
	reportHandler     *handlers.ReportHandler
	dashboardHandler  *handlers.DashboardHandler
	exportHandler     *handlers.ExportHandler
	monitorHandler    *handlers.MonitorHandler
	auditHandler      *handlers.AuditHandler
	healthHandler     *handlers.HealthHandler
	metricsHandler    *handlers.MetricsHandler
}

// bootstrap initializes all application dependencies: database, services, schedulers.
func bootstrap(cfg *config.Config) *appServices {
	a, err := app.New(cfg)
	if err != nil {
		logger.Fatalf("Failed to initialize: %v", err)
	}

	if err := a.Auth.CreateAdminIfNotExists(context.Background()); err != nil {
		logger.Warn().Err(err).Msg("Failed to create admin user")
	}

	// The asynq worker delivers notifications when Redis carries the queue.
	worker := services.NewWorker(&cfg.Redis, a.Email)
	if worker != nil && a.Dispatcher.IsAsync() {
		if err := worker.Start(); err != nil {
			logger.Error().Err(err).Msg("Failed to start notification worker")
			worker = nil
		}
	} else {
		worker = nil
	}

	if err := a.Monitor.StartScheduler(); err != nil {
		logger.Error().Err(err).Msg("Failed to start missing submission monitor")
	}

	return &appServices{
		app:           a,
		worker:        worker,
		submitLimiter: middleware.NewRateLimiter(cfg.RateLimit.SubmitRPS, cfg.RateLimit.SubmitBurst),

		authHandler:       handlers.NewAuthHandler(a.Auth),
		userHandler:       handlers.NewUserHandler(a.Auth),
		submissionHandler: handlers.NewSubmissionHandler(a.Submission),
		recoveryHandler:   handlers.NewRecoveryHandler(a.Recovery),
		reportHandler:     handlers.NewReportHandler(a.Reports),
		dashboardHandler:  handlers.NewDashboardHandler(a.Dashboard),
		exportHandler:     handlers.NewExportHandler(a.Export),
		monitorHandler:    handlers.NewMonitorHandler(a.Monitor),
		auditHandler:      handlers.NewAuditHandler(a.Audit),
		healthHandler:     handlers.NewHealthHandler(a.DB, a.Dispatcher),
		metricsHandler:    handlers.NewMetricsHandler(a.DB, a.Dispatcher),
	}
}

// shutdown gracefully stops all services.
func (s *appServices) shutdown() {
	s.app.Monitor.StopScheduler()
	logger.Info().Msg("All schedulers stopped")

	s.submitLimiter.Stop()
	if s.worker != nil {
		s.worker.Stop()
	}
	s.app.Close()
}
