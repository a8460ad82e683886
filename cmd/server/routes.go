package main

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/sdrdesk/internal/middleware"
	"github.com/huangang/sdrdesk/internal/services"
	"github.com/huangang/sdrdesk/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, svc *appServices) {
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS())

	resolver := svc.app.Resolver

	r.GET("/health", svc.healthHandler.CheckHealth)
	r.GET("/metrics", svc.metricsHandler.Metrics)

	// Public report form. The functions path is kept for existing forms.
	submit := []gin.HandlerFunc{
		svc.submitLimiter.Middleware(),
		middleware.OptionalAuth(resolver),
		middleware.SubmissionAudit(svc.app.Audit),
		svc.submissionHandler.Submit,
	}
	for _, path := range []string{"/api/submit-report", "/functions/v1/submit-report"} {
		r.POST(path, submit...)
		r.OPTIONS(path, svc.submissionHandler.Preflight)
	}

	api := r.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/login", svc.authHandler.Login)
			auth.GET("/config", svc.authHandler.GetAuthConfig)
		}

		// Any active account
		signedIn := api.Group("")
		signedIn.Use(middleware.AuthRequired(resolver),
			middleware.RequireAccess(services.AccessUser, services.AccessAdmin, services.AccessAI))
		{
			signedIn.GET("/auth/me", svc.authHandler.GetCurrentUser)
			signedIn.POST("/auth/logout", svc.authHandler.Logout)
			signedIn.POST("/auth/password", svc.authHandler.ChangePassword)
			signedIn.GET("/reports/mine", svc.reportHandler.Mine)
		}

		// Aggregate reads
		readers := api.Group("")
		readers.Use(middleware.AuthRequired(resolver),
			middleware.RequireAccess(services.AccessAdmin, services.AccessAI))
		{
			readers.GET("/reports", svc.reportHandler.List)
			readers.GET("/reports/:id", svc.reportHandler.Get)
			readers.GET("/meetings", svc.reportHandler.ListMeetings)
			readers.GET("/dashboard/stats", svc.dashboardHandler.Stats)
			readers.GET("/export/reports.csv", svc.exportHandler.ReportsCSV)
			readers.GET("/export/meetings.csv", svc.exportHandler.MeetingsCSV)
			readers.GET("/export/workbook.xlsx", svc.exportHandler.Workbook)
			readers.GET("/monitor/missing", svc.monitorHandler.Missing)
		}

		admin := api.Group("")
		admin.Use(middleware.AuthRequired(resolver), middleware.RequireAccess(services.AccessAdmin))
		{
			admin.PUT("/reports/:id", svc.reportHandler.Update)
			admin.DELETE("/reports/:id", svc.reportHandler.Delete)
			admin.POST("/meetings", svc.reportHandler.CreateMeeting)
			admin.PUT("/meetings/:id", svc.reportHandler.UpdateMeeting)
			admin.DELETE("/meetings/:id", svc.reportHandler.DeleteMeeting)

			admin.POST("/admin/recover-meetings", svc.recoveryHandler.Recover)
			admin.GET("/audit-entries", svc.auditHandler.List)

			admin.GET("/users", svc.userHandler.List)
			admin.POST("/users", svc.userHandler.Create)
			admin.PUT("/users/:id", svc.userHandler.Update)
		}
	}
}
