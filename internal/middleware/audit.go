package middleware

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/huangang/sdrdesk/internal/models"
	"github.com/huangang/sdrdesk/internal/services"
	"github.com/huangang/sdrdesk/pkg/logger"
	"github.com/huangang/sdrdesk/pkg/response"
)

const (
	// MaxSubmissionBody caps how much of a submission is read and audited.
	MaxSubmissionBody = 64 << 10

	// RetryAttemptHeader is set by clients that resend a failed submission.
	RetryAttemptHeader = "X-Retry-Attempt"

	contextAuditError = "audit_error"
)

// Auditor appends submission attempts to the audit trail.
type Auditor interface {
	Record(ctx context.Context, rec *services.AuditRecord) (*models.AuditEntry, error)
}

// SetAuditError records the message stored with the audit entry of a failed
// submission.
func SetAuditError(c *gin.Context, msg string) {
	c.Set(contextAuditError, msg)
}

// SubmissionAudit stores the raw body of every submission attempt with its
// outcome. Audit write failures are logged and never change the response.
func SubmissionAudit(auditor Auditor) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, MaxSubmissionBody))
		if err != nil {
			SetAuditError(c, "request body too large")
			response.Fail(c, http.StatusRequestEntityTooLarge, "request body too large")
			c.Abort()
			recordAttempt(c, auditor, body)
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		c.Next()

		recordAttempt(c, auditor, body)
	}
}

func recordAttempt(c *gin.Context, auditor Auditor, body []byte) {
	user := services.SubmissionIdentifier(body)
	if user == "" {
		user = GetUsername(c)
	}

	rec := &services.AuditRecord{
		UserIdentifier: user,
		Body:           body,
		Status:         auditStatus(c.Writer.Status(), c.GetHeader(RetryAttemptHeader)),
		ErrorMessage:   c.GetString(contextAuditError),
		IP:             c.ClientIP(),
		UserAgent:      c.Request.UserAgent(),
	}
	if rec.Status == models.AuditStatusSuccess {
		rec.ErrorMessage = ""
	}

	if _, err := auditor.Record(context.WithoutCancel(c.Request.Context()), rec); err != nil {
		logger.Errorf("[Audit] Failed to record submission from %s: %v", rec.UserIdentifier, err)
	}
}

// auditStatus maps an HTTP status to Success, Retry or Error. A failure counts
// as a retry when the client says this is not its first attempt.
func auditStatus(httpStatus int, retryAttempt string) string {
	if httpStatus >= 200 && httpStatus < 300 {
		return models.AuditStatusSuccess
	}
	if n, err := strconv.Atoi(strings.TrimSpace(retryAttempt)); err == nil && n > 0 {
		return models.AuditStatusRetry
	}
	return models.AuditStatusError
}
