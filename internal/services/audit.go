package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/huangang/sdrdesk/internal/models"
	"github.com/huangang/sdrdesk/internal/repository"
	"gorm.io/datatypes"
)

const AnonymousUser = "anonymous"

type AuditStore interface {
	Create(ctx context.Context, entry *models.AuditEntry) error
	List(ctx context.Context, f repository.AuditFilter) ([]models.AuditEntry, int64, error)
}

type AuditService struct {
	store AuditStore
}

func NewAuditService(store AuditStore) *AuditService {
	return &AuditService{store: store}
}

// AuditRecord describes one submission attempt before it is stored.
type AuditRecord struct {
	UserIdentifier string
	Body           []byte
	Status         string
	ErrorMessage   string
	IP             string
	UserAgent      string
}

func (s *AuditService) Record(ctx context.Context, rec *AuditRecord) (*models.AuditEntry, error) {
	user := strings.TrimSpace(rec.UserIdentifier)
	if user == "" {
		user = AnonymousUser
	}

	entry := &models.AuditEntry{
		UserIdentifier:    user,
		SubmissionPayload: auditPayload(rec.Body),
		Status:            rec.Status,
		IP:                rec.IP,
		UserAgent:         rec.UserAgent,
	}
	if rec.ErrorMessage != "" {
		msg := rec.ErrorMessage
		entry.ErrorMessage = &msg
	}

	if err := s.store.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("append audit entry: %w", err)
	}
	return entry, nil
}

// auditPayload keeps a JSON body as is and wraps anything else so the column
// always holds valid JSON.
func auditPayload(body []byte) datatypes.JSON {
	if len(body) > 0 && json.Valid(body) {
		return datatypes.JSON(append([]byte(nil), body...))
	}
	wrapped, _ := json.Marshal(map[string]string{"raw": string(body)})
	return datatypes.JSON(wrapped)
}

// SubmissionIdentifier extracts the trimmed vendedor from a raw body, or "".
func SubmissionIdentifier(body []byte) string {
	var probe struct {
		Vendedor any `json:"vendedor"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return ""
	}
	name, _ := probe.Vendedor.(string)
	return strings.TrimSpace(name)
}

type AuditListRequest struct {
	UserIdentifier string `form:"user_identifier"`
	Status         string `form:"status"`
	Since          string `form:"since"` // RFC 3339
	Until          string `form:"until"`
	Page           int    `form:"page"`
	PageSize       int    `form:"page_size"`
}

func (s *AuditService) List(ctx context.Context, req *AuditListRequest) (*ListResult, error) {
	page, pageSize := normalizePage(req.Page, req.PageSize)
	filter := repository.AuditFilter{
		UserIdentifier: strings.TrimSpace(req.UserIdentifier),
		Status:         req.Status,
		Page:           page,
		PageSize:       pageSize,
	}

	var errs []string
	for _, bound := range []struct {
		name  string
		value string
		dst   *time.Time
	}{
		{"since", req.Since, &filter.Since},
		{"until", req.Until, &filter.Until},
	} {
		if bound.value == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, bound.value)
		if err != nil {
			errs = append(errs, bound.name+" must be an RFC 3339 timestamp")
			continue
		}
		*bound.dst = t
	}
	if len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	entries, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	return &ListResult{Items: entries, Total: total, Page: page, PageSize: pageSize}, nil
}
