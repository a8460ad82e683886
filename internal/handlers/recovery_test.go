package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/huangang/sdrdesk/internal/services"
)

type fakeRecoverer struct {
	report *services.RecoveryReport
	err    error
}

func (f *fakeRecoverer) RecoverMissingMeetings(ctx context.Context) (*services.RecoveryReport, error) {
	return f.report, f.err
}

func recoveryRouter(r MeetingRecoverer) *gin.Engine {
	router := gin.New()
	router.POST("/api/admin/recover-meetings", NewRecoveryHandler(r).Recover)
	return router
}

func TestRecover(t *testing.T) {
	report := &services.RecoveryReport{
		Results: []services.RecoveryOutcome{
			{ReportID: "r-1", Vendedor: "Ana", Data: "2024-03-01", Status: services.RecoveryStatusSuccess, ExpectedMeetings: 2, RecoveredMeetings: 2},
			{ReportID: "r-2", Vendedor: "Bia", Data: "2024-03-01", Status: services.RecoveryStatusError, Error: "payload is not valid JSON"},
		},
		Summary: services.RecoverySummary{Scanned: 2, Recovered: 1, Failed: 1, MeetingsInserted: 2},
	}

	tests := []struct {
		name   string
		rec    *fakeRecoverer
		status int
	}{
		{"success", &fakeRecoverer{report: report}, http.StatusOK},
		{"locked", &fakeRecoverer{err: fmt.Errorf("obtain: %w", services.ErrJobLocked)}, http.StatusConflict},
		{"fatal", &fakeRecoverer{err: errors.New("load reports: no such table")}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(recoveryRouter(tt.rec), "POST", "/api/admin/recover-meetings", "")
			if w.Code != tt.status {
				t.Fatalf("status = %d, expected %d", w.Code, tt.status)
			}
			if tt.status != http.StatusOK {
				if env := decodeEnvelope(t, w); env.Success || env.Error == "" {
					t.Errorf("envelope = %+v", env)
				}
				return
			}

			var resp struct {
				Success bool                       `json:"success"`
				Message string                     `json:"message"`
				Results []services.RecoveryOutcome `json:"results"`
				Summary services.RecoverySummary   `json:"summary"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if !resp.Success || len(resp.Results) != 2 || resp.Summary.MeetingsInserted != 2 {
				t.Errorf("response = %+v", resp)
			}
			if resp.Message != "recovered meetings for 1 of 2 reports" {
				t.Errorf("message = %q", resp.Message)
			}
			if resp.Results[1].Error == "" {
				t.Error("per-report error should be reported")
			}
		})
	}
}
