package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/huangang/sdrdesk/internal/config"
	"github.com/huangang/sdrdesk/internal/services"
)

type fakeRecoverer struct {
	report *services.RecoveryReport
	err    error
}

func (f *fakeRecoverer) RecoverMissingMeetings(ctx context.Context) (*services.RecoveryReport, error) {
	return f.report, f.err
}

type fakeMonitor struct {
	checked   string
	scheduled bool
	result    *services.MissingSubmissionResult
	err       error
}

func (f *fakeMonitor) Check(ctx context.Context, date string) (*services.MissingSubmissionResult, error) {
	f.checked = date
	return f.result, f.err
}

func (f *fakeMonitor) RunScheduled(ctx context.Context) (*services.MissingSubmissionResult, error) {
	f.scheduled = true
	return f.result, f.err
}

func run(t *testing.T, b *Backend, args ...string) (string, error) {
	t.Helper()
	opened, closed := false, false
	opts := &RootOptions{Open: func(*RootOptions) (*Backend, error) {
		opened = true
		b.Close = func() { closed = true }
		return b, nil
	}}
	cmd := newRootCommand(opts)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	if opened && !closed {
		t.Error("backend was not closed")
	}
	return out.String(), err
}

func TestRootCommand_Subcommands(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"recover", "missing", "init-config"} {
		found, _, err := cmd.Find([]string{name})
		if err != nil || found.Name() != name {
			t.Errorf("subcommand %q not registered", name)
		}
	}
	for _, flag := range []string{"config", "format", "verbose"} {
		if cmd.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("persistent flag %q missing", flag)
		}
	}
}

func TestRootCommand_InvalidFormat(t *testing.T) {
	_, err := run(t, &Backend{Monitor: &fakeMonitor{}}, "missing", "--format", "yaml")
	if err == nil {
		t.Fatal("expected error for invalid format")
	}
	if code := GetExitCode(err); code != ExitCommandError {
		t.Errorf("exit code = %d, expected %d", code, ExitCommandError)
	}
}

func recoveryReport(failed int) *services.RecoveryReport {
	r := &services.RecoveryReport{
		Results: []services.RecoveryOutcome{
			{ReportID: "r-1", Vendedor: "Ana", Data: "2024-03-01", Status: services.RecoveryStatusSuccess, ExpectedMeetings: 2, RecoveredMeetings: 2},
		},
		Summary: services.RecoverySummary{Scanned: 1 + failed, Recovered: 1, Failed: failed, MeetingsInserted: 2},
	}
	for i := 0; i < failed; i++ {
		r.Results = append(r.Results, services.RecoveryOutcome{ReportID: "r-x", Vendedor: "Bia", Status: services.RecoveryStatusError, Error: "insert meetings"})
	}
	return r
}

func TestRecoverCommand(t *testing.T) {
	tests := []struct {
		name     string
		rec      *fakeRecoverer
		code     int
		contains string
	}{
		{name: "success", rec: &fakeRecoverer{report: recoveryReport(0)}, code: ExitSuccess, contains: "recovered 1"},
		{name: "partial failure", rec: &fakeRecoverer{report: recoveryReport(1)}, code: ExitFailure, contains: "insert meetings"},
		{name: "locked", rec: &fakeRecoverer{err: services.ErrJobLocked}, code: ExitCommandError},
		{name: "fatal", rec: &fakeRecoverer{err: errors.New("db down")}, code: ExitCommandError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, &Backend{Recovery: tt.rec}, "recover")
			code := ExitSuccess
			if err != nil {
				code = GetExitCode(err)
			}
			if code != tt.code {
				t.Errorf("exit code = %d, expected %d (err %v)", code, tt.code, err)
			}
			if tt.contains != "" && !strings.Contains(out, tt.contains) {
				t.Errorf("output %q does not contain %q", out, tt.contains)
			}
		})
	}
}

func TestRecoverCommand_JSON(t *testing.T) {
	out, err := run(t, &Backend{Recovery: &fakeRecoverer{report: recoveryReport(0)}}, "recover", "--format", "json")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	var resp struct {
		Status string                  `json:"status"`
		Data   services.RecoveryReport `json:"data"`
	}
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if resp.Status != "ok" || resp.Data.Summary.MeetingsInserted != 2 || len(resp.Data.Results) != 1 {
		t.Errorf("response = %+v", resp)
	}
}

func TestMissingCommand(t *testing.T) {
	result := &services.MissingSubmissionResult{
		Date: "2024-03-04", Workday: true, Expected: 2, Submitted: 1,
		Missing: []services.MissingRep{{Username: "carla", SalesRepName: "Carla", Email: "carla@example.com"}},
	}

	t.Run("date", func(t *testing.T) {
		mon := &fakeMonitor{result: result}
		out, err := run(t, &Backend{Monitor: mon}, "missing", "--date", "2024-03-04")
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		if mon.checked != "2024-03-04" || mon.scheduled {
			t.Errorf("checked = %q, scheduled = %v", mon.checked, mon.scheduled)
		}
		if !strings.Contains(out, "1 of 2 reps submitted") || !strings.Contains(out, "Carla (carla, carla@example.com)") {
			t.Errorf("unexpected output %q", out)
		}
	})

	t.Run("default date is today", func(t *testing.T) {
		mon := &fakeMonitor{result: result}
		if _, err := run(t, &Backend{Monitor: mon}, "missing"); err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		if len(mon.checked) != len("2006-01-02") {
			t.Errorf("checked = %q, expected a YYYY-MM-DD date", mon.checked)
		}
	})

	t.Run("alert", func(t *testing.T) {
		mon := &fakeMonitor{result: result}
		if _, err := run(t, &Backend{Monitor: mon}, "missing", "--alert"); err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		if !mon.scheduled || mon.checked != "" {
			t.Errorf("--alert should run the scheduled check, got checked=%q scheduled=%v", mon.checked, mon.scheduled)
		}
	})

	t.Run("date and alert together", func(t *testing.T) {
		if _, err := run(t, &Backend{Monitor: &fakeMonitor{result: result}}, "missing", "--alert", "--date", "2024-03-04"); err == nil {
			t.Error("expected mutually exclusive flag error")
		}
	})

	t.Run("not a workday", func(t *testing.T) {
		mon := &fakeMonitor{result: &services.MissingSubmissionResult{Date: "2024-03-03", Missing: []services.MissingRep{}}}
		out, err := run(t, &Backend{Monitor: mon}, "missing", "--date", "2024-03-03")
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		if !strings.Contains(out, "is not a workday") {
			t.Errorf("unexpected output %q", out)
		}
	})

	t.Run("locked", func(t *testing.T) {
		_, err := run(t, &Backend{Monitor: &fakeMonitor{err: services.ErrJobLocked}}, "missing", "--alert")
		if GetExitCode(err) != ExitCommandError {
			t.Errorf("exit code = %d, expected %d", GetExitCode(err), ExitCommandError)
		}
	})
}

func TestExitError(t *testing.T) {
	cause := errors.New("boom")
	err := WrapExitError(ExitFailure, "recovery failed", cause)
	if !errors.Is(err, cause) {
		t.Error("ExitError should unwrap to its cause")
	}
	if err.Error() != "recovery failed: boom" {
		t.Errorf("Error() = %q", err.Error())
	}
	if GetExitCode(errors.New("plain")) != ExitFailure {
		t.Error("plain errors should map to ExitFailure")
	}
}

func TestInitConfigCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "etc", "config.yaml")

	out, err := run(t, &Backend{}, "init-config", "--output", path)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out, "wrote "+path) {
		t.Errorf("unexpected output %q", out)
	}

	t.Setenv("RECOVERY_WINDOW", "")
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Recovery.Window != 24*time.Hour || cfg.Monitor.Time != "19:00" {
		t.Errorf("written config did not round-trip: window=%v monitor=%q", cfg.Recovery.Window, cfg.Monitor.Time)
	}

	if _, err := run(t, &Backend{}, "init-config", "--output", path); GetExitCode(err) != ExitCommandError {
		t.Errorf("existing file without --force: err = %v", err)
	}
	if err := os.WriteFile(path, []byte("server: {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, &Backend{}, "init-config", "--output", path, "--force"); err != nil {
		t.Errorf("--force should overwrite, got %v", err)
	}
}
