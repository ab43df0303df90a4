package daemonctl

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"postpilot/internal/api"
	"postpilot/internal/logging"
	"postpilot/internal/preflight"
	"postpilot/internal/schedule"
	"postpilot/internal/store/backend"
	"postpilot/internal/testsupport"
)

func TestBuildSystemChecksSeverities(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	lines := BuildSystemChecks(cfg, false, []preflight.Result{
		{Name: "Storage", Passed: true, Detail: "memory"},
		{Name: "Tick lock", Skipped: true, Detail: "single instance"},
		{Name: "Optimizer", Detail: "groq API key missing"},
	})

	want := map[string]string{
		"Postpilot":     api.SeverityWarn,
		"Storage":       api.SeverityOK,
		"Tick lock":     api.SeverityInfo,
		"Optimizer":     api.SeverityError,
		"Notifications": api.SeverityInfo,
	}
	if len(lines) != len(want) {
		t.Fatalf("expected %d lines, got %d", len(want), len(lines))
	}
	for _, line := range lines {
		if want[line.Label] != line.Severity {
			t.Errorf("%s severity = %q, want %q", line.Label, line.Severity, want[line.Label])
		}
	}
}

func TestBuildPlatformLinesWarnOnMissingCredentials(t *testing.T) {
	lines := BuildPlatformLines([]preflight.Result{
		{Name: "Dev.to", Passed: true},
		{Name: "Twitter/X", Detail: "missing TWITTER_BEARER_TOKEN"},
	})
	if lines[0].Severity != api.SeverityOK || lines[1].Severity != api.SeverityWarn {
		t.Fatalf("unexpected severities %+v", lines)
	}
}

func TestBuildStatusSnapshotGroupsChecks(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	snapshot, err := BuildStatusSnapshot(context.Background(), cfg)
	if err != nil {
		t.Fatalf("BuildStatusSnapshot: %v", err)
	}
	if len(snapshot.Platforms) != 6 {
		t.Fatalf("expected one line per platform, got %+v", snapshot.Platforms)
	}
	platformNames := map[string]bool{}
	for _, line := range snapshot.Platforms {
		platformNames[line.Label] = true
	}
	for _, name := range []string{"Dev.to", "Hashnode", "YouTube"} {
		if !platformNames[name] {
			t.Fatalf("expected %s among platform lines, got %+v", name, snapshot.Platforms)
		}
	}
	for _, line := range snapshot.SystemChecks {
		if platformNames[line.Label] {
			t.Fatalf("platform line %q leaked into system checks", line.Label)
		}
	}
	if first := snapshot.SystemChecks[0]; first.Label != "Postpilot" || first.Severity != api.SeverityWarn {
		t.Fatalf("expected not-running daemon line first, got %+v", first)
	}
}

func TestScheduleSummary(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithSQLite())
	ctx := context.Background()
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	if line := ScheduleSummary(ctx, cfg); line.Severity != api.SeverityWarn || !strings.Contains(line.Detail, "none configured") {
		t.Fatalf("expected empty warning, got %+v", line)
	}

	repos, err := backend.OpenRepos(ctx, cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("open repos: %v", err)
	}
	if _, err := repos.Schedules.Add(ctx, schedule.WeeklySchedule{
		PlatformID: "devTo",
		DayOfWeek:  schedule.Monday,
		Time:       "09:00",
		Enabled:    true,
	}); err != nil {
		t.Fatalf("add schedule: %v", err)
	}
	if err := repos.Close(); err != nil {
		t.Fatalf("close repos: %v", err)
	}

	line := ScheduleSummary(ctx, cfg)
	if line.Severity != api.SeverityOK || line.Detail != "1 enabled of 1" {
		t.Fatalf("unexpected summary %+v", line)
	}
}

func TestBuildStatusSnapshotWithoutDaemon(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	snapshot, err := BuildStatusSnapshot(context.Background(), cfg)
	if err != nil {
		t.Fatalf("BuildStatusSnapshot: %v", err)
	}
	if snapshot.Running {
		t.Fatal("expected daemon to be reported as not running")
	}
	if len(snapshot.Platforms) != 6 {
		t.Fatalf("expected six platform lines, got %d", len(snapshot.Platforms))
	}
	if snapshot.SystemChecks[0].Label != "Postpilot" {
		t.Fatalf("expected daemon line first, got %+v", snapshot.SystemChecks[0])
	}
}

func TestProcessInfoMissingSocket(t *testing.T) {
	alive, pid, err := ProcessInfo(filepath.Join(t.TempDir(), "missing.sock"))
	if err != nil || alive || pid != 0 {
		t.Fatalf("expected unreachable daemon, got alive=%v pid=%d err=%v", alive, pid, err)
	}
}

func TestStopAndTerminateNotRunning(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, err := StopAndTerminate(cfg, time.Second)
	if !errors.Is(err, ErrDaemonNotRunning) {
		t.Fatalf("expected ErrDaemonNotRunning, got %v", err)
	}
}

func TestForceKillProcessRefusesSelf(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "postpilot.pid")
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644); err != nil {
		t.Fatalf("write pid: %v", err)
	}
	if _, err := ForceKillProcess(pidPath, "", 0); err == nil {
		t.Fatal("expected refusal to kill current process")
	}
}

func TestForceKillProcessWithoutPID(t *testing.T) {
	if _, err := ForceKillProcess(filepath.Join(t.TempDir(), "missing.pid"), "", 0); err == nil {
		t.Fatal("expected error when pid cannot be determined")
	}
}
