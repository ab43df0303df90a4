package daemonrun

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"postpilot/internal/config"
	"postpilot/internal/logging"
	"postpilot/internal/notifications"
	"postpilot/internal/testsupport"
)

func TestBuildDispatcherFromConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Optimizer.Provider = config.ProviderNone
	repos := testsupport.MustOpenRepos(t, cfg)

	service, closeFn, err := BuildDispatcher(context.Background(), cfg, repos, notifications.NewService(cfg), logging.NewNop())
	if err != nil {
		t.Fatalf("BuildDispatcher: %v", err)
	}
	defer closeFn()
	if service.Running() {
		t.Fatal("expected dispatcher to start stopped")
	}
	report, err := service.Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if report.Due != 0 || report.Attempted != 0 {
		t.Fatalf("expected empty tick without schedules, got %+v", report)
	}
}

func TestBuildDispatcherRejectsUnknownProvider(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Optimizer.Provider = "mystery"
	repos := testsupport.MustOpenRepos(t, cfg)

	if _, _, err := BuildDispatcher(context.Background(), cfg, repos, nil, logging.NewNop()); err == nil {
		t.Fatal("expected error for unknown optimizer provider")
	}
}

func TestWritePIDFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "postpilot.pid")
	if err := writePIDFile(path); err != nil {
		t.Fatalf("writePIDFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read pid: %v", err)
	}
	if strings.TrimSpace(string(data)) != strconv.Itoa(os.Getpid()) {
		t.Fatalf("unexpected pid file contents %q", data)
	}
	if err := writePIDFile(""); err != nil {
		t.Fatalf("empty path should be ignored, got %v", err)
	}
}

func TestEnsureCurrentLogPointerReplacesLink(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "postpilot-1.log")
	second := filepath.Join(dir, "postpilot-2.log")
	for _, path := range []string{first, second} {
		testsupport.WriteFile(t, path, filepath.Base(path))
	}

	if err := ensureCurrentLogPointer(dir, first); err != nil {
		t.Fatalf("first pointer: %v", err)
	}
	if err := ensureCurrentLogPointer(dir, second); err != nil {
		t.Fatalf("second pointer: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "postpilot.log"))
	if err != nil {
		t.Fatalf("read pointer: %v", err)
	}
	if string(data) != "postpilot-2.log" {
		t.Fatalf("expected pointer to follow latest log, got %q", data)
	}
}
