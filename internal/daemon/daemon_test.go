package daemon_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"postpilot/internal/config"
	"postpilot/internal/daemon"
	"postpilot/internal/dispatch"
	"postpilot/internal/logging"
	"postpilot/internal/publish"
	"postpilot/internal/testsupport"
)

func newDaemon(t *testing.T, cfg *config.Config) *daemon.Daemon {
	t.Helper()
	repos := testsupport.MustOpenRepos(t, cfg)
	svc, err := dispatch.New(dispatch.Settings{TickInterval: time.Hour, Location: time.UTC}, dispatch.Dependencies{
		Repos:     repos,
		Publisher: publish.NewSet(),
	}, logging.NewNop())
	if err != nil {
		t.Fatalf("dispatch.New: %v", err)
	}
	d, err := daemon.New(cfg, repos, svc, nil, logging.NewNop(), "")
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
	})
	return d
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := newDaemon(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	status := d.Status(ctx)
	if !status.Running || !status.Dispatch.Running {
		t.Fatalf("expected daemon and dispatch to report running, got %+v", status)
	}
	if status.PID == 0 {
		t.Fatal("expected pid")
	}

	// Second start should fail
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	status = d.Status(ctx)
	if status.Running || status.Dispatch.Running {
		t.Fatal("expected daemon to be stopped")
	}

	if err := d.Start(ctx); err != nil {
		t.Fatalf("restart after stop failed: %v", err)
	}
}

func TestDaemonLockExcludesSecondInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first := newDaemon(t, cfg)
	second := newDaemon(t, cfg)
	ctx := context.Background()

	if err := first.Start(ctx); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	err := second.Start(ctx)
	if err == nil || !strings.Contains(err.Error(), "already running") {
		t.Fatalf("expected lock conflict, got %v", err)
	}
	first.Stop()
	if err := second.Start(ctx); err != nil {
		t.Fatalf("second Start after release: %v", err)
	}
}

func TestDaemonTickWhileStopped(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := newDaemon(t, cfg)

	report, err := d.Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if report.Evaluated != 0 || report.TickID == "" {
		t.Fatalf("unexpected report %+v", report)
	}
	if d.Status(context.Background()).Dispatch.TicksRun != 1 {
		t.Fatal("expected tick to be recorded")
	}
}

func TestDaemonTestNotificationWithoutTopic(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := newDaemon(t, cfg)

	sent, message, err := d.TestNotification(context.Background())
	if err != nil || sent {
		t.Fatalf("expected unsent without error, got sent=%v err=%v", sent, err)
	}
	if message != "ntfy topic not configured" {
		t.Fatalf("unexpected message %q", message)
	}
}

func TestDaemonTestNotificationSends(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithNtfyTopic(server.URL))
	d := newDaemon(t, cfg)

	sent, _, err := d.TestNotification(context.Background())
	if err != nil || !sent {
		t.Fatalf("expected notification sent, got sent=%v err=%v", sent, err)
	}
	if hits.Load() != 1 {
		t.Fatalf("expected one ntfy request, got %d", hits.Load())
	}
}

func TestDaemonServesAPIWhenConfigured(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithAPI(""))
	d := newDaemon(t, cfg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping api listener test: %v", err)
		}
		t.Fatalf("Start: %v", err)
	}
	d.Stop()
}

func TestNewRequiresDependencies(t *testing.T) {
	if _, err := daemon.New(nil, nil, nil, nil, nil, ""); err == nil {
		t.Fatal("expected error for missing dependencies")
	}
}
