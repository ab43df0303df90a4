package ipc_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"postpilot/internal/daemon"
	"postpilot/internal/dispatch"
	"postpilot/internal/ipc"
	"postpilot/internal/logging"
	"postpilot/internal/publish"
	"postpilot/internal/testsupport"
)

func TestIPCServerClient(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	repos := testsupport.MustOpenRepos(t, cfg)
	logPath := filepath.Join(cfg.Paths.LogDir, "ipc-test.log")
	logger := logging.NewNop()
	svc, err := dispatch.New(dispatch.Settings{TickInterval: time.Hour, Location: time.UTC}, dispatch.Dependencies{
		Repos:     repos,
		Publisher: publish.NewSet(),
	}, logger)
	if err != nil {
		t.Fatalf("dispatch.New: %v", err)
	}
	d, err := daemon.New(cfg, repos, svc, nil, logger, logPath)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	socket := cfg.SocketPath()
	srv, err := ipc.NewServer(ctx, socket, d, logger)
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping IPC server test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(func() {
		srv.Close()
	})

	client, err := ipc.Dial(socket)
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	t.Cleanup(func() {
		client.Close()
	})

	startResp, err := client.Start()
	if err != nil {
		t.Fatalf("Start RPC failed: %v", err)
	}
	if !startResp.Started {
		t.Fatalf("expected Started=true, message=%s", startResp.Message)
	}

	again, err := client.Start()
	if err != nil {
		t.Fatalf("second Start RPC failed: %v", err)
	}
	if again.Started || again.Message == "" {
		t.Fatalf("expected second start to be refused with a message, got %+v", again)
	}

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status RPC failed: %v", err)
	}
	if !status.Running || !status.Dispatch.Running {
		t.Fatalf("expected daemon to be running, got %+v", status.DaemonStatus)
	}
	if status.Storage != "memory" || status.LogPath != logPath {
		t.Fatalf("unexpected status %+v", status.DaemonStatus)
	}

	tickResp, err := client.Tick()
	if err != nil {
		t.Fatalf("Tick RPC failed: %v", err)
	}
	if !tickResp.Skipped && tickResp.Tick.TickID == "" {
		t.Fatalf("expected a tick id or a skip, got %+v", tickResp)
	}

	notifyResp, err := client.TestNotification()
	if err != nil {
		t.Fatalf("TestNotification RPC failed: %v", err)
	}
	if notifyResp.Sent {
		t.Fatal("expected no notification without a topic")
	}

	if err := os.WriteFile(logPath, []byte("first devTo\nsecond twitter\nthird devTo\n"), 0o644); err != nil {
		t.Fatalf("write log file: %v", err)
	}
	logResp, err := client.LogTail(ipc.LogTailRequest{Offset: -1, Limit: 5, Match: "devTo"})
	if err != nil {
		t.Fatalf("LogTail failed: %v", err)
	}
	if len(logResp.Lines) != 2 || logResp.Lines[1] != "third devTo" {
		t.Fatalf("unexpected log tail response: %#v", logResp.Lines)
	}

	stopResp, err := client.Stop()
	if err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if !stopResp.Stopped {
		t.Fatalf("expected Stop to report stopped, got: %#v", stopResp)
	}
	status, err = client.Status()
	if err != nil {
		t.Fatalf("Status after stop: %v", err)
	}
	if status.Running {
		t.Fatal("expected daemon to be stopped")
	}
}

func TestDialMissingSocket(t *testing.T) {
	if _, err := ipc.Dial(filepath.Join(t.TempDir(), "missing.sock")); err == nil {
		t.Fatal("expected dial error for missing socket")
	}
}
