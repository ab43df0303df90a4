package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/gofrs/flock"

	"postpilot/internal/config"
	"postpilot/internal/content"
	"postpilot/internal/dispatch"
	"postpilot/internal/logging"
	"postpilot/internal/notifications"
	"postpilot/internal/schedule"
	"postpilot/internal/store"
)

// Daemon coordinates the dispatch loop and enforces single-instance execution.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	repos      *store.Repos
	dispatcher *dispatch.Service
	notifier   notifications.Service
	logPath    string

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	api     *apiServer
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	LockFilePath string
	Storage      string
	LogPath      string
	Dispatch     dispatch.Status
}

// New constructs a daemon with initialized dependencies. notifier may be nil.
func New(cfg *config.Config, repos *store.Repos, dispatcher *dispatch.Service, notifier notifications.Service, logger *slog.Logger, logPath string) (*Daemon, error) {
	if cfg == nil || repos == nil || dispatcher == nil {
		return nil, errors.New("daemon requires config, repositories, and dispatch service")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	if strings.TrimSpace(logPath) == "" {
		logPath = filepath.Join(cfg.Paths.LogDir, "postpilot.log")
	}
	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "daemon"),
		repos:      repos,
		dispatcher: dispatcher,
		notifier:   notifier,
		logPath:    logPath,
		lockPath:   lockPath,
		lock:       flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock, launches the dispatch loop, and opens the
// HTTP API when one is configured.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	if err := os.MkdirAll(filepath.Dir(d.lockPath), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another postpilot daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.dispatcher.Start(d.ctx); err != nil {
		d.abortStart()
		return fmt.Errorf("start dispatch: %w", err)
	}

	apiSrv, err := newAPIServer(d.cfg, d, d.logger)
	if err == nil {
		err = apiSrv.start(d.ctx)
	}
	if err != nil {
		d.dispatcher.Stop()
		d.abortStart()
		return fmt.Errorf("start api: %w", err)
	}
	d.api = apiSrv

	d.running.Store(true)
	d.logger.Info("postpilot daemon started",
		logging.String("lock", d.lockPath),
		logging.String("storage", d.repos.Storage.Describe()),
	)
	return nil
}

func (d *Daemon) abortStart() {
	_ = d.lock.Unlock()
	d.cancel()
	d.ctx = nil
	d.cancel = nil
}

// Stop halts the dispatch loop and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.api != nil {
		d.api.stop()
		d.api = nil
	}
	d.dispatcher.Stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "daemon_lock_release_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove "+d.lockPath+" if the next start fails"),
		)
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("postpilot daemon stopped")
}

// Close stops the daemon and releases storage.
func (d *Daemon) Close() error {
	d.Stop()
	if d.repos != nil {
		return d.repos.Close()
	}
	return nil
}

// Tick runs one dispatch pass on demand. It works whether or not the timer
// is running.
func (d *Daemon) Tick(ctx context.Context) (dispatch.TickReport, error) {
	return d.dispatcher.Tick(ctx)
}

// Schedules lists every weekly slot.
func (d *Daemon) Schedules(ctx context.Context) ([]schedule.WeeklySchedule, error) {
	return d.repos.Schedules.List(ctx)
}

// Records lists publish records matching filter.
func (d *Daemon) Records(ctx context.Context, filter store.RecordFilter) ([]content.Record, error) {
	return d.repos.Records.List(ctx, filter)
}

// Counters lists stored daily counters.
func (d *Daemon) Counters(ctx context.Context) ([]store.Counter, error) {
	return d.repos.Counters.List(ctx)
}

// TestNotification sends a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.Publish(ctx, notifications.EventTest, notifications.Payload{}); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// Status returns the current daemon status.
func (d *Daemon) Status(context.Context) Status {
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		LockFilePath: d.lockPath,
		Storage:      d.repos.Storage.Describe(),
		LogPath:      d.logPath,
		Dispatch:     d.dispatcher.Status(),
	}
}
