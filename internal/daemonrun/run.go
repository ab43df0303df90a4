package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"postpilot/internal/config"
	"postpilot/internal/coordination"
	"postpilot/internal/daemon"
	"postpilot/internal/dispatch"
	"postpilot/internal/ipc"
	"postpilot/internal/logging"
	"postpilot/internal/notifications"
	"postpilot/internal/optimizer"
	"postpilot/internal/platform"
	"postpilot/internal/publish"
	"postpilot/internal/sources"
	"postpilot/internal/store"
	"postpilot/internal/store/backend"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	Diagnostic  bool
}

// Run starts the postpilot daemon runtime loop.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("postpilot-%s.log", runID))

	logger, err := logging.New(logging.Options{
		Level:            opts.LogLevel,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
		Development:      opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if opts.Diagnostic {
		logger = attachDiagnosticLog(logger, cfg, runID)
	}

	logDependencySnapshot(logger, cfg)
	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update postpilot.log link: %v\n", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "postpilot-*.log", Exclude: []string{logPath}},
		logging.RetentionTarget{Dir: filepath.Join(cfg.Paths.LogDir, "debug"), Pattern: "postpilot-*.log"},
	)
	pidPath := cfg.PIDPath()
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	repos, err := backend.OpenRepos(signalCtx, cfg, logger)
	if err != nil {
		logger.Error("open storage", logging.Error(err))
		return err
	}

	if result, err := repos.Platforms.Sync(signalCtx, cfg, repos.Settings); err != nil {
		logging.WarnWithContext(logger, "platform registry sync failed", "platform_sync_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "stored platform entries may be stale"),
		)
	} else if len(result.Created) > 0 {
		logger.Info("platform registry seeded",
			logging.String(logging.FieldEventType, "platform_registry_seeded"),
			logging.Int("created", len(result.Created)),
		)
	}

	notifier := notifications.NewService(cfg)
	dispatcher, closeDispatcher, err := BuildDispatcher(signalCtx, cfg, repos, notifier, logger)
	if err != nil {
		_ = repos.Close()
		return fmt.Errorf("build dispatcher: %w", err)
	}
	defer closeDispatcher()

	d, err := daemon.New(cfg, repos, dispatcher, notifier, logger, logPath)
	if err != nil {
		_ = repos.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	ipcServer, err := ipc.NewServer(signalCtx, cfg.SocketPath(), d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(signalCtx); err != nil {
		logger.Warn("daemon start failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_start_failed"),
			logging.String(logging.FieldErrorHint, "check configuration and storage access"),
			logging.String(logging.FieldImpact, "scheduled posts will not be published"),
		)
	}

	<-signalCtx.Done()
	logger.Info("postpilot daemon shutting down")
	return nil
}

// BuildDispatcher wires sources, optimizer, publishers, and the tick lock
// into a dispatch service. The returned func releases the lock connection.
func BuildDispatcher(ctx context.Context, cfg *config.Config, repos *store.Repos, notifier notifications.Service, logger *slog.Logger) (*dispatch.Service, func(), error) {
	settings, err := dispatch.SettingsFromConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	opt, err := optimizer.FromConfig(ctx, cfg.Optimizer, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("optimizer: %w", err)
	}

	var locker coordination.Locker = coordination.Noop{}
	closeLock := func() {}
	if url := strings.TrimSpace(cfg.Coordination.RedisURL); url != "" {
		ttl := time.Duration(cfg.Coordination.LockTTLSeconds) * time.Second
		lock, err := coordination.OpenRedisLock(ctx, url, cfg.Coordination.LockKey, ttl)
		if err != nil {
			return nil, nil, fmt.Errorf("tick lock: %w", err)
		}
		locker = lock
		closeLock = func() { _ = lock.Close() }
	}

	service, err := dispatch.New(settings, dispatch.Dependencies{
		Repos:     repos,
		Sources:   sources.FromConfig(cfg, repos.Contents, logger),
		Optimizer: opt,
		Publisher: publish.FromConfig(cfg, nil),
		Notifier:  notifier,
		Locker:    locker,
	}, logger)
	if err != nil {
		closeLock()
		return nil, nil, err
	}
	return service, closeLock, nil
}

func attachDiagnosticLog(logger *slog.Logger, cfg *config.Config, runID string) *slog.Logger {
	sessionID := uuid.NewString()
	debugDir := filepath.Join(cfg.Paths.LogDir, "debug")
	if err := os.MkdirAll(debugDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to create debug log directory: %v\n", err)
		return logger
	}
	debugLogPath := filepath.Join(debugDir, fmt.Sprintf("postpilot-%s.log", runID))
	debugLogger, err := logging.New(logging.Options{
		Level:            "debug",
		Format:           "json",
		OutputPaths:      []string{debugLogPath},
		ErrorOutputPaths: []string{debugLogPath},
		Development:      true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to initialize debug logger: %v\n", err)
		return logger
	}
	logger = logging.TeeLogger(logger, debugLogger.Handler()).With(logging.String("session_id", sessionID))
	if err := ensureCurrentLogPointer(debugDir, debugLogPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update debug/postpilot.log link: %v\n", err)
	}
	logger.Info("diagnostic mode enabled",
		logging.String(logging.FieldEventType, "diagnostic_mode_enabled"),
		logging.String("debug_log_path", debugLogPath),
	)
	return logger
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "postpilot.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.String("storage_backend", cfg.Storage.Backend),
		logging.String("optimizer_provider", cfg.Optimizer.Provider),
		logging.Bool("optimizer_key_present", strings.TrimSpace(cfg.Optimizer.APIKey) != ""),
		logging.Bool("ntfy_configured", strings.TrimSpace(cfg.Notifications.NtfyTopic) != ""),
		logging.Bool("shared_tick_lock", strings.TrimSpace(cfg.Coordination.RedisURL) != ""),
		logging.Bool("api_enabled", strings.TrimSpace(cfg.Paths.APIBind) != ""),
	}
	for _, id := range platform.All() {
		attrs = append(attrs, logging.Bool(string(id)+"_credentials", platform.HasCredentials(id, cfg.Credentials)))
	}
	logger.Info("dependency snapshot", logging.Args(attrs...)...)
}
