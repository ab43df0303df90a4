package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"postpilot/internal/config"
	"postpilot/internal/coordination"
	"postpilot/internal/logging"
	"postpilot/internal/notifications"
	"postpilot/internal/optimizer"
	"postpilot/internal/platform"
	"postpilot/internal/publish"
	"postpilot/internal/sources"
	"postpilot/internal/store"
)

// ErrTickInProgress is returned when a tick is requested while another one is
// still running.
var ErrTickInProgress = errors.New("dispatch tick already in progress")

const (
	defaultTickInterval = 5 * time.Minute
	defaultTolerance    = 5 * time.Minute
	defaultCallTimeout  = 30 * time.Second
	maxRetryBackoff     = time.Minute
)

// Settings holds the loop tunables.
type Settings struct {
	TickInterval         time.Duration
	Tolerance            time.Duration
	CallTimeout          time.Duration
	PublishTimeouts      map[platform.ID]time.Duration
	RetryBackoff         time.Duration
	CounterRetentionDays int
	Location             *time.Location
	ParallelPlatforms    bool
	Forms                map[platform.ID]publish.FormData
}

// SettingsFromConfig maps the [dispatch] and [platforms] sections.
func SettingsFromConfig(cfg *config.Config) (Settings, error) {
	loc, err := cfg.Location()
	if err != nil {
		return Settings{}, err
	}
	forms := make(map[platform.ID]publish.FormData, len(platform.All()))
	timeouts := make(map[platform.ID]time.Duration, len(platform.All()))
	for _, id := range platform.All() {
		forms[id] = publish.FormFor(cfg, id)
		timeouts[id] = cfg.PublishTimeout(string(id))
	}
	return Settings{
		TickInterval:         cfg.TickInterval(),
		Tolerance:            cfg.Tolerance(),
		CallTimeout:          cfg.CallTimeout(),
		PublishTimeouts:      timeouts,
		RetryBackoff:         cfg.RetryBackoff(),
		CounterRetentionDays: cfg.Dispatch.CounterRetentionDays,
		Location:             loc,
		ParallelPlatforms:    cfg.Dispatch.ParallelPlatforms,
		Forms:                forms,
	}, nil
}

// publishTimeout bounds one adapter call for id, falling back to CallTimeout.
func (s Settings) publishTimeout(id platform.ID) time.Duration {
	if timeout, ok := s.PublishTimeouts[id]; ok && timeout > 0 {
		return timeout
	}
	return s.CallTimeout
}

func (s Settings) normalized() Settings {
	if s.TickInterval <= 0 {
		s.TickInterval = defaultTickInterval
	}
	if s.Tolerance < 0 {
		s.Tolerance = defaultTolerance
	}
	if s.CallTimeout <= 0 {
		s.CallTimeout = defaultCallTimeout
	}
	if s.RetryBackoff < 0 {
		s.RetryBackoff = 0
	}
	if s.Location == nil {
		s.Location = time.Local
	}
	return s
}

// Dependencies are the stores and collaborators the loop drives.
type Dependencies struct {
	Repos     *store.Repos
	Sources   sources.Fetcher
	Optimizer optimizer.Optimizer
	Publisher publish.Publisher
	Notifier  notifications.Service
	Locker    coordination.Locker
}

// Option customizes a Service.
type Option func(*Service)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSleeper replaces the retry backoff sleep.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(s *Service) {
		if sleep != nil {
			s.sleep = sleep
		}
	}
}

// WithIDGenerator replaces the generator for tick and content identifiers.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// Service coordinates the dispatch loop.
type Service struct {
	settings Settings
	deps     Dependencies
	logger   *slog.Logger
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
	newID    func() string

	tickMu sync.Mutex

	mu        sync.RWMutex
	running   bool
	cancel    context.CancelFunc
	scheduler *cron.Cron
	entryID   cron.EntryID
	wg        sync.WaitGroup
	lastTick  *TickReport
	lastErr   error
	ticksRun  int
	skipped   int
	lastPrune string
}

// New constructs a dispatch service. Repos and Publisher are required.
func New(settings Settings, deps Dependencies, logger *slog.Logger, opts ...Option) (*Service, error) {
	if deps.Repos == nil {
		return nil, fmt.Errorf("dispatch: repos are required")
	}
	if deps.Publisher == nil {
		return nil, fmt.Errorf("dispatch: publisher is required")
	}
	if deps.Optimizer == nil {
		deps.Optimizer = optimizer.New(nil, logger)
	}
	if deps.Notifier == nil {
		deps.Notifier = notifications.NewService(nil)
	}
	if deps.Locker == nil {
		deps.Locker = coordination.Noop{}
	}
	svc := &Service{
		settings: settings.normalized(),
		deps:     deps,
		logger:   logging.NewComponentLogger(logger, "dispatch"),
		now:      time.Now,
		sleep:    sleepContext,
		newID:    newUUID,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Start launches the periodic timer and runs one tick immediately. Calling
// Start on a running service is a no-op.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	scheduler := cron.New(cron.WithLocation(s.settings.Location))
	entryID, err := scheduler.AddFunc(fmt.Sprintf("@every %s", s.settings.TickInterval), func() {
		s.scheduledTick(runCtx)
	})
	if err != nil {
		s.mu.Unlock()
		cancel()
		return fmt.Errorf("schedule dispatch timer: %w", err)
	}
	s.cancel = cancel
	s.scheduler = scheduler
	s.entryID = entryID
	s.running = true
	s.wg.Add(1)
	s.mu.Unlock()

	scheduler.Start()
	go func() {
		defer s.wg.Done()
		s.scheduledTick(runCtx)
	}()

	s.logger.Info("dispatch loop started",
		logging.Duration("tick_interval", s.settings.TickInterval),
		logging.Duration("tolerance", s.settings.Tolerance),
		logging.String("timezone", s.settings.Location.String()),
		logging.String("lock", s.deps.Locker.Describe()),
	)
	return nil
}

// Stop halts the timer and waits for an in-flight tick. Calling Stop on a
// stopped service is a no-op.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	scheduler := s.scheduler
	s.running = false
	s.cancel = nil
	s.scheduler = nil
	s.entryID = 0
	s.mu.Unlock()

	cancel()
	<-scheduler.Stop().Done()
	s.wg.Wait()
	s.logger.Info("dispatch loop stopped")
}

// Running reports whether the timer is active.
func (s *Service) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Status returns a snapshot of the loop.
func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	status := Status{
		Running:      s.running,
		TickInterval: s.settings.TickInterval,
		TicksRun:     s.ticksRun,
		TicksSkipped: s.skipped,
	}
	if s.lastTick != nil {
		report := s.lastTick.clone()
		status.LastTick = &report
	}
	if s.lastErr != nil {
		status.LastError = s.lastErr.Error()
	}
	if s.scheduler != nil {
		status.NextTick = s.scheduler.Entry(s.entryID).Next
	}
	return status
}

func (s *Service) scheduledTick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := s.Tick(ctx); err != nil {
		switch {
		case errors.Is(err, ErrTickInProgress), errors.Is(err, coordination.ErrLockHeld):
			s.logger.Debug("tick skipped", logging.String("reason", err.Error()))
		case errors.Is(err, context.Canceled):
		default:
			logging.ErrorWithContext(s.logger, "dispatch tick failed", "tick_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check storage connectivity"),
				logging.String(logging.FieldImpact, "due schedules were not evaluated this tick"),
			)
			s.notify(ctx, notifications.EventTickError, notifications.Payload{"context": "dispatch tick", "error": err})
		}
	}
}

func (s *Service) setLastError(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}

func (s *Service) recordTick(report TickReport, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ticksRun++
	s.lastTick = &report
	s.lastErr = err
}

func (s *Service) recordSkippedTick() {
	s.mu.Lock()
	s.skipped++
	s.mu.Unlock()
}

func (s *Service) notify(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if err := s.deps.Notifier.Publish(ctx, event, payload); err != nil {
		logging.WarnWithContext(s.logger, "notification failed", "notification_failed",
			logging.String("event", string(event)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check ntfy topic and network access"),
			logging.String(logging.FieldImpact, "event was not delivered"),
		)
	}
}
