package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"postpilot/internal/coordination"
	"postpilot/internal/logging"
	"postpilot/internal/platform"
	"postpilot/internal/schedule"
	"postpilot/internal/services"
	"postpilot/internal/store"
)

func newUUID() string { return uuid.NewString() }

// Tick runs one pass of the loop. It returns ErrTickInProgress when another
// tick holds the single-flight guard and coordination.ErrLockHeld when another
// instance holds the shared lock. Per-schedule failures are reported in the
// TickReport, not as an error.
func (s *Service) Tick(ctx context.Context) (TickReport, error) {
	if !s.tickMu.TryLock() {
		s.recordSkippedTick()
		return TickReport{}, ErrTickInProgress
	}
	defer s.tickMu.Unlock()

	release, err := s.deps.Locker.Acquire(ctx)
	if err != nil {
		if errors.Is(err, coordination.ErrLockHeld) {
			s.recordSkippedTick()
			return TickReport{}, err
		}
		err = services.Wrap(services.ErrTransient, "dispatch", "acquire lock", "coordination lock unavailable", err)
		s.setLastError(err)
		return TickReport{}, err
	}
	defer func() {
		if releaseErr := release(context.WithoutCancel(ctx)); releaseErr != nil {
			logging.WarnWithContext(s.logger, "tick lock release failed", "lock_release_failed",
				logging.Error(releaseErr),
				logging.String(logging.FieldErrorHint, "the lock expires after its TTL"),
				logging.String(logging.FieldImpact, "other instances may skip ticks until expiry"),
			)
		}
	}()

	tickID := s.newID()
	ctx = services.WithTickID(ctx, tickID)
	now := s.now().In(s.settings.Location)
	c := newCollector(tickID, now)
	logger := logging.WithContext(ctx, s.logger)

	s.maybePrune(ctx, c)

	schedules, err := s.deps.Repos.Schedules.List(ctx)
	if err != nil {
		err = services.Wrap(services.ErrPersistence, "dispatch", "list schedules", "load schedules", err)
		c.addError(err)
		report := c.finish(s.now())
		s.recordTick(report, err)
		return report, err
	}

	due := dueSchedules(schedules, now, s.settings.Tolerance)
	c.report.Evaluated = len(schedules)
	c.report.Due = len(due)

	if s.settings.ParallelPlatforms {
		s.runParallel(ctx, due, c)
	} else {
		for _, sched := range due {
			if ctx.Err() != nil {
				break
			}
			s.runSchedule(ctx, sched, c)
		}
	}

	report := c.finish(s.now())
	logger.Info("dispatch tick complete",
		logging.Int("evaluated", report.Evaluated),
		logging.Int("due", report.Due),
		logging.Int("attempted", report.Attempted),
		logging.Int("published", report.Published),
		logging.Int("failed", report.Failed),
		logging.Int("skipped", report.SkippedTotal()),
		logging.Duration("duration", report.Duration()),
	)
	var tickErr error
	if ctx.Err() != nil {
		tickErr = ctx.Err()
	}
	s.recordTick(report, tickErr)
	return report, tickErr
}

// dueSchedules keeps enabled schedules matching now within tolerance, in
// stored order.
func dueSchedules(all []schedule.WeeklySchedule, now time.Time, tolerance time.Duration) []schedule.WeeklySchedule {
	var due []schedule.WeeklySchedule
	for _, sched := range all {
		if sched.Due(now, tolerance) {
			due = append(due, sched)
		}
	}
	return due
}

// runParallel processes each platform on its own goroutine; schedules for one
// platform stay sequential so the cap check and increment do not interleave.
func (s *Service) runParallel(ctx context.Context, due []schedule.WeeklySchedule, c *collector) {
	var order []platform.ID
	groups := make(map[platform.ID][]schedule.WeeklySchedule)
	for _, sched := range due {
		if _, ok := groups[sched.PlatformID]; !ok {
			order = append(order, sched.PlatformID)
		}
		groups[sched.PlatformID] = append(groups[sched.PlatformID], sched)
	}
	var wg sync.WaitGroup
	for _, id := range order {
		batch := groups[id]
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, sched := range batch {
				if ctx.Err() != nil {
					return
				}
				s.runSchedule(ctx, sched, c)
			}
		}()
	}
	wg.Wait()
}

// maybePrune drops counters and dispatch keys older than the retention window
// on the first tick of each calendar day.
func (s *Service) maybePrune(ctx context.Context, c *collector) {
	if s.settings.CounterRetentionDays <= 0 {
		return
	}
	now := s.now().In(s.settings.Location)
	today := store.DateKey(now)
	s.mu.RLock()
	done := s.lastPrune == today
	s.mu.RUnlock()
	if done {
		return
	}
	removed, err := s.Prune(ctx, now)
	if err != nil {
		c.addError(err)
		logging.WarnWithContext(logging.WithContext(ctx, s.logger), "counter prune failed", "prune_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check storage connectivity"),
			logging.String(logging.FieldImpact, "old counters retained until the next attempt"),
		)
		return
	}
	c.mu.Lock()
	c.report.Pruned = removed
	c.mu.Unlock()
	s.mu.Lock()
	s.lastPrune = today
	s.mu.Unlock()
}

// Prune deletes counters and dispatch keys dated before the retention window
// ending at now, returning the number of keys removed.
func (s *Service) Prune(ctx context.Context, now time.Time) (int, error) {
	days := s.settings.CounterRetentionDays
	if days <= 0 {
		return 0, nil
	}
	cutoff := store.DateKey(now.In(s.settings.Location).AddDate(0, 0, -days))
	counters, err := s.deps.Repos.Counters.Prune(ctx, cutoff)
	if err != nil {
		return counters, fmt.Errorf("prune counters: %w", err)
	}
	claims, err := s.deps.Repos.Dispatch.Prune(ctx, cutoff)
	if err != nil {
		return counters + claims, fmt.Errorf("prune dispatch keys: %w", err)
	}
	if counters+claims > 0 {
		s.logger.Info("pruned dispatch state",
			logging.String("cutoff", cutoff),
			logging.Int("counters", counters),
			logging.Int("claims", claims),
		)
	}
	return counters + claims, nil
}
