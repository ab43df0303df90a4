package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"postpilot/internal/content"
	"postpilot/internal/logging"
	"postpilot/internal/notifications"
	"postpilot/internal/optimizer"
	"postpilot/internal/platform"
	"postpilot/internal/publish"
	"postpilot/internal/schedule"
	"postpilot/internal/services"
	"postpilot/internal/sources"
	"postpilot/internal/store"
)

// runSchedule evaluates the gates for one due schedule and, when eligible,
// executes it end to end.
func (s *Service) runSchedule(ctx context.Context, sched schedule.WeeklySchedule, c *collector) {
	id := sched.PlatformID
	ctx = services.WithScheduleID(ctx, sched.ID)
	ctx = services.WithPlatform(ctx, string(id))
	logger := logging.WithContext(ctx, s.logger)
	today := store.DateKey(s.now().In(s.settings.Location))

	cfg, found, err := s.deps.Repos.Platforms.Get(ctx, id)
	if err != nil {
		s.persistFailure(ctx, logger, c, "load platform", err)
		c.skip(SkipPersistFailed)
		return
	}
	settings, err := s.deps.Repos.Settings.Get(ctx, id)
	if err != nil {
		s.persistFailure(ctx, logger, c, "load settings", err)
		c.skip(SkipPersistFailed)
		return
	}
	if reason := platform.Eligibility(cfg, found, settings); reason != platform.SkipNone {
		s.skip(logger, c, reason)
		return
	}
	count, err := s.deps.Repos.Counters.Get(ctx, id, today)
	if err != nil {
		s.persistFailure(ctx, logger, c, "load counter", err)
		c.skip(SkipPersistFailed)
		return
	}
	if platform.CapReached(settings, count) {
		s.skip(logger, c, platform.SkipDailyCapReached, logging.Int("count", count), logging.Int("cap", settings.PostsPerDay))
		return
	}

	tickID, _ := services.TickIDFromContext(ctx)
	if _, err := s.deps.Repos.Dispatch.Claim(ctx, today, sched.ID, string(id), tickID); err != nil {
		if errors.Is(err, store.ErrAlreadyClaimed) {
			s.skip(logger, c, SkipAlreadyDispatched)
			return
		}
		s.persistFailure(ctx, logger, c, "claim dispatch key", err)
		c.skip(SkipPersistFailed)
		return
	}

	candidate, reason := s.selectCandidate(ctx, logger, id)
	if reason != platform.SkipNone {
		s.releaseClaim(ctx, logger, today, sched.ID)
		s.skip(logger, c, reason)
		return
	}

	reserved, err := s.deps.Repos.Counters.IncrementIfBelow(ctx, id, today, settings.PostsPerDay)
	if errors.Is(err, store.ErrCapReached) {
		s.releaseClaim(ctx, logger, today, sched.ID)
		c.skip(platform.SkipDailyCapReached)
		logging.WarnWithContext(logger, "daily cap filled by another publisher", "cap_race",
			logging.Alert("quota_contended"),
			logging.Int("count", reserved),
			logging.Int("cap", settings.PostsPerDay),
			logging.String(logging.FieldErrorHint, "another process publishes to the same storage; set coordination.redis_url"),
			logging.String(logging.FieldImpact, "schedule skipped without publishing"),
		)
		return
	}
	if err != nil {
		s.persistFailure(ctx, logger, c, "reserve daily quota", err)
		s.releaseClaim(ctx, logger, today, sched.ID)
		c.skip(SkipPersistFailed)
		return
	}

	ex := execution{
		schedule:  sched,
		platform:  cfg,
		settings:  settings,
		date:      today,
		candidate: candidate,
		count:     reserved,
	}
	success, attempted := s.execute(ctx, logger, c, ex)
	if !attempted {
		s.refundQuota(ctx, logger, c, ex)
		c.skip(SkipPersistFailed)
		return
	}
	c.attempted()
	c.outcome(success)
}

// execution carries one eligible schedule through publishing. count is the
// daily counter after the attempt reserved its slot.
type execution struct {
	schedule  schedule.WeeklySchedule
	platform  platform.Config
	settings  platform.Settings
	date      string
	candidate sources.Raw
	count     int
}

// selectCandidate returns the first candidate not yet published to id.
func (s *Service) selectCandidate(ctx context.Context, logger *slog.Logger, id platform.ID) (sources.Raw, platform.SkipReason) {
	if s.deps.Sources == nil {
		logger.Debug("no content sources configured")
		return sources.Raw{}, SkipNoContent
	}
	callCtx, cancel := context.WithTimeout(ctx, s.settings.CallTimeout)
	candidates, err := s.deps.Sources.Fetch(callCtx, sources.Request{
		Platforms: []platform.ID{id},
		Category:  id.Category(),
	})
	cancel()
	if err != nil {
		logging.WarnWithContext(logger, "content fetch failed", "source_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check content source configuration"),
			logging.String(logging.FieldImpact, "schedule will be retried on a later tick inside its window"),
		)
		return sources.Raw{}, SkipSourceFailed
	}
	published, err := s.deps.Repos.Contents.PublishedSources(ctx, string(id))
	if err != nil {
		logging.WarnWithContext(logger, "published history unavailable", "history_unavailable",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check storage connectivity"),
			logging.String(logging.FieldImpact, "schedule skipped to avoid duplicate posts"),
		)
		return sources.Raw{}, SkipSourceFailed
	}
	for _, candidate := range candidates {
		if candidate.SourceID != "" {
			if _, done := published[candidate.SourceID]; done {
				continue
			}
		}
		return candidate, platform.SkipNone
	}
	logger.Debug("no unpublished content available", logging.Int("candidates", len(candidates)))
	return sources.Raw{}, SkipNoContent
}

// execute optimizes, publishes and persists one attempt. attempted is false
// when the record could not be created and the adapter was never called.
func (s *Service) execute(ctx context.Context, logger *slog.Logger, c *collector, ex execution) (success, attempted bool) {
	id := ex.platform.ID
	category := id.Category()
	original := ex.candidate.Item(category)

	item := s.optimize(ctx, logger, original, id)
	now := s.now()
	item.ID = s.newID()
	item.Platform = string(id)
	item.Category = category
	item.PublishStatus = content.StatusPublished
	item.ScheduledDate = &now

	record, err := s.deps.Repos.Records.Add(ctx, content.Record{
		ContentID:  item.ID,
		Platform:   string(id),
		ScheduleID: ex.schedule.ID,
		Status:     content.RecordPending,
	})
	if err != nil {
		s.persistFailure(ctx, logger, c, "create publish record", err)
		s.releaseClaim(ctx, logger, ex.date, ex.schedule.ID)
		return false, false
	}

	result, retries := s.publishWithRetry(ctx, logger, ex.platform, item)
	record.RetryCount = retries

	if result.Success {
		s.recordSuccess(ctx, logger, c, ex, item, record, result)
		return true, true
	}
	s.recordFailure(ctx, logger, c, ex, item, record, result)
	return false, true
}

// optimize rewrites the item for id, falling back field by field to the
// original when the optimizer fails or returns blanks.
func (s *Service) optimize(ctx context.Context, logger *slog.Logger, original content.Item, id platform.ID) content.Item {
	callCtx, cancel := context.WithTimeout(ctx, s.settings.CallTimeout)
	defer cancel()
	result, err := s.deps.Optimizer.Optimize(callCtx, optimizer.InputFromItem(original), id)
	if err != nil {
		logging.WarnWithContext(logger, "content optimization failed", "optimize_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the optimizer provider and API key"),
			logging.String(logging.FieldImpact, "publishing original content"),
		)
		return original
	}
	return result.Apply(original)
}

// publishWithRetry invokes the adapter, retrying when the platform allows it.
// It returns the last result and the number of retries performed.
func (s *Service) publishWithRetry(ctx context.Context, logger *slog.Logger, cfg platform.Config, item content.Item) (publish.Result, int) {
	attempts := cfg.Attempts()
	form := s.settings.Forms[cfg.ID]
	var result publish.Result
	retries := 0
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := backoff(s.settings.RetryBackoff, attempt-1)
			logger.Info("retrying publish",
				logging.Int("attempt", attempt+1),
				logging.Int("max_attempts", attempts),
				logging.Duration("backoff", delay),
				logging.String("previous_error", result.Error),
			)
			if err := s.sleep(ctx, delay); err != nil {
				result = publish.Result{Error: fmt.Sprintf("retry aborted: %v", err)}
				break
			}
			retries++
		}
		callCtx, cancel := context.WithTimeout(ctx, s.settings.publishTimeout(cfg.ID))
		result = s.deps.Publisher.Publish(callCtx, cfg.ID, item, form)
		if !result.Success && callCtx.Err() == context.DeadlineExceeded && result.Error == "" {
			result.Error = "publish timed out"
		}
		cancel()
		if result.Success {
			break
		}
		if strings.TrimSpace(result.Error) == "" {
			result.Error = "publish failed without error detail"
		}
	}
	return result, retries
}

// backoff doubles base per retry, capped at one minute.
func backoff(base time.Duration, retry int) time.Duration {
	if base <= 0 {
		return 0
	}
	delay := base
	for i := 0; i < retry; i++ {
		delay *= 2
		if delay >= maxRetryBackoff {
			return maxRetryBackoff
		}
	}
	if delay > maxRetryBackoff {
		return maxRetryBackoff
	}
	return delay
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *Service) recordSuccess(ctx context.Context, logger *slog.Logger, c *collector, ex execution, item content.Item, record content.Record, result publish.Result) {
	id := ex.platform.ID
	item.PublishStatus = content.StatusPublished
	if _, err := s.deps.Repos.Contents.Put(ctx, item); err != nil {
		s.persistFailure(ctx, logger, c, "save published content", err)
	}
	record.Status = content.RecordPublished
	record.PublishedURL = result.URL
	record.ErrorMessage = ""
	if _, err := s.deps.Repos.Records.Update(ctx, record); err != nil {
		s.persistFailure(ctx, logger, c, "update publish record", err)
	}
	if err := s.deps.Repos.Dispatch.Complete(ctx, ex.date, ex.schedule.ID, store.DispatchPublished, record.ID); err != nil {
		s.persistFailure(ctx, logger, c, "complete dispatch key", err)
	}
	s.markDraftPublished(ctx, logger, c, ex)

	logger.Info("content published",
		logging.String("content_id", item.ID),
		logging.String("record_id", record.ID),
		logging.String("title", item.Title),
		logging.String("url", result.URL),
		logging.Int("retries", record.RetryCount),
		logging.Int("count", ex.count),
	)
	s.notify(ctx, notifications.EventPublishSucceeded, notifications.Payload{
		"platform": id.DisplayName(),
		"title":    item.Title,
		"url":      result.URL,
	})
}

func (s *Service) recordFailure(ctx context.Context, logger *slog.Logger, c *collector, ex execution, item content.Item, record content.Record, result publish.Result) {
	id := ex.platform.ID
	item.PublishStatus = content.StatusFailed
	if _, err := s.deps.Repos.Contents.Put(ctx, item); err != nil {
		s.persistFailure(ctx, logger, c, "save failed content", err)
	}
	record.Status = content.RecordFailed
	record.ErrorMessage = result.Error
	record.ErrorCategory = string(failureCategory(result))
	if _, err := s.deps.Repos.Records.Update(ctx, record); err != nil {
		s.persistFailure(ctx, logger, c, "update publish record", err)
	}
	s.refundQuota(ctx, logger, c, ex)
	if err := s.deps.Repos.Dispatch.Complete(ctx, ex.date, ex.schedule.ID, store.DispatchFailed, record.ID); err != nil {
		s.persistFailure(ctx, logger, c, "complete dispatch key", err)
	}
	if ex.candidate.Platform != "" {
		s.markDraft(ctx, logger, c, ex.candidate, content.StatusFailed)
	}

	logging.WarnWithContext(logger, "publish failed", "publish_failed",
		logging.String("content_id", item.ID),
		logging.String("record_id", record.ID),
		logging.String("error", result.Error),
		logging.Int("retries", record.RetryCount),
		logging.String(logging.FieldErrorHint, "check platform credentials and the adapter error"),
		logging.String(logging.FieldImpact, "daily quota unchanged; schedule will not retry today"),
	)
	s.notify(ctx, notifications.EventPublishFailed, notifications.Payload{
		"platform": id.DisplayName(),
		"title":    item.Title,
		"error":    result.Error,
	})
}

// refundQuota gives back the slot reserved for an attempt that did not publish.
func (s *Service) refundQuota(ctx context.Context, logger *slog.Logger, c *collector, ex execution) {
	if _, err := s.deps.Repos.Counters.Refund(ctx, ex.platform.ID, ex.date); err != nil {
		s.persistFailure(ctx, logger, c, "refund daily quota", err)
	}
}

// markDraftPublished flips a stored draft once it is out. A draft aimed at one
// platform is done after that publish; an untargeted draft is done when every
// active platform of its category has it.
func (s *Service) markDraftPublished(ctx context.Context, logger *slog.Logger, c *collector, ex execution) {
	candidate := ex.candidate
	if candidate.ContentID == "" {
		return
	}
	if candidate.Platform == "" {
		done, err := s.publishedEverywhere(ctx, ex.platform.ID.Category(), candidate.SourceID)
		if err != nil {
			s.persistFailure(ctx, logger, c, "check draft coverage", err)
			return
		}
		if !done {
			return
		}
	}
	s.markDraft(ctx, logger, c, candidate, content.StatusPublished)
}

func (s *Service) publishedEverywhere(ctx context.Context, category content.Category, sourceID string) (bool, error) {
	for _, id := range platform.ForCategory(category) {
		cfg, found, err := s.deps.Repos.Platforms.Get(ctx, id)
		if err != nil {
			return false, err
		}
		if !found || !cfg.Enabled {
			continue
		}
		published, err := s.deps.Repos.Contents.PublishedSources(ctx, string(id))
		if err != nil {
			return false, err
		}
		if _, ok := published[sourceID]; !ok {
			return false, nil
		}
	}
	return true, nil
}

// markDraft sets the status of the stored draft behind candidate.
func (s *Service) markDraft(ctx context.Context, logger *slog.Logger, c *collector, candidate sources.Raw, status content.Status) {
	if candidate.ContentID == "" {
		return
	}
	draft, err := s.deps.Repos.Contents.Get(ctx, candidate.ContentID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.persistFailure(ctx, logger, c, "load draft", err)
		}
		return
	}
	draft.PublishStatus = status
	if _, err := s.deps.Repos.Contents.Put(ctx, draft); err != nil {
		s.persistFailure(ctx, logger, c, "update draft", err)
	}
}

func failureCategory(result publish.Result) services.Category {
	lower := strings.ToLower(result.Error)
	switch {
	case strings.Contains(lower, "timed out"), strings.Contains(lower, "deadline exceeded"):
		return services.CategoryTimeout
	case strings.Contains(lower, "required"), result.Error == "no adapter":
		return services.CategoryConfiguration
	default:
		return services.CategoryExternal
	}
}

func (s *Service) skip(logger *slog.Logger, c *collector, reason platform.SkipReason, attrs ...logging.Attr) {
	c.skip(reason)
	attrs = append(attrs, logging.DecisionAttrs("dispatch", "skipped", string(reason))...)
	logger.Debug("schedule skipped", logging.Args(attrs...)...)
}

func (s *Service) releaseClaim(ctx context.Context, logger *slog.Logger, date, scheduleID string) {
	if err := s.deps.Repos.Dispatch.Release(ctx, date, scheduleID); err != nil && !errors.Is(err, store.ErrNotFound) {
		logging.WarnWithContext(logger, "dispatch claim release failed", "claim_release_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "delete the dispatch key manually to retry today"),
			logging.String(logging.FieldImpact, "schedule will not run again today"),
		)
	}
}

func (s *Service) persistFailure(_ context.Context, logger *slog.Logger, c *collector, operation string, err error) {
	wrapped := services.Wrap(services.ErrPersistence, "dispatch", operation, "storage write failed", err)
	c.persistError(wrapped)
	logging.ErrorWithContext(logger, "publish record persistence failed", "record_persist_failed",
		logging.String("operation", operation),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check storage backend health"),
		logging.String(logging.FieldImpact, "publish state may be incomplete for this attempt"),
	)
	s.setLastError(wrapped)
}
