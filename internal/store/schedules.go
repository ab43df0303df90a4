package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"postpilot/internal/schedule"
)

// Schedules persists weekly slots.
type Schedules struct {
	repo
}

// List returns all schedules in creation order.
func (s *Schedules) List(ctx context.Context) ([]schedule.WeeklySchedule, error) {
	items, err := listJSON[schedule.WeeklySchedule](ctx, s.storage, prefixSchedule, s.skipCorrupt)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

// Get fetches one schedule.
func (s *Schedules) Get(ctx context.Context, id string) (schedule.WeeklySchedule, error) {
	var item schedule.WeeklySchedule
	if err := getJSON(ctx, s.storage, scheduleKey(id), &item); err != nil {
		return schedule.WeeklySchedule{}, err
	}
	return item, nil
}

// Add validates and stores a new schedule, assigning an ID when empty.
func (s *Schedules) Add(ctx context.Context, item schedule.WeeklySchedule) (schedule.WeeklySchedule, error) {
	if err := item.Validate(ctx); err != nil {
		return schedule.WeeklySchedule{}, err
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	now := s.now()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now
	if err := setJSON(ctx, s.storage, scheduleKey(item.ID), item); err != nil {
		return schedule.WeeklySchedule{}, err
	}
	return item, nil
}

// Update replaces an existing schedule.
func (s *Schedules) Update(ctx context.Context, item schedule.WeeklySchedule) (schedule.WeeklySchedule, error) {
	if err := item.Validate(ctx); err != nil {
		return schedule.WeeklySchedule{}, err
	}
	existing, err := s.Get(ctx, item.ID)
	if err != nil {
		return schedule.WeeklySchedule{}, err
	}
	item.CreatedAt = existing.CreatedAt
	item.UpdatedAt = s.now()
	if err := setJSON(ctx, s.storage, scheduleKey(item.ID), item); err != nil {
		return schedule.WeeklySchedule{}, err
	}
	return item, nil
}

// SetEnabled toggles a schedule.
func (s *Schedules) SetEnabled(ctx context.Context, id string, enabled bool) (schedule.WeeklySchedule, error) {
	item, err := s.Get(ctx, id)
	if err != nil {
		return schedule.WeeklySchedule{}, err
	}
	item.Enabled = enabled
	return s.Update(ctx, item)
}

// Delete removes a schedule. Missing schedules return ErrNotFound.
func (s *Schedules) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("schedule %s: %w", id, err)
		}
		return err
	}
	return s.storage.Delete(ctx, scheduleKey(id))
}
