package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrAlreadyClaimed is returned by Claim when the schedule already ran today.
var ErrAlreadyClaimed = errors.New("schedule already dispatched for this date")

// DispatchStatus tracks a claim's lifecycle.
type DispatchStatus string

const (
	DispatchClaimed   DispatchStatus = "claimed"
	DispatchPublished DispatchStatus = "published"
	DispatchFailed    DispatchStatus = "failed"
)

// DispatchEntry is the idempotency marker for (schedule, date).
type DispatchEntry struct {
	ScheduleID string         `json:"scheduleId"`
	Date       string         `json:"date"`
	Platform   string         `json:"platform"`
	Status     DispatchStatus `json:"status"`
	TickID     string         `json:"tickId,omitempty"`
	RecordID   string         `json:"recordId,omitempty"`
	ClaimedAt  time.Time      `json:"claimedAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

// Dispatch persists idempotency claims keyed by schedule ID and date.
type Dispatch struct {
	repo
}

// Claim atomically records that a schedule is being executed on date.
// A second claim for the same pair returns ErrAlreadyClaimed regardless of
// the first attempt's outcome.
func (d *Dispatch) Claim(ctx context.Context, date, scheduleID, platformID, tickID string) (DispatchEntry, error) {
	now := d.now()
	entry := DispatchEntry{
		ScheduleID: scheduleID,
		Date:       date,
		Platform:   platformID,
		Status:     DispatchClaimed,
		TickID:     tickID,
		ClaimedAt:  now,
		UpdatedAt:  now,
	}
	err := d.storage.Update(ctx, dispatchKey(date, scheduleID), func(_ json.RawMessage, exists bool) (json.RawMessage, error) {
		if exists {
			return nil, ErrAlreadyClaimed
		}
		return json.Marshal(entry)
	})
	if err != nil {
		return DispatchEntry{}, err
	}
	return entry, nil
}

// Complete marks a claim with its final outcome.
func (d *Dispatch) Complete(ctx context.Context, date, scheduleID string, status DispatchStatus, recordID string) error {
	return d.storage.Update(ctx, dispatchKey(date, scheduleID), func(current json.RawMessage, exists bool) (json.RawMessage, error) {
		var entry DispatchEntry
		if exists {
			if err := json.Unmarshal(current, &entry); err != nil {
				return nil, fmt.Errorf("decode dispatch entry: %w", err)
			}
		} else {
			entry = DispatchEntry{ScheduleID: scheduleID, Date: date, ClaimedAt: d.now()}
		}
		entry.Status = status
		entry.RecordID = recordID
		entry.UpdatedAt = d.now()
		return json.Marshal(entry)
	})
}

// Release drops a claim so a later tick inside the window may retry.
func (d *Dispatch) Release(ctx context.Context, date, scheduleID string) error {
	return d.storage.Delete(ctx, dispatchKey(date, scheduleID))
}

// Get returns the claim for (date, schedule).
func (d *Dispatch) Get(ctx context.Context, date, scheduleID string) (DispatchEntry, error) {
	var entry DispatchEntry
	if err := getJSON(ctx, d.storage, dispatchKey(date, scheduleID), &entry); err != nil {
		return DispatchEntry{}, err
	}
	return entry, nil
}

// List returns claims for a date, or all claims when date is empty.
func (d *Dispatch) List(ctx context.Context, date string) ([]DispatchEntry, error) {
	prefix := prefixDispatch
	if date != "" {
		prefix += date + "/"
	}
	return listJSON[DispatchEntry](ctx, d.storage, prefix, d.skipCorrupt)
}

// Prune deletes claims dated strictly before cutoff.
func (d *Dispatch) Prune(ctx context.Context, cutoff string) (int, error) {
	entries, err := d.storage.List(ctx, prefixDispatch)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, entry := range entries {
		date, _, ok := splitDispatchKey(entry.Key)
		if !ok || date >= cutoff {
			continue
		}
		if err := d.storage.Delete(ctx, entry.Key); err != nil {
			return removed, fmt.Errorf("delete %s: %w", entry.Key, err)
		}
		removed++
	}
	return removed, nil
}
