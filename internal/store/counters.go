package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"postpilot/internal/platform"
)

// ErrCapReached is returned by IncrementIfBelow when the counter is already
// at the limit.
var ErrCapReached = errors.New("daily cap reached")

// Counter is one daily publication count.
type Counter struct {
	Platform platform.ID `json:"platform"`
	Date     string      `json:"date"`
	Count    int         `json:"count"`
}

// Counters persists daily publication counts as bare JSON integers.
type Counters struct {
	repo
}

// Get returns the count for a platform and date; missing counters are zero.
func (c *Counters) Get(ctx context.Context, id platform.ID, date string) (int, error) {
	raw, err := c.storage.Get(ctx, counterKey(string(id), date))
	if errors.Is(err, ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return decodeCount(raw), nil
}

// IncrementIfBelow atomically increments the counter when it is below limit
// and returns the new value. At or above limit it returns the current value
// and ErrCapReached without writing.
func (c *Counters) IncrementIfBelow(ctx context.Context, id platform.ID, date string, limit int) (int, error) {
	var result int
	err := c.storage.Update(ctx, counterKey(string(id), date), func(current json.RawMessage, exists bool) (json.RawMessage, error) {
		count := 0
		if exists {
			count = decodeCount(current)
		}
		if count >= limit {
			result = count
			return nil, ErrCapReached
		}
		result = count + 1
		return json.RawMessage(strconv.Itoa(result)), nil
	})
	return result, err
}

// Refund atomically gives back one reserved slot. It never goes below zero and
// returns the new value.
func (c *Counters) Refund(ctx context.Context, id platform.ID, date string) (int, error) {
	var result int
	err := c.storage.Update(ctx, counterKey(string(id), date), func(current json.RawMessage, exists bool) (json.RawMessage, error) {
		count := 0
		if exists {
			count = decodeCount(current)
		}
		if count > 0 {
			count--
		}
		result = count
		return json.RawMessage(strconv.Itoa(result)), nil
	})
	return result, err
}

// List returns every stored counter ordered by platform then date.
func (c *Counters) List(ctx context.Context) ([]Counter, error) {
	entries, err := c.storage.List(ctx, prefixCounter)
	if err != nil {
		return nil, err
	}
	out := make([]Counter, 0, len(entries))
	for _, entry := range entries {
		platformID, date, ok := splitCounterKey(entry.Key)
		if !ok {
			continue
		}
		out = append(out, Counter{Platform: platform.ID(platformID), Date: date, Count: decodeCount(entry.Value)})
	}
	return out, nil
}

// Prune deletes counters dated strictly before cutoff (YYYY-MM-DD).
func (c *Counters) Prune(ctx context.Context, cutoff string) (int, error) {
	entries, err := c.storage.List(ctx, prefixCounter)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, entry := range entries {
		_, date, ok := splitCounterKey(entry.Key)
		if !ok || date >= cutoff {
			continue
		}
		if err := c.storage.Delete(ctx, entry.Key); err != nil {
			return removed, fmt.Errorf("delete %s: %w", entry.Key, err)
		}
		removed++
	}
	return removed, nil
}

// decodeCount accepts a bare integer or an object with a count field;
// anything else reads as zero.
func decodeCount(raw json.RawMessage) int {
	var count int
	if err := json.Unmarshal(raw, &count); err == nil {
		return count
	}
	var wrapped struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil {
		return wrapped.Count
	}
	return 0
}
