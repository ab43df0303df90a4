package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"postpilot/internal/services"
)

// ErrNotFound is returned by Get when a key does not exist.
var ErrNotFound = fmt.Errorf("%w: key does not exist", services.ErrNotFound)

// Entry is one key/value pair returned by List.
type Entry struct {
	Key   string
	Value json.RawMessage
}

// UpdateFunc receives the current value (nil when absent) and returns the
// value to write. Returning a nil value leaves the key untouched; returning
// an error aborts the update and is passed back to the caller unchanged.
type UpdateFunc func(current json.RawMessage, exists bool) (json.RawMessage, error)

// Storage is the injected key/value persistence layer.
type Storage interface {
	Get(ctx context.Context, key string) (json.RawMessage, error)
	Set(ctx context.Context, key string, value json.RawMessage) error
	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// List returns every entry whose key starts with prefix, ordered by key.
	List(ctx context.Context, prefix string) ([]Entry, error)
	// Update runs fn and writes its result atomically with respect to other
	// Update calls on the same key.
	Update(ctx context.Context, key string, fn UpdateFunc) error
	Close() error
	// Describe names the backend and location for status output.
	Describe() string
}

// ValidateKey rejects keys that cannot round-trip through every backend.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("store: empty key")
	}
	if strings.ContainsAny(key, "\x00\n") {
		return fmt.Errorf("store: invalid key %q", key)
	}
	return nil
}

func getJSON(ctx context.Context, s Storage, key string, target any) error {
	raw, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("%w: decode %s: %v", services.ErrPersistence, key, err)
	}
	return nil
}

func setJSON(ctx context.Context, s Storage, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("%w: write %s: %w", services.ErrPersistence, key, err)
	}
	return nil
}

// listJSON decodes every entry under prefix. Entries that fail to decode are
// reported through skip and left out of the result.
func listJSON[T any](ctx context.Context, s Storage, prefix string, skip func(key string, err error)) ([]T, error) {
	entries, err := s.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %w", services.ErrPersistence, prefix, err)
	}
	out := make([]T, 0, len(entries))
	for _, entry := range entries {
		var value T
		if err := json.Unmarshal(entry.Value, &value); err != nil {
			if skip != nil {
				skip(entry.Key, err)
			}
			continue
		}
		out = append(out, value)
	}
	return out, nil
}

// Pinger is implemented by backends that can check connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ping checks storage connectivity when the backend supports it.
func Ping(ctx context.Context, s Storage) error {
	if pinger, ok := s.(Pinger); ok {
		return pinger.Ping(ctx)
	}
	return nil
}
