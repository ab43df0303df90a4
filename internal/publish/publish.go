// Package publish holds the thin per-platform adapters that push a content
// item to its destination.
//
// Adapters never return Go errors to the dispatch loop. Every outcome, including
// transport failures, is reported as a Result so the loop can record it without
// special-casing platforms. Base URLs are overridable so tests can point each
// adapter at an httptest server.
package publish

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"postpilot/internal/content"
	"postpilot/internal/platform"
)

// FormData carries per-platform publish options from the [platforms.<id>.form]
// config table, for example privacy_status or canonical_url.
type FormData map[string]string

// Get returns a trimmed value or def.
func (f FormData) Get(key, def string) string {
	if f == nil {
		return def
	}
	if value := strings.TrimSpace(f[key]); value != "" {
		return value
	}
	return def
}

// Result is the outcome of one publish attempt.
type Result struct {
	Success bool   `json:"success"`
	URL     string `json:"url,omitempty"`
	Error   string `json:"error,omitempty"`
}

func succeeded(url string) Result {
	return Result{Success: true, URL: url}
}

func failed(format string, args ...any) Result {
	return Result{Error: fmt.Sprintf(format, args...)}
}

func failedErr(err error) Result {
	if err == nil {
		return Result{Error: "unknown error"}
	}
	return Result{Error: err.Error()}
}

// Adapter publishes one item to one platform.
type Adapter interface {
	Publish(ctx context.Context, item content.Item, form FormData) Result
}

// AdapterFunc adapts a function to Adapter.
type AdapterFunc func(ctx context.Context, item content.Item, form FormData) Result

func (f AdapterFunc) Publish(ctx context.Context, item content.Item, form FormData) Result {
	return f(ctx, item, form)
}

// Publisher is the call contract the dispatch loop depends on.
type Publisher interface {
	Publish(ctx context.Context, id platform.ID, item content.Item, form FormData) Result
}

// Set maps platform identifiers to adapters.
type Set struct {
	adapters map[platform.ID]Adapter
}

// NewSet returns an empty adapter set.
func NewSet() *Set {
	return &Set{adapters: make(map[platform.ID]Adapter)}
}

// Register installs adapter for id, replacing any previous one.
func (s *Set) Register(id platform.ID, adapter Adapter) {
	s.adapters[id] = adapter
}

// Lookup returns the adapter for id.
func (s *Set) Lookup(id platform.ID) (Adapter, bool) {
	adapter, ok := s.adapters[id]
	return adapter, ok && adapter != nil
}

// Platforms lists the registered platform identifiers.
func (s *Set) Platforms() []platform.ID {
	ids := make([]platform.ID, 0, len(s.adapters))
	for id := range s.adapters {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Publish dispatches to the adapter for id.
func (s *Set) Publish(ctx context.Context, id platform.ID, item content.Item, form FormData) Result {
	adapter, ok := s.Lookup(id)
	if !ok {
		return Result{Error: "no adapter"}
	}
	if err := ctx.Err(); err != nil {
		return failedErr(err)
	}
	return adapter.Publish(ctx, item, form)
}
