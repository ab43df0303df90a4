// Package storetest holds the behavioral checks every store.Storage backend
// must pass.
package storetest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"

	"postpilot/internal/store"
)

// Run exercises backend against the Storage contract. newStorage must return
// an empty store; keys are namespaced per subtest.
func Run(t *testing.T, newStorage func(t *testing.T) store.Storage) {
	t.Helper()

	t.Run("GetMissing", func(t *testing.T) {
		s := newStorage(t)
		if _, err := s.Get(context.Background(), "missing/key"); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("SetGetDelete", func(t *testing.T) {
		s := newStorage(t)
		ctx := context.Background()
		if err := s.Set(ctx, "schedule/a", json.RawMessage(`{"id":"a"}`)); err != nil {
			t.Fatalf("Set: %v", err)
		}
		got, err := s.Get(ctx, "schedule/a")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		var decoded map[string]string
		if err := json.Unmarshal(got, &decoded); err != nil || decoded["id"] != "a" {
			t.Fatalf("unexpected value %s (%v)", got, err)
		}
		if err := s.Delete(ctx, "schedule/a"); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if err := s.Delete(ctx, "schedule/a"); err != nil {
			t.Fatalf("Delete of missing key: %v", err)
		}
		if _, err := s.Get(ctx, "schedule/a"); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("expected ErrNotFound after delete, got %v", err)
		}
	})

	t.Run("ListPrefixOrdered", func(t *testing.T) {
		s := newStorage(t)
		ctx := context.Background()
		for _, key := range []string{"counter/b/2026-01-02", "counter/a/2026-01-01", "record/x", "counter/a/2026-01-02"} {
			if err := s.Set(ctx, key, json.RawMessage(`1`)); err != nil {
				t.Fatalf("Set %s: %v", key, err)
			}
		}
		entries, err := s.List(ctx, "counter/")
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		want := []string{"counter/a/2026-01-01", "counter/a/2026-01-02", "counter/b/2026-01-02"}
		if len(entries) != len(want) {
			t.Fatalf("expected %d entries, got %d", len(want), len(entries))
		}
		for i, entry := range entries {
			if entry.Key != want[i] {
				t.Fatalf("entry %d = %s, want %s", i, entry.Key, want[i])
			}
		}
	})

	t.Run("UpdateAbortLeavesValue", func(t *testing.T) {
		s := newStorage(t)
		ctx := context.Background()
		if err := s.Set(ctx, "counter/p/d", json.RawMessage(`3`)); err != nil {
			t.Fatalf("Set: %v", err)
		}
		abort := errors.New("abort")
		err := s.Update(ctx, "counter/p/d", func(current json.RawMessage, exists bool) (json.RawMessage, error) {
			if !exists || string(current) != "3" {
				return nil, fmt.Errorf("unexpected current %q exists=%v", current, exists)
			}
			return nil, abort
		})
		if !errors.Is(err, abort) {
			t.Fatalf("expected abort error, got %v", err)
		}
		got, _ := s.Get(ctx, "counter/p/d")
		if string(got) != "3" {
			t.Fatalf("value changed to %s", got)
		}
	})

	t.Run("ConcurrentUpdatesAreAtomic", func(t *testing.T) {
		s := newStorage(t)
		ctx := context.Background()
		const workers = 8
		var wg sync.WaitGroup
		errs := make(chan error, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- s.Update(ctx, "counter/c/d", func(current json.RawMessage, exists bool) (json.RawMessage, error) {
					n := 0
					if exists {
						parsed, err := strconv.Atoi(string(current))
						if err != nil {
							return nil, err
						}
						n = parsed
					}
					return json.RawMessage(strconv.Itoa(n + 1)), nil
				})
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			if err != nil {
				t.Fatalf("Update: %v", err)
			}
		}
		got, err := s.Get(ctx, "counter/c/d")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if string(got) != strconv.Itoa(workers) {
			t.Fatalf("expected %d, got %s", workers, got)
		}
	})
}
