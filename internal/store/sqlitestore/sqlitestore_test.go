package sqlitestore_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"postpilot/internal/platform"
	"postpilot/internal/store"
	"postpilot/internal/store/sqlitestore"
	"postpilot/internal/store/storetest"
)

func openTemp(t *testing.T) *sqlitestore.Store {
	t.Helper()
	s, err := sqlitestore.Open(context.Background(), filepath.Join(t.TempDir(), "postpilot.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStorageContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Storage {
		return openTemp(t)
	})
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "postpilot.db")
	ctx := context.Background()

	first, err := sqlitestore.Open(ctx, path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	repos := store.New(first, nil)
	if _, err := repos.Counters.IncrementIfBelow(ctx, platform.DevTo, "2026-03-02", 1); err != nil {
		t.Fatalf("increment: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	second, err := sqlitestore.Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()
	repos = store.New(second, nil)
	if _, err := repos.Counters.IncrementIfBelow(ctx, platform.DevTo, "2026-03-02", 1); !errors.Is(err, store.ErrCapReached) {
		t.Fatalf("expected persisted counter to hit cap, got %v", err)
	}
	if count, err := second.Count(ctx); err != nil || count != 1 {
		t.Fatalf("Count = %d, %v", count, err)
	}
	if err := second.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := sqlitestore.Open(context.Background(), " "); err == nil {
		t.Fatal("expected error for empty path")
	}
}
