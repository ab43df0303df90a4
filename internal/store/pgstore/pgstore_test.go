package pgstore_test

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"postpilot/internal/store"
	"postpilot/internal/store/pgstore"
	"postpilot/internal/store/storetest"
)

var tableSeq atomic.Int64

func TestPostgresStorageContract(t *testing.T) {
	dsn := os.Getenv("POSTPILOT_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("POSTPILOT_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)
	if err := pool.Ping(ctx); err != nil {
		t.Skipf("postgres unavailable: %v", err)
	}

	storetest.Run(t, func(t *testing.T) store.Storage {
		table := fmt.Sprintf("postpilot_test_%d_%d", time.Now().UnixNano(), tableSeq.Add(1))
		s, err := pgstore.New(ctx, pool, table)
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		t.Cleanup(func() { _, _ = pool.Exec(context.Background(), "DROP TABLE IF EXISTS "+table) })
		return s
	})
}

func TestNewRejectsUnsafeTableName(t *testing.T) {
	if _, err := pgstore.New(context.Background(), nil, "kv; DROP TABLE users"); err == nil {
		t.Fatal("expected invalid table name error")
	}
}

func TestOpenRejectsBadDSN(t *testing.T) {
	if _, err := pgstore.Open(context.Background(), "postgres://%zz", ""); err == nil {
		t.Fatal("expected parse error")
	}
}
