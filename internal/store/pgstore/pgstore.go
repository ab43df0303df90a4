// Package pgstore backs store.Storage with PostgreSQL through a pgx pool.
package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"postpilot/internal/store"
)

const defaultTable = "postpilot_kv"

var tableNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Store implements store.Storage over one key/value table.
type Store struct {
	pool  *pgxpool.Pool
	table string
	owned bool
}

// Open connects with dsn, verifies connectivity and creates the table.
func Open(ctx context.Context, dsn, table string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	cfg.MaxConns = 4
	cfg.MaxConnIdleTime = 5 * time.Minute
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s, err := New(ctx, pool, table)
	if err != nil {
		pool.Close()
		return nil, err
	}
	s.owned = true
	return s, nil
}

// New wraps an existing pool and ensures the table exists. Close leaves a
// borrowed pool open.
func New(ctx context.Context, pool *pgxpool.Pool, table string) (*Store, error) {
	if table == "" {
		table = defaultTable
	}
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	s := &Store{pool: pool, table: table}
	if _, err := pool.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, table)); err != nil {
		return nil, fmt.Errorf("create table %s: %w", table, err)
	}
	return s, nil
}

func (s *Store) Describe() string {
	cfg := s.pool.Config().ConnConfig
	return fmt.Sprintf("postgres %s:%d/%s (table %s)", cfg.Host, cfg.Port, cfg.Database, s.table)
}

func (s *Store) Close() error {
	if s.owned {
		s.pool.Close()
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Get(ctx context.Context, key string) (json.RawMessage, error) {
	var value string
	err := s.pool.QueryRow(ctx, fmt.Sprintf(`SELECT value FROM %s WHERE key = $1`, s.table), key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres get %s: %w", key, err)
	}
	return json.RawMessage(value), nil
}

func (s *Store) Set(ctx context.Context, key string, value json.RawMessage) error {
	if err := store.ValidateKey(key); err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, s.upsertSQL(), key, string(value)); err != nil {
		return fmt.Errorf("postgres set %s: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE key = $1`, s.table), key); err != nil {
		return fmt.Errorf("postgres delete %s: %w", key, err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, prefix string) ([]store.Entry, error) {
	rows, err := s.pool.Query(ctx,
		fmt.Sprintf(`SELECT key, value FROM %s WHERE left(key, length($1)) = $1 ORDER BY key COLLATE "C"`, s.table),
		prefix)
	if err != nil {
		return nil, fmt.Errorf("postgres list %s: %w", prefix, err)
	}
	defer rows.Close()

	entries := []store.Entry{}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		entries = append(entries, store.Entry{Key: key, Value: json.RawMessage(value)})
	}
	return entries, rows.Err()
}

// Update serializes writers of one key with a transaction-scoped advisory
// lock, which also covers keys that do not exist yet, then reads the row
// FOR UPDATE.
func (s *Store) Update(ctx context.Context, key string, fn store.UpdateFunc) error {
	if err := store.ValidateKey(key); err != nil {
		return err
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, s.table+":"+key); err != nil {
		return fmt.Errorf("postgres lock %s: %w", key, err)
	}

	var (
		current json.RawMessage
		exists  bool
		value   string
	)
	err = tx.QueryRow(ctx, fmt.Sprintf(`SELECT value FROM %s WHERE key = $1 FOR UPDATE`, s.table), key).Scan(&value)
	switch {
	case err == nil:
		current = json.RawMessage(value)
		exists = true
	case errors.Is(err, pgx.ErrNoRows):
	default:
		return fmt.Errorf("postgres read %s: %w", key, err)
	}

	next, err := fn(current, exists)
	if err != nil {
		return err
	}
	if next == nil {
		return nil
	}
	if _, err := tx.Exec(ctx, s.upsertSQL(), key, string(next)); err != nil {
		return fmt.Errorf("postgres write %s: %w", key, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres commit %s: %w", key, err)
	}
	return nil
}

func (s *Store) upsertSQL() string {
	return fmt.Sprintf(`INSERT INTO %s (key, value, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`, s.table)
}
