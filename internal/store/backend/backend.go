// Package backend opens the store.Storage selected by configuration.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"postpilot/internal/config"
	"postpilot/internal/services"
	"postpilot/internal/store"
	"postpilot/internal/store/pgstore"
	"postpilot/internal/store/redisstore"
	"postpilot/internal/store/sqlitestore"
)

// Open returns the configured storage backend.
func Open(ctx context.Context, cfg *config.Config) (store.Storage, error) {
	switch cfg.Storage.Backend {
	case config.BackendSQLite, "":
		s, err := sqlitestore.Open(ctx, cfg.Storage.SQLitePath)
		if err != nil {
			return nil, services.Wrap(services.ErrPersistence, "store", "open sqlite", "open database", err)
		}
		return s, nil
	case config.BackendRedis:
		s, err := redisstore.Open(ctx, cfg.Storage.RedisURL, cfg.Storage.KeyPrefix)
		if err != nil {
			return nil, services.Wrap(services.ErrPersistence, "store", "open redis", "connect", err)
		}
		return s, nil
	case config.BackendPostgres:
		s, err := pgstore.Open(ctx, cfg.Storage.PostgresDSN, "")
		if err != nil {
			return nil, services.Wrap(services.ErrPersistence, "store", "open postgres", "connect", err)
		}
		return s, nil
	case config.BackendMemory:
		return store.NewMemory(), nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "store", "open", fmt.Sprintf("unsupported storage backend %q", cfg.Storage.Backend), nil)
	}
}

// OpenRepos opens storage and wraps it in typed repositories.
func OpenRepos(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*store.Repos, error) {
	storage, err := Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return store.New(storage, logger), nil
}
