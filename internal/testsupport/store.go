package testsupport

import (
	"context"
	"testing"

	"postpilot/internal/config"
	"postpilot/internal/logging"
	"postpilot/internal/store"
	"postpilot/internal/store/backend"
)

// MustOpenRepos opens the configured storage for tests and registers cleanup.
func MustOpenRepos(t testing.TB, cfg *config.Config) *store.Repos {
	t.Helper()

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	repos, err := backend.OpenRepos(context.Background(), cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("backend.OpenRepos: %v", err)
	}
	t.Cleanup(func() {
		repos.Close()
	})
	return repos
}
