package testsupport

import (
	"path/filepath"
	"testing"

	"postpilot/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Storage defaults to the in-memory backend and no .env file is read.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.EnvFile = ""
	cfgVal.Storage.Backend = config.BackendMemory
	cfgVal.Storage.SQLitePath = filepath.Join(base, "state", "postpilot.db")
	cfgVal.Dispatch.Timezone = "UTC"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithSQLite switches the test config to the on-disk SQLite backend.
func WithSQLite() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Storage.Backend = config.BackendSQLite
	}
}

// WithAPI binds the HTTP API to an ephemeral loopback port.
func WithAPI(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.APIBind = "127.0.0.1:0"
		b.cfg.Paths.APIToken = token
	}
}

// WithPlatform seeds a platform entry.
func WithPlatform(id string, postsPerDay int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Platforms[id] = config.Platform{PostsPerDay: postsPerDay}
	}
}

// WithCredentials edits the credential block.
func WithCredentials(edit func(*config.Credentials)) ConfigOption {
	return func(b *configBuilder) {
		edit(&b.cfg.Credentials)
	}
}

// WithNtfyTopic points notifications at topic, typically an httptest URL.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
