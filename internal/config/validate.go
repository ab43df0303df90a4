package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/robfig/cron/v3"
)

var knownPlatformKeys = map[string]struct{}{
	"hashnode":  {},
	"devTo":     {},
	"twitter":   {},
	"linkedin":  {},
	"instagram": {},
	"youtube":   {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateDispatch(); err != nil {
		return err
	}
	if err := c.validateOptimizer(); err != nil {
		return err
	}
	if err := c.validatePlatforms(); err != nil {
		return err
	}
	if err := ensurePositiveMap(map[string]int{
		"notifications.request_timeout": c.Notifications.RequestTimeout,
		"sources.request_timeout":       c.Sources.RequestTimeout,
		"coordination.lock_ttl_seconds": c.Coordination.LockTTLSeconds,
	}); err != nil {
		return err
	}
	if c.Paths.APIBind != "" && c.Paths.APIToken == "" && !strings.HasPrefix(c.Paths.APIBind, "127.0.0.1:") && !strings.HasPrefix(c.Paths.APIBind, "localhost:") {
		return errors.New("paths.api_token must be set when paths.api_bind listens beyond localhost")
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Backend {
	case BackendSQLite:
		if c.Storage.SQLitePath == "" {
			return errors.New("storage.sqlite_path must be set when storage.backend is sqlite")
		}
	case BackendRedis:
		if c.Storage.RedisURL == "" {
			return errors.New("storage.redis_url must be set when storage.backend is redis (or set POSTPILOT_REDIS_URL)")
		}
	case BackendPostgres:
		if c.Storage.PostgresDSN == "" {
			return errors.New("storage.postgres_dsn must be set when storage.backend is postgres (or set POSTPILOT_POSTGRES_DSN)")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("storage.backend: unsupported value %q", c.Storage.Backend)
	}
	return nil
}

func (c *Config) validateDispatch() error {
	if err := ensurePositiveMap(map[string]int{
		"dispatch.tick_interval_seconds":  c.Dispatch.TickIntervalSeconds,
		"dispatch.call_timeout_seconds":   c.Dispatch.CallTimeoutSeconds,
		"dispatch.counter_retention_days": c.Dispatch.CounterRetentionDays,
	}); err != nil {
		return err
	}
	if c.Dispatch.ToleranceMinutes > 60 {
		return errors.New("dispatch.tolerance_minutes must be at most 60")
	}
	// The timer is a cron "@every" entry; reject intervals cron cannot express.
	if _, err := cron.ParseStandard(fmt.Sprintf("@every %ds", c.Dispatch.TickIntervalSeconds)); err != nil {
		return fmt.Errorf("dispatch.tick_interval_seconds: %w", err)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateOptimizer() error {
	switch c.Optimizer.Provider {
	case ProviderNone:
		return nil
	case ProviderGemini, ProviderGroq, ProviderOpenAI, ProviderOpenRouter:
	default:
		return fmt.Errorf("optimizer.provider: unsupported value %q", c.Optimizer.Provider)
	}
	if c.Optimizer.APIKey == "" {
		return fmt.Errorf("optimizer.api_key must be set when optimizer.provider is %s", c.Optimizer.Provider)
	}
	if c.Optimizer.Temperature < 0 || c.Optimizer.Temperature > 2 {
		return errors.New("optimizer.temperature must be between 0 and 2")
	}
	return nil
}

func (c *Config) validatePlatforms() error {
	ids := make([]string, 0, len(c.Platforms))
	for id := range c.Platforms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if _, ok := knownPlatformKeys[id]; !ok {
			return fmt.Errorf("platforms.%s: unknown platform", id)
		}
		if c.Platforms[id].MaxRetries > maxRetriesCeiling {
			return fmt.Errorf("platforms.%s.max_retries must be at most %d", id, maxRetriesCeiling)
		}
		if c.Platforms[id].CallTimeoutSeconds < 0 {
			return fmt.Errorf("platforms.%s.call_timeout_seconds must not be negative", id)
		}
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
