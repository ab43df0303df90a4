package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"postpilot/internal/config"
	"postpilot/internal/coordination"
	"postpilot/internal/optimizer"
	"postpilot/internal/platform"
	"postpilot/internal/services/llm"
	"postpilot/internal/store"
	"postpilot/internal/store/backend"
)

const checkTimeout = 10 * time.Second

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckStorage opens the configured backend and pings it.
func CheckStorage(ctx context.Context, cfg *config.Config) Result {
	const name = "Storage"

	checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	storage, err := backend.Open(checkCtx, cfg)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", cfg.Storage.Backend, err)}
	}
	defer storage.Close()
	if err := store.Ping(checkCtx, storage); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", storage.Describe(), err)}
	}
	detail := storage.Describe()
	if cfg.Storage.Backend == config.BackendMemory {
		detail += " (ephemeral; data is lost on restart)"
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckCoordination verifies the shared tick lock when one is configured.
func CheckCoordination(ctx context.Context, cfg config.Coordination) Result {
	const name = "Tick lock"

	if strings.TrimSpace(cfg.RedisURL) == "" {
		return Result{Name: name, Skipped: true, Detail: "single instance (no shared lock)"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	lock, err := coordination.OpenRedisLock(checkCtx, cfg.RedisURL, cfg.LockKey, time.Duration(cfg.LockTTLSeconds)*time.Second)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("redis unavailable (%v)", err)}
	}
	defer lock.Close()
	if err := lock.Ping(checkCtx); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("redis ping failed (%v)", err)}
	}
	return Result{Name: name, Passed: true, Detail: lock.Describe()}
}

// CheckOptimizer verifies the configured AI backend. OpenRouter gets a live
// health call with a single attempt; other providers are checked for a usable
// client configuration only.
func CheckOptimizer(ctx context.Context, cfg config.Optimizer) Result {
	const name = "Optimizer"

	switch cfg.Provider {
	case config.ProviderNone, "":
		return Result{Name: name, Skipped: true, Detail: "disabled (original content is published)"}
	case config.ProviderOpenRouter:
		return checkLLM(ctx, name, cfg)
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return Result{Name: name, Detail: fmt.Sprintf("%s API key missing", cfg.Provider)}
	}
	if _, err := optimizer.NewCompleter(ctx, cfg); err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s) configured", cfg.Provider, cfg.Model)}
}

func checkLLM(ctx context.Context, name string, cfg config.Optimizer) Result {
	if cfg.APIKey == "" {
		return Result{Name: name, Detail: "API key missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client := llm.NewClient(llm.Config{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Referer: cfg.Referer,
		Title:   cfg.Title,
	}, llm.WithRetryMaxAttempts(1))

	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeLLMError(err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("openrouter (%s) reachable", cfg.Model)}
}

// CheckPlatformCredentials reports one line per platform: disabled platforms
// are skipped, enabled ones pass only when every secret is present.
func CheckPlatformCredentials(cfg *config.Config) []Result {
	results := make([]Result, 0, len(platform.All()))
	for _, id := range platform.All() {
		name := id.DisplayName()
		if !cfg.PlatformSeed(string(id)).IsEnabled() {
			results = append(results, Result{Name: name, Skipped: true, Detail: "disabled"})
			continue
		}
		missing := platform.MissingCredentials(id, cfg.Credentials)
		if len(missing) > 0 {
			results = append(results, Result{Name: name, Detail: "missing " + strings.Join(missing, ", ")})
			continue
		}
		results = append(results, Result{Name: name, Passed: true, Detail: "credentials present"})
	}
	return results
}

// summarizeLLMError produces a human-readable summary for LLM health check failures.
func summarizeLLMError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (LLM API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (LLM API unreachable)"
	}
	return err.Error()
}
