package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"postpilot/internal/config"
	"postpilot/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckStorage_Memory(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	result := CheckStorage(context.Background(), cfg)
	if !result.Passed || !strings.Contains(result.Detail, "ephemeral") {
		t.Fatalf("expected memory storage to pass with a warning detail, got %+v", result)
	}
}

func TestCheckStorage_SQLite(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithSQLite())
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	result := CheckStorage(context.Background(), cfg)
	if !result.Passed {
		t.Fatalf("expected sqlite storage to pass, got %+v", result)
	}
}

func TestCheckStorage_UnknownBackend(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Storage.Backend = "mongo"
	if result := CheckStorage(context.Background(), cfg); result.Passed {
		t.Fatal("expected failure for unknown backend")
	}
}

func TestCheckCoordination_SkippedWithoutRedis(t *testing.T) {
	result := CheckCoordination(context.Background(), config.Coordination{})
	if !result.Skipped {
		t.Fatalf("expected skipped result, got %+v", result)
	}
}

func TestCheckOptimizer_Disabled(t *testing.T) {
	result := CheckOptimizer(context.Background(), config.Optimizer{Provider: config.ProviderNone})
	if !result.Skipped {
		t.Fatalf("expected skipped optimizer, got %+v", result)
	}
}

func TestCheckOptimizer_MissingKey(t *testing.T) {
	result := CheckOptimizer(context.Background(), config.Optimizer{Provider: config.ProviderGroq, Model: "llama"})
	if result.Passed || result.Skipped {
		t.Fatalf("expected failure for missing key, got %+v", result)
	}
}

func TestCheckOptimizer_OpenRouterHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"ok\":true}"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	cfg := config.Optimizer{Provider: config.ProviderOpenRouter, APIKey: "good-key", BaseURL: srv.URL, Model: "test-model"}
	if result := CheckOptimizer(context.Background(), cfg); !result.Passed {
		t.Fatalf("expected pass, got %+v", result)
	}

	cfg.APIKey = "bad-key"
	if result := CheckOptimizer(context.Background(), cfg); result.Passed {
		t.Fatal("expected failure for bad key")
	}
}

func TestCheckPlatformCredentials(t *testing.T) {
	disabled := false
	cfg := testsupport.NewConfig(t, testsupport.WithCredentials(func(c *config.Credentials) {
		c.DevtoAPIKey = "devto-key"
	}))
	cfg.Platforms["linkedin"] = config.Platform{Enabled: &disabled}

	byName := map[string]Result{}
	for _, r := range CheckPlatformCredentials(cfg) {
		byName[r.Name] = r
	}
	if len(byName) != 6 {
		t.Fatalf("expected one result per platform, got %d", len(byName))
	}
	if !byName["Dev.to"].Passed {
		t.Fatalf("expected Dev.to to pass, got %+v", byName["Dev.to"])
	}
	if r := byName["Twitter/X"]; r.Passed || !strings.Contains(r.Detail, "TWITTER_BEARER_TOKEN") {
		t.Fatalf("expected missing twitter token, got %+v", r)
	}
	if !byName["LinkedIn"].Skipped {
		t.Fatalf("expected LinkedIn skipped, got %+v", byName["LinkedIn"])
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	report := RunAll(context.Background(), nil)
	if report.System != nil || report.Platforms != nil || len(report.All()) != 0 {
		t.Fatalf("expected empty report for nil config, got %+v", report)
	}
}

func TestRunAll_MinimalConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	report := RunAll(context.Background(), cfg)
	if len(report.System) != 5 || len(report.Platforms) != 6 {
		t.Fatalf("expected 5 system and 6 platform results, got %d and %d", len(report.System), len(report.Platforms))
	}
	if len(report.All()) != 11 || report.All()[5].Name != report.Platforms[0].Name {
		t.Fatalf("expected All to list system checks first, got %+v", report.All())
	}
	for _, r := range report.System[:3] {
		if !r.Passed {
			t.Errorf("check %q failed: %s", r.Name, r.Detail)
		}
	}
}
