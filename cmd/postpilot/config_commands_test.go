package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out := mustRunCLI(t, env, "config", "validate")
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, "Storage: sqlite")
	requireContains(t, out, "Warning: Twitter/X is missing TWITTER_BEARER_TOKEN")
	requireNotContains(t, out, "Warning: Dev.to")

	target := filepath.Join(t.TempDir(), "config.toml")
	out = mustRunCLI(t, env, "config", "init", "--path", target)
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, env.configPath); err == nil {
		t.Fatal("expected init to refuse overwriting without --overwrite")
	}
	mustRunCLI(t, env, "config", "init", "--path", target, "--overwrite")
}

func TestConfigLoadFailureSurfaces(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.WriteFile(env.configPath, []byte("[storage]\nbackend = \"mongo\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, _, err := runCLI(t, []string{"schedule", "list"}, env.configPath)
	if err == nil {
		t.Fatal("expected unsupported backend to fail")
	}
	requireContains(t, err.Error(), "mongo")
}
