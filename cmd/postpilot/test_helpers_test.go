package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"postpilot/internal/config"
	"postpilot/internal/daemon"
	"postpilot/internal/daemonrun"
	"postpilot/internal/ipc"
	"postpilot/internal/logging"
	"postpilot/internal/notifications"
	"postpilot/internal/testsupport"
)

var credentialEnvKeys = []string{
	"HASHNODE_TOKEN", "HASHNODE_PUBLICATION_ID", "DEVTO_API_KEY", "TWITTER_BEARER_TOKEN",
	"LINKEDIN_ACCESS_TOKEN", "LINKEDIN_AUTHOR_URN", "INSTAGRAM_ACCESS_TOKEN",
	"INSTAGRAM_ACCOUNT_ID", "YOUTUBE_ACCESS_TOKEN", "POSTPILOT_API_TOKEN",
}

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

// setupCLITestEnv writes a SQLite-backed config under a throwaway HOME. Only
// Dev.to has credentials.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, testsupport.WithSQLite())
	base := testsupport.BaseDir(cfg)
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	for _, key := range credentialEnvKeys {
		t.Setenv(key, "")
	}
	cfg.Credentials.DevtoAPIKey = "devto-key"

	configPath := filepath.Join(homeDir, ".config", "postpilot", "config.toml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base}
}

// startTestDaemon serves the daemon over IPC at the config's socket without
// starting the dispatch timer.
func startTestDaemon(t *testing.T, env *cliTestEnv) *daemon.Daemon {
	t.Helper()

	repos := testsupport.MustOpenRepos(t, env.cfg)
	logger := logging.NewNop()
	ctx, cancel := context.WithCancel(context.Background())

	dispatcher, closeFn, err := daemonrun.BuildDispatcher(ctx, env.cfg, repos, notifications.NewService(env.cfg), logger)
	if err != nil {
		cancel()
		t.Fatalf("BuildDispatcher: %v", err)
	}
	d, err := daemon.New(env.cfg, repos, dispatcher, nil, logger, "")
	if err != nil {
		cancel()
		t.Fatalf("daemon.New: %v", err)
	}
	srv, err := ipc.NewServer(ctx, env.cfg.SocketPath(), d, logger)
	if err != nil {
		cancel()
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()

	t.Cleanup(func() {
		cancel()
		srv.Close()
		d.Stop()
		closeFn()
	})
	return d
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func mustRunCLI(t *testing.T, env *cliTestEnv, args ...string) string {
	t.Helper()
	out, stderr, err := runCLI(t, args, env.configPath)
	if err != nil {
		t.Fatalf("postpilot %s: %v (stderr: %s)", strings.Join(args, " "), err, stderr)
	}
	return out
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
state_dir = %q
log_dir = %q

[storage]
backend = %q
sqlite_path = %q

[dispatch]
timezone = %q

[credentials]
devto_api_key = %q
`,
		cfg.Paths.StateDir,
		cfg.Paths.LogDir,
		cfg.Storage.Backend,
		cfg.Storage.SQLitePath,
		cfg.Dispatch.Timezone,
		cfg.Credentials.DevtoAPIKey,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

// addedID extracts the id from "<verb> ... <id> (...)" confirmation lines.
func addedID(t *testing.T, output, prefix string) string {
	t.Helper()
	for _, line := range strings.Split(output, "\n") {
		if !strings.HasPrefix(line, prefix) {
			continue
		}
		fields := strings.Fields(strings.TrimPrefix(line, prefix))
		if len(fields) > 0 {
			return fields[0]
		}
	}
	t.Fatalf("no %q line in %q", prefix, output)
	return ""
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func requireNotContains(t *testing.T, output, substr string) {
	t.Helper()
	if strings.Contains(output, substr) {
		t.Fatalf("expected %q not to contain %q", output, substr)
	}
}
