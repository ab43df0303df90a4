package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
	EnvFile  string `toml:"env_file"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Storage selects the backend that persists schedules, platforms, counters,
// records, and content.
type Storage struct {
	Backend     string `toml:"backend"`
	SQLitePath  string `toml:"sqlite_path"`
	RedisURL    string `toml:"redis_url"`
	PostgresDSN string `toml:"postgres_dsn"`
	KeyPrefix   string `toml:"key_prefix"`
}

// Dispatch contains configuration for the publishing loop.
type Dispatch struct {
	TickIntervalSeconds  int    `toml:"tick_interval_seconds"`
	ToleranceMinutes     int    `toml:"tolerance_minutes"`
	CallTimeoutSeconds   int    `toml:"call_timeout_seconds"`
	RetryBackoffSeconds  int    `toml:"retry_backoff_seconds"`
	CounterRetentionDays int    `toml:"counter_retention_days"`
	Timezone             string `toml:"timezone"`
	ParallelPlatforms    bool   `toml:"parallel_platforms"`
}

// Coordination configures the optional cross-instance tick lock.
type Coordination struct {
	RedisURL       string `toml:"redis_url"`
	LockTTLSeconds int    `toml:"lock_ttl_seconds"`
	LockKey        string `toml:"lock_key"`
}

// Optimizer contains the generative AI backend used to rewrite content and
// suggest schedules.
type Optimizer struct {
	Provider       string  `toml:"provider"`
	APIKey         string  `toml:"api_key"`
	Model          string  `toml:"model"`
	BaseURL        string  `toml:"base_url"`
	Referer        string  `toml:"referer"`
	Title          string  `toml:"title"`
	Temperature    float64 `toml:"temperature"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic       string `toml:"ntfy_topic"`
	RequestTimeout  int    `toml:"request_timeout"`
	PublishFailures bool   `toml:"publish_failures"`
	PublishSuccess  bool   `toml:"publish_success"`
	TickErrors      bool   `toml:"tick_errors"`
}

// Sources lists the upstream feeds content is pulled from.
type Sources struct {
	RSSFeeds       []string `toml:"rss_feeds"`
	DevtoUsername  string   `toml:"devto_username"`
	HashnodeHost   string   `toml:"hashnode_host"`
	VideoCSV       string   `toml:"video_csv"`
	RequestTimeout int      `toml:"request_timeout"`
	MaxItems       int      `toml:"max_items"`
}

// Platform seeds a platform registry entry. Enabled is a pointer so an absent
// key keeps the default. CallTimeoutSeconds of zero uses the platform default.
type Platform struct {
	Enabled            *bool             `toml:"enabled"`
	PostsPerDay        int               `toml:"posts_per_day"`
	RetryOnFail        bool              `toml:"retry_on_fail"`
	MaxRetries         int               `toml:"max_retries"`
	CallTimeoutSeconds int               `toml:"call_timeout_seconds"`
	BaseURL            string            `toml:"base_url"`
	Form               map[string]string `toml:"form"`
}

// IsEnabled reports the seeded enabled flag, defaulting to true.
func (p Platform) IsEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}

// Credentials holds per-platform secrets. Values fall back to environment
// variables during normalization.
type Credentials struct {
	HashnodeToken         string `toml:"hashnode_token"`
	HashnodePublicationID string `toml:"hashnode_publication_id"`
	DevtoAPIKey           string `toml:"devto_api_key"`
	TwitterBearerToken    string `toml:"twitter_bearer_token"`
	LinkedInAccessToken   string `toml:"linkedin_access_token"`
	LinkedInAuthorURN     string `toml:"linkedin_author_urn"`
	InstagramAccessToken  string `toml:"instagram_access_token"`
	InstagramAccountID    string `toml:"instagram_account_id"`
	YouTubeAccessToken    string `toml:"youtube_access_token"`
}

// Config encapsulates all configuration values for Postpilot.
//
// Configuration sections by subsystem:
//   - Paths: state/log directories, .env file, and API bind address
//   - Logging: log format, level, and retention
//   - Storage: persistence backend (sqlite, redis, postgres)
//   - Dispatch: tick interval, tolerance window, call timeouts, pruning
//   - Coordination: optional Redis lock around ticks
//   - Optimizer: AI rewriting backend (gemini, groq, openrouter)
//   - Notifications: ntfy push notification settings
//   - Sources: upstream content feeds
//   - Platforms: registry seeds per platform
//   - Credentials: platform API secrets
type Config struct {
	Paths         Paths               `toml:"paths"`
	Logging       Logging             `toml:"logging"`
	Storage       Storage             `toml:"storage"`
	Dispatch      Dispatch            `toml:"dispatch"`
	Coordination  Coordination        `toml:"coordination"`
	Optimizer     Optimizer           `toml:"optimizer"`
	Notifications Notifications       `toml:"notifications"`
	Sources       Sources             `toml:"sources"`
	Platforms     map[string]Platform `toml:"platforms"`
	Credentials   Credentials         `toml:"credentials"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		if err := toml.NewDecoder(file).Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("postpilot.toml")
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.Storage.Backend == BackendSQLite {
		if err := os.MkdirAll(filepath.Dir(c.Storage.SQLitePath), 0o755); err != nil {
			return fmt.Errorf("create storage directory: %w", err)
		}
	}
	return nil
}

// SocketPath is the daemon's IPC socket.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.StateDir, "postpilot.sock")
}

// LockPath is the single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "postpilot.lock")
}

// PIDPath is where the running daemon records its process id.
func (c *Config) PIDPath() string {
	return filepath.Join(c.Paths.StateDir, "postpilot.pid")
}

// TickInterval returns the dispatch timer period.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Dispatch.TickIntervalSeconds) * time.Second
}

// Tolerance returns the due-window half width.
func (c *Config) Tolerance() time.Duration {
	return time.Duration(c.Dispatch.ToleranceMinutes) * time.Minute
}

// CallTimeout bounds each network call made by the dispatch loop.
func (c *Config) CallTimeout() time.Duration {
	return time.Duration(c.Dispatch.CallTimeoutSeconds) * time.Second
}

// PublishTimeout bounds one publish call for a platform. Upload platforms get
// a longer default because the call streams the media file.
func (c *Config) PublishTimeout(id string) time.Duration {
	if seed, ok := c.Platforms[id]; ok && seed.CallTimeoutSeconds > 0 {
		return time.Duration(seed.CallTimeoutSeconds) * time.Second
	}
	if seconds, ok := defaultUploadTimeouts[id]; ok && seconds > c.Dispatch.CallTimeoutSeconds {
		return time.Duration(seconds) * time.Second
	}
	return c.CallTimeout()
}

// RetryBackoff is the base delay between publish retries.
func (c *Config) RetryBackoff() time.Duration {
	return time.Duration(c.Dispatch.RetryBackoffSeconds) * time.Second
}

// Location resolves the dispatch timezone; empty means the process local zone.
func (c *Config) Location() (*time.Location, error) {
	tz := strings.TrimSpace(c.Dispatch.Timezone)
	if tz == "" || strings.EqualFold(tz, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("dispatch.timezone: %w", err)
	}
	return loc, nil
}

// PlatformSeed returns the configured seed for a platform id, applying defaults.
func (c *Config) PlatformSeed(id string) Platform {
	seed, ok := c.Platforms[id]
	if !ok {
		return Platform{PostsPerDay: defaultPostsPerDay}
	}
	if seed.PostsPerDay <= 0 {
		seed.PostsPerDay = defaultPostsPerDay
	}
	return seed
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
