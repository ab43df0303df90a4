package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.loadEnvFile(); err != nil {
		return err
	}
	c.normalizeLogging()
	if err := c.normalizeStorage(); err != nil {
		return err
	}
	c.normalizeDispatch()
	c.normalizeCoordination()
	c.normalizeOptimizer()
	c.normalizeNotifications()
	if err := c.normalizeSources(); err != nil {
		return err
	}
	c.normalizePlatforms()
	c.normalizeCredentials()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.EnvFile, err = expandPath(strings.TrimSpace(c.Paths.EnvFile)); err != nil {
		return fmt.Errorf("paths.env_file: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		c.Paths.APIToken = lookupEnv("POSTPILOT_API_TOKEN")
	}
	return nil
}

// loadEnvFile imports KEY=VALUE pairs from the configured .env file. Variables
// already present in the environment win.
func (c *Config) loadEnvFile() error {
	if c.Paths.EnvFile == "" {
		return nil
	}
	if _, err := os.Stat(c.Paths.EnvFile); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("paths.env_file: %w", err)
	}
	if err := godotenv.Load(c.Paths.EnvFile); err != nil {
		return fmt.Errorf("paths.env_file: load %s: %w", c.Paths.EnvFile, err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format != "json" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

func (c *Config) normalizeStorage() error {
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if c.Storage.Backend == "" {
		c.Storage.Backend = defaultStorageBackend
	}
	var err error
	if strings.TrimSpace(c.Storage.SQLitePath) == "" {
		c.Storage.SQLitePath = filepath.Join(c.Paths.StateDir, "postpilot.db")
	}
	if c.Storage.SQLitePath, err = expandPath(c.Storage.SQLitePath); err != nil {
		return fmt.Errorf("storage.sqlite_path: %w", err)
	}
	c.Storage.RedisURL = strings.TrimSpace(c.Storage.RedisURL)
	if c.Storage.RedisURL == "" {
		c.Storage.RedisURL = lookupEnv("POSTPILOT_REDIS_URL")
	}
	c.Storage.PostgresDSN = strings.TrimSpace(c.Storage.PostgresDSN)
	if c.Storage.PostgresDSN == "" {
		c.Storage.PostgresDSN = lookupEnv("POSTPILOT_POSTGRES_DSN")
	}
	c.Storage.KeyPrefix = strings.TrimSpace(c.Storage.KeyPrefix)
	return nil
}

func (c *Config) normalizeDispatch() {
	if c.Dispatch.TickIntervalSeconds <= 0 {
		c.Dispatch.TickIntervalSeconds = defaultTickIntervalSeconds
	}
	if c.Dispatch.ToleranceMinutes < 0 {
		c.Dispatch.ToleranceMinutes = defaultToleranceMinutes
	}
	if c.Dispatch.RetryBackoffSeconds < 0 {
		c.Dispatch.RetryBackoffSeconds = 0
	}
	c.Dispatch.Timezone = strings.TrimSpace(c.Dispatch.Timezone)
}

func (c *Config) normalizeCoordination() {
	c.Coordination.RedisURL = strings.TrimSpace(c.Coordination.RedisURL)
	c.Coordination.LockKey = strings.TrimSpace(c.Coordination.LockKey)
	if c.Coordination.LockKey == "" {
		c.Coordination.LockKey = defaultLockKey
	}
	if c.Coordination.LockTTLSeconds <= 0 {
		c.Coordination.LockTTLSeconds = defaultLockTTLSeconds
	}
}

func (c *Config) normalizeOptimizer() {
	c.Optimizer.Provider = strings.ToLower(strings.TrimSpace(c.Optimizer.Provider))
	if c.Optimizer.Provider == "" {
		c.Optimizer.Provider = defaultOptimizerProvider
	}
	c.Optimizer.APIKey = strings.TrimSpace(c.Optimizer.APIKey)
	c.Optimizer.Model = strings.TrimSpace(c.Optimizer.Model)
	c.Optimizer.BaseURL = strings.TrimSpace(c.Optimizer.BaseURL)

	var envKey, model string
	switch c.Optimizer.Provider {
	case ProviderGemini:
		envKey, model = "GEMINI_API_KEY", defaultGeminiModel
	case ProviderGroq:
		envKey, model = "GROQ_API_KEY", defaultGroqModel
		if c.Optimizer.BaseURL == "" {
			c.Optimizer.BaseURL = defaultGroqBaseURL
		}
	case ProviderOpenAI:
		envKey, model = "OPENAI_API_KEY", defaultOpenAIModel
	case ProviderOpenRouter:
		envKey, model = "OPENROUTER_API_KEY", defaultOpenRouterModel
	}
	if c.Optimizer.APIKey == "" && envKey != "" {
		c.Optimizer.APIKey = lookupEnv(envKey)
	}
	if c.Optimizer.Model == "" {
		c.Optimizer.Model = model
	}
	if c.Optimizer.TimeoutSeconds <= 0 {
		c.Optimizer.TimeoutSeconds = defaultOptimizerTimeout
	}
	if strings.TrimSpace(c.Optimizer.Referer) == "" {
		c.Optimizer.Referer = defaultOptimizerReferer
	}
	if strings.TrimSpace(c.Optimizer.Title) == "" {
		c.Optimizer.Title = defaultOptimizerTitle
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		c.Notifications.NtfyTopic = lookupEnv("POSTPILOT_NTFY_TOPIC")
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeSources() error {
	feeds := make([]string, 0, len(c.Sources.RSSFeeds))
	seen := make(map[string]struct{}, len(c.Sources.RSSFeeds))
	for _, feed := range c.Sources.RSSFeeds {
		feed = strings.TrimSpace(feed)
		if feed == "" {
			continue
		}
		if _, ok := seen[feed]; ok {
			continue
		}
		seen[feed] = struct{}{}
		feeds = append(feeds, feed)
	}
	c.Sources.RSSFeeds = feeds
	c.Sources.DevtoUsername = strings.TrimSpace(c.Sources.DevtoUsername)
	c.Sources.HashnodeHost = strings.TrimSpace(c.Sources.HashnodeHost)
	if strings.TrimSpace(c.Sources.VideoCSV) != "" {
		var err error
		if c.Sources.VideoCSV, err = expandPath(strings.TrimSpace(c.Sources.VideoCSV)); err != nil {
			return fmt.Errorf("sources.video_csv: %w", err)
		}
	}
	if c.Sources.RequestTimeout <= 0 {
		c.Sources.RequestTimeout = defaultSourcesTimeout
	}
	if c.Sources.MaxItems <= 0 {
		c.Sources.MaxItems = defaultSourcesMaxItems
	}
	return nil
}

func (c *Config) normalizePlatforms() {
	if c.Platforms == nil {
		c.Platforms = map[string]Platform{}
	}
	for id, seed := range c.Platforms {
		if seed.PostsPerDay <= 0 {
			seed.PostsPerDay = defaultPostsPerDay
		}
		if seed.MaxRetries < 0 {
			seed.MaxRetries = 0
		}
		seed.BaseURL = strings.TrimSpace(seed.BaseURL)
		c.Platforms[id] = seed
	}
}

func (c *Config) normalizeCredentials() {
	cred := &c.Credentials
	fill := func(target *string, env string) {
		*target = strings.TrimSpace(*target)
		if *target == "" {
			*target = lookupEnv(env)
		}
	}
	fill(&cred.HashnodeToken, "HASHNODE_TOKEN")
	fill(&cred.HashnodePublicationID, "HASHNODE_PUBLICATION_ID")
	fill(&cred.DevtoAPIKey, "DEVTO_API_KEY")
	fill(&cred.TwitterBearerToken, "TWITTER_BEARER_TOKEN")
	fill(&cred.LinkedInAccessToken, "LINKEDIN_ACCESS_TOKEN")
	fill(&cred.LinkedInAuthorURN, "LINKEDIN_AUTHOR_URN")
	fill(&cred.InstagramAccessToken, "INSTAGRAM_ACCESS_TOKEN")
	fill(&cred.InstagramAccountID, "INSTAGRAM_ACCOUNT_ID")
	fill(&cred.YouTubeAccessToken, "YOUTUBE_ACCESS_TOKEN")
}

func lookupEnv(key string) string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(value)
	}
	return ""
}
