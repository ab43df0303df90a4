package config

const (
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"

	ProviderNone       = "none"
	ProviderGemini     = "gemini"
	ProviderGroq       = "groq"
	ProviderOpenAI     = "openai"
	ProviderOpenRouter = "openrouter"
)

const (
	defaultConfigPath           = "~/.config/postpilot/config.toml"
	defaultEnvFile              = "~/.config/postpilot/.env"
	defaultStateDir             = "~/.local/share/postpilot"
	defaultLogDir               = "~/.local/share/postpilot/logs"
	defaultLogRetentionDays     = 30
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultAPIBind              = ""
	defaultStorageBackend       = BackendSQLite
	defaultStorageKeyPrefix     = "postpilot:"
	defaultTickIntervalSeconds  = 300
	defaultToleranceMinutes     = 5
	defaultCallTimeoutSeconds   = 20
	defaultRetryBackoffSeconds  = 5
	defaultCounterRetentionDays = 30
	defaultLockTTLSeconds       = 600
	defaultLockKey              = "postpilot:dispatch:tick"
	defaultOptimizerProvider    = ProviderNone
	defaultOptimizerTimeout     = 30
	defaultOptimizerReferer     = "https://github.com/postpilot/postpilot"
	defaultOptimizerTitle       = "Postpilot Optimizer"
	defaultGeminiModel          = "gemini-2.5-flash"
	defaultGroqModel            = "llama-3.3-70b-versatile"
	defaultGroqBaseURL          = "https://api.groq.com/openai/v1"
	defaultOpenAIModel          = "gpt-4o-mini"
	defaultOpenRouterModel      = "google/gemini-2.5-flash"
	defaultNotifyTimeout        = 10
	defaultSourcesTimeout       = 15
	defaultSourcesMaxItems      = 20
	defaultPostsPerDay          = 1
	maxRetriesCeiling           = 10
)

// defaultUploadTimeouts are per-call publish timeouts in seconds for platforms
// whose adapters upload media.
var defaultUploadTimeouts = map[string]int{
	"instagram": 300,
	"youtube":   900,
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
			EnvFile:  defaultEnvFile,
			APIBind:  defaultAPIBind,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
		Storage: Storage{
			Backend:   defaultStorageBackend,
			KeyPrefix: defaultStorageKeyPrefix,
		},
		Dispatch: Dispatch{
			TickIntervalSeconds:  defaultTickIntervalSeconds,
			ToleranceMinutes:     defaultToleranceMinutes,
			CallTimeoutSeconds:   defaultCallTimeoutSeconds,
			RetryBackoffSeconds:  defaultRetryBackoffSeconds,
			CounterRetentionDays: defaultCounterRetentionDays,
		},
		Coordination: Coordination{
			LockTTLSeconds: defaultLockTTLSeconds,
			LockKey:        defaultLockKey,
		},
		Optimizer: Optimizer{
			Provider:       defaultOptimizerProvider,
			Referer:        defaultOptimizerReferer,
			Title:          defaultOptimizerTitle,
			Temperature:    0.4,
			TimeoutSeconds: defaultOptimizerTimeout,
		},
		Notifications: Notifications{
			RequestTimeout:  defaultNotifyTimeout,
			PublishFailures: true,
			TickErrors:      true,
		},
		Sources: Sources{
			RequestTimeout: defaultSourcesTimeout,
			MaxItems:       defaultSourcesMaxItems,
		},
		Platforms: map[string]Platform{},
	}
}
