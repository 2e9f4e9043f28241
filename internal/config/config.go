package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Queue      QueueConfig      `yaml:"queue" mapstructure:"queue"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Scorer     ScorerConfig     `yaml:"scorer" mapstructure:"scorer"`
	Career     CareerConfig     `yaml:"career" mapstructure:"career"`
	QA         QAConfig         `yaml:"qa" mapstructure:"qa"`
	GitHub     TokenConfig      `yaml:"github" mapstructure:"github"`
	YouTube    KeyConfig        `yaml:"youtube" mapstructure:"youtube"`
	Wikidata   EndpointConfig   `yaml:"wikidata" mapstructure:"wikidata"`
	Wikipedia  EndpointConfig   `yaml:"wikipedia" mapstructure:"wikipedia"`
	Podcast    EndpointConfig   `yaml:"podcast" mapstructure:"podcast"`
	OpenAlex   OpenAlexConfig   `yaml:"openalex" mapstructure:"openalex"`
	X          TokenConfig      `yaml:"x" mapstructure:"x"`
	Jina       JinaConfig       `yaml:"jina" mapstructure:"jina"`
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ServerConfig configures the HTTP intake server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// QueueConfig selects and tunes the build queue.
type QueueConfig struct {
	Driver              string `yaml:"driver" mapstructure:"driver"`
	Host                string `yaml:"host" mapstructure:"host"`
	Namespace           string `yaml:"namespace" mapstructure:"namespace"`
	TaskQueue           string `yaml:"task_queue" mapstructure:"task_queue"`
	MaxConcurrentBuilds int    `yaml:"max_concurrent_builds" mapstructure:"max_concurrent_builds"`
	MaxAttempts         int    `yaml:"max_attempts" mapstructure:"max_attempts"`
}

// PipelineConfig configures the build orchestrator and router.
type PipelineConfig struct {
	ConfidenceThreshold  float64 `yaml:"confidence_threshold" mapstructure:"confidence_threshold"`
	FallbackConfidence   int     `yaml:"fallback_confidence" mapstructure:"fallback_confidence"`
	MaxConcurrentSources int     `yaml:"max_concurrent_sources" mapstructure:"max_concurrent_sources"`
	SourceTimeoutSecs    int     `yaml:"source_timeout_secs" mapstructure:"source_timeout_secs"`
	MaxResults           int     `yaml:"max_results" mapstructure:"max_results"`
	RefreshIntervalHours int     `yaml:"refresh_interval_hours" mapstructure:"refresh_interval_hours"`
	RetryAttempts        int     `yaml:"retry_attempts" mapstructure:"retry_attempts"`
	RetryBackoffMs       int     `yaml:"retry_backoff_ms" mapstructure:"retry_backoff_ms"`
	BreakerThreshold     int     `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerResetSecs     int     `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
}

// ScorerConfig configures the completeness scorer.
type ScorerConfig struct {
	FreshnessDecayPerWeek float64 `yaml:"freshness_decay_per_week" mapstructure:"freshness_decay_per_week"`
}

// CareerConfig configures the career graph builder.
type CareerConfig struct {
	Locale string `yaml:"locale" mapstructure:"locale"`
	Model  string `yaml:"model" mapstructure:"model"`
}

// QAConfig configures the identity verifier.
type QAConfig struct {
	LexiconPath string `yaml:"lexicon_path" mapstructure:"lexicon_path"`
}

// EndpointConfig overrides the base URL of a keyless public API.
type EndpointConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// TokenConfig holds a bearer token and an optional base URL override.
type TokenConfig struct {
	Token   string `yaml:"token" mapstructure:"token"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// KeyConfig holds an API key and an optional base URL override.
type KeyConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// OpenAlexConfig holds OpenAlex polite-pool settings.
type OpenAlexConfig struct {
	Mailto  string `yaml:"mailto" mapstructure:"mailto"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// JinaConfig holds Jina search settings.
type JinaConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	SearchBaseURL string `yaml:"search_base_url" mapstructure:"search_base_url"`
}

// PerplexityConfig holds Perplexity API settings.
type PerplexityConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key        string `yaml:"key" mapstructure:"key"`
	HaikuModel string `yaml:"haiku_model" mapstructure:"haiku_model"`
}

// Load reads .env, then the optional config.yaml, then PROFILE_* environment
// variables. Later sources win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PROFILE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	return &cfg, nil
}

// setDefaults registers every key so AutomaticEnv can resolve it during
// Unmarshal, including keys without a meaningful default.
func setDefaults(v *viper.Viper) {
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("queue.driver", "local")
	v.SetDefault("queue.host", "localhost:7233")
	v.SetDefault("queue.namespace", "default")
	v.SetDefault("queue.task_queue", "profile-builds")
	v.SetDefault("queue.max_concurrent_builds", 5)
	v.SetDefault("queue.max_attempts", 3)
	v.SetDefault("pipeline.confidence_threshold", 0.6)
	v.SetDefault("pipeline.fallback_confidence", 40)
	v.SetDefault("pipeline.max_concurrent_sources", 4)
	v.SetDefault("pipeline.source_timeout_secs", 60)
	v.SetDefault("pipeline.max_results", 20)
	v.SetDefault("pipeline.refresh_interval_hours", 168)
	v.SetDefault("pipeline.retry_attempts", 3)
	v.SetDefault("pipeline.retry_backoff_ms", 500)
	v.SetDefault("pipeline.breaker_threshold", 5)
	v.SetDefault("pipeline.breaker_reset_secs", 30)
	v.SetDefault("scorer.freshness_decay_per_week", 2.5)
	v.SetDefault("career.locale", "")
	v.SetDefault("career.model", "")
	v.SetDefault("qa.lexicon_path", "")
	v.SetDefault("github.token", "")
	v.SetDefault("github.base_url", "")
	v.SetDefault("youtube.key", "")
	v.SetDefault("youtube.base_url", "")
	v.SetDefault("wikidata.base_url", "")
	v.SetDefault("wikipedia.base_url", "")
	v.SetDefault("podcast.base_url", "")
	v.SetDefault("openalex.mailto", "")
	v.SetDefault("openalex.base_url", "")
	v.SetDefault("x.token", "")
	v.SetDefault("x.base_url", "")
	v.SetDefault("jina.key", "")
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("jina.search_base_url", "https://s.jina.ai")
	v.SetDefault("perplexity.key", "")
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar-pro")
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.haiku_model", "claude-haiku-4-5-20251001")
}

// Validate checks the settings a command mode needs. Modes: build, serve,
// worker, refresh, score, migrate, dlq.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch c.Store.Driver {
	case "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required for postgres")
		}
	case "sqlite":
	default:
		errs = append(errs, "store.driver must be postgres or sqlite")
	}
	switch c.Queue.Driver {
	case "local", "temporal":
	default:
		errs = append(errs, "queue.driver must be local or temporal")
	}
	if c.Pipeline.ConfidenceThreshold < 0 || c.Pipeline.ConfidenceThreshold > 1 {
		errs = append(errs, "pipeline.confidence_threshold must be between 0 and 1")
	}
	if c.Pipeline.MaxConcurrentSources < 1 || c.Pipeline.MaxConcurrentSources > 20 {
		errs = append(errs, "pipeline.max_concurrent_sources must be between 1 and 20")
	}
	if c.Queue.MaxConcurrentBuilds < 1 || c.Queue.MaxConcurrentBuilds > 50 {
		errs = append(errs, "queue.max_concurrent_builds must be between 1 and 50")
	}
	if c.Queue.MaxAttempts < 1 {
		errs = append(errs, "queue.max_attempts must be >= 1")
	}
	if c.Scorer.FreshnessDecayPerWeek < 0 {
		errs = append(errs, "scorer.freshness_decay_per_week must be >= 0")
	}

	switch mode {
	case "build", "refresh", "score", "migrate", "dlq":
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	case "worker":
		if c.Queue.Driver != "temporal" {
			errs = append(errs, "queue.driver must be temporal to run a worker")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown mode %q", mode))
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
