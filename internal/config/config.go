// Package config loads and validates pipeline configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/kaykas/booth-beacon-app-sub000/internal/cache"
	"github.com/kaykas/booth-beacon-app-sub000/internal/fetch"
)

// Fetch modes.
const (
	FetchModeService = "service"
	FetchModeLocal   = "local"
)

// Cache providers.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Snapshot providers.
const (
	SnapshotNone   = "none"
	SnapshotMemory = "memory"
	SnapshotLocal  = "local"
	SnapshotGCS    = "gcs"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig                  `mapstructure:"server"`
	Auth      AuthConfig                    `mapstructure:"auth"`
	Logging   LoggingConfig                 `mapstructure:"logging"`
	DB        DBConfig                      `mapstructure:"db"`
	Fetch     FetchConfig                   `mapstructure:"fetch"`
	Crawler   CrawlerConfig                 `mapstructure:"crawler"`
	Domains   map[string]fetch.DomainTuning `mapstructure:"domains"`
	Cache     CacheConfig                   `mapstructure:"cache"`
	Snapshots SnapshotConfig                `mapstructure:"snapshots"`
	PubSub    PubSubConfig                  `mapstructure:"pubsub"`
	LLM       LLMConfig                     `mapstructure:"llm"`
	Sources   []SourceSeed                  `mapstructure:"sources"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// DBConfig controls access to the relational database. An empty DSN runs
// the pipeline on in-memory stores.
type DBConfig struct {
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

// FetchConfig selects and tunes the page-fetch backend.
type FetchConfig struct {
	Mode           string `mapstructure:"mode"`
	Endpoint       string `mapstructure:"endpoint"`
	APIKey         string `mapstructure:"api_key"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	UserAgent      string `mapstructure:"user_agent"`
	PageParam      string `mapstructure:"page_param"`
}

// CrawlerConfig governs the batch loop: budget, retry shape, and default
// per-domain tuning.
type CrawlerConfig struct {
	BudgetSeconds       int `mapstructure:"budget_seconds"`
	SafetyMarginSeconds int `mapstructure:"safety_margin_seconds"`
	PageLimit           int `mapstructure:"page_limit"`
	PerPageTimeoutMs    int `mapstructure:"per_page_timeout_ms"`
	RenderWaitMs        int `mapstructure:"render_wait_ms"`
	MaxAttempts         int `mapstructure:"max_attempts"`
	RetryBaseMs         int `mapstructure:"retry_base_ms"`
	RetryMaxMs          int `mapstructure:"retry_max_ms"`
}

// CacheConfig selects the fingerprint cache backend.
type CacheConfig struct {
	Provider string            `mapstructure:"provider"`
	Redis    cache.RedisConfig `mapstructure:"redis"`
}

// SnapshotConfig selects the raw-page archive backend.
type SnapshotConfig struct {
	Provider string `mapstructure:"provider"`
	BaseDir  string `mapstructure:"base_dir"`
	Bucket   string `mapstructure:"bucket"`
}

// PubSubConfig holds metadata for source-completion notifications. Empty
// ProjectID disables publishing.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// LLMConfig configures the LLM extraction backend. Empty Endpoint disables
// the llm extractor type.
type LLMConfig struct {
	Endpoint       string `mapstructure:"endpoint"`
	APIKey         string `mapstructure:"api_key"`
	Model          string `mapstructure:"model"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// SourceSeed is one registry row in config-file form for the seed command.
type SourceSeed struct {
	ID                 string `mapstructure:"id"`
	Name               string `mapstructure:"name"`
	URL                string `mapstructure:"url"`
	ExtractorType      string `mapstructure:"extractor_type"`
	Enabled            bool   `mapstructure:"enabled"`
	Priority           int    `mapstructure:"priority"`
	CrawlFrequencyDays int    `mapstructure:"crawl_frequency_days"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("BOOTHCRAWL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", true)
	v.SetDefault("db.max_open_conns", 8)
	v.SetDefault("fetch.mode", FetchModeService)
	v.SetDefault("fetch.timeout_seconds", 90)
	v.SetDefault("fetch.user_agent", "booth-beacon-bot/0.1")
	v.SetDefault("fetch.page_param", "page")
	v.SetDefault("crawler.budget_seconds", 480)
	v.SetDefault("crawler.safety_margin_seconds", 20)
	v.SetDefault("crawler.page_limit", 5)
	v.SetDefault("crawler.per_page_timeout_ms", 45000)
	v.SetDefault("crawler.render_wait_ms", 2000)
	v.SetDefault("crawler.max_attempts", 3)
	v.SetDefault("crawler.retry_base_ms", 2000)
	v.SetDefault("crawler.retry_max_ms", 10000)
	v.SetDefault("cache.provider", CacheMemory)
	v.SetDefault("snapshots.provider", SnapshotNone)
	v.SetDefault("llm.timeout_seconds", 120)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	switch c.Fetch.Mode {
	case FetchModeService:
		if c.Fetch.Endpoint == "" {
			return fmt.Errorf("fetch.endpoint must be set in service mode")
		}
	case FetchModeLocal:
	default:
		return fmt.Errorf("fetch.mode must be %q or %q", FetchModeService, FetchModeLocal)
	}
	if c.Crawler.BudgetSeconds <= 0 {
		return fmt.Errorf("crawler.budget_seconds must be > 0")
	}
	if c.Crawler.SafetyMarginSeconds <= 0 {
		return fmt.Errorf("crawler.safety_margin_seconds must be > 0")
	}
	if c.Crawler.SafetyMarginSeconds >= c.Crawler.BudgetSeconds {
		return fmt.Errorf("crawler.safety_margin_seconds must be below crawler.budget_seconds")
	}
	if c.Crawler.PageLimit <= 0 {
		return fmt.Errorf("crawler.page_limit must be > 0")
	}
	switch c.Cache.Provider {
	case CacheMemory:
	case CacheRedis:
		if c.Cache.Redis.Addr == "" {
			return fmt.Errorf("cache.redis.addr must be set for the redis provider")
		}
	default:
		return fmt.Errorf("cache.provider must be %q or %q", CacheMemory, CacheRedis)
	}
	switch c.Snapshots.Provider {
	case SnapshotNone, SnapshotMemory:
	case SnapshotLocal:
		if c.Snapshots.BaseDir == "" {
			return fmt.Errorf("snapshots.base_dir must be set for the local provider")
		}
	case SnapshotGCS:
		if c.Snapshots.Bucket == "" {
			return fmt.Errorf("snapshots.bucket must be set for the gcs provider")
		}
	default:
		return fmt.Errorf("snapshots.provider must be one of none, memory, local, gcs")
	}
	for i, seed := range c.Sources {
		if seed.ID == "" || seed.Name == "" || seed.URL == "" {
			return fmt.Errorf("sources[%d]: id, name, and url are required", i)
		}
	}
	return nil
}

// Budget converts the crawl budget knobs into durations.
func (c Config) Budget() (budget, margin time.Duration) {
	return time.Duration(c.Crawler.BudgetSeconds) * time.Second,
		time.Duration(c.Crawler.SafetyMarginSeconds) * time.Second
}

// DefaultTuning is the fetch tuning applied to domains without overrides.
func (c Config) DefaultTuning() fetch.Tuning {
	return fetch.Tuning{
		PageLimit:      c.Crawler.PageLimit,
		PerPageTimeout: time.Duration(c.Crawler.PerPageTimeoutMs) * time.Millisecond,
		RenderWait:     time.Duration(c.Crawler.RenderWaitMs) * time.Millisecond,
	}
}
