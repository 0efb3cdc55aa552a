// Package config loads and validates harvester configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/HarvestAPI/apify-linkedin-profile-search/internal/harvest"
)

// Config captures all run configuration knobs loaded via Viper.
type Config struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Query   harvest.Query `mapstructure:"query"`
	Scraper ScraperConfig `mapstructure:"scraper"`
	Source  SourceConfig  `mapstructure:"source"`
	Dedup   DedupConfig   `mapstructure:"dedup"`
	State   StateConfig   `mapstructure:"state"`
	Sink    SinkConfig    `mapstructure:"sink"`
	Billing BillingConfig `mapstructure:"billing"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// ScraperConfig governs the crawl loop.
type ScraperConfig struct {
	// Mode accepts "short", "full", "email", the numeric selectors
	// "1"/"2"/"3", and the labeled forms ("Full + email search", ...).
	Mode            string `mapstructure:"mode"`
	MaxItems        int    `mapstructure:"max_items"`
	StartPage       int    `mapstructure:"start_page"`
	TakePages       int    `mapstructure:"take_pages"`
	PagePrefetch    int    `mapstructure:"page_prefetch"`
	ItemConcurrency int    `mapstructure:"item_concurrency"`
}

// SourceConfig configures the search/enrichment API client.
type SourceConfig struct {
	BaseURL           string  `mapstructure:"base_url"`
	APIKey            string  `mapstructure:"api_key"`
	PageTimeoutSec    int     `mapstructure:"page_timeout_seconds"`
	FetchTimeoutSec   int     `mapstructure:"fetch_timeout_seconds"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
}

// DedupConfig selects the shared claim store.
type DedupConfig struct {
	// Mode is one of off | read_only | insert_ids | insert_profiles.
	Mode string `mapstructure:"mode"`
	// Provider is mongo, postgres, or memory.
	Provider         string `mapstructure:"provider"`
	ConnectionString string `mapstructure:"connection_string"`
}

// StateConfig selects where the crawl cursor is persisted.
type StateConfig struct {
	// Provider is file, redis, or memory.
	Provider      string `mapstructure:"provider"`
	Dir           string `mapstructure:"dir"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	TTLHours      int    `mapstructure:"ttl_hours"`
}

// SinkConfig selects the output sink.
type SinkConfig struct {
	// Provider is jsonl, pubsub, or memory.
	Provider  string `mapstructure:"provider"`
	Path      string `mapstructure:"path"`
	ProjectID string `mapstructure:"project_id"`
	TopicID   string `mapstructure:"topic_id"`
}

// BillingConfig selects the metering gateway.
type BillingConfig struct {
	// Provider is local or http.
	Provider   string  `mapstructure:"provider"`
	CeilingUSD float64 `mapstructure:"ceiling_usd"`
	BaseURL    string  `mapstructure:"base_url"`
	Token      string  `mapstructure:"token"`
}

// MetricsConfig controls the metrics/health HTTP listener.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("HARVESTER")
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
	v.SetDefault("logging.development", true)

	v.SetDefault("scraper.mode", "full")
	v.SetDefault("scraper.max_items", 1_000_000)
	v.SetDefault("scraper.start_page", 1)
	v.SetDefault("scraper.take_pages", 100)
	v.SetDefault("scraper.page_prefetch", 1)
	v.SetDefault("scraper.item_concurrency", 15)

	v.SetDefault("query.search", "")
	v.SetDefault("query.sales_nav_url", "")

	v.SetDefault("source.base_url", "https://api.harvest-api.com")
	v.SetDefault("source.api_key", "")
	v.SetDefault("source.page_timeout_seconds", 360)
	v.SetDefault("source.fetch_timeout_seconds", 90)
	v.SetDefault("source.requests_per_second", 0)

	v.SetDefault("dedup.mode", string(harvest.DedupOff))
	v.SetDefault("dedup.provider", "mongo")
	v.SetDefault("dedup.connection_string", "")

	v.SetDefault("state.provider", "file")
	v.SetDefault("state.dir", "data/state")
	v.SetDefault("state.redis_addr", "")
	v.SetDefault("state.redis_password", "")
	v.SetDefault("state.redis_db", 0)
	v.SetDefault("state.ttl_hours", 0)

	v.SetDefault("sink.provider", "jsonl")
	v.SetDefault("sink.path", "data/items.jsonl")
	v.SetDefault("sink.project_id", "")
	v.SetDefault("sink.topic_id", "")

	v.SetDefault("billing.provider", "local")
	v.SetDefault("billing.ceiling_usd", 5.0)
	v.SetDefault("billing.base_url", "")
	v.SetDefault("billing.token", "")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", ":9090")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if !harvest.DedupMode(c.Dedup.Mode).Valid() {
		return fmt.Errorf("dedup.mode must be one of off, read_only, insert_ids, insert_profiles")
	}
	switch c.Dedup.Provider {
	case "mongo", "postgres", "memory":
	default:
		return fmt.Errorf("unknown dedup provider: %s", c.Dedup.Provider)
	}
	switch c.State.Provider {
	case "file", "redis", "memory":
	default:
		return fmt.Errorf("unknown state provider: %s", c.State.Provider)
	}
	switch c.Sink.Provider {
	case "jsonl", "pubsub", "memory":
	default:
		return fmt.Errorf("unknown sink provider: %s", c.Sink.Provider)
	}
	switch c.Billing.Provider {
	case "local", "http":
	default:
		return fmt.Errorf("unknown billing provider: %s", c.Billing.Provider)
	}

	if c.Source.BaseURL == "" {
		return fmt.Errorf("source.base_url is required")
	}
	if c.State.Provider == "file" && c.State.Dir == "" {
		return fmt.Errorf("state.dir is required for the file state provider")
	}
	if c.State.Provider == "redis" && c.State.RedisAddr == "" {
		return fmt.Errorf("state.redis_addr is required for the redis state provider")
	}
	if c.Sink.Provider == "jsonl" && c.Sink.Path == "" {
		return fmt.Errorf("sink.path is required for the jsonl sink")
	}
	if c.Sink.Provider == "pubsub" && (c.Sink.ProjectID == "" || c.Sink.TopicID == "") {
		return fmt.Errorf("sink.project_id and sink.topic_id are required for the pubsub sink")
	}
	if c.Billing.Provider == "http" && c.Billing.BaseURL == "" {
		return fmt.Errorf("billing.base_url is required for the http billing provider")
	}
	if c.Billing.Provider == "local" && c.Billing.CeilingUSD < 0 {
		return fmt.Errorf("billing.ceiling_usd must be >= 0")
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("metrics.addr is required when metrics are enabled")
	}
	return nil
}

// ScraperMode resolves the configured mode selector.
func (c Config) ScraperMode() harvest.ScraperMode {
	return harvest.ParseScraperMode(c.Scraper.Mode)
}

// DedupMode resolves the configured dedup mode.
func (c Config) DedupMode() harvest.DedupMode {
	return harvest.DedupMode(c.Dedup.Mode)
}

// StateTTL converts the configured TTL into a duration.
func (c Config) StateTTL() time.Duration {
	return time.Duration(c.State.TTLHours) * time.Hour
}
