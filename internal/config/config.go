// Package config loads and validates service configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultUserAgent identifies the scraper to remote sites and robots.txt.
const DefaultUserAgent = "KastelBot/1.0 (+https://kastel.dev/docs/topics/scraping)"

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Scraper  ScraperConfig  `mapstructure:"scraper"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
	Redirect RedirectConfig `mapstructure:"redirect"`
	Sources  SourcesConfig  `mapstructure:"sources"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	Development    bool          `mapstructure:"development"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// ScraperConfig holds identity and media proxy settings.
type ScraperConfig struct {
	UserAgent string `mapstructure:"user_agent"`
	MediaURL  string `mapstructure:"media_url"`
	MaxFiles  int    `mapstructure:"max_files"`
	// BlockedHosts are treated as disallowed by robots.txt. Entries are
	// exact hosts or "*.suffix" wildcards.
	BlockedHosts []string `mapstructure:"blocked_hosts"`
}

// Fetch engines.
const (
	EngineHTTP  = "http"
	EngineColly = "colly"
)

// FetchConfig configures outbound requests.
type FetchConfig struct {
	Engine       string        `mapstructure:"engine"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes"`
	// HostRPS caps requests per second to a single host; zero is unlimited.
	HostRPS   float64 `mapstructure:"host_rps"`
	HostBurst int     `mapstructure:"host_burst"`
}

// RedirectConfig bounds redirect tracking.
type RedirectConfig struct {
	MaxHops int `mapstructure:"max_hops"`
}

// SourcesConfig configures platform rewrites.
type SourcesConfig struct {
	TikTokMirror  string `mapstructure:"tiktok_mirror"`
	TwitterMirror string `mapstructure:"twitter_mirror"`
	SpotifyDirect bool   `mapstructure:"spotify_direct"`
}

// Cache backends.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheBadger = "badger"
)

// CacheConfig selects and tunes the response cache.
type CacheConfig struct {
	Backend      string        `mapstructure:"backend"`
	TTL          time.Duration `mapstructure:"ttl"`
	RedisURL     string        `mapstructure:"redis_url"`
	BadgerPath   string        `mapstructure:"badger_path"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// SweepInterval is how often stale in-process state is evicted: memory
	// backend entries, cached robots.txt and idle rate limit buckets. Zero
	// uses TTL.
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment. With an empty path it looks
// for embedscraper.yaml in the working directory, /etc/embedscraper and
// $HOME/.embedscraper.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("EMBED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("embedscraper")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/embedscraper/")
		v.AddConfigPath("$HOME/.embedscraper")
		if err := v.ReadInConfig(); err != nil {
			// Defaults and environment are enough without a file.
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
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
	v.SetDefault("server.development", false)
	v.SetDefault("server.request_timeout", "30s")
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.api_key", "")
	v.SetDefault("scraper.user_agent", DefaultUserAgent)
	v.SetDefault("scraper.media_url", "https://media.kastel.dev")
	v.SetDefault("scraper.max_files", 5)
	v.SetDefault("fetch.engine", EngineHTTP)
	v.SetDefault("fetch.timeout", "8s")
	v.SetDefault("fetch.max_body_bytes", 5*1024*1024)
	v.SetDefault("fetch.host_rps", 0)
	v.SetDefault("fetch.host_burst", 1)
	v.SetDefault("redirect.max_hops", 20)
	v.SetDefault("sources.tiktok_mirror", "tnktok.com")
	v.SetDefault("sources.twitter_mirror", "fxtwitter.com")
	v.SetDefault("sources.spotify_direct", true)
	v.SetDefault("cache.backend", CacheMemory)
	v.SetDefault("cache.ttl", "10m")
	v.SetDefault("cache.redis_url", "redis://localhost:6379/0")
	v.SetDefault("cache.badger_path", "data/cache")
	v.SetDefault("cache.write_timeout", "5s")
	v.SetDefault("cache.sweep_interval", "1m")
	v.SetDefault("logging.development", false)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Server.RequestTimeout <= 0 {
		return fmt.Errorf("server.request_timeout must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	if c.Scraper.MediaURL == "" {
		return fmt.Errorf("scraper.media_url must be set")
	}
	if c.Scraper.MaxFiles <= 0 {
		return fmt.Errorf("scraper.max_files must be > 0")
	}
	switch c.Fetch.Engine {
	case EngineHTTP, EngineColly:
	default:
		return fmt.Errorf("fetch.engine must be %q or %q, got %q", EngineHTTP, EngineColly, c.Fetch.Engine)
	}
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("fetch.timeout must be > 0")
	}
	if c.Fetch.HostRPS < 0 {
		return fmt.Errorf("fetch.host_rps must be >= 0")
	}
	if c.Fetch.HostRPS > 0 && c.Fetch.HostBurst <= 0 {
		return fmt.Errorf("fetch.host_burst must be > 0 when fetch.host_rps is set")
	}
	if c.Redirect.MaxHops <= 0 {
		return fmt.Errorf("redirect.max_hops must be > 0")
	}
	switch c.Cache.Backend {
	case CacheNone, CacheMemory:
	case CacheRedis:
		if c.Cache.RedisURL == "" {
			return fmt.Errorf("cache.redis_url must be set for the redis backend")
		}
	case CacheBadger:
		if c.Cache.BadgerPath == "" {
			return fmt.Errorf("cache.badger_path must be set for the badger backend")
		}
	default:
		return fmt.Errorf("cache.backend %q is not supported", c.Cache.Backend)
	}
	if c.Cache.Backend != CacheNone && c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be > 0")
	}
	if c.Cache.SweepInterval < 0 {
		return fmt.Errorf("cache.sweep_interval must be >= 0")
	}
	return nil
}

// CacheEnabled reports whether responses should be cached at all.
func (c Config) CacheEnabled() bool {
	return c.Cache.Backend != CacheNone
}
