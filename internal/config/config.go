// SPDX-License-Identifier: MIT

// Package config loads and validates the profilesync configuration with
// ENV > file > defaults precedence.
package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"
)

// Cache backend selectors.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheOff    = "off"
)

// AppConfig holds the full runtime configuration.
type AppConfig struct {
	// GitHub
	Username   string        `yaml:"username"`
	Token      string        `yaml:"token"`
	APIBase    string        `yaml:"apiBase"`
	GraphQLURL string        `yaml:"graphqlURL"`
	Window     time.Duration `yaml:"window"`
	Limit      int           `yaml:"limit"`

	// Collector
	MaxConcurrency int           `yaml:"maxConcurrency"`
	Retries        int           `yaml:"retries"`
	HTTPTimeout    time.Duration `yaml:"httpTimeout"`

	// Output
	DataDir    string `yaml:"dataDir"`
	ReadmePath string `yaml:"readmePath"`

	// Daemon
	Interval       time.Duration `yaml:"interval"`
	InitialRefresh bool          `yaml:"initialRefresh"`
	ListenAddr     string        `yaml:"listenAddr"`
	APIToken       string        `yaml:"apiToken"`
	ReadyStrict    bool          `yaml:"readyStrict"`

	// Metrics
	MetricsEnabled bool   `yaml:"metricsEnabled"`
	MetricsAddr    string `yaml:"metricsAddr"`

	// Cache
	CacheBackend  string        `yaml:"cacheBackend"`
	RedisAddr     string        `yaml:"redisAddr"`
	RedisPassword string        `yaml:"redisPassword"`
	RedisDB       int           `yaml:"redisDB"`
	CacheTTL      time.Duration `yaml:"cacheTTL"`

	// Logging
	LogLevel   string `yaml:"logLevel"`
	LogService string `yaml:"logService"`

	// Version is injected at build time, not configurable.
	Version string `yaml:"-"`
}

// Defaults returns the built-in configuration baseline.
func Defaults() AppConfig {
	return AppConfig{
		APIBase:        "https://api.github.com",
		GraphQLURL:     "https://api.github.com/graphql",
		Window:         1440 * time.Hour, // two months of 30 days
		Limit:          10,
		MaxConcurrency: 5,
		Retries:        2,
		HTTPTimeout:    30 * time.Second,
		DataDir:        "/tmp",
		Interval:       6 * time.Hour,
		InitialRefresh: true,
		ListenAddr:     ":8080",
		MetricsEnabled: false,
		MetricsAddr:    ":9090",
		CacheBackend:   CacheMemory,
		CacheTTL:       10 * time.Minute,
		LogLevel:       "info",
		LogService:     "profilesync",
	}
}

// FromEnv overlays environment variables onto cfg. Unset variables leave the
// current value in place.
func FromEnv(cfg AppConfig) AppConfig {
	cfg.Username = ParseString("PROFILESYNC_USERNAME", cfg.Username)
	cfg.Token = ParseString("PROFILESYNC_TOKEN", cfg.Token)
	cfg.APIBase = ParseString("PROFILESYNC_API_BASE", cfg.APIBase)
	cfg.GraphQLURL = ParseString("PROFILESYNC_GRAPHQL_URL", cfg.GraphQLURL)
	cfg.Window = ParseDuration("PROFILESYNC_WINDOW", cfg.Window)
	cfg.Limit = ParseInt("PROFILESYNC_LIMIT", cfg.Limit)
	cfg.MaxConcurrency = ParseInt("PROFILESYNC_MAX_CONCURRENCY", cfg.MaxConcurrency)
	cfg.Retries = ParseInt("PROFILESYNC_RETRIES", cfg.Retries)
	cfg.HTTPTimeout = ParseDuration("PROFILESYNC_TIMEOUT", cfg.HTTPTimeout)
	cfg.DataDir = ParseString("PROFILESYNC_DATA", cfg.DataDir)
	cfg.ReadmePath = ParseString("PROFILESYNC_README", cfg.ReadmePath)
	cfg.Interval = ParseDuration("PROFILESYNC_INTERVAL", cfg.Interval)
	cfg.InitialRefresh = ParseBool("PROFILESYNC_INITIAL_REFRESH", cfg.InitialRefresh)
	cfg.ListenAddr = ParseString("PROFILESYNC_LISTEN", cfg.ListenAddr)
	cfg.APIToken = ParseString("PROFILESYNC_API_TOKEN", cfg.APIToken)
	cfg.ReadyStrict = ParseBool("PROFILESYNC_READY_STRICT", cfg.ReadyStrict)
	cfg.MetricsEnabled = ParseBool("PROFILESYNC_METRICS_ENABLED", cfg.MetricsEnabled)
	cfg.MetricsAddr = ParseString("PROFILESYNC_METRICS_ADDR", cfg.MetricsAddr)
	cfg.CacheBackend = ParseString("PROFILESYNC_CACHE_BACKEND", cfg.CacheBackend)
	cfg.RedisAddr = ParseString("PROFILESYNC_REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = ParseString("PROFILESYNC_REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = ParseInt("PROFILESYNC_REDIS_DB", cfg.RedisDB)
	cfg.CacheTTL = ParseDuration("PROFILESYNC_CACHE_TTL", cfg.CacheTTL)
	cfg.LogLevel = ParseString("PROFILESYNC_LOG_LEVEL", cfg.LogLevel)
	cfg.LogService = ParseString("PROFILESYNC_LOG_SERVICE", cfg.LogService)
	return cfg
}

// Normalize fills derived fields and clamps out-of-range values.
func Normalize(cfg AppConfig) AppConfig {
	cfg.APIBase = strings.TrimRight(strings.TrimSpace(cfg.APIBase), "/")
	cfg.GraphQLURL = strings.TrimSpace(cfg.GraphQLURL)
	cfg.Username = strings.TrimSpace(cfg.Username)
	if cfg.ReadmePath == "" {
		cfg.ReadmePath = filepath.Join(cfg.DataDir, "README.md")
	}
	if cfg.MaxConcurrency < 1 {
		cfg.MaxConcurrency = 1
	} else if cfg.MaxConcurrency > 10 {
		cfg.MaxConcurrency = 10
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	return cfg
}

// Validate fails fast on configuration that cannot possibly work.
func Validate(cfg AppConfig) error {
	if cfg.Username == "" {
		return fmt.Errorf("config: username is required (set PROFILESYNC_USERNAME)")
	}
	if err := validateBaseURL("apiBase", cfg.APIBase); err != nil {
		return err
	}
	if err := validateBaseURL("graphqlURL", cfg.GraphQLURL); err != nil {
		return err
	}
	if cfg.Limit <= 0 {
		return fmt.Errorf("config: limit must be positive, got %d", cfg.Limit)
	}
	if cfg.Window <= 0 {
		return fmt.Errorf("config: window must be positive, got %s", cfg.Window)
	}
	if cfg.Interval <= 0 {
		return fmt.Errorf("config: interval must be positive, got %s", cfg.Interval)
	}
	switch cfg.CacheBackend {
	case CacheMemory, CacheOff:
	case CacheRedis:
		if cfg.RedisAddr == "" {
			return fmt.Errorf("config: cacheBackend=redis requires PROFILESYNC_REDIS_ADDR")
		}
	default:
		return fmt.Errorf("config: unknown cache backend %q", cfg.CacheBackend)
	}
	return nil
}

func validateBaseURL(field, raw string) error {
	if raw == "" {
		return fmt.Errorf("config: %s is empty", field)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("config: invalid %s %q: %w", field, raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("config: unsupported %s scheme %q", field, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("config: %s %q is missing host", field, raw)
	}
	return nil
}
