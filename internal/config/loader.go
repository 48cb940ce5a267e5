// SPDX-License-Identifier: MIT

package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader assembles the effective configuration with precedence
// ENV > config file > defaults.
type Loader struct {
	path    string
	version string
}

// NewLoader creates a loader. path may be empty, in which case only the
// environment and defaults apply.
func NewLoader(path, version string) *Loader {
	return &Loader{path: path, version: version}
}

// Load builds, normalizes and validates the configuration.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.path != "" {
		fileCfg, err := loadFile(l.path)
		if err != nil {
			return AppConfig{}, err
		}
		cfg = mergeFile(cfg, fileCfg)
	}

	cfg = FromEnv(cfg)
	cfg = Normalize(cfg)
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

// fileConfig mirrors AppConfig with pointer fields so absent keys can be
// distinguished from zero values.
type fileConfig struct {
	Username       *string `yaml:"username"`
	Token          *string `yaml:"token"`
	APIBase        *string `yaml:"apiBase"`
	GraphQLURL     *string `yaml:"graphqlURL"`
	Window         *string `yaml:"window"`
	Limit          *int    `yaml:"limit"`
	MaxConcurrency *int    `yaml:"maxConcurrency"`
	Retries        *int    `yaml:"retries"`
	HTTPTimeout    *string `yaml:"httpTimeout"`
	DataDir        *string `yaml:"dataDir"`
	ReadmePath     *string `yaml:"readmePath"`
	Interval       *string `yaml:"interval"`
	InitialRefresh *bool   `yaml:"initialRefresh"`
	ListenAddr     *string `yaml:"listenAddr"`
	APIToken       *string `yaml:"apiToken"`
	ReadyStrict    *bool   `yaml:"readyStrict"`
	MetricsEnabled *bool   `yaml:"metricsEnabled"`
	MetricsAddr    *string `yaml:"metricsAddr"`
	CacheBackend   *string `yaml:"cacheBackend"`
	RedisAddr      *string `yaml:"redisAddr"`
	RedisPassword  *string `yaml:"redisPassword"`
	RedisDB        *int    `yaml:"redisDB"`
	CacheTTL       *string `yaml:"cacheTTL"`
	LogLevel       *string `yaml:"logLevel"`
	LogService     *string `yaml:"logService"`
}

func loadFile(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config: file %s not found: %w", path, err)
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &fc, nil
}

func mergeFile(cfg AppConfig, fc *fileConfig) AppConfig {
	if fc == nil {
		return cfg
	}
	setString(&cfg.Username, fc.Username)
	setString(&cfg.Token, fc.Token)
	setString(&cfg.APIBase, fc.APIBase)
	setString(&cfg.GraphQLURL, fc.GraphQLURL)
	setDuration(&cfg.Window, fc.Window)
	setInt(&cfg.Limit, fc.Limit)
	setInt(&cfg.MaxConcurrency, fc.MaxConcurrency)
	setInt(&cfg.Retries, fc.Retries)
	setDuration(&cfg.HTTPTimeout, fc.HTTPTimeout)
	setString(&cfg.DataDir, fc.DataDir)
	setString(&cfg.ReadmePath, fc.ReadmePath)
	setDuration(&cfg.Interval, fc.Interval)
	setBool(&cfg.InitialRefresh, fc.InitialRefresh)
	setString(&cfg.ListenAddr, fc.ListenAddr)
	setString(&cfg.APIToken, fc.APIToken)
	setBool(&cfg.ReadyStrict, fc.ReadyStrict)
	setBool(&cfg.MetricsEnabled, fc.MetricsEnabled)
	setString(&cfg.MetricsAddr, fc.MetricsAddr)
	setString(&cfg.CacheBackend, fc.CacheBackend)
	setString(&cfg.RedisAddr, fc.RedisAddr)
	setString(&cfg.RedisPassword, fc.RedisPassword)
	setInt(&cfg.RedisDB, fc.RedisDB)
	setDuration(&cfg.CacheTTL, fc.CacheTTL)
	setString(&cfg.LogLevel, fc.LogLevel)
	setString(&cfg.LogService, fc.LogService)
	return cfg
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func setDuration(dst *time.Duration, src *string) {
	if src == nil || *src == "" {
		return
	}
	if d, err := time.ParseDuration(*src); err == nil {
		*dst = d
	}
}
