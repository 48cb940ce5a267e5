// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/jimyag/profilesync/internal/activity"
	"github.com/jimyag/profilesync/internal/api"
	"github.com/jimyag/profilesync/internal/cache"
	"github.com/jimyag/profilesync/internal/config"
	"github.com/jimyag/profilesync/internal/daemon"
	"github.com/jimyag/profilesync/internal/github"
	"github.com/jimyag/profilesync/internal/health"
	"github.com/jimyag/profilesync/internal/jobs"
	pslog "github.com/jimyag/profilesync/internal/log"
	"github.com/jimyag/profilesync/internal/store"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

var (
	version   = "v1.0.0"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	once := flag.Bool("once", false, "run a single refresh and exit (cron/CI mode)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// Configure logger with safe defaults until config is loaded
	pslog.Configure(pslog.Config{
		Level:   "info",
		Service: "profilesync",
		Version: version,
	})

	logger := pslog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Determine config path:
	// - Explicit via --config
	// - Otherwise auto-load ${PROFILESYNC_DATA}/config.yaml if it exists
	effectiveConfigPath := strings.TrimSpace(*configPath)
	if effectiveConfigPath == "" {
		dataDir := strings.TrimSpace(config.ParseString("PROFILESYNC_DATA", "/tmp"))
		if dataDir == "" {
			dataDir = "/tmp"
		}
		autoPath := filepath.Join(dataDir, "config.yaml")
		if _, err := os.Stat(autoPath); err == nil {
			effectiveConfigPath = autoPath
		}
	}

	loader := config.NewLoader(effectiveConfigPath, version)
	cfg, err := loader.Load()
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "config.load_failed").
			Str("config_path", effectiveConfigPath).
			Msg("failed to load configuration")
	}

	logger.Info().
		Str("event", "startup").
		Str("version", version).
		Str("commit", commit).
		Str("build_date", buildDate).
		Msg("starting profilesync")
	logger.Info().Msgf("→ User: %s (token: %v)", cfg.Username, cfg.Token != "")
	logger.Info().Msgf("→ README: %s", cfg.ReadmePath)
	logger.Info().Msgf("→ Window: %s, limit %d", cfg.Window, cfg.Limit)
	if cfg.APIToken != "" {
		logger.Info().Msg("→ API token: configured")
	} else {
		logger.Warn().
			Str("security", "weak").
			Msg("→ API token: NOT configured. Set PROFILESYNC_API_TOKEN to protect /api/refresh.")
	}

	responseCache := buildCache(cfg, logger)

	client := github.New(cfg.APIBase, cfg.GraphQLURL, github.Options{
		Token:    cfg.Token,
		Timeout:  cfg.HTTPTimeout,
		Retries:  cfg.Retries,
		Cache:    responseCache,
		CacheTTL: cfg.CacheTTL,
		RPS:      rate.Limit(8),
		Burst:    16,
	})

	if *once {
		if _, err := jobs.Refresh(ctx, cfg, client, nil); err != nil {
			logger.Fatal().Err(err).Str("event", "refresh.failed").Msg("refresh failed")
		}
		logger.Info().Msg("refresh completed, exiting (once mode)")
		return
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		logger.Fatal().Err(err).Str("dir", cfg.DataDir).Msg("cannot create data dir")
	}

	history, err := store.Open(filepath.Join(cfg.DataDir, "history"))
	if err != nil {
		logger.Fatal().Err(err).Str("event", "store.open_failed").Msg("cannot open run history store")
	}
	defer func() {
		if err := history.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close run history store")
		}
	}()

	holder := daemon.NewHolder(cfg, loader, effectiveConfigPath, pslog.WithComponent("config"))

	// One gate for every trigger path: scheduler, startup and the manual
	// API endpoint all refresh through the same runner, so two runs can
	// never interleave on the README.
	var clientSrc activity.Source = client
	runner := jobs.NewRunner(func(ctx context.Context) (*jobs.Status, error) {
		return jobs.Refresh(ctx, holder.Current(), clientSrc, history)
	})
	refresh := runner.Run

	healthMgr := health.NewManager(version)
	healthMgr.SetReadyStrict(cfg.ReadyStrict)
	if cfg.ReadyStrict {
		healthMgr.RegisterChecker(health.NewGitHubChecker(client.Ping))
		logger.Info().Msg("Strict readiness checks enabled: monitoring GitHub connectivity")
	}

	srv := api.New(cfg, api.Deps{
		Refresh: refresh,
		History: history,
		Health:  healthMgr,
	})
	holder.OnReload(srv.UpdateConfig)

	// Initial refresh before serving (disable with PROFILESYNC_INITIAL_REFRESH=false)
	if cfg.InitialRefresh {
		logger.Info().Msg("performing initial refresh on startup")
		if status, err := refresh(ctx); err != nil {
			logger.Error().Err(err).Msg("initial refresh failed")
			logger.Warn().Msg("→ README sections stay stale until the next scheduled run or POST /api/refresh")
		} else {
			srv.SetStatus(status)
			logger.Info().Msg("initial refresh completed successfully")
		}
	} else {
		logger.Warn().Msg("initial refresh is disabled (PROFILESYNC_INITIAL_REFRESH=false)")
	}

	scheduler := daemon.NewScheduler(cfg.Interval, func(ctx context.Context) {
		status, err := refresh(ctx)
		if err != nil {
			if errors.Is(err, jobs.ErrRefreshInProgress) {
				logger.Warn().Str("event", "refresh.skipped").Msg("previous refresh still running, skipping this cycle")
				return
			}
			logger.Error().Err(err).Str("event", "refresh.failed").Msg("scheduled refresh failed")
			return
		}
		srv.SetStatus(status)
	}, pslog.WithComponent("scheduler"))

	metricsAddr := ""
	if cfg.MetricsEnabled {
		metricsAddr = strings.TrimSpace(cfg.MetricsAddr)
		if metricsAddr == "" {
			metricsAddr = ":9090"
		}
	}

	app := daemon.NewApp(daemon.Deps{
		Logger:         logger,
		ListenAddr:     cfg.ListenAddr,
		APIHandler:     srv.Handler(),
		MetricsAddr:    metricsAddr,
		MetricsHandler: promhttp.Handler(),
		Scheduler:      scheduler,
		Holder:         holder,
	})
	if err := app.Run(ctx); err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "daemon.failed").
			Msg("daemon failed")
	}

	logger.Info().Msg("server exiting")
}

// buildCache picks the response cache backend, falling back to memory when
// Redis is configured but unreachable.
func buildCache(cfg config.AppConfig, logger zerolog.Logger) cache.Cache {
	switch cfg.CacheBackend {
	case config.CacheOff:
		return cache.NewNoOp()
	case config.CacheRedis:
		redisCache, err := cache.NewRedis(cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, pslog.WithComponent("cache"))
		if err != nil {
			logger.Warn().Err(err).
				Str("event", "cache.redis_unavailable").
				Msg("Redis unavailable, falling back to in-memory cache")
			return cache.NewMemory(cfg.CacheTTL)
		}
		return redisCache
	default:
		return cache.NewMemory(cfg.CacheTTL)
	}
}
