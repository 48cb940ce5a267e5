// SPDX-License-Identifier: MIT

package daemon

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// Deps carries everything the app runs.
type Deps struct {
	Logger         zerolog.Logger
	ListenAddr     string
	APIHandler     http.Handler
	MetricsAddr    string // empty disables the metrics listener
	MetricsHandler http.Handler
	Scheduler      *Scheduler // nil in one-shot mode
	Holder         *Holder    // nil disables hot reload
}

// App ties the HTTP servers, the scheduler and the config watcher together.
type App struct {
	deps Deps
}

// NewApp creates the app.
func NewApp(deps Deps) *App {
	return &App{deps: deps}
}

// Run blocks until ctx is cancelled, then shuts everything down gracefully.
func (a *App) Run(ctx context.Context) error {
	logger := a.deps.Logger
	g, gctx := errgroup.WithContext(ctx)

	apiSrv := &http.Server{
		Addr:              a.deps.ListenAddr,
		Handler:           a.deps.APIHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	g.Go(func() error {
		logger.Info().Str("event", "api.listen").Str("addr", apiSrv.Addr).Msg("API server listening")
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return apiSrv.Shutdown(shutdownCtx)
	})

	if a.deps.MetricsAddr != "" && a.deps.MetricsHandler != nil {
		metricsSrv := &http.Server{
			Addr:              a.deps.MetricsAddr,
			Handler:           a.deps.MetricsHandler,
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			logger.Info().Str("event", "metrics.listen").Str("addr", metricsSrv.Addr).Msg("metrics server listening")
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return metricsSrv.Shutdown(shutdownCtx)
		})
	}

	if a.deps.Scheduler != nil {
		g.Go(func() error {
			a.deps.Scheduler.Run(gctx)
			return nil
		})
	}

	if a.deps.Holder != nil {
		g.Go(func() error {
			return a.deps.Holder.Watch(gctx)
		})
	}

	err := g.Wait()
	logger.Info().Str("event", "daemon.stopped").Msg("daemon stopped")
	return err
}
