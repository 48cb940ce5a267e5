// SPDX-License-Identifier: MIT

// Package api provides the HTTP control surface for profilesync: health and
// readiness probes, refresh status, manual refresh and the rendered README.
package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/jimyag/profilesync/internal/config"
	"github.com/jimyag/profilesync/internal/health"
	"github.com/jimyag/profilesync/internal/jobs"
	"github.com/jimyag/profilesync/internal/store"
)

// HistoryReader is the read side of the run history store.
type HistoryReader interface {
	Recent(n int) ([]store.Record, error)
}

// Deps carries the server's collaborators.
type Deps struct {
	Refresh func(ctx context.Context) (*jobs.Status, error)
	History HistoryReader
	Health  *health.Manager
}

// Server is the HTTP API server.
type Server struct {
	mu        sync.RWMutex
	cfg       config.AppConfig
	status    *jobs.Status
	deps      Deps
	startTime time.Time
}

// New creates the API server.
func New(cfg config.AppConfig, deps Deps) *Server {
	return &Server{
		cfg:       cfg,
		deps:      deps,
		startTime: time.Now(),
	}
}

// SetStatus records the latest refresh outcome for the status endpoint.
func (s *Server) SetStatus(status *jobs.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

// UpdateConfig swaps the configuration used by subsequent requests.
func (s *Server) UpdateConfig(cfg config.AppConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(httprate.LimitByIP(30, time.Minute))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/readme", s.handleReadme)

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.With(s.authMiddleware).Post("/refresh", s.handleRefresh)
	})

	return r
}
