// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/jimyag/profilesync/internal/jobs"
	"github.com/jimyag/profilesync/internal/log"
	"github.com/jimyag/profilesync/internal/store"
)

const historyLimit = 20

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	verbose := r.URL.Query().Get("verbose") != ""
	resp := s.deps.Health.Health(r.Context(), verbose)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	resp := s.deps.Health.Ready(r.Context())
	code := http.StatusOK
	if !resp.Ready {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

type statusResponse struct {
	Status  *jobs.Status   `json:"status"`
	History []store.Record `json:"history,omitempty"`
	Uptime  string         `json:"uptime"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	status := s.status
	started := s.startTime
	s.mu.RUnlock()

	resp := statusResponse{
		Status: status,
		Uptime: timeSince(started),
	}
	if s.deps.History != nil {
		recs, err := s.deps.History.Recent(historyLimit)
		if err != nil {
			log.FromContext(r.Context()).Warn().Err(err).
				Str("event", "api.history_read_failed").
				Msg("failed to read run history")
		} else {
			resp.History = recs
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "api")
	logger.Info().Str("event", "api.refresh_triggered").Msg("manual refresh requested")

	// Detach from the request context so a dropped client never leaves a
	// half-finished write behind. Serialization lives in jobs.Runner, which
	// gates every trigger path, not just this handler.
	status, err := s.deps.Refresh(context.WithoutCancel(r.Context()))
	if err != nil {
		if errors.Is(err, jobs.ErrRefreshInProgress) {
			writeError(w, http.StatusConflict, "refresh already in progress")
			return
		}
		logger.Error().Err(err).Str("event", "api.refresh_failed").Msg("manual refresh failed")
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	s.SetStatus(status)
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleReadme(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	path := s.cfg.ReadmePath
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	http.ServeFile(w, r, path)
}

func timeSince(t time.Time) string {
	return time.Since(t).Round(time.Second).String()
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
