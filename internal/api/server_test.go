// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jimyag/profilesync/internal/config"
	"github.com/jimyag/profilesync/internal/health"
	"github.com/jimyag/profilesync/internal/jobs"
	"github.com/jimyag/profilesync/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubHistory struct {
	records []store.Record
	err     error
}

func (s *stubHistory) Recent(n int) ([]store.Record, error) {
	if s.err != nil {
		return nil, s.err
	}
	if n < len(s.records) {
		return s.records[:n], nil
	}
	return s.records, nil
}

func newTestServer(t *testing.T, cfg config.AppConfig, deps Deps) *httptest.Server {
	t.Helper()

	if deps.Health == nil {
		deps.Health = health.NewManager("test")
	}
	srv := httptest.NewServer(New(cfg, deps).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func doRequest(t *testing.T, method, url, token string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, config.Defaults(), Deps{})

	resp := doRequest(t, http.MethodGet, srv.URL+"/healthz", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body health.HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, health.StatusHealthy, body.Status)
	assert.Equal(t, "test", body.Version)
}

func TestReadyzStrictFailure(t *testing.T) {
	mgr := health.NewManager("test")
	mgr.SetReadyStrict(true)
	mgr.RegisterChecker(health.NewGitHubChecker(func(ctx context.Context) error {
		return errors.New("unreachable")
	}))

	srv := newTestServer(t, config.Defaults(), Deps{Health: mgr})

	resp := doRequest(t, http.MethodGet, srv.URL+"/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestStatusEndpoint(t *testing.T) {
	hist := &stubHistory{records: []store.Record{{RunID: "r1"}, {RunID: "r2"}}}
	srv := newTestServer(t, config.Defaults(), Deps{History: hist})

	resp := doRequest(t, http.MethodGet, srv.URL+"/api/status", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body statusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Nil(t, body.Status, "no refresh has run yet")
	assert.Len(t, body.History, 2)
	assert.NotEmpty(t, body.Uptime)
}

func TestRefreshEndpoint(t *testing.T) {
	var calls int
	deps := Deps{
		Refresh: func(ctx context.Context) (*jobs.Status, error) {
			calls++
			return &jobs.Status{RunID: "manual", Entries: 2, LastRun: time.Now()}, nil
		},
	}
	srv := newTestServer(t, config.Defaults(), deps)

	resp := doRequest(t, http.MethodPost, srv.URL+"/api/refresh", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, calls)

	var status jobs.Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, "manual", status.RunID)
}

func TestRefreshEndpointFailure(t *testing.T) {
	deps := Deps{
		Refresh: func(ctx context.Context) (*jobs.Status, error) {
			return nil, errors.New("collect activity: boom")
		},
	}
	srv := newTestServer(t, config.Defaults(), deps)

	resp := doRequest(t, http.MethodPost, srv.URL+"/api/refresh", "")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestRefreshConflict(t *testing.T) {
	deps := Deps{
		Refresh: func(ctx context.Context) (*jobs.Status, error) {
			return nil, jobs.ErrRefreshInProgress
		},
	}
	srv := newTestServer(t, config.Defaults(), deps)

	// A refresh already running elsewhere (scheduler, startup) answers 409,
	// not 502.
	resp := doRequest(t, http.MethodPost, srv.URL+"/api/refresh", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestRateLimited(t *testing.T) {
	srv := newTestServer(t, config.Defaults(), Deps{})

	var limited bool
	for i := 0; i < 40; i++ {
		resp := doRequest(t, http.MethodGet, srv.URL+"/healthz", "")
		if resp.StatusCode == http.StatusTooManyRequests {
			limited = true
			break
		}
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	assert.True(t, limited, "expected a 429 after exceeding the per-IP budget")
}

func TestRefreshAuth(t *testing.T) {
	cfg := config.Defaults()
	cfg.APIToken = "secret"

	deps := Deps{
		Refresh: func(ctx context.Context) (*jobs.Status, error) {
			return &jobs.Status{RunID: "ok"}, nil
		},
	}
	srv := newTestServer(t, cfg, deps)

	resp := doRequest(t, http.MethodPost, srv.URL+"/api/refresh", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doRequest(t, http.MethodPost, srv.URL+"/api/refresh", "wrong")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doRequest(t, http.MethodPost, srv.URL+"/api/refresh", "secret")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRefreshTokenScheme(t *testing.T) {
	cfg := config.Defaults()
	cfg.APIToken = "secret"
	srv := newTestServer(t, cfg, Deps{
		Refresh: func(ctx context.Context) (*jobs.Status, error) {
			return &jobs.Status{}, nil
		},
	})

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/refresh", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "token secret")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestReadmeEndpoint(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "README.md")
	require.NoError(t, os.WriteFile(path, []byte("# jimyag\n"), 0o600))

	cfg := config.Defaults()
	cfg.ReadmePath = path
	srv := newTestServer(t, cfg, Deps{})

	resp := doRequest(t, http.MethodGet, srv.URL+"/readme", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/markdown")
}

func TestStatusHistoryReadFailure(t *testing.T) {
	srv := newTestServer(t, config.Defaults(), Deps{History: &stubHistory{err: errors.New("db closed")}})

	resp := doRequest(t, http.MethodGet, srv.URL+"/api/status", "")
	require.Equal(t, http.StatusOK, resp.StatusCode, "history failures must not break status")

	var body statusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Empty(t, body.History)
}
