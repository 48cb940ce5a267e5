// SPDX-License-Identifier: MIT

// Package health provides health and readiness check functionality for
// container deployments (Docker HEALTHCHECK, Kubernetes probes).
package health

import (
	"context"
	"time"
)

// Status represents the overall health/readiness status
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// CheckResult represents the result of a component health check
type CheckResult struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// HealthResponse represents the full health check response
type HealthResponse struct {
	Status    Status                 `json:"status"`
	Version   string                 `json:"version,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// ReadinessResponse represents the readiness check response
type ReadinessResponse struct {
	Ready     bool                   `json:"ready"`
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// Checker defines the interface for health checks
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

// Manager manages health and readiness checks
type Manager struct {
	version     string
	readyStrict bool
	checkers    []Checker
}

// NewManager creates a new health check manager
func NewManager(version string) *Manager {
	return &Manager{
		version:  version,
		checkers: make([]Checker, 0),
	}
}

// RegisterChecker adds a health checker to the manager
func (m *Manager) RegisterChecker(checker Checker) {
	m.checkers = append(m.checkers, checker)
}

// SetReadyStrict toggles strict readiness: when enabled, readiness fails
// unless every registered checker passes.
func (m *Manager) SetReadyStrict(strict bool) {
	m.readyStrict = strict
}

// Health performs a liveness check. The process being able to answer is
// enough; verbose adds per-component results.
func (m *Manager) Health(ctx context.Context, verbose bool) HealthResponse {
	resp := HealthResponse{
		Status:    StatusHealthy,
		Version:   m.version,
		Timestamp: time.Now(),
	}

	if verbose && len(m.checkers) > 0 {
		resp.Checks = make(map[string]CheckResult)
		resp.Status = m.runCheckers(ctx, resp.Checks)
	}

	return resp
}

// Ready performs a readiness check. In strict mode every checker must pass.
func (m *Manager) Ready(ctx context.Context) ReadinessResponse {
	resp := ReadinessResponse{
		Ready:     true,
		Status:    StatusHealthy,
		Timestamp: time.Now(),
	}

	if m.readyStrict && len(m.checkers) > 0 {
		resp.Checks = make(map[string]CheckResult)
		resp.Status = m.runCheckers(ctx, resp.Checks)
		resp.Ready = resp.Status == StatusHealthy
	}

	return resp
}

func (m *Manager) runCheckers(ctx context.Context, out map[string]CheckResult) Status {
	status := StatusHealthy
	for _, checker := range m.checkers {
		result := checker.Check(ctx)
		out[checker.Name()] = result

		switch result.Status {
		case StatusUnhealthy:
			status = StatusUnhealthy
		case StatusDegraded:
			if status == StatusHealthy {
				status = StatusDegraded
			}
		}
	}
	return status
}

// GitHubChecker probes GitHub connectivity for strict readiness.
type GitHubChecker struct {
	probe func(ctx context.Context) error
}

// NewGitHubChecker wraps a probe function (normally Client.Ping).
func NewGitHubChecker(probe func(ctx context.Context) error) *GitHubChecker {
	return &GitHubChecker{probe: probe}
}

func (c *GitHubChecker) Name() string { return "github" }

func (c *GitHubChecker) Check(ctx context.Context) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := c.probe(ctx); err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy, Message: "github reachable"}
}
