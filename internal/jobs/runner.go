// SPDX-License-Identifier: MIT

package jobs

import (
	"context"
	"errors"
	"sync/atomic"
)

// ErrRefreshInProgress is returned when a refresh is requested while another
// one is still running.
var ErrRefreshInProgress = errors.New("jobs: refresh already in progress")

// Runner serializes refresh runs. Every trigger path (scheduler, startup,
// manual API call) goes through the same gate, so at most one refresh
// touches the README at a time.
type Runner struct {
	busy atomic.Bool
	run  func(ctx context.Context) (*Status, error)
}

// NewRunner wraps a refresh function with the serialization gate.
func NewRunner(run func(ctx context.Context) (*Status, error)) *Runner {
	return &Runner{run: run}
}

// Run executes the refresh unless one is already in flight.
func (r *Runner) Run(ctx context.Context) (*Status, error) {
	if !r.busy.CompareAndSwap(false, true) {
		return nil, ErrRefreshInProgress
	}
	defer r.busy.Store(false)
	return r.run(ctx)
}
