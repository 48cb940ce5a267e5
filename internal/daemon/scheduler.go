// SPDX-License-Identifier: MIT

// Package daemon owns the long-running pieces: the refresh scheduler, the
// config holder with hot reload, and HTTP server lifecycle.
package daemon

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"
)

// Scheduler triggers the refresh on a fixed interval with jitter so a fleet
// of instances does not hit the API in lockstep.
type Scheduler struct {
	interval time.Duration
	jitter   float64 // fraction of interval, e.g. 0.1 for +-10%
	run      func(ctx context.Context)
	logger   zerolog.Logger
}

// NewScheduler creates a scheduler; run is invoked once per period.
func NewScheduler(interval time.Duration, run func(ctx context.Context), logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		interval: interval,
		jitter:   0.1,
		run:      run,
		logger:   logger,
	}
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info().
		Str("event", "scheduler.start").
		Dur("interval", s.interval).
		Msg("scheduler started")

	for {
		timer := time.NewTimer(s.nextDelay())
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info().Str("event", "scheduler.stop").Msg("scheduler stopped")
			return
		case <-timer.C:
			s.run(ctx)
		}
	}
}

func (s *Scheduler) nextDelay() time.Duration {
	if s.jitter <= 0 {
		return s.interval
	}
	span := float64(s.interval) * s.jitter
	offset := (rand.Float64()*2 - 1) * span
	return s.interval + time.Duration(offset)
}
