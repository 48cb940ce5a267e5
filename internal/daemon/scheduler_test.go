// SPDX-License-Identifier: MIT

package daemon

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/goleak"
)

func TestSchedulerRunsPeriodically(t *testing.T) {
	defer goleak.VerifyNone(t)

	var runs atomic.Int64
	s := NewScheduler(10*time.Millisecond, func(ctx context.Context) {
		runs.Add(1)
	}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(ctx)
	}()

	deadline := time.After(2 * time.Second)
	for runs.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("scheduler ran %d times, want at least 3", runs.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	<-done
}

func TestSchedulerStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewScheduler(time.Hour, func(ctx context.Context) {
		t.Error("run must not fire before the first interval")
	}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(ctx)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
}

func TestSchedulerJitterBounds(t *testing.T) {
	s := NewScheduler(time.Second, nil, zerolog.Nop())

	for i := 0; i < 100; i++ {
		d := s.nextDelay()
		if d < 900*time.Millisecond || d > 1100*time.Millisecond {
			t.Fatalf("nextDelay = %v, want within +-10%% of 1s", d)
		}
	}

	s.jitter = 0
	if d := s.nextDelay(); d != time.Second {
		t.Errorf("nextDelay without jitter = %v, want 1s", d)
	}
}
