// SPDX-License-Identifier: MIT

package jobs

import (
	"context"
	"testing"

	"github.com/jimyag/profilesync/internal/github"
	"github.com/stretchr/testify/require"
)

// parkedSource blocks inside the repo listing until released, keeping a
// refresh run parked mid-collect.
type parkedSource struct {
	*stubSource
	entered chan struct{}
	release chan struct{}
}

func (p *parkedSource) Repos(ctx context.Context, user string) ([]github.Repo, error) {
	p.entered <- struct{}{}
	<-p.release
	return p.stubSource.Repos(ctx, user)
}

func TestRunnerRejectsOverlappingRefresh(t *testing.T) {
	cfg := testConfig(t, readmeBothSections)
	src := &parkedSource{
		stubSource: activeSource(t),
		entered:    make(chan struct{}, 1),
		release:    make(chan struct{}),
	}

	runner := NewRunner(func(ctx context.Context) (*Status, error) {
		return Refresh(ctx, cfg, src, nil)
	})

	first := make(chan error, 1)
	go func() {
		_, err := runner.Run(context.Background())
		first <- err
	}()

	// Wait until the first run is inside the collect phase, then trigger a
	// second one against the same README.
	<-src.entered
	_, err := runner.Run(context.Background())
	require.ErrorIs(t, err, ErrRefreshInProgress)

	close(src.release)
	require.NoError(t, <-first)
}

func TestRunnerAllowsSequentialRuns(t *testing.T) {
	cfg := testConfig(t, readmeBothSections)
	runner := NewRunner(func(ctx context.Context) (*Status, error) {
		return Refresh(ctx, cfg, activeSource(t), nil)
	})

	_, err := runner.Run(context.Background())
	require.NoError(t, err)

	// The gate must open again once a run finishes.
	_, err = runner.Run(context.Background())
	require.NoError(t, err)
}
