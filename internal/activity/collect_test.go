// SPDX-License-Identifier: MIT

package activity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jimyag/profilesync/internal/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

type fakeSource struct {
	repos         []github.Repo
	commits       map[string]int
	releases      map[string][]github.Release
	tags          map[string][]github.Tag
	contribs      []github.RepoContribution
	contribsErr   error
	reposErr      error
}

func (f *fakeSource) Repos(ctx context.Context, user string) ([]github.Repo, error) {
	return f.repos, f.reposErr
}

func (f *fakeSource) CommitCount(ctx context.Context, fullName string, since time.Time) (int, error) {
	return f.commits[fullName], nil
}

func (f *fakeSource) Releases(ctx context.Context, fullName string) ([]github.Release, error) {
	return f.releases[fullName], nil
}

func (f *fakeSource) Tags(ctx context.Context, fullName string) ([]github.Tag, error) {
	return f.tags[fullName], nil
}

func (f *fakeSource) Contributions(ctx context.Context, login string) ([]github.RepoContribution, error) {
	return f.contribs, f.contribsErr
}

func ts(daysAgo int) *time.Time {
	t := testNow.AddDate(0, 0, -daysAgo)
	return &t
}

func newTestCollector(src Source, limit int) *Collector {
	return NewCollector(src, Config{
		Username:       "jimyag",
		Window:         60 * 24 * time.Hour,
		Limit:          limit,
		MaxConcurrency: 3,
	}).WithNow(func() time.Time { return testNow })
}

func contribution(nameWithOwner, owner string, private bool, mergedDaysAgo ...int) github.RepoContribution {
	var rc github.RepoContribution
	rc.Repository.NameWithOwner = nameWithOwner
	rc.Repository.URL = "https://github.com/" + nameWithOwner
	rc.Repository.IsPrivate = private
	rc.Repository.Owner.Login = owner
	for _, d := range mergedDaysAgo {
		rc.Contributions.Nodes = append(rc.Contributions.Nodes, struct {
			PullRequest github.PullRequest `json:"pullRequest"`
		}{
			PullRequest: github.PullRequest{MergedAt: ts(d), State: "MERGED"},
		})
	}
	return rc
}

func TestCollectOwnRepos(t *testing.T) {
	src := &fakeSource{
		repos: []github.Repo{
			{Name: "active", FullName: "jimyag/active", HTMLURL: "https://github.com/jimyag/active", PushedAt: ts(2)},
			{Name: "forked", FullName: "jimyag/forked", Fork: true, PushedAt: ts(1)},
			{Name: "jimyag", FullName: "jimyag/jimyag", PushedAt: ts(1)},   // profile repo
			{Name: "stale", FullName: "jimyag/stale", PushedAt: ts(120)},   // outside window
			{Name: "quiet", FullName: "jimyag/quiet", PushedAt: ts(5)},     // zero commits
		},
		commits: map[string]int{"jimyag/active": 12},
	}

	entries, err := newTestCollector(src, 10).Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)

	e := entries[0]
	assert.Equal(t, KindRepo, e.Kind)
	assert.Equal(t, "active", e.Name)
	assert.Equal(t, 12, e.CommitCount)
	assert.Empty(t, e.Tag)
}

func TestCollectReleaseThenTagFallback(t *testing.T) {
	src := &fakeSource{
		repos: []github.Repo{
			{Name: "released", FullName: "jimyag/released", HTMLURL: "https://github.com/jimyag/released", PushedAt: ts(1)},
			{Name: "tagged", FullName: "jimyag/tagged", HTMLURL: "https://github.com/jimyag/tagged", PushedAt: ts(2)},
		},
		commits: map[string]int{"jimyag/released": 3, "jimyag/tagged": 2},
		releases: map[string][]github.Release{
			"jimyag/released": {
				{TagName: "v1.2.0", HTMLURL: "https://github.com/jimyag/released/releases/tag/v1.2.0", PublishedAt: ts(3)},
				{TagName: "v0.9.0", PublishedAt: ts(200)},
			},
			// Release outside the window falls through to tags.
			"jimyag/tagged": {
				{TagName: "v0.1.0", PublishedAt: ts(300)},
			},
		},
		tags: map[string][]github.Tag{
			"jimyag/tagged": {{Name: "v0.2.0"}, {Name: "v0.1.0"}},
		},
	}

	entries, err := newTestCollector(src, 10).Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "released", entries[0].Name)
	assert.Equal(t, "v1.2.0", entries[0].Tag)

	assert.Equal(t, "tagged", entries[1].Name)
	assert.Equal(t, "v0.2.0", entries[1].Tag)
	assert.Equal(t, "https://github.com/jimyag/tagged/releases/tag/v0.2.0", entries[1].TagURL)
}

func TestCollectContributions(t *testing.T) {
	src := &fakeSource{
		contribs: []github.RepoContribution{
			contribution("golang/go", "golang", false, 4, 10, 400),
			contribution("secret/repo", "secret", true, 1),
			contribution("jimyag/mine", "jimyag", false, 1),
			contribution("x/throwaway", "deadbeefdeadbeefdeadbeefdeadbeef", false, 1),
			contribution("old/only", "old", false, 300),
		},
	}

	entries, err := newTestCollector(src, 10).Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)

	e := entries[0]
	assert.Equal(t, KindContribution, e.Kind)
	assert.Equal(t, "golang/go", e.Name)
	assert.Equal(t, 2, e.MergedPRs, "only PRs merged inside the window count")
	assert.Equal(t, ts(4).UTC(), e.LatestActivity.UTC())
}

func TestCollectMergeSortAndLimit(t *testing.T) {
	src := &fakeSource{
		repos: []github.Repo{
			{Name: "older", FullName: "jimyag/older", PushedAt: ts(10)},
			{Name: "newest", FullName: "jimyag/newest", PushedAt: ts(1)},
			{Name: "middle", FullName: "jimyag/middle", PushedAt: ts(5)},
		},
		commits: map[string]int{
			"jimyag/older":  1,
			"jimyag/newest": 2,
			"jimyag/middle": 3,
		},
		contribs: []github.RepoContribution{
			contribution("other/between", "other", false, 3),
		},
	}

	entries, err := newTestCollector(src, 3).Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 3, "limit must truncate")

	names := []string{entries[0].Name, entries[1].Name, entries[2].Name}
	assert.Equal(t, []string{"newest", "other/between", "middle"}, names)
}

func TestCollectContributionsFailureDegrades(t *testing.T) {
	src := &fakeSource{
		repos: []github.Repo{
			{Name: "active", FullName: "jimyag/active", PushedAt: ts(1)},
		},
		commits:     map[string]int{"jimyag/active": 1},
		contribsErr: errors.New("graphql down"),
	}

	entries, err := newTestCollector(src, 10).Collect(context.Background())
	require.NoError(t, err, "contribution failures must not fail the run")
	require.Len(t, entries, 1)
	assert.Equal(t, KindRepo, entries[0].Kind)
}

func TestCollectReposFailureIsFatal(t *testing.T) {
	src := &fakeSource{reposErr: errors.New("api down")}

	_, err := newTestCollector(src, 10).Collect(context.Background())
	require.Error(t, err)
}

func TestLooksLikeHashOwner(t *testing.T) {
	assert.False(t, looksLikeHashOwner("golang"))
	assert.False(t, looksLikeHashOwner("deadbeef"))
	assert.True(t, looksLikeHashOwner("deadbeefdeadbeefdeadbeefdeadbeef"))
	assert.False(t, looksLikeHashOwner("deadbeefdeadbeefdeadbeefdeadbeeg"))
}
