// SPDX-License-Identifier: MIT

package activity

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jimyag/profilesync/internal/github"
	"github.com/jimyag/profilesync/internal/log"
	"github.com/jimyag/profilesync/internal/metrics"
	"golang.org/x/sync/errgroup"
)

// Source is the slice of the GitHub client the collector depends on.
type Source interface {
	Repos(ctx context.Context, user string) ([]github.Repo, error)
	CommitCount(ctx context.Context, fullName string, since time.Time) (int, error)
	Releases(ctx context.Context, fullName string) ([]github.Release, error)
	Tags(ctx context.Context, fullName string) ([]github.Tag, error)
	Contributions(ctx context.Context, login string) ([]github.RepoContribution, error)
}

// Config tunes a collection run.
type Config struct {
	Username       string
	Window         time.Duration // how far back activity counts
	Limit          int           // max entries after merging
	MaxConcurrency int           // per-repo lookup parallelism, clamped to [1,10]
}

// Collector gathers and merges both activity flavors.
type Collector struct {
	src Source
	cfg Config
	now func() time.Time
}

// NewCollector creates a collector; now is time.Now unless overridden in tests.
func NewCollector(src Source, cfg Config) *Collector {
	if cfg.MaxConcurrency < 1 {
		cfg.MaxConcurrency = 1
	} else if cfg.MaxConcurrency > 10 {
		cfg.MaxConcurrency = 10
	}
	return &Collector{src: src, cfg: cfg, now: time.Now}
}

// WithNow overrides the collector's clock (tests).
func (c *Collector) WithNow(now func() time.Time) *Collector {
	c.now = now
	return c
}

// Collect returns the merged activity list, newest first, truncated to the
// configured limit. Contribution fetch failures degrade to own-repo results
// only; own-repo fetch failures are fatal.
func (c *Collector) Collect(ctx context.Context) ([]Entry, error) {
	logger := log.WithComponentFromContext(ctx, "activity")
	cutoff := c.now().Add(-c.cfg.Window)

	repos, err := c.ownRepoActivity(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("own repos: %w", err)
	}

	contribs, err := c.contributionActivity(ctx, cutoff)
	if err != nil {
		// The profile is still useful without the contributions block.
		logger.Warn().Err(err).
			Str("event", "activity.contributions_failed").
			Msg("skipping contributions")
		contribs = nil
	}

	metrics.RecordActivityCounts(len(repos), len(contribs))

	all := append(repos, contribs...)
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].LatestActivity.After(all[j].LatestActivity)
	})
	if len(all) > c.cfg.Limit {
		all = all[:c.cfg.Limit]
	}

	logger.Info().
		Str("event", "activity.collected").
		Int("repos", len(repos)).
		Int("contributions", len(contribs)).
		Int("entries", len(all)).
		Msg("activity collected")
	return all, nil
}

// ownRepoActivity lists the user's repos and resolves commit counts and the
// newest release or tag per repo with bounded concurrency.
func (c *Collector) ownRepoActivity(ctx context.Context, cutoff time.Time) ([]Entry, error) {
	logger := log.WithComponentFromContext(ctx, "activity")

	repos, err := c.src.Repos(ctx, c.cfg.Username)
	if err != nil {
		return nil, err
	}

	candidates := make([]github.Repo, 0, len(repos))
	for _, repo := range repos {
		if repo.Fork {
			continue
		}
		// The profile repo itself never shows up in its own activity list.
		if strings.EqualFold(repo.Name, c.cfg.Username) {
			continue
		}
		if repo.PushedAt == nil || repo.PushedAt.Before(cutoff) {
			continue
		}
		candidates = append(candidates, repo)
	}

	results := make([]*Entry, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.MaxConcurrency)

	for i, repo := range candidates {
		g.Go(func() error {
			entry, err := c.resolveRepo(gctx, repo, cutoff)
			if err != nil {
				// One broken repo must not sink the whole refresh.
				logger.Debug().Err(err).
					Str("repo", repo.FullName).
					Msg("skipping repo after lookup failure")
				return nil
			}
			results[i] = entry
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(candidates))
	for _, e := range results {
		if e != nil {
			entries = append(entries, *e)
		}
	}
	return entries, nil
}

// resolveRepo returns nil without error when the repo had no commits in range.
func (c *Collector) resolveRepo(ctx context.Context, repo github.Repo, cutoff time.Time) (*Entry, error) {
	count, err := c.src.CommitCount(ctx, repo.FullName, cutoff)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}

	entry := &Entry{
		Kind:           KindRepo,
		Name:           repo.Name,
		URL:            repo.HTMLURL,
		CommitCount:    count,
		LatestActivity: *repo.PushedAt,
	}

	releases, err := c.src.Releases(ctx, repo.FullName)
	if err != nil {
		return nil, err
	}
	for _, rel := range releases {
		if rel.PublishedAt != nil && !rel.PublishedAt.Before(cutoff) {
			entry.Tag = rel.TagName
			entry.TagURL = rel.HTMLURL
			break
		}
	}

	if entry.Tag == "" {
		tags, err := c.src.Tags(ctx, repo.FullName)
		if err != nil {
			return nil, err
		}
		if len(tags) > 0 {
			entry.Tag = tags[0].Name
			entry.TagURL = repo.HTMLURL + "/releases/tag/" + tags[0].Name
		}
	}

	return entry, nil
}

func (c *Collector) contributionActivity(ctx context.Context, cutoff time.Time) ([]Entry, error) {
	contribs, err := c.src.Contributions(ctx, c.cfg.Username)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(contribs))
	for _, rc := range contribs {
		repo := rc.Repository
		if repo.IsPrivate {
			continue
		}
		if strings.EqualFold(repo.Owner.Login, c.cfg.Username) {
			continue
		}
		if looksLikeHashOwner(repo.Owner.Login) {
			continue
		}

		var latest time.Time
		merged := 0
		for _, node := range rc.Contributions.Nodes {
			pr := node.PullRequest
			if pr.MergedAt == nil || pr.MergedAt.Before(cutoff) {
				continue
			}
			merged++
			if pr.MergedAt.After(latest) {
				latest = *pr.MergedAt
			}
		}
		if merged == 0 {
			continue
		}

		entries = append(entries, Entry{
			Kind:           KindContribution,
			Name:           repo.NameWithOwner,
			URL:            repo.URL,
			MergedPRs:      merged,
			LatestActivity: latest,
		})
	}
	return entries, nil
}

// looksLikeHashOwner flags throwaway accounts whose login is a long hex blob.
func looksLikeHashOwner(login string) bool {
	if len(login) <= 30 {
		return false
	}
	for _, r := range strings.ToLower(login) {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		default:
			return false
		}
	}
	return true
}
