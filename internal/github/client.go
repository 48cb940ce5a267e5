// SPDX-License-Identifier: MIT

// Package github is a minimal GitHub REST + GraphQL client covering the
// endpoints profilesync needs: repository listings, commit counts, releases,
// tags and merged pull request contributions.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/jimyag/profilesync/internal/cache"
	"github.com/jimyag/profilesync/internal/log"
	"github.com/jimyag/profilesync/internal/metrics"
	"golang.org/x/time/rate"
)

const (
	acceptHeader   = "application/vnd.github.v3+json"
	userAgent      = "profilesync"
	maxErrBodySize = 512
)

// Options configures a Client beyond its base URLs.
type Options struct {
	Token    string        // optional; sent as "Authorization: token <t>"
	Timeout  time.Duration // per-request timeout (default 30s)
	Retries  int           // retries for transient upstream failures
	Cache    cache.Cache   // optional; enables conditional requests
	CacheTTL time.Duration // TTL for cached response bodies
	RPS      rate.Limit    // client-side request budget (default 8)
	Burst    int           // budget burst (default 16)
}

// Client talks to the GitHub API on behalf of a single user.
type Client struct {
	apiBase      string
	graphqlURL   string
	token        string
	retries      int
	http         *http.Client
	limiter      *rate.Limiter
	cache        cache.Cache
	cacheEnabled bool
	cacheTTL     time.Duration
}

// New creates a client for the given REST base and GraphQL endpoint.
func New(apiBase, graphqlURL string, opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	rps := opts.RPS
	if rps <= 0 {
		rps = 8
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 16
	}
	c := opts.Cache
	if c == nil {
		c = cache.NewNoOp()
	}
	return &Client{
		apiBase:      strings.TrimRight(apiBase, "/"),
		graphqlURL:   graphqlURL,
		token:        opts.Token,
		retries:      opts.Retries,
		http:         &http.Client{Timeout: timeout},
		limiter:      rate.NewLimiter(rps, burst),
		cache:        c,
		cacheEnabled: opts.Cache != nil,
		cacheTTL:     opts.CacheTTL,
	}
}

// conditionalEntry is the cached record for a REST URL.
type conditionalEntry struct {
	ETag string `json:"etag"`
	Body []byte `json:"body"`
}

// getJSON performs a GET with rate limiting, conditional-request caching and
// retry on transient upstream failures, then decodes the body into v.
func (c *Client) getJSON(ctx context.Context, endpoint, url string, v any) error {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt*attempt*500) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		body, err := c.getOnce(ctx, endpoint, url)
		if err == nil {
			if err := json.Unmarshal(body, v); err != nil {
				metrics.IncGitHubRequest(endpoint, "error")
				return &APIError{Sentinel: ErrBadResponse, Operation: endpoint, Err: err}
			}
			return nil
		}
		lastErr = err
		if !errors.Is(err, ErrUpstream) && !errors.Is(err, ErrTimeout) {
			return err
		}
	}
	return fmt.Errorf("%s failed after %d retries: %w", endpoint, c.retries, lastErr)
}

func (c *Client) getOnce(ctx context.Context, endpoint, url string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &APIError{Sentinel: ErrBadResponse, Operation: endpoint, Err: err}
	}
	c.setHeaders(req)

	var cached conditionalEntry
	haveCached := false
	if raw, ok := c.cache.Get(url); ok {
		if err := json.Unmarshal(raw, &cached); err == nil && cached.ETag != "" {
			req.Header.Set("If-None-Match", cached.ETag)
			haveCached = true
		}
	}

	start := time.Now()
	res, err := c.http.Do(req)
	metrics.ObserveGitHubRequest(endpoint, time.Since(start))
	if err != nil {
		return nil, c.transportError(endpoint, err)
	}
	defer res.Body.Close() //nolint:errcheck

	switch {
	case res.StatusCode == http.StatusNotModified && haveCached:
		metrics.IncGitHubRequest(endpoint, "not_modified")
		metrics.IncCacheHit()
		return cached.Body, nil
	case res.StatusCode == http.StatusOK:
		metrics.IncGitHubRequest(endpoint, "success")
		// Without a real cache there was no lookup to miss; counting here
		// would poison the hit/miss ratio.
		if c.cacheEnabled {
			metrics.IncCacheMiss()
		}
		body, err := io.ReadAll(res.Body)
		if err != nil {
			return nil, &APIError{Sentinel: ErrBadResponse, Operation: endpoint, Err: err}
		}
		if etag := res.Header.Get("ETag"); etag != "" {
			if raw, err := json.Marshal(conditionalEntry{ETag: etag, Body: body}); err == nil {
				c.cache.Set(url, raw, c.cacheTTL)
			}
		}
		return body, nil
	default:
		return nil, c.statusError(endpoint, res)
	}
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("User-Agent", userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "token "+c.token)
	}
}

func (c *Client) transportError(endpoint string, err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		metrics.IncGitHubRequest(endpoint, "timeout")
		return &APIError{Sentinel: ErrTimeout, Operation: endpoint, Err: err}
	}
	metrics.IncGitHubRequest(endpoint, "error")
	return &APIError{Sentinel: ErrUpstream, Operation: endpoint, Err: err}
}

func (c *Client) statusError(endpoint string, res *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(res.Body, maxErrBodySize))
	apiErr := &APIError{
		Operation: endpoint,
		Status:    res.StatusCode,
		Body:      strings.TrimSpace(string(snippet)),
	}
	switch {
	case res.StatusCode == http.StatusNotFound:
		apiErr.Sentinel = ErrNotFound
	case res.StatusCode == http.StatusTooManyRequests,
		res.StatusCode == http.StatusForbidden && res.Header.Get("X-RateLimit-Remaining") == "0":
		metrics.IncGitHubRequest(endpoint, "rate_limited")
		apiErr.Sentinel = ErrRateLimited
		return apiErr
	case res.StatusCode == http.StatusUnauthorized, res.StatusCode == http.StatusForbidden:
		apiErr.Sentinel = ErrUnauthorized
	case res.StatusCode >= 500:
		apiErr.Sentinel = ErrUpstream
	default:
		apiErr.Sentinel = ErrBadResponse
	}
	metrics.IncGitHubRequest(endpoint, "error")
	return apiErr
}

// Repo is an owned repository as returned by the repo listing endpoint.
type Repo struct {
	Name     string     `json:"name"`
	FullName string     `json:"full_name"`
	HTMLURL  string     `json:"html_url"`
	Fork     bool       `json:"fork"`
	PushedAt *time.Time `json:"pushed_at"`
}

// Release is a published release of a repository.
type Release struct {
	TagName     string     `json:"tag_name"`
	HTMLURL     string     `json:"html_url"`
	PublishedAt *time.Time `json:"published_at"`
}

// Tag is a lightweight git tag.
type Tag struct {
	Name string `json:"name"`
}

// Repos lists the user's own repositories, most recently pushed first.
func (c *Client) Repos(ctx context.Context, user string) ([]Repo, error) {
	url := fmt.Sprintf("%s/users/%s/repos?per_page=100&type=owner&sort=pushed&direction=desc", c.apiBase, user)
	var repos []Repo
	if err := c.getJSON(ctx, "repos", url, &repos); err != nil {
		return nil, err
	}
	return repos, nil
}

// CommitCount returns the number of commits on the default branch since the
// cutoff, capped at one page (100).
func (c *Client) CommitCount(ctx context.Context, fullName string, since time.Time) (int, error) {
	url := fmt.Sprintf("%s/repos/%s/commits?since=%s&per_page=100",
		c.apiBase, fullName, since.UTC().Format(time.RFC3339))
	var commits []struct {
		SHA string `json:"sha"`
	}
	if err := c.getJSON(ctx, "commits", url, &commits); err != nil {
		// Empty repositories answer 404 on the commits endpoint; that
		// means "nothing to count", not a failure.
		if errors.Is(err, ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return len(commits), nil
}

// Releases lists the newest releases of a repository.
func (c *Client) Releases(ctx context.Context, fullName string) ([]Release, error) {
	url := fmt.Sprintf("%s/repos/%s/releases?per_page=10", c.apiBase, fullName)
	var releases []Release
	if err := c.getJSON(ctx, "releases", url, &releases); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return releases, nil
}

// Tags lists the newest tags of a repository.
func (c *Client) Tags(ctx context.Context, fullName string) ([]Tag, error) {
	url := fmt.Sprintf("%s/repos/%s/tags?per_page=5", c.apiBase, fullName)
	var tags []Tag
	if err := c.getJSON(ctx, "tags", url, &tags); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return tags, nil
}

// Ping probes the rate-limit endpoint; used by strict readiness checks.
func (c *Client) Ping(ctx context.Context) error {
	var out struct {
		Resources map[string]json.RawMessage `json:"resources"`
	}
	if err := c.getJSON(ctx, "rate_limit", c.apiBase+"/rate_limit", &out); err != nil {
		return err
	}
	log.FromContext(ctx).Debug().Str("event", "github.ping").Msg("rate limit probe ok")
	return nil
}
