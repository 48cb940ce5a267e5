// SPDX-License-Identifier: MIT
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Business metrics
	activityEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "profilesync_activity_entries",
		Help: "Number of activity entries rendered in the last refresh",
	})

	activityByKind = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "profilesync_activity_by_kind",
		Help: "Activity entries by kind in the last refresh",
	}, []string{"kind"}) // kind=repo|contribution

	refreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "profilesync_refresh_total",
		Help: "Refresh runs by outcome",
	}, []string{"outcome"}) // outcome=success|failure

	refreshFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "profilesync_refresh_failures_total",
		Help: "Total number of refresh failures by stage",
	}, []string{"stage"}) // stage=collect|render|read_readme|splice|write

	refreshDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "profilesync_refresh_duration_seconds",
		Help:    "Time spent on a complete refresh cycle",
		Buckets: prometheus.DefBuckets,
	})

	sectionsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "profilesync_sections_skipped_total",
		Help: "README sections skipped because their markers were missing",
	}, []string{"section"})

	// Upstream metrics
	githubRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "profilesync_github_requests_total",
		Help: "GitHub API requests by endpoint and status",
	}, []string{"endpoint", "status"}) // status=success|not_modified|error|timeout|rate_limited

	githubRequestDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "profilesync_github_request_duration_seconds",
		Help:    "GitHub API request latency by endpoint",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	cacheOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "profilesync_cache_ops_total",
		Help: "Cache operations by outcome",
	}, []string{"outcome"}) // outcome=hit|miss
)

func RecordActivityCounts(repos, contributions int) {
	activityEntries.Set(float64(repos + contributions))
	activityByKind.WithLabelValues("repo").Set(float64(repos))
	activityByKind.WithLabelValues("contribution").Set(float64(contributions))
}

func RecordRefresh(outcome string, d time.Duration) {
	refreshTotal.WithLabelValues(outcome).Inc()
	refreshDurationSeconds.Observe(d.Seconds())
}

func IncRefreshFailure(stage string) { refreshFailuresTotal.WithLabelValues(stage).Inc() }

func IncSectionSkipped(section string) { sectionsSkipped.WithLabelValues(section).Inc() }

func IncGitHubRequest(endpoint, status string) {
	githubRequestsTotal.WithLabelValues(endpoint, status).Inc()
}

func ObserveGitHubRequest(endpoint string, d time.Duration) {
	githubRequestDurationSeconds.WithLabelValues(endpoint).Observe(d.Seconds())
}

func IncCacheHit()  { cacheOpsTotal.WithLabelValues("hit").Inc() }
func IncCacheMiss() { cacheOpsTotal.WithLabelValues("miss").Inc() }
