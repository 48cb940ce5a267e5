// SPDX-License-Identifier: MIT

// Package activity aggregates recent GitHub activity for one user: pushes to
// own repositories and merged pull requests to third-party repositories.
package activity

import "time"

// Kind discriminates the two entry flavors.
type Kind string

const (
	KindRepo         Kind = "repo"
	KindContribution Kind = "contribution"
)

// Entry is a single line of the rendered activity list.
type Entry struct {
	Kind Kind   `json:"kind"`
	Name string `json:"name"` // repo name, or owner/name for contributions
	URL  string `json:"url"`

	// Own-repo fields
	CommitCount int    `json:"commit_count,omitempty"`
	Tag         string `json:"tag,omitempty"`
	TagURL      string `json:"tag_url,omitempty"`

	// Contribution fields
	MergedPRs int `json:"merged_prs,omitempty"`

	LatestActivity time.Time `json:"latest_activity"`
}
