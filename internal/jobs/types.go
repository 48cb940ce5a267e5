// SPDX-License-Identifier: MIT

// Package jobs runs the refresh cycle: collect activity, render markdown,
// splice the README sections and write the file atomically.
package jobs

import "time"

// Status represents the outcome of the most recent refresh run.
type Status struct {
	RunID           string    `json:"run_id"`
	LastRun         time.Time `json:"last_run"`
	DurationMS      int64     `json:"duration_ms"`
	Entries         int       `json:"entries"`
	SkippedSections []string  `json:"skipped_sections,omitempty"`
	Error           string    `json:"error,omitempty"`
}
