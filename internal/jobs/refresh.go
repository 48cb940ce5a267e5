// SPDX-License-Identifier: MIT

package jobs

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jimyag/profilesync/internal/activity"
	"github.com/jimyag/profilesync/internal/config"
	"github.com/jimyag/profilesync/internal/log"
	"github.com/jimyag/profilesync/internal/markdown"
	"github.com/jimyag/profilesync/internal/metrics"
	"github.com/jimyag/profilesync/internal/store"
	"github.com/rs/zerolog"
)

// History is the slice of the run store the refresh cycle needs.
type History interface {
	Append(rec store.Record) error
}

// Refresh performs one complete cycle: collect -> render -> splice -> write.
// A missing marker pair skips that section only; both sections missing means
// nothing to write.
func Refresh(ctx context.Context, cfg config.AppConfig, src activity.Source, hist History) (*Status, error) {
	runID := uuid.NewString()
	ctx = log.ContextWithRunID(ctx, runID)
	logger := log.WithComponentFromContext(ctx, "jobs")

	start := time.Now()
	logger.Info().Str("event", "refresh.start").Msg("starting refresh")

	status := &Status{RunID: runID, LastRun: start}
	fail := func(stage string, err error) (*Status, error) {
		metrics.IncRefreshFailure(stage)
		metrics.RecordRefresh("failure", time.Since(start))
		status.DurationMS = time.Since(start).Milliseconds()
		status.Error = err.Error()
		appendHistory(logger, hist, status)
		return nil, err
	}

	collector := activity.NewCollector(src, activity.Config{
		Username:       cfg.Username,
		Window:         cfg.Window,
		Limit:          cfg.Limit,
		MaxConcurrency: cfg.MaxConcurrency,
	})
	entries, err := collector.Collect(ctx)
	if err != nil {
		return fail("collect", fmt.Errorf("collect activity: %w", err))
	}
	status.Entries = len(entries)

	raw, err := os.ReadFile(cfg.ReadmePath)
	if err != nil {
		return fail("read_readme", fmt.Errorf("read readme %s: %w", cfg.ReadmePath, err))
	}
	content := string(raw)

	sections := []struct {
		name string
		body string
	}{
		{markdown.SectionActivity, markdown.RenderActivity(entries)},
		{markdown.SectionUpdated, markdown.RenderUpdated(start)},
	}

	changed := false
	for _, sec := range sections {
		next, err := markdown.ReplaceSection(content, sec.name, sec.body)
		if err != nil {
			logger.Warn().Err(err).
				Str("event", "refresh.section_skipped").
				Str("section", sec.name).
				Msg("section markers not found, leaving section untouched")
			metrics.IncSectionSkipped(sec.name)
			status.SkippedSections = append(status.SkippedSections, sec.name)
			continue
		}
		content = next
		changed = true
	}

	if !changed {
		err := fmt.Errorf("no recognized section markers in %s", cfg.ReadmePath)
		return fail("splice", err)
	}

	if err := writeReadme(ctx, cfg.ReadmePath, content); err != nil {
		return fail("write", fmt.Errorf("write readme: %w", err))
	}

	status.DurationMS = time.Since(start).Milliseconds()
	metrics.RecordRefresh("success", time.Since(start))
	appendHistory(logger, hist, status)

	logger.Info().
		Str("event", "refresh.success").
		Int("entries", status.Entries).
		Int64("duration_ms", status.DurationMS).
		Str("path", cfg.ReadmePath).
		Msg("refresh completed")
	return status, nil
}

// appendHistory records the run; a broken history store degrades to a warning.
func appendHistory(logger zerolog.Logger, hist History, status *Status) {
	if hist == nil {
		return
	}
	rec := store.Record{
		RunID:           status.RunID,
		StartedAt:       status.LastRun,
		Duration:        time.Duration(status.DurationMS) * time.Millisecond,
		Entries:         status.Entries,
		SkippedSections: status.SkippedSections,
		Error:           status.Error,
	}
	if err := hist.Append(rec); err != nil {
		logger.Warn().Err(err).
			Str("event", "refresh.history_append_failed").
			Msg("failed to persist run record")
	}
}
