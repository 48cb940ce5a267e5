// SPDX-License-Identifier: MIT

package store

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestHistory(t *testing.T) *History {
	t.Helper()

	h, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, h.Close())
	})
	return h
}

func TestHistoryAppendRecent(t *testing.T) {
	h := openTestHistory(t)

	base := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		rec := Record{
			RunID:     fmt.Sprintf("run-%d", i),
			StartedAt: base.Add(time.Duration(i) * time.Minute),
			Duration:  2 * time.Second,
			Entries:   i,
		}
		require.NoError(t, h.Append(rec))
	}

	records, err := h.Recent(3)
	require.NoError(t, err)
	require.Len(t, records, 3)

	// Newest first.
	assert.Equal(t, "run-4", records[0].RunID)
	assert.Equal(t, "run-3", records[1].RunID)
	assert.Equal(t, "run-2", records[2].RunID)
}

func TestHistoryRecentMoreThanStored(t *testing.T) {
	h := openTestHistory(t)

	require.NoError(t, h.Append(Record{RunID: "only", StartedAt: time.Now()}))

	records, err := h.Recent(20)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "only", records[0].RunID)
}

func TestHistoryRecentEmpty(t *testing.T) {
	h := openTestHistory(t)

	records, err := h.Recent(10)
	require.NoError(t, err)
	assert.Empty(t, records)

	records, err = h.Recent(0)
	require.NoError(t, err)
	assert.Nil(t, records)
}

func TestHistoryRoundTripFields(t *testing.T) {
	h := openTestHistory(t)

	want := Record{
		RunID:           "abc",
		StartedAt:       time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC),
		Duration:        1500 * time.Millisecond,
		Entries:         7,
		SkippedSections: []string{"UPDATED"},
		Error:           "collect activity: boom",
	}
	require.NoError(t, h.Append(want))

	records, err := h.Recent(1)
	require.NoError(t, err)
	require.Len(t, records, 1)

	got := records[0]
	assert.Equal(t, want.RunID, got.RunID)
	assert.True(t, want.StartedAt.Equal(got.StartedAt))
	assert.Equal(t, want.Duration, got.Duration)
	assert.Equal(t, want.Entries, got.Entries)
	assert.Equal(t, want.SkippedSections, got.SkippedSections)
	assert.Equal(t, want.Error, got.Error)
}

func TestHistoryPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	h, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, h.Append(Record{RunID: "persisted", StartedAt: time.Now()}))
	require.NoError(t, h.Close())

	h, err = Open(dir)
	require.NoError(t, err)
	defer func() { require.NoError(t, h.Close()) }()

	records, err := h.Recent(1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "persisted", records[0].RunID)
}
