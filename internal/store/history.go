// SPDX-License-Identifier: MIT

// Package store persists refresh run records in a local badger database so
// the status API can show history across restarts.
package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const runPrefix = "run:"

// Record is one refresh run as kept in the history.
type Record struct {
	RunID           string        `json:"run_id"`
	StartedAt       time.Time     `json:"started_at"`
	Duration        time.Duration `json:"duration"`
	Entries         int           `json:"entries"`
	SkippedSections []string      `json:"skipped_sections,omitempty"`
	Error           string        `json:"error,omitempty"`
}

// History is a badger-backed append-only run log.
type History struct {
	db *badger.DB
}

// Open opens (or creates) the history database under dir.
func Open(dir string) (*History, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", dir, err)
	}
	return &History{db: db}, nil
}

// Append stores one run record. Keys embed the start instant so iteration
// order is chronological.
func (h *History) Append(rec Record) error {
	key := fmt.Sprintf("%s%020d:%s", runPrefix, rec.StartedAt.UnixNano(), rec.RunID)
	val, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("store: marshal record: %w", err)
	}
	err = h.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), val)
	})
	if err != nil {
		return fmt.Errorf("store: append record: %w", err)
	}
	return nil
}

// Recent returns up to n records, newest first.
func (h *History) Recent(n int) ([]Record, error) {
	if n <= 0 {
		return nil, nil
	}
	records := make([]Record, 0, n)
	err := h.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(runPrefix)
		seek := append(append([]byte{}, prefix...), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(prefix) && len(records) < n; it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var rec Record
				if err := json.Unmarshal(val, &rec); err != nil {
					return fmt.Errorf("store: unmarshal record: %w", err)
				}
				records = append(records, rec)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Close closes the underlying database.
func (h *History) Close() error {
	return h.db.Close()
}
