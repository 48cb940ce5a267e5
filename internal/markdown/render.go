// SPDX-License-Identifier: MIT

// Package markdown renders the README fragments and splices them between
// marker comments.
package markdown

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/jimyag/profilesync/internal/activity"
)

// EmptyActivity is rendered when there is nothing to show.
const EmptyActivity = "_No recent activity_"

// WriteActivity renders the activity list as a markdown bullet list.
func WriteActivity(w io.Writer, entries []activity.Entry) error {
	buf := &bytes.Buffer{}
	if len(entries) == 0 {
		buf.WriteString(EmptyActivity)
	}
	for i, e := range entries {
		if i > 0 {
			buf.WriteByte('\n')
		}
		switch e.Kind {
		case activity.KindContribution:
			noun := "merged PR"
			if e.MergedPRs != 1 {
				noun = "merged PRs"
			}
			fmt.Fprintf(buf, "- [%s](%s) (%d %s)", e.Name, e.URL, e.MergedPRs, noun)
		default:
			fmt.Fprintf(buf, "- [%s](%s)", e.Name, e.URL)
			stats := repoStats(e)
			if stats != "" {
				fmt.Fprintf(buf, " (%s)", stats)
			}
		}
	}
	_, err := io.Copy(w, buf)
	return err
}

// RenderActivity is the string form of WriteActivity.
func RenderActivity(entries []activity.Entry) string {
	buf := &bytes.Buffer{}
	// Buffer writes cannot fail.
	_ = WriteActivity(buf, entries)
	return buf.String()
}

func repoStats(e activity.Entry) string {
	buf := &bytes.Buffer{}
	if e.CommitCount > 0 {
		fmt.Fprintf(buf, "%d commits", e.CommitCount)
	}
	if e.Tag != "" {
		if buf.Len() > 0 {
			buf.WriteString(", ")
		}
		fmt.Fprintf(buf, "[%s](%s)", e.Tag, e.TagURL)
	}
	return buf.String()
}

// RenderUpdated renders the "last updated" line in UTC.
func RenderUpdated(t time.Time) string {
	return fmt.Sprintf("_Last updated: %s UTC_", t.UTC().Format("2006-01-02 15:04"))
}
