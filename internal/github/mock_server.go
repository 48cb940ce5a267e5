// SPDX-License-Identifier: MIT

package github

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
)

// MockServer is an httptest-backed GitHub API double used across packages.
type MockServer struct {
	*httptest.Server

	Repos []Repo
	// Keyed by repository full name.
	CommitCounts  map[string]int
	ReleaseLists  map[string][]Release
	TagLists      map[string][]Tag
	Contributions []RepoContribution

	requests atomic.Int64
}

// NewMockServer starts a mock API speaking just enough of the REST and
// GraphQL surface for the collector.
func NewMockServer() *MockServer {
	m := &MockServer{
		CommitCounts: map[string]int{},
		ReleaseLists: map[string][]Release{},
		TagLists:     map[string][]Tag{},
	}
	m.Server = httptest.NewServer(http.HandlerFunc(m.handle))
	return m
}

// Requests returns the number of requests served so far.
func (m *MockServer) Requests() int64 {
	return m.requests.Load()
}

func (m *MockServer) handle(w http.ResponseWriter, r *http.Request) {
	m.requests.Add(1)

	if r.Method == http.MethodPost && r.URL.Path == "/graphql" {
		m.handleGraphQL(w)
		return
	}

	path := r.URL.Path
	switch {
	case strings.HasPrefix(path, "/users/") && strings.HasSuffix(path, "/repos"):
		writeJSON(w, m.Repos)
	case path == "/rate_limit":
		writeJSON(w, map[string]any{"resources": map[string]any{}})
	case strings.HasPrefix(path, "/repos/"):
		rest := strings.TrimPrefix(path, "/repos/")
		parts := strings.Split(rest, "/")
		if len(parts) < 3 {
			http.NotFound(w, r)
			return
		}
		full := parts[0] + "/" + parts[1]
		switch parts[2] {
		case "commits":
			n := m.CommitCounts[full]
			commits := make([]map[string]string, n)
			for i := range commits {
				commits[i] = map[string]string{"sha": fmt.Sprintf("%s-%d", full, i)}
			}
			writeJSON(w, commits)
		case "releases":
			writeJSON(w, orEmptyReleases(m.ReleaseLists[full]))
		case "tags":
			writeJSON(w, orEmptyTags(m.TagLists[full]))
		default:
			http.NotFound(w, r)
		}
	default:
		http.NotFound(w, r)
	}
}

func (m *MockServer) handleGraphQL(w http.ResponseWriter) {
	resp := map[string]any{
		"data": map[string]any{
			"user": map[string]any{
				"contributionsCollection": map[string]any{
					"pullRequestContributionsByRepository": m.Contributions,
				},
			},
		},
	}
	writeJSON(w, resp)
}

func orEmptyReleases(rs []Release) []Release {
	if rs == nil {
		return []Release{}
	}
	return rs
}

func orEmptyTags(ts []Tag) []Tag {
	if ts == nil {
		return []Tag{}
	}
	return ts
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
