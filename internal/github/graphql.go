// SPDX-License-Identifier: MIT

package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jimyag/profilesync/internal/metrics"
)

// contributionsQuery asks for merged-PR contributions grouped by repository.
const contributionsQuery = `
query($login: String!) {
  user(login: $login) {
    contributionsCollection {
      pullRequestContributionsByRepository(maxRepositories: 50) {
        repository {
          nameWithOwner
          url
          isPrivate
          owner {
            login
          }
        }
        contributions(first: 10) {
          nodes {
            pullRequest {
              title
              url
              mergedAt
              state
            }
          }
        }
      }
    }
  }
}`

// PullRequest is a single PR node from the contributions query.
type PullRequest struct {
	Title    string     `json:"title"`
	URL      string     `json:"url"`
	MergedAt *time.Time `json:"mergedAt"`
	State    string     `json:"state"`
}

// RepoContribution groups a contributor's PRs to one repository.
type RepoContribution struct {
	Repository struct {
		NameWithOwner string `json:"nameWithOwner"`
		URL           string `json:"url"`
		IsPrivate     bool   `json:"isPrivate"`
		Owner         struct {
			Login string `json:"login"`
		} `json:"owner"`
	} `json:"repository"`
	Contributions struct {
		Nodes []struct {
			PullRequest PullRequest `json:"pullRequest"`
		} `json:"nodes"`
	} `json:"contributions"`
}

type graphqlError struct {
	Message string `json:"message"`
}

// Contributions fetches the user's recent PR contributions via GraphQL.
func (c *Client) Contributions(ctx context.Context, login string) ([]RepoContribution, error) {
	payload, err := json.Marshal(map[string]any{
		"query":     contributionsQuery,
		"variables": map[string]string{"login": login},
	})
	if err != nil {
		return nil, &APIError{Sentinel: ErrBadResponse, Operation: "graphql", Err: err}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.graphqlURL, bytes.NewReader(payload))
	if err != nil {
		return nil, &APIError{Sentinel: ErrBadResponse, Operation: "graphql", Err: err}
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	res, err := c.http.Do(req)
	metrics.ObserveGitHubRequest("graphql", time.Since(start))
	if err != nil {
		return nil, c.transportError("graphql", err)
	}
	defer res.Body.Close() //nolint:errcheck

	if res.StatusCode != http.StatusOK {
		return nil, c.statusError("graphql", res)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, &APIError{Sentinel: ErrBadResponse, Operation: "graphql", Err: err}
	}

	var out struct {
		Data struct {
			User struct {
				ContributionsCollection struct {
					PullRequestContributionsByRepository []RepoContribution `json:"pullRequestContributionsByRepository"`
				} `json:"contributionsCollection"`
			} `json:"user"`
		} `json:"data"`
		Errors []graphqlError `json:"errors"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		metrics.IncGitHubRequest("graphql", "error")
		return nil, &APIError{Sentinel: ErrBadResponse, Operation: "graphql", Err: err}
	}
	if len(out.Errors) > 0 {
		metrics.IncGitHubRequest("graphql", "error")
		return nil, &APIError{
			Sentinel:  ErrBadResponse,
			Operation: "graphql",
			Err:       fmt.Errorf("graphql: %s", out.Errors[0].Message),
		}
	}

	metrics.IncGitHubRequest("graphql", "success")
	return out.Data.User.ContributionsCollection.PullRequestContributionsByRepository, nil
}
