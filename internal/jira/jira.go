package jira

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gitdocs/gitdocs/internal/cache"
)

// Issue is the subset of a Jira issue gitdocs works with.
type Issue struct {
	ID          string `json:"id"`
	Key         string `json:"key"`
	Summary     string `json:"summary"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status"`
	IssueType   string `json:"issue_type"`
	Priority    string `json:"priority,omitempty"`
	Assignee    string `json:"assignee,omitempty"`
	Updated     string `json:"updated,omitempty"`
}

// Comment is one issue comment.
type Comment struct {
	ID     string `json:"id"`
	Author string `json:"author"`
	Body   string `json:"body"`
}

// Transition is an available workflow transition for an issue.
type Transition struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// API is the high-level Jira wrapper. Reads are cached; writes invalidate
// the affected issue entry.
type API struct {
	client *Client
	cache  *cache.Cache
	ttl    time.Duration
}

// NewAPI creates the wrapper. A nil cache disables caching entirely.
func NewAPI(client *Client, c *cache.Cache, ttl time.Duration) *API {
	if c == nil {
		c = cache.Disabled()
	}
	return &API{client: client, cache: c, ttl: ttl}
}

// BrowseURL returns the human-facing URL for an issue key.
func (a *API) BrowseURL(key string) string {
	return fmt.Sprintf("%s/browse/%s", a.client.BaseURL(), strings.ToUpper(key))
}

// Myself returns the display name of the authenticated user.
// Used by "gitdocs auth test"; never cached.
func (a *API) Myself(ctx context.Context) (string, error) {
	var me struct {
		DisplayName string `json:"displayName"`
	}
	if err := a.client.get(ctx, "myself", nil, &me); err != nil {
		return "", err
	}
	return me.DisplayName, nil
}

// defaultFields is the field set requested from the search endpoint.
var defaultFields = []string{"summary", "status", "issuetype", "priority", "assignee", "updated"}

// SearchIssues runs a JQL query and returns up to limit issues. Responses
// are cached under a fingerprint of (jql, limit).
func (a *API) SearchIssues(ctx context.Context, jql string, limit int) ([]Issue, error) {
	key := cache.QueryKey(jql, limit)
	return cache.FetchJSON(ctx, a.cache, Namespace, key, a.ttl, func(ctx context.Context) ([]Issue, error) {
		body := map[string]any{
			"jql":        jql,
			"fields":     defaultFields,
			"maxResults": limit,
		}

		var result struct {
			Issues []rawIssue `json:"issues"`
		}
		if err := a.client.searchPost(ctx, "search/jql", body, &result); err != nil {
			return nil, err
		}

		issues := make([]Issue, 0, len(result.Issues))
		for _, raw := range result.Issues {
			issues = append(issues, raw.toIssue())
		}
		return issues, nil
	})
}

// GetIssue fetches one issue by key, cached under the uppercased key.
func (a *API) GetIssue(ctx context.Context, key string) (Issue, error) {
	key = strings.ToUpper(key)
	return cache.FetchJSON(ctx, a.cache, Namespace, key, a.ttl, func(ctx context.Context) (Issue, error) {
		var raw rawIssue
		if err := a.client.get(ctx, "issue/"+key, nil, &raw); err != nil {
			return Issue{}, err
		}
		return raw.toIssue(), nil
	})
}

// GetComments returns the comments on an issue, oldest first. Not cached:
// comments are usually read right before writing one.
func (a *API) GetComments(ctx context.Context, key string) ([]Comment, error) {
	key = strings.ToUpper(key)

	var result struct {
		Comments []struct {
			ID     string `json:"id"`
			Author struct {
				DisplayName string `json:"displayName"`
			} `json:"author"`
			Body adfBody `json:"body"`
		} `json:"comments"`
	}

	params := url.Values{"orderBy": {"created"}}
	if err := a.client.get(ctx, "issue/"+key+"/comment", params, &result); err != nil {
		return nil, err
	}

	comments := make([]Comment, 0, len(result.Comments))
	for _, c := range result.Comments {
		comments = append(comments, Comment{ID: c.ID, Author: c.Author.DisplayName, Body: c.Body.text()})
	}
	return comments, nil
}

// AddComment posts a comment on an issue. Runs exactly once (no retry) and
// drops the issue's cache entry so the next read is fresh.
func (a *API) AddComment(ctx context.Context, key, text string) error {
	key = strings.ToUpper(key)

	body := map[string]any{"body": adfParagraph(text)}
	if err := a.client.post(ctx, "issue/"+key+"/comment", body, nil); err != nil {
		return err
	}

	a.cache.Delete(Namespace, key)
	return nil
}

// GetTransitions lists the workflow transitions available for an issue.
func (a *API) GetTransitions(ctx context.Context, key string) ([]Transition, error) {
	var result struct {
		Transitions []Transition `json:"transitions"`
	}
	if err := a.client.get(ctx, "issue/"+strings.ToUpper(key)+"/transitions", nil, &result); err != nil {
		return nil, err
	}
	return result.Transitions, nil
}

// TransitionIssue moves an issue through the named workflow transition.
// The name is matched case-insensitively against available transitions.
func (a *API) TransitionIssue(ctx context.Context, key, transitionName string) error {
	key = strings.ToUpper(key)

	transitions, err := a.GetTransitions(ctx, key)
	if err != nil {
		return err
	}

	var id string
	for _, t := range transitions {
		if strings.EqualFold(t.Name, transitionName) {
			id = t.ID
			break
		}
	}
	if id == "" {
		names := make([]string, 0, len(transitions))
		for _, t := range transitions {
			names = append(names, t.Name)
		}
		return fmt.Errorf("jira: no transition %q for %s (available: %s)",
			transitionName, key, strings.Join(names, ", "))
	}

	body := map[string]any{"transition": map[string]string{"id": id}}
	if err := a.client.post(ctx, "issue/"+key+"/transitions", body, nil); err != nil {
		return err
	}

	a.cache.Delete(Namespace, key)
	return nil
}

// rawIssue mirrors the wire shape of an issue.
type rawIssue struct {
	ID     string `json:"id"`
	Key    string `json:"key"`
	Fields struct {
		Summary     string  `json:"summary"`
		Description adfBody `json:"description"`
		Status      struct {
			Name string `json:"name"`
		} `json:"status"`
		IssueType struct {
			Name string `json:"name"`
		} `json:"issuetype"`
		Priority struct {
			Name string `json:"name"`
		} `json:"priority"`
		Assignee struct {
			DisplayName string `json:"displayName"`
		} `json:"assignee"`
		Updated string `json:"updated"`
	} `json:"fields"`
}

func (r rawIssue) toIssue() Issue {
	return Issue{
		ID:          r.ID,
		Key:         r.Key,
		Summary:     r.Fields.Summary,
		Description: r.Fields.Description.text(),
		Status:      r.Fields.Status.Name,
		IssueType:   r.Fields.IssueType.Name,
		Priority:    r.Fields.Priority.Name,
		Assignee:    r.Fields.Assignee.DisplayName,
		Updated:     r.Fields.Updated,
	}
}
