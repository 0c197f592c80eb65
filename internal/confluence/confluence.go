// Package confluence wraps the Confluence Cloud REST API for reading and
// creating documentation pages. Reads go through the local response cache;
// page creation runs exactly once.
package confluence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gitdocs/gitdocs/internal/cache"
	"github.com/gitdocs/gitdocs/internal/retry"
)

// Namespace is the cache namespace for Confluence responses.
const Namespace = "confluence"

const defaultTimeout = 30 * time.Second

// APIError carries the status of a failed Confluence API call.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("confluence: %s (status %d)", e.Message, e.StatusCode)
}

// ErrAuth indicates rejected credentials or missing permissions.
var ErrAuth = errors.New("confluence: authentication failed, check your email and API token")

// ErrNotFound indicates the requested resource does not exist.
var ErrNotFound = errors.New("confluence: resource not found")

// Space is a Confluence space.
type Space struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Name string `json:"name"`
}

// Page is the subset of a Confluence page gitdocs works with.
type Page struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Space   string `json:"space,omitempty"`
	Version int    `json:"version"`
	Body    string `json:"body,omitempty"`
	Link    string `json:"link,omitempty"`
}

// API is the Confluence client and wrapper in one: the surface is small
// enough not to split the layers. A nil cache disables caching.
type API struct {
	baseURL string
	email   string
	token   string

	httpClient *http.Client
	policy     retry.Policy
	cache      *cache.Cache
	ttl        time.Duration
}

// NewAPI creates the wrapper for a base URL like
// https://company.atlassian.net/wiki.
func NewAPI(baseURL, email, token string, c *cache.Cache, ttl time.Duration) *API {
	if c == nil {
		c = cache.Disabled()
	}
	return &API{
		baseURL:    baseURL,
		email:      email,
		token:      token,
		httpClient: &http.Client{Timeout: defaultTimeout},
		policy:     retry.Default(),
		cache:      c,
		ttl:        ttl,
	}
}

func (a *API) endpoint(path string) string {
	return a.baseURL + "/rest/api/" + path
}

func (a *API) do(ctx context.Context, method, urlStr string, body, dest any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("confluence: encode request: %w", err)
		}
		reqBody = strings.NewReader(string(data))
	}

	req, err := http.NewRequestWithContext(ctx, method, urlStr, reqBody)
	if err != nil {
		return fmt.Errorf("confluence: build request: %w", err)
	}
	req.SetBasicAuth(a.email, a.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return retry.Transient(fmt.Errorf("confluence: request failed: %w", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return ErrAuth
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		return retry.Transient(&APIError{StatusCode: resp.StatusCode, Message: "rate limited"})
	case resp.StatusCode >= 400:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &APIError{StatusCode: resp.StatusCode, Message: string(msg)}
	}

	if dest == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("confluence: decode response: %w", err)
	}
	return nil
}

func (a *API) get(ctx context.Context, path string, params url.Values, dest any) error {
	urlStr := a.endpoint(path)
	if len(params) > 0 {
		urlStr += "?" + params.Encode()
	}
	return a.policy.Do(ctx, func(ctx context.Context) error {
		return a.do(ctx, http.MethodGet, urlStr, nil, dest)
	})
}

// rawPage mirrors the wire shape of a page with expanded body and version.
type rawPage struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Space struct {
		Key string `json:"key"`
	} `json:"space"`
	Version struct {
		Number int `json:"number"`
	} `json:"version"`
	Body struct {
		Storage struct {
			Value string `json:"value"`
		} `json:"storage"`
	} `json:"body"`
	Links struct {
		WebUI string `json:"webui"`
	} `json:"_links"`
}

func (a *API) toPage(raw rawPage) Page {
	link := ""
	if raw.Links.WebUI != "" {
		link = a.baseURL + raw.Links.WebUI
	}
	return Page{
		ID:      raw.ID,
		Title:   raw.Title,
		Space:   raw.Space.Key,
		Version: raw.Version.Number,
		Body:    raw.Body.Storage.Value,
		Link:    link,
	}
}

// Myself returns the display name of the authenticated user. Never cached.
func (a *API) Myself(ctx context.Context) (string, error) {
	var me struct {
		DisplayName string `json:"displayName"`
	}
	if err := a.get(ctx, "user/current", nil, &me); err != nil {
		return "", err
	}
	return me.DisplayName, nil
}

// GetSpaces lists up to limit spaces, cached under the result limit.
func (a *API) GetSpaces(ctx context.Context, limit int) ([]Space, error) {
	key := cache.QueryKey("spaces", limit)
	return cache.FetchJSON(ctx, a.cache, Namespace, key, a.ttl, func(ctx context.Context) ([]Space, error) {
		var result struct {
			Results []Space `json:"results"`
		}
		params := url.Values{"limit": {fmt.Sprint(limit)}}
		if err := a.get(ctx, "space", params, &result); err != nil {
			return nil, err
		}
		return result.Results, nil
	})
}

// GetPage fetches one page by ID with its storage body, cached by ID.
func (a *API) GetPage(ctx context.Context, pageID string) (Page, error) {
	return cache.FetchJSON(ctx, a.cache, Namespace, pageID, a.ttl, func(ctx context.Context) (Page, error) {
		var raw rawPage
		params := url.Values{"expand": {"body.storage,version,space"}}
		if err := a.get(ctx, "content/"+pageID, params, &raw); err != nil {
			return Page{}, err
		}
		return a.toPage(raw), nil
	})
}

// GetPageByTitle finds a page by exact title within a space. The lookup is
// cached under a fingerprint of (space, title).
func (a *API) GetPageByTitle(ctx context.Context, spaceKey, title string) (Page, error) {
	key := cache.Fingerprint(spaceKey + ":" + title)
	return cache.FetchJSON(ctx, a.cache, Namespace, key, a.ttl, func(ctx context.Context) (Page, error) {
		var result struct {
			Results []rawPage `json:"results"`
		}
		params := url.Values{
			"spaceKey": {spaceKey},
			"title":    {title},
			"expand":   {"body.storage,version,space"},
		}
		if err := a.get(ctx, "content", params, &result); err != nil {
			return Page{}, err
		}
		if len(result.Results) == 0 {
			return Page{}, fmt.Errorf("%w: page %q in space %s", ErrNotFound, title, spaceKey)
		}
		return a.toPage(result.Results[0]), nil
	})
}

// GetPagesInSpace lists pages in a space, cached per (space, limit).
func (a *API) GetPagesInSpace(ctx context.Context, spaceKey string, limit int) ([]Page, error) {
	key := cache.QueryKey("pages:"+spaceKey, limit)
	return cache.FetchJSON(ctx, a.cache, Namespace, key, a.ttl, func(ctx context.Context) ([]Page, error) {
		var result struct {
			Results []rawPage `json:"results"`
		}
		params := url.Values{
			"spaceKey": {spaceKey},
			"type":     {"page"},
			"limit":    {fmt.Sprint(limit)},
			"expand":   {"version,space"},
		}
		if err := a.get(ctx, "content", params, &result); err != nil {
			return nil, err
		}

		pages := make([]Page, 0, len(result.Results))
		for _, raw := range result.Results {
			pages = append(pages, a.toPage(raw))
		}
		return pages, nil
	})
}

// CreatePage creates a page in a space with storage-format body. Runs
// exactly once (no retry) and clears the space's cached listings.
func (a *API) CreatePage(ctx context.Context, spaceKey, title, storageBody string, parentID string) (Page, error) {
	body := map[string]any{
		"type":  "page",
		"title": title,
		"space": map[string]string{"key": spaceKey},
		"body": map[string]any{
			"storage": map[string]string{
				"value":          storageBody,
				"representation": "storage",
			},
		},
	}
	if parentID != "" {
		body["ancestors"] = []map[string]string{{"id": parentID}}
	}

	var raw rawPage
	err := retry.Single().Do(ctx, func(ctx context.Context) error {
		return a.do(ctx, http.MethodPost, a.endpoint("content"), body, &raw)
	})
	if err != nil {
		return Page{}, err
	}

	// Listings for this space are stale now.
	a.cache.ClearNamespace(Namespace)
	return a.toPage(raw), nil
}
