// Package jira wraps the Jira Cloud REST API for the handful of operations
// gitdocs needs. Reads go through the local response cache and the retry
// policy; writes (comments, transitions) run exactly once and bypass both.
package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/gitdocs/gitdocs/internal/retry"
)

// Namespace is the cache namespace for Jira responses.
const Namespace = "jira"

const (
	apiVersion     = "3"
	defaultTimeout = 30 * time.Second
)

// APIError carries the status of a failed Jira API call.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("jira: %s (status %d)", e.Message, e.StatusCode)
}

// ErrAuth indicates rejected credentials or missing permissions.
var ErrAuth = errors.New("jira: authentication failed, check your email and API token")

// ErrNotFound indicates the requested resource does not exist.
var ErrNotFound = errors.New("jira: resource not found")

// Client is a low-level HTTP client for the Jira Cloud REST API,
// authenticated with email + API token basic auth.
type Client struct {
	baseURL string
	email   string
	token   string

	httpClient *http.Client
	policy     retry.Policy
}

// NewClient creates a Jira client for a base URL like
// https://company.atlassian.net.
func NewClient(baseURL, email, token string) *Client {
	return &Client{
		baseURL:    baseURL,
		email:      email,
		token:      token,
		httpClient: &http.Client{Timeout: defaultTimeout},
		policy:     retry.Default(),
	}
}

// BaseURL returns the configured Jira base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) endpoint(path string) string {
	return fmt.Sprintf("%s/rest/api/%s/%s", c.baseURL, apiVersion, path)
}

// do performs one HTTP round trip and decodes the response into dest.
// Transport failures are marked transient for the retry policy; HTTP
// error statuses are terminal.
func (c *Client) do(ctx context.Context, method, urlStr string, body, dest any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("jira: encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, urlStr, reqBody)
	if err != nil {
		return fmt.Errorf("jira: build request: %w", err)
	}
	req.SetBasicAuth(c.email, c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return retry.Transient(fmt.Errorf("jira: request failed: %w", err))
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}

	if dest == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("jira: decode response: %w", err)
	}
	return nil
}

func checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return ErrAuth
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		// Rate limiting is transient: back off and retry reads.
		return retry.Transient(&APIError{StatusCode: resp.StatusCode, Message: "rate limited"})
	case resp.StatusCode >= 400:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &APIError{StatusCode: resp.StatusCode, Message: string(msg)}
	}
	return nil
}

// get performs a retried GET against the API.
func (c *Client) get(ctx context.Context, path string, params url.Values, dest any) error {
	urlStr := c.endpoint(path)
	if len(params) > 0 {
		urlStr += "?" + params.Encode()
	}
	return c.policy.Do(ctx, func(ctx context.Context) error {
		return c.do(ctx, http.MethodGet, urlStr, nil, dest)
	})
}

// post performs a single-attempt POST against the API. Mutations are not
// retried so a flaky network can't duplicate a comment.
func (c *Client) post(ctx context.Context, path string, body, dest any) error {
	return retry.Single().Do(ctx, func(ctx context.Context) error {
		return c.do(ctx, http.MethodPost, c.endpoint(path), body, dest)
	})
}

// searchPost performs a retried POST for the search endpoint. Jira's JQL
// search is a POST on the wire but a read in semantics, so the read policy
// applies.
func (c *Client) searchPost(ctx context.Context, path string, body, dest any) error {
	return c.policy.Do(ctx, func(ctx context.Context) error {
		return c.do(ctx, http.MethodPost, c.endpoint(path), body, dest)
	})
}
