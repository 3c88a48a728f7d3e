// Package github provides a client for the GitHub REST API, scoped to the
// issue operations this system needs.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const defaultBaseURL = "https://api.github.com"

// rateLimitWarnThreshold is the remaining-request count below which a
// warning is logged. Rate limiting itself is surfaced, not handled.
const rateLimitWarnThreshold = 100

// APIError is a non-2xx response from the GitHub API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github api error %d: %s", e.StatusCode, e.Message)
}

// Client defines the GitHub operations consumed by the orchestrator and API
// layer. This interface enables testing with fake implementations.
type Client interface {
	// GetIssue fetches a single issue.
	GetIssue(ctx context.Context, owner, repo string, number int) (*Issue, error)

	// ListIssues fetches issues matching the filters. Pull requests are
	// excluded even though GitHub returns them from the same endpoint.
	ListIssues(ctx context.Context, owner, repo string, opts ListOptions) ([]Issue, error)

	// ListComments fetches up to perPage of the most recent comments on an
	// issue.
	ListComments(ctx context.Context, owner, repo string, number, perPage int) ([]Comment, error)

	// CreateComment posts a comment on an issue.
	CreateComment(ctx context.Context, owner, repo string, number int, body string) (*Comment, error)
}

// HTTPClient implements Client against the GitHub REST API.
type HTTPClient struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *slog.Logger
}

// Config holds client configuration.
type Config struct {
	Token   string
	BaseURL string        // empty means api.github.com
	Timeout time.Duration // per-request timeout, 0 means 30s
}

// NewClient creates a GitHub API client.
func NewClient(cfg Config, logger *slog.Logger) *HTTPClient {
	if logger == nil {
		logger = slog.Default()
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		baseURL: baseURL,
		token:   cfg.Token,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (c *HTTPClient) request(ctx context.Context, method, endpoint string, params url.Values, body any, out any) error {
	u := c.baseURL + endpoint
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("github request %s %s: %w", method, endpoint, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Debug("failed to close response body", "error", closeErr)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(respBody)}
	}

	if remaining := resp.Header.Get("X-RateLimit-Remaining"); remaining != "" {
		if n, convErr := strconv.Atoi(remaining); convErr == nil && n < rateLimitWarnThreshold {
			c.logger.Warn("GitHub API rate limit low", "remaining", n)
		}
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// errorMessage extracts the human-readable message from a GitHub error
// body, falling back to the raw body text.
func errorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	if len(body) > 0 {
		return string(body)
	}
	return "unknown error"
}

// GetIssue fetches a single issue.
func (c *HTTPClient) GetIssue(ctx context.Context, owner, repo string, number int) (*Issue, error) {
	endpoint := fmt.Sprintf("/repos/%s/%s/issues/%d", owner, repo, number)

	var issue Issue
	if err := c.request(ctx, http.MethodGet, endpoint, nil, nil, &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

// ListIssues fetches issues matching the filters, excluding pull requests.
func (c *HTTPClient) ListIssues(ctx context.Context, owner, repo string, opts ListOptions) ([]Issue, error) {
	endpoint := fmt.Sprintf("/repos/%s/%s/issues", owner, repo)

	state := opts.State
	if state == "" {
		state = "open"
	}
	page := opts.Page
	if page < 1 {
		page = 1
	}
	perPage := opts.PerPage
	if perPage < 1 {
		perPage = 30
	}
	if perPage > 100 {
		perPage = 100
	}

	params := url.Values{}
	params.Set("state", state)
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(perPage))
	params.Set("sort", "updated")
	params.Set("direction", "desc")
	if opts.Labels != "" {
		params.Set("labels", opts.Labels)
	}
	if opts.Assignee != "" {
		params.Set("assignee", opts.Assignee)
	}

	var items []Issue
	if err := c.request(ctx, http.MethodGet, endpoint, params, nil, &items); err != nil {
		return nil, err
	}

	issues := make([]Issue, 0, len(items))
	for _, item := range items {
		if item.IsPullRequest() {
			continue
		}
		issues = append(issues, item)
	}
	return issues, nil
}

// ListComments fetches up to perPage of the most recent comments on an issue.
func (c *HTTPClient) ListComments(ctx context.Context, owner, repo string, number, perPage int) ([]Comment, error) {
	endpoint := fmt.Sprintf("/repos/%s/%s/issues/%d/comments", owner, repo, number)

	params := url.Values{}
	if perPage > 0 {
		params.Set("per_page", strconv.Itoa(perPage))
	}

	var comments []Comment
	if err := c.request(ctx, http.MethodGet, endpoint, params, nil, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

// CreateComment posts a comment on an issue.
func (c *HTTPClient) CreateComment(ctx context.Context, owner, repo string, number int, body string) (*Comment, error) {
	endpoint := fmt.Sprintf("/repos/%s/%s/issues/%d/comments", owner, repo, number)

	var comment Comment
	payload := map[string]string{"body": body}
	if err := c.request(ctx, http.MethodPost, endpoint, nil, payload, &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}
