package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/devtriage/issuepilot/internal/agent"
	"github.com/devtriage/issuepilot/internal/domain"
	"github.com/devtriage/issuepilot/internal/github"
	"github.com/devtriage/issuepilot/internal/orchestrator"
)

// apiClient wraps the server's HTTP API. Workflow requests with wait=true
// block until the session resolves, so the client carries no timeout and
// relies on the command context.
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{
		baseURL: baseURL,
		http:    &http.Client{},
	}
}

// serverError is the error envelope the server writes for failed requests.
type serverError struct {
	StatusCode int
	Title      string `json:"error"`
	Message    string `json:"message"`
	SessionURL string `json:"session_url"`
}

func (e *serverError) Error() string {
	msg := e.Title
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", e.Title, e.Message)
	}
	if msg == "" {
		msg = fmt.Sprintf("server returned HTTP %d", e.StatusCode)
	}
	return msg
}

func (c *apiClient) do(ctx context.Context, method, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		srvErr := &serverError{StatusCode: resp.StatusCode}
		if jsonErr := json.Unmarshal(body, srvErr); jsonErr != nil {
			srvErr.Message = string(body)
		}
		return srvErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *apiClient) listIssues(ctx context.Context, owner, repo string, opts github.ListOptions) ([]github.Issue, error) {
	q := url.Values{}
	if opts.Labels != "" {
		q.Set("labels", opts.Labels)
	}
	if opts.State != "" {
		q.Set("state", opts.State)
	}
	if opts.Assignee != "" {
		q.Set("assignee", opts.Assignee)
	}
	if opts.PerPage > 0 {
		q.Set("per_page", strconv.Itoa(opts.PerPage))
	}

	var issues []github.Issue
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/issues/%s/%s", owner, repo), q, &issues)
	return issues, err
}

func (c *apiClient) scope(ctx context.Context, owner, repo string, number int, wait bool) (*orchestrator.ScopeResponse, error) {
	q := url.Values{"wait": []string{strconv.FormatBool(wait)}}
	var resp orchestrator.ScopeResponse
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/v1/scope/%s/%s/%d", owner, repo, number), q, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *apiClient) execute(ctx context.Context, owner, repo string, number int, wait bool) (*orchestrator.ExecuteResponse, error) {
	q := url.Values{"wait": []string{strconv.FormatBool(wait)}}
	var resp orchestrator.ExecuteResponse
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/v1/execute/%s/%s/%d", owner, repo, number), q, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

type sessionList struct {
	Sessions []domain.SessionRecord `json:"sessions"`
	Count    int                    `json:"count"`
}

func (c *apiClient) listSessions(ctx context.Context, limit int) (*sessionList, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var list sessionList
	if err := c.do(ctx, http.MethodGet, "/api/v1/sessions", q, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

type sessionDetail struct {
	Record *domain.SessionRecord `json:"record"`
	Remote *agent.Session        `json:"remote"`
}

func (c *apiClient) getSession(ctx context.Context, sessionID string) (*sessionDetail, error) {
	var detail sessionDetail
	if err := c.do(ctx, http.MethodGet, "/api/v1/sessions/"+url.PathEscape(sessionID), nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}
