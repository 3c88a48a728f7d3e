package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// APIError is a non-2xx response from the agent service, or a session that
// entered an error state while being polled.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("agent api error %d: %s", e.StatusCode, e.Message)
}

// Client defines the agent session operations. Every call is a fresh
// network request; there is no local caching.
type Client interface {
	// CreateSession starts a new remote session.
	CreateSession(ctx context.Context, req CreateSessionRequest) (*Session, error)

	// GetSession fetches the current state of a session.
	GetSession(ctx context.Context, sessionID string) (*Session, error)
}

// Config holds client configuration.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration // per-request timeout, 0 means 60s
}

// HTTPClient implements Client against the agent service REST API.
type HTTPClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates an agent service client.
func NewClient(cfg Config, logger *slog.Logger) *HTTPClient {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &HTTPClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (c *HTTPClient) request(ctx context.Context, method, endpoint string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("agent request %s %s: %w", method, endpoint, err)
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

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// errorMessage extracts the message field from an error body, falling back
// to the raw body text.
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

// CreateSession starts a new remote session.
func (c *HTTPClient) CreateSession(ctx context.Context, req CreateSessionRequest) (*Session, error) {
	c.logger.Info("Creating agent session", "repo_url", req.RepoURL)

	var session Session
	if err := c.request(ctx, http.MethodPost, "/sessions", req, &session); err != nil {
		return nil, err
	}

	c.logger.Info("Agent session created", "session_id", session.SessionID, "url", session.URL)
	return &session, nil
}

// GetSession fetches the current state of a session.
func (c *HTTPClient) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	var session Session
	if err := c.request(ctx, http.MethodGet, "/sessions/"+sessionID, nil, &session); err != nil {
		return nil, err
	}
	return &session, nil
}
