// Package orchestrator composes the tracker client, agent client, polling
// engine, and store into the two end-to-end workflows: scope and execute.
package orchestrator

import (
	"fmt"
	"log/slog"

	"github.com/devtriage/issuepilot/internal/agent"
	"github.com/devtriage/issuepilot/internal/config"
	"github.com/devtriage/issuepilot/internal/domain"
	"github.com/devtriage/issuepilot/internal/github"
	"github.com/devtriage/issuepilot/internal/store"
)

// maxFetchedComments caps how many issue comments are fetched for a scoping
// run. The prompt builder embeds at most five of them.
const maxFetchedComments = 10

// NoOutputError means a scoping session resolved but its structured output
// was absent or unparseable. A scope run without a plan has no value, so
// this is a failure, distinct from timeouts and agent errors.
type NoOutputError struct {
	SessionID string
	URL       string
}

func (e *NoOutputError) Error() string {
	return fmt.Sprintf("session %s completed without parseable structured output", e.SessionID)
}

// ResponseStatus discriminates the two points at which a workflow returns.
type ResponseStatus string

const (
	// StatusSessionCreated means the workflow returned immediately after
	// creating the session (wait=false).
	StatusSessionCreated ResponseStatus = "session_created"
	// StatusCompleted means the workflow waited for the session to resolve.
	StatusCompleted ResponseStatus = "completed"
)

// ScopeResponse is the outcome of a scope workflow run. Result is set only
// when Status is StatusCompleted.
type ScopeResponse struct {
	Status ResponseStatus `json:"status"`

	Owner  string `json:"owner"`
	Repo   string `json:"repo"`
	Number int    `json:"number"`

	SessionID     string `json:"session_id"`
	SessionURL    string `json:"session_url,omitempty"`
	SessionStatus string `json:"session_status,omitempty"`

	Result *domain.ScopingResult `json:"result,omitempty"`
}

// ExecuteResponse is the outcome of an execute workflow run. Result may be
// nil even when Status is StatusCompleted: an execution session that
// resolves without parseable output is a degraded success, not a failure.
type ExecuteResponse struct {
	Status ResponseStatus `json:"status"`

	Owner  string `json:"owner"`
	Repo   string `json:"repo"`
	Number int    `json:"number"`

	SessionID     string `json:"session_id"`
	SessionURL    string `json:"session_url,omitempty"`
	SessionStatus string `json:"session_status,omitempty"`

	Result *domain.ExecutionResult `json:"result,omitempty"`
}

// Orchestrator runs the scope and execute workflows. Each invocation is
// independent; the store is the only shared resource.
type Orchestrator struct {
	cfg      *config.Config
	tracker  github.Client
	sessions agent.Client
	poller   *agent.Poller
	recorder *recorder
	logger   *slog.Logger
}

// New creates an Orchestrator from its collaborators.
func New(cfg *config.Config, tracker github.Client, sessions agent.Client, repo store.Repository, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		cfg:      cfg,
		tracker:  tracker,
		sessions: sessions,
		poller:   agent.NewPoller(sessions, cfg.Polling.Interval, cfg.Polling.MaxInterval, logger),
		recorder: newRecorder(repo, logger),
		logger:   logger,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
