// Package api provides HTTP handlers for the issuepilot API.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/devtriage/issuepilot/internal/agent"
	"github.com/devtriage/issuepilot/internal/config"
	"github.com/devtriage/issuepilot/internal/github"
	"github.com/devtriage/issuepilot/internal/orchestrator"
	"github.com/devtriage/issuepilot/internal/store"
	"github.com/go-chi/chi/v5"
)

// Handler provides the API endpoints over the orchestrator and its
// collaborators.
type Handler struct {
	repo     store.Repository
	tracker  github.Client
	sessions agent.Client
	orch     *orchestrator.Orchestrator
	cfg      *config.Config
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(repo store.Repository, tracker github.Client, sessions agent.Client, orch *orchestrator.Orchestrator, cfg *config.Config) *Handler {
	return &Handler{
		repo:     repo,
		tracker:  tracker,
		sessions: sessions,
		orch:     orch,
		cfg:      cfg,
	}
}

// RegisterRoutes registers all API routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/issues/{owner}/{repo}", h.ListIssues)
		r.Get("/issues/{owner}/{repo}/{number}", h.GetIssue)
		r.Post("/scope/{owner}/{repo}/{number}", h.ScopeIssue)
		r.Post("/execute/{owner}/{repo}/{number}", h.ExecuteIssue)
		r.Get("/sessions", h.ListSessions)
		r.Get("/sessions/{sessionID}", h.GetSession)
		r.Get("/events", h.ListEvents)
	})
	r.Get("/ws/sessions/{sessionID}", h.WatchSession)
	r.Get("/health", h.Health)
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// workflowError maps a workflow failure onto a response that carries enough
// context for a human to inspect the remote session.
func workflowError(w http.ResponseWriter, owner, repo string, number int, err error) {
	base := map[string]any{
		"owner":        owner,
		"repo":         repo,
		"issue_number": number,
	}

	var ghErr *github.APIError
	if errors.As(err, &ghErr) {
		base["error"] = "GitHub API Error"
		base["message"] = ghErr.Message
		JSON(w, ghErr.StatusCode, base)
		return
	}

	var timeoutErr *agent.TimeoutError
	if errors.As(err, &timeoutErr) {
		base["error"] = "Session Timeout"
		base["message"] = timeoutErr.Error()
		base["session_id"] = timeoutErr.SessionID
		base["session_url"] = timeoutErr.URL
		JSON(w, http.StatusGatewayTimeout, base)
		return
	}

	var agentErr *agent.APIError
	if errors.As(err, &agentErr) {
		base["error"] = "Agent API Error"
		base["message"] = agentErr.Message
		status := agentErr.StatusCode
		if status < 400 || status > 599 {
			status = http.StatusBadGateway
		}
		JSON(w, status, base)
		return
	}

	var noOutput *orchestrator.NoOutputError
	if errors.As(err, &noOutput) {
		base["error"] = "No Structured Output"
		base["message"] = noOutput.Error()
		base["session_id"] = noOutput.SessionID
		base["session_url"] = noOutput.URL
		JSON(w, http.StatusBadGateway, base)
		return
	}

	base["error"] = "Internal Server Error"
	base["message"] = err.Error()
	JSON(w, http.StatusInternalServerError, base)
}

// issueParams extracts the owner/repo/number path parameters.
func issueParams(r *http.Request) (owner, repo string, number int, err error) {
	owner = chi.URLParam(r, "owner")
	repo = chi.URLParam(r, "repo")
	number, err = strconv.Atoi(chi.URLParam(r, "number"))
	return owner, repo, number, err
}

// waitParam reads the wait query parameter, falling back to the given
// default when absent or malformed.
func waitParam(r *http.Request, fallback bool) bool {
	switch r.URL.Query().Get("wait") {
	case "true", "1":
		return true
	case "false", "0":
		return false
	default:
		return fallback
	}
}
