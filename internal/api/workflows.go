package api

import (
	"log/slog"
	"net/http"

	"github.com/devtriage/issuepilot/internal/orchestrator"
)

// ScopeIssue runs the scope workflow. wait defaults to true: scoping is
// quick enough to block on.
// POST /api/v1/scope/{owner}/{repo}/{number}?wait=
func (h *Handler) ScopeIssue(w http.ResponseWriter, r *http.Request) {
	owner, repo, number, err := issueParams(r)
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid issue number")
		return
	}
	wait := waitParam(r, true)

	slog.Info("Scope requested", "owner", owner, "repo", repo, "number", number, "wait", wait)

	resp, err := h.orch.Scope(r.Context(), owner, repo, number, wait)
	if err != nil {
		workflowError(w, owner, repo, number, err)
		return
	}

	status := http.StatusOK
	if resp.Status == orchestrator.StatusSessionCreated {
		status = http.StatusAccepted
	}
	JSON(w, status, resp)
}

// ExecuteIssue runs the execute workflow. wait defaults to false: execution
// sessions run for a long time and blocking the request on them is
// discouraged.
// POST /api/v1/execute/{owner}/{repo}/{number}?wait=
func (h *Handler) ExecuteIssue(w http.ResponseWriter, r *http.Request) {
	owner, repo, number, err := issueParams(r)
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid issue number")
		return
	}
	wait := waitParam(r, false)

	slog.Info("Execute requested", "owner", owner, "repo", repo, "number", number, "wait", wait)

	resp, err := h.orch.Execute(r.Context(), owner, repo, number, wait)
	if err != nil {
		workflowError(w, owner, repo, number, err)
		return
	}

	status := http.StatusOK
	if resp.Status == orchestrator.StatusSessionCreated {
		status = http.StatusAccepted
	}
	JSON(w, status, resp)
}
