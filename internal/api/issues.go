package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/devtriage/issuepilot/internal/github"
	"github.com/go-chi/chi/v5"
)

// ListIssues fetches issues from GitHub with optional filtering.
// GET /api/v1/issues/{owner}/{repo}?labels=&state=&assignee=&page=&per_page=
func (h *Handler) ListIssues(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")
	repo := chi.URLParam(r, "repo")

	q := r.URL.Query()
	opts := github.ListOptions{
		Labels:   q.Get("labels"),
		State:    q.Get("state"),
		Assignee: q.Get("assignee"),
	}
	if page, err := strconv.Atoi(q.Get("page")); err == nil {
		opts.Page = page
	}
	if perPage, err := strconv.Atoi(q.Get("per_page")); err == nil {
		opts.PerPage = perPage
	}

	issues, err := h.tracker.ListIssues(r.Context(), owner, repo, opts)
	if err != nil {
		var ghErr *github.APIError
		if errors.As(err, &ghErr) {
			JSON(w, ghErr.StatusCode, map[string]any{
				"error":   "GitHub API Error",
				"message": ghErr.Message,
				"owner":   owner,
				"repo":    repo,
			})
			return
		}
		slog.Error("Failed to list issues", "owner", owner, "repo", repo, "error", err)
		Error(w, http.StatusInternalServerError, "failed to list issues")
		return
	}

	slog.Info("Listed issues", "owner", owner, "repo", repo, "count", len(issues))
	JSON(w, http.StatusOK, issues)
}

// GetIssue fetches a single issue from GitHub.
// GET /api/v1/issues/{owner}/{repo}/{number}
func (h *Handler) GetIssue(w http.ResponseWriter, r *http.Request) {
	owner, repo, number, err := issueParams(r)
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid issue number")
		return
	}

	issue, err := h.tracker.GetIssue(r.Context(), owner, repo, number)
	if err != nil {
		var ghErr *github.APIError
		if errors.As(err, &ghErr) {
			JSON(w, ghErr.StatusCode, map[string]any{
				"error":        "GitHub API Error",
				"message":      ghErr.Message,
				"owner":        owner,
				"repo":         repo,
				"issue_number": number,
			})
			return
		}
		slog.Error("Failed to get issue", "owner", owner, "repo", repo, "number", number, "error", err)
		Error(w, http.StatusInternalServerError, "failed to get issue")
		return
	}

	JSON(w, http.StatusOK, issue)
}
