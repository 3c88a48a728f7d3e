package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/devtriage/issuepilot/internal/agent"
	"github.com/go-chi/chi/v5"
)

// ListSessions returns the most recent session records from the store.
// GET /api/v1/sessions?limit=
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 {
		limit = n
	}

	records, err := h.repo.ListSessions(r.Context(), limit)
	if err != nil {
		slog.Error("Failed to list sessions", "error", err)
		Error(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}

	JSON(w, http.StatusOK, map[string]any{
		"sessions": records,
		"count":    len(records),
	})
}

// GetSession returns the stored record for a session together with the
// current remote state. The remote fetch is best effort; a stored record is
// returned even when the agent service is unreachable.
// GET /api/v1/sessions/{sessionID}
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	record, err := h.repo.GetSession(r.Context(), sessionID)
	if err != nil {
		slog.Error("Failed to load session record", "session_id", sessionID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to load session record")
		return
	}

	remote, err := h.sessions.GetSession(r.Context(), sessionID)
	if err != nil {
		var agentErr *agent.APIError
		if errors.As(err, &agentErr) && record == nil {
			JSON(w, agentErr.StatusCode, map[string]any{
				"error":      "Agent API Error",
				"message":    agentErr.Message,
				"session_id": sessionID,
			})
			return
		}
		slog.Warn("Failed to fetch remote session state", "session_id", sessionID, "error", err)
	}

	if record == nil && remote == nil {
		Error(w, http.StatusNotFound, "session not found")
		return
	}

	JSON(w, http.StatusOK, map[string]any{
		"record": record,
		"remote": remote,
	})
}

// ListEvents returns the most recent audit events.
// GET /api/v1/events?limit=
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 {
		limit = n
	}

	events, err := h.repo.ListEvents(r.Context(), limit)
	if err != nil {
		slog.Error("Failed to list events", "error", err)
		Error(w, http.StatusInternalServerError, "failed to list events")
		return
	}

	JSON(w, http.StatusOK, map[string]any{
		"events": events,
		"count":  len(events),
	})
}

// Health reports store connectivity.
// GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.Ping(r.Context()); err != nil {
		slog.Error("Health check failed", "error", err)
		JSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	JSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"dev":    h.cfg.IsDevelopment(),
	})
}
