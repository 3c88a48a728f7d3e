package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/devtriage/issuepilot/internal/agent"
	"github.com/go-chi/chi/v5"
)

// watchUpdate is one status frame pushed to a watching client.
type watchUpdate struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
	State     string `json:"state"`
	HasOutput bool   `json:"has_output"`
	URL       string `json:"url,omitempty"`
	Error     string `json:"error,omitempty"`
}

func stateLabel(state agent.State) string {
	switch state {
	case agent.StateDone:
		return "done"
	case agent.StateErrored:
		return "errored"
	case agent.StateBlocked:
		return "blocked"
	default:
		return "pending"
	}
}

// WatchSession streams session status updates over a WebSocket until the
// session reaches a terminal state or the client disconnects. Watching does
// not affect the remote session; closing the socket just stops the stream.
// GET /ws/sessions/{sessionID}
func (h *Handler) WatchSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	slog.Info("Session watch requested", "session_id", sessionID, "ip", r.RemoteAddr)

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "session_id", sessionID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "watch ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "session_id", sessionID)
		}
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	interval := h.cfg.Polling.Interval

	for {
		session, err := h.sessions.GetSession(ctx, sessionID)
		if err != nil {
			if writeErr := wsjson.Write(ctx, ws, watchUpdate{
				SessionID: sessionID,
				State:     "errored",
				Error:     err.Error(),
			}); writeErr != nil {
				slog.Debug("WebSocket write failed", "error", writeErr, "session_id", sessionID)
			}
			return
		}

		state := agent.Classify(session)
		update := watchUpdate{
			SessionID: session.SessionID,
			Status:    session.Status,
			State:     stateLabel(state),
			HasOutput: session.HasOutput(),
			URL:       session.URL,
		}
		if err := wsjson.Write(ctx, ws, update); err != nil {
			slog.Debug("WebSocket write failed, client gone", "error", err, "session_id", sessionID)
			return
		}

		if state == agent.StateDone || state == agent.StateErrored {
			slog.Info("Session watch finished", "session_id", sessionID, "state", stateLabel(state))
			return
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}
