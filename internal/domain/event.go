package domain

import (
	"time"
)

// EventType identifies what an audit event records.
type EventType string

const (
	EventScopeStarted     EventType = "scope_started"
	EventScopeCompleted   EventType = "scope_completed"
	EventScopeFailed      EventType = "scope_failed"
	EventExecuteStarted   EventType = "execute_started"
	EventExecuteCompleted EventType = "execute_completed"
	EventExecuteFailed    EventType = "execute_failed"
)

// Event is an immutable, append-only audit record. Events are never updated
// or deleted.
type Event struct {
	ID   int64     `json:"id"`
	Type EventType `json:"type"`

	Owner     string `json:"owner,omitempty"`
	Repo      string `json:"repo,omitempty"`
	Number    int    `json:"number,omitempty"`
	SessionID string `json:"session_id,omitempty"`

	Message string `json:"message,omitempty"`

	IsError      bool   `json:"is_error"`
	ErrorMessage string `json:"error_message,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
