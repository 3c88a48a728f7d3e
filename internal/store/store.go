// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/devtriage/issuepilot/internal/domain"
)

// SessionOutcome carries everything recorded when a session resolves.
// Scoping and Execution are mutually exclusive; both may be nil when the
// session finished without parseable output.
type SessionOutcome struct {
	Status           string
	StructuredOutput map[string]any
	Scoping          *domain.ScopingResult
	Execution        *domain.ExecutionResult
	Duration         time.Duration
	CompletedAt      time.Time
}

// Repository defines the interface for persisting issues, session records,
// and audit events. Each operation commits or rolls back atomically; there
// is no cross-operation transaction.
type Repository interface {
	// GetOrCreateIssue returns the record for the issue's composite
	// identity, creating it if absent. Tracker-sourced fields (title, body,
	// state, labels) are refreshed on existing records. The second return
	// reports whether a new record was created.
	GetOrCreateIssue(ctx context.Context, issue *domain.Issue) (*domain.Issue, bool, error)

	// GetIssue retrieves an issue record, or nil if none exists.
	GetIssue(ctx context.Context, owner, repo string, number int) (*domain.Issue, error)

	// UpdateIssueScoping attaches a scoping result to an issue record and
	// marks it scoped.
	UpdateIssueScoping(ctx context.Context, issueID int64, result *domain.ScopingResult, scopedAt time.Time) error

	// UpdateIssueExecution attaches an execution result to an issue record
	// and marks it executed.
	UpdateIssueExecution(ctx context.Context, issueID int64, result *domain.ExecutionResult, executedAt time.Time) error

	// CreateSession inserts a new session record.
	CreateSession(ctx context.Context, rec *domain.SessionRecord) error

	// UpdateSessionOutcome records how a session resolved.
	UpdateSessionOutcome(ctx context.Context, sessionID string, outcome SessionOutcome) error

	// GetSession retrieves a session record by remote session ID, or nil if
	// none exists.
	GetSession(ctx context.Context, sessionID string) (*domain.SessionRecord, error)

	// ListSessions returns the most recent session records, newest first.
	ListSessions(ctx context.Context, limit int) ([]*domain.SessionRecord, error)

	// AppendEvent appends an immutable audit event.
	AppendEvent(ctx context.Context, event *domain.Event) error

	// ListEvents returns the most recent audit events, newest first.
	ListEvents(ctx context.Context, limit int) ([]*domain.Event, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
