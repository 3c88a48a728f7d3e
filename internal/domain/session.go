package domain

import (
	"time"
)

// SessionPhase is what the remote agent was asked to do.
type SessionPhase string

const (
	// PhaseScope means the session analyzes and plans, no code changes.
	PhaseScope SessionPhase = "scope"
	// PhaseExec means the session implements a fix and opens a PR.
	PhaseExec SessionPhase = "exec"
)

// SessionRecord is the persisted mirror of a remote agent session. It is
// created once when the session is created and updated at most once more,
// when the session resolves.
type SessionRecord struct {
	ID         int64  `json:"id"`
	SessionID  string `json:"session_id"`
	SessionURL string `json:"session_url,omitempty"`

	IssueID *int64 `json:"issue_id,omitempty"`
	Owner   string `json:"owner"`
	Repo    string `json:"repo"`
	Number  int    `json:"number"`

	Phase  SessionPhase `json:"phase"`
	Status string       `json:"status,omitempty"`

	StructuredOutput map[string]any `json:"structured_output,omitempty"`

	// Scoping results.
	Confidence      *float64 `json:"confidence,omitempty"`
	RiskLevel       *string  `json:"risk_level,omitempty"`
	EstimatedEffort *float64 `json:"estimated_effort,omitempty"`

	// Execution results.
	PRURL       *string `json:"pr_url,omitempty"`
	BranchName  *string `json:"branch_name,omitempty"`
	TestsPassed *int    `json:"tests_passed,omitempty"`
	TestsFailed *int    `json:"tests_failed,omitempty"`

	DurationSeconds *float64 `json:"duration_seconds,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Ref returns the composite identity of the issue the session belongs to.
func (s *SessionRecord) Ref() IssueRef {
	return IssueRef{Owner: s.Owner, Repo: s.Repo, Number: s.Number}
}
