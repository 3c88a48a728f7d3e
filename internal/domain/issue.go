// Package domain contains core domain types for issuepilot.
package domain

import (
	"fmt"
	"time"
)

// IssueRef identifies a GitHub issue by its composite key.
type IssueRef struct {
	Owner  string `json:"owner"`
	Repo   string `json:"repo"`
	Number int    `json:"number"`
}

// String formats the reference as "owner/repo#number".
func (r IssueRef) String() string {
	return fmt.Sprintf("%s/%s#%d", r.Owner, r.Repo, r.Number)
}

// RepoURL returns the https URL of the referenced repository.
func (r IssueRef) RepoURL() string {
	return fmt.Sprintf("https://github.com/%s/%s", r.Owner, r.Repo)
}

// Issue is the persisted record for a GitHub issue, including scoping and
// execution results once they exist. A record is created at most once per
// (owner, repo, number) and updated in place thereafter.
type Issue struct {
	ID     int64  `json:"id"`
	Owner  string `json:"owner"`
	Repo   string `json:"repo"`
	Number int    `json:"number"`

	Title  string   `json:"title"`
	Body   string   `json:"body,omitempty"`
	State  string   `json:"state"`
	Labels []string `json:"labels,omitempty"`

	// Scoping results.
	Confidence      *float64 `json:"confidence,omitempty"`
	RiskLevel       *string  `json:"risk_level,omitempty"`
	EstimatedEffort *float64 `json:"estimated_effort,omitempty"`
	Plan            []string `json:"plan,omitempty"`

	// Execution results.
	PRURL       *string `json:"pr_url,omitempty"`
	BranchName  *string `json:"branch_name,omitempty"`
	TestsPassed *int    `json:"tests_passed,omitempty"`
	TestsFailed *int    `json:"tests_failed,omitempty"`

	IsScoped       bool       `json:"is_scoped"`
	IsExecuted     bool       `json:"is_executed"`
	LastScopedAt   *time.Time `json:"last_scoped_at,omitempty"`
	LastExecutedAt *time.Time `json:"last_executed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Ref returns the composite identity of the issue.
func (i *Issue) Ref() IssueRef {
	return IssueRef{Owner: i.Owner, Repo: i.Repo, Number: i.Number}
}
