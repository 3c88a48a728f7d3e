package domain

// RiskLevel classifies the implementation risk estimated during scoping.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Known reports whether the value is one of the documented risk levels.
func (r RiskLevel) Known() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	}
	return false
}

// ScopingResult is the structured output of a completed scoping session.
// Immutable once produced.
type ScopingResult struct {
	Summary        string    `json:"summary"`
	Plan           []string  `json:"plan"`
	RiskLevel      RiskLevel `json:"risk_level"`
	EstEffortHours float64   `json:"est_effort_hours"`
	Confidence     float64   `json:"confidence"`
}

// ExecStatus is the outcome reported by an execution session.
type ExecStatus string

const (
	ExecDone    ExecStatus = "done"
	ExecFailed  ExecStatus = "failed"
	ExecBlocked ExecStatus = "blocked"
)

// ExecutionResult is the structured output of a completed execution session.
// Only Status is guaranteed; the rest is best effort from the agent.
type ExecutionResult struct {
	Status      ExecStatus `json:"status"`
	Branch      *string    `json:"branch,omitempty"`
	PRURL       *string    `json:"pr_url,omitempty"`
	TestsPassed *int       `json:"tests_passed,omitempty"`
	TestsFailed *int       `json:"tests_failed,omitempty"`
}
