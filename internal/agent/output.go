package agent

import (
	"log/slog"

	"github.com/devtriage/issuepilot/internal/domain"
)

// The agent's structured output is best effort and schema compliance is not
// guaranteed. These parsers degrade to "no result" rather than failing the
// workflow: they log and return nil on missing or mistyped required fields.

// ParseScopingOutput extracts a ScopingResult from a completed scoping
// session. Returns nil if the session has no structured output or required
// fields are missing or mistyped. Unknown fields are ignored.
func ParseScopingOutput(s *Session) *domain.ScopingResult {
	if !s.HasOutput() {
		slog.Warn("No structured output available in session", "session_id", s.SessionID)
		return nil
	}
	out := s.StructuredOutput

	summary, ok := stringField(out, "summary")
	if !ok {
		slog.Error("Failed to parse scoping output: missing or invalid summary", "session_id", s.SessionID)
		return nil
	}
	plan, ok := stringSliceField(out, "plan")
	if !ok {
		slog.Error("Failed to parse scoping output: missing or invalid plan", "session_id", s.SessionID)
		return nil
	}
	riskLevel, ok := stringField(out, "risk_level")
	if !ok {
		slog.Error("Failed to parse scoping output: missing or invalid risk_level", "session_id", s.SessionID)
		return nil
	}
	effort, ok := floatField(out, "est_effort_hours")
	if !ok {
		slog.Error("Failed to parse scoping output: missing or invalid est_effort_hours", "session_id", s.SessionID)
		return nil
	}
	confidence, ok := floatField(out, "confidence")
	if !ok {
		slog.Error("Failed to parse scoping output: missing or invalid confidence", "session_id", s.SessionID)
		return nil
	}

	risk := domain.RiskLevel(riskLevel)
	if !risk.Known() {
		slog.Warn("Scoping output has unexpected risk level", "session_id", s.SessionID, "risk_level", riskLevel)
	}
	if confidence < 0.0 || confidence > 1.0 {
		slog.Warn("Scoping confidence outside [0, 1]", "session_id", s.SessionID, "confidence", confidence)
	}
	if effort < 0 {
		slog.Warn("Scoping effort estimate is negative", "session_id", s.SessionID, "est_effort_hours", effort)
	}

	return &domain.ScopingResult{
		Summary:        summary,
		Plan:           plan,
		RiskLevel:      risk,
		EstEffortHours: effort,
		Confidence:     confidence,
	}
}

// ParseExecutionOutput extracts an ExecutionResult from a completed
// execution session. Only status is required; other fields are kept when
// present and well typed, skipped otherwise.
func ParseExecutionOutput(s *Session) *domain.ExecutionResult {
	if !s.HasOutput() {
		slog.Warn("No structured output available in session", "session_id", s.SessionID)
		return nil
	}
	out := s.StructuredOutput

	status, ok := stringField(out, "status")
	if !ok {
		slog.Error("Failed to parse execution output: missing or invalid status", "session_id", s.SessionID)
		return nil
	}

	result := &domain.ExecutionResult{Status: domain.ExecStatus(status)}

	if branch, ok := stringField(out, "branch"); ok {
		result.Branch = &branch
	}
	if prURL, ok := stringField(out, "pr_url"); ok {
		result.PRURL = &prURL
	}
	if passed, ok := intField(out, "tests_passed"); ok {
		result.TestsPassed = &passed
	}
	if failed, ok := intField(out, "tests_failed"); ok {
		result.TestsFailed = &failed
	}

	return result
}

func stringField(m map[string]any, key string) (string, bool) {
	v, present := m[key]
	if !present {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// floatField accepts float64 and int values; JSON decoding produces
// float64, int covers maps built in process.
func floatField(m map[string]any, key string) (float64, bool) {
	v, present := m[key]
	if !present {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}

func intField(m map[string]any, key string) (int, bool) {
	f, ok := floatField(m, key)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// stringSliceField accepts []string and []any whose elements are all
// strings.
func stringSliceField(m map[string]any, key string) ([]string, bool) {
	v, present := m[key]
	if !present {
		return nil, false
	}
	switch items := v.(type) {
	case []string:
		return items, true
	case []any:
		out := make([]string, 0, len(items))
		for _, item := range items {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}
