package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devtriage/issuepilot/internal/domain"
)

func scopingOutput() map[string]any {
	return map[string]any{
		"summary":          "Add retry logic to the uploader",
		"plan":             []any{"reproduce the failure", "add backoff", "extend tests"},
		"risk_level":       "low",
		"est_effort_hours": 2.5,
		"confidence":       0.9,
	}
}

func TestParseScopingOutput(t *testing.T) {
	session := &Session{SessionID: "s-1", StructuredOutput: scopingOutput()}

	result := ParseScopingOutput(session)

	require.NotNil(t, result)
	assert.Equal(t, "Add retry logic to the uploader", result.Summary)
	assert.Equal(t, []string{"reproduce the failure", "add backoff", "extend tests"}, result.Plan)
	assert.Equal(t, domain.RiskLow, result.RiskLevel)
	assert.Equal(t, 2.5, result.EstEffortHours)
	assert.Equal(t, 0.9, result.Confidence)
}

func TestParseScopingOutputRequiredFields(t *testing.T) {
	required := []string{"summary", "plan", "risk_level", "est_effort_hours", "confidence"}

	for _, field := range required {
		t.Run("missing "+field, func(t *testing.T) {
			out := scopingOutput()
			delete(out, field)
			session := &Session{SessionID: "s-1", StructuredOutput: out}

			assert.Nil(t, ParseScopingOutput(session))
		})
	}
}

func TestParseScopingOutputMistypedFields(t *testing.T) {
	tests := []struct {
		name  string
		field string
		value any
	}{
		{"summary as number", "summary", 42.0},
		{"plan as string", "plan", "not a list"},
		{"plan with non-string element", "plan", []any{"ok", 7.0}},
		{"risk_level as bool", "risk_level", true},
		{"effort as string", "est_effort_hours", "2.5"},
		{"confidence as string", "confidence", "high"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := scopingOutput()
			out[tt.field] = tt.value
			session := &Session{SessionID: "s-1", StructuredOutput: out}

			assert.Nil(t, ParseScopingOutput(session))
		})
	}
}

func TestParseScopingOutputBoundaryValues(t *testing.T) {
	// Confidence of exactly 0 and 1 and integer-typed numbers are all
	// valid; unknown risk levels parse but keep their raw value.
	out := scopingOutput()
	out["confidence"] = 1.0
	out["est_effort_hours"] = 3
	out["risk_level"] = "catastrophic"
	session := &Session{SessionID: "s-1", StructuredOutput: out}

	result := ParseScopingOutput(session)

	require.NotNil(t, result)
	assert.Equal(t, 1.0, result.Confidence)
	assert.Equal(t, 3.0, result.EstEffortHours)
	assert.Equal(t, domain.RiskLevel("catastrophic"), result.RiskLevel)
	assert.False(t, result.RiskLevel.Known())
}

func TestParseScopingOutputNoOutput(t *testing.T) {
	assert.Nil(t, ParseScopingOutput(&Session{SessionID: "s-1"}))
	assert.Nil(t, ParseScopingOutput(&Session{SessionID: "s-1", StructuredOutput: map[string]any{}}))
}

func TestParseScopingOutputEmptyPlan(t *testing.T) {
	out := scopingOutput()
	out["plan"] = []any{}
	session := &Session{SessionID: "s-1", StructuredOutput: out}

	result := ParseScopingOutput(session)

	require.NotNil(t, result)
	assert.Empty(t, result.Plan)
}

func TestParseExecutionOutput(t *testing.T) {
	session := &Session{SessionID: "s-2", StructuredOutput: map[string]any{
		"status":       "done",
		"branch":       "fix/uploader-retry",
		"pr_url":       "https://github.com/acme/widget/pull/7",
		"tests_passed": 12.0,
		"tests_failed": 0.0,
	}}

	result := ParseExecutionOutput(session)

	require.NotNil(t, result)
	assert.Equal(t, domain.ExecDone, result.Status)
	require.NotNil(t, result.Branch)
	assert.Equal(t, "fix/uploader-retry", *result.Branch)
	require.NotNil(t, result.PRURL)
	assert.Equal(t, "https://github.com/acme/widget/pull/7", *result.PRURL)
	require.NotNil(t, result.TestsPassed)
	assert.Equal(t, 12, *result.TestsPassed)
	require.NotNil(t, result.TestsFailed)
	assert.Equal(t, 0, *result.TestsFailed)
}

func TestParseExecutionOutputStatusOnly(t *testing.T) {
	session := &Session{SessionID: "s-2", StructuredOutput: map[string]any{
		"status": "blocked",
	}}

	result := ParseExecutionOutput(session)

	require.NotNil(t, result)
	assert.Equal(t, domain.ExecBlocked, result.Status)
	assert.Nil(t, result.Branch)
	assert.Nil(t, result.PRURL)
	assert.Nil(t, result.TestsPassed)
	assert.Nil(t, result.TestsFailed)
}

func TestParseExecutionOutputSkipsMistypedOptionalFields(t *testing.T) {
	session := &Session{SessionID: "s-2", StructuredOutput: map[string]any{
		"status":       "done",
		"branch":       7.0,
		"tests_passed": "twelve",
	}}

	result := ParseExecutionOutput(session)

	require.NotNil(t, result)
	assert.Nil(t, result.Branch)
	assert.Nil(t, result.TestsPassed)
}

func TestParseExecutionOutputMissingStatus(t *testing.T) {
	session := &Session{SessionID: "s-2", StructuredOutput: map[string]any{
		"branch": "fix/thing",
	}}

	assert.Nil(t, ParseExecutionOutput(session))
}
