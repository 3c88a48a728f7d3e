package agent

import (
	"fmt"
	"strings"
)

// maxPromptComments bounds how much issue discussion is embedded in a
// scoping prompt.
const maxPromptComments = 5

// ScopingSchema returns the structured-output schema requested from a
// scoping session.
func ScopingSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"summary": map[string]any{
				"type":        "string",
				"description": "Brief summary of issue and recommended approach",
			},
			"plan": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Step-by-step implementation plan (3-7 steps)",
			},
			"risk_level": map[string]any{
				"type":        "string",
				"enum":        []string{"low", "medium", "high"},
				"description": "Risk level for implementing this fix",
			},
			"est_effort_hours": map[string]any{
				"type":        "number",
				"description": "Estimated effort in hours",
			},
			"confidence": map[string]any{
				"type":        "number",
				"minimum":     0.0,
				"maximum":     1.0,
				"description": "Confidence score (0.0 = no confidence, 1.0 = very confident)",
			},
		},
		"required": []string{"summary", "plan", "risk_level", "est_effort_hours", "confidence"},
	}
}

// ExecutionSchema returns the structured-output schema requested from an
// execution session. Only status is required.
func ExecutionSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"status": map[string]any{
				"type":        "string",
				"enum":        []string{"done", "failed", "blocked"},
				"description": "Implementation status",
			},
			"branch": map[string]any{
				"type":        "string",
				"description": "Git branch name where changes were made",
			},
			"pr_url": map[string]any{
				"type":        "string",
				"description": "URL of the pull request created",
			},
			"tests_passed": map[string]any{
				"type":        "integer",
				"description": "Number of tests that passed",
			},
			"tests_failed": map[string]any{
				"type":        "integer",
				"description": "Number of tests that failed",
			},
		},
		"required": []string{"status"},
	}
}

// BuildScopingPrompt assembles the instructions for a scoping session. At
// most maxPromptComments of the supplied comments are embedded.
func BuildScopingPrompt(repo string, issueNumber int, title, body string, comments []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are analyzing GitHub issue #%d from repository %s.\n\n", issueNumber, repo)
	fmt.Fprintf(&b, "**Issue Title:** %s\n\n", title)
	fmt.Fprintf(&b, "**Issue Description:**\n%s\n\n", orPlaceholder(body))

	if len(comments) > 0 {
		fmt.Fprintf(&b, "**Discussion (%d comments):**\n", len(comments))
		embedded := comments
		if len(embedded) > maxPromptComments {
			embedded = embedded[:maxPromptComments]
		}
		for i, comment := range embedded {
			fmt.Fprintf(&b, "%d. %s\n\n", i+1, comment)
		}
	}

	b.WriteString(`**Your Task:**
Analyze this issue and provide a structured implementation plan.

Please respond with:
1. **Summary**: Brief overview of the issue and your recommended approach
2. **Plan**: Step-by-step implementation plan (3-7 concrete steps)
3. **Risk Level**: Assess risk as "low", "medium", or "high"
4. **Estimated Effort**: Hours needed to implement
5. **Confidence**: Your confidence in this plan (0.0 to 1.0)

Consider:
- Code complexity
- Testing requirements
- Potential edge cases
- Dependencies and breaking changes
- Documentation needs

Provide your response in the structured format specified.
`)

	return b.String()
}

// BuildExecutionPrompt assembles the instructions for an execution session.
// The scoping plan is embedded when one exists from an earlier scope run.
func BuildExecutionPrompt(repoURL string, issueNumber int, title, body string, scopingPlan []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are implementing a fix for GitHub issue #%d.\n\n", issueNumber)
	fmt.Fprintf(&b, "**Repository:** %s\n\n", repoURL)
	fmt.Fprintf(&b, "**Issue Title:** %s\n\n", title)
	fmt.Fprintf(&b, "**Issue Description:**\n%s\n\n", orPlaceholder(body))

	if len(scopingPlan) > 0 {
		b.WriteString("**Implementation Plan:**\n")
		for i, step := range scopingPlan {
			fmt.Fprintf(&b, "%d. %s\n", i+1, step)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, `**Your Task:**
1. Clone the repository (if needed)
2. Create a feature branch (name: `+"`fix-issue-%d-<descriptive-name>`"+`)
3. Implement the fix following best practices
4. Write/update tests as needed
5. Ensure all tests pass
6. Create a Pull Request with:
   - Clear title referencing the issue
   - Description explaining your changes
   - Link back to the original issue

**Requirements:**
- Follow the repository's coding style
- Add appropriate comments
- Update documentation if needed
- Ensure backward compatibility
- Run linters and formatters

Please respond with structured output containing:
- Status (done/failed/blocked)
- Branch name
- PR URL
- Test results (passed/failed counts)
`, issueNumber)

	return b.String()
}

func orPlaceholder(body string) string {
	if body == "" {
		return "No description provided"
	}
	return body
}
