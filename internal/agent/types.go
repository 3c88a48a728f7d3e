// Package agent implements the client, output parsing, and polling engine
// for the remote coding-agent session API.
package agent

import (
	"time"
)

// Session is the remote agent session as reported by the service. The
// service is authoritative; this process only reads it.
type Session struct {
	SessionID        string         `json:"session_id"`
	Status           string         `json:"status"`
	URL              string         `json:"url,omitempty"`
	StructuredOutput map[string]any `json:"structured_output,omitempty"`
	CreatedAt        *time.Time     `json:"created_at,omitempty"`
	UpdatedAt        *time.Time     `json:"updated_at,omitempty"`
}

// HasOutput reports whether the session carries non-empty structured output.
// Output presence is treated as a completion signal in its own right because
// status updates can lag behind output availability.
func (s *Session) HasOutput() bool {
	return len(s.StructuredOutput) > 0
}

// CreateSessionRequest is the body sent when creating a session.
type CreateSessionRequest struct {
	Prompt                 string         `json:"prompt"`
	RepoURL                string         `json:"repo_url,omitempty"`
	StructuredOutputSchema map[string]any `json:"structured_output_schema,omitempty"`
}
