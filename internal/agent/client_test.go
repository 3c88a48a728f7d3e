package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSession(t *testing.T) {
	var gotAuth, gotPath string
	var gotReq CreateSessionRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Session{
			SessionID: "session-abc",
			Status:    "running",
			URL:       "https://app.example.com/session-abc",
		})
	}))
	defer srv.Close()

	client := NewClient(Config{APIKey: "key-123", BaseURL: srv.URL}, nil)

	session, err := client.CreateSession(context.Background(), CreateSessionRequest{
		Prompt:  "scope this issue",
		RepoURL: "https://github.com/acme/widget",
	})

	require.NoError(t, err)
	assert.Equal(t, "session-abc", session.SessionID)
	assert.Equal(t, "Bearer key-123", gotAuth)
	assert.Equal(t, "/sessions", gotPath)
	assert.Equal(t, "scope this issue", gotReq.Prompt)
	assert.Equal(t, "https://github.com/acme/widget", gotReq.RepoURL)
}

func TestGetSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sessions/session-abc", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Session{
			SessionID:        "session-abc",
			Status:           "finished",
			StructuredOutput: map[string]any{"summary": "done"},
		})
	}))
	defer srv.Close()

	client := NewClient(Config{APIKey: "key-123", BaseURL: srv.URL}, nil)

	session, err := client.GetSession(context.Background(), "session-abc")

	require.NoError(t, err)
	assert.Equal(t, "finished", session.Status)
	assert.True(t, session.HasOutput())
}

func TestClientErrorMessageExtraction(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
	}{
		{
			name:        "json body with message field",
			status:      http.StatusUnauthorized,
			body:        `{"message": "invalid api key"}`,
			wantMessage: "invalid api key",
		},
		{
			name:        "json body without message field",
			status:      http.StatusBadRequest,
			body:        `{"detail": "bad schema"}`,
			wantMessage: `{"detail": "bad schema"}`,
		},
		{
			name:        "plain text body",
			status:      http.StatusBadGateway,
			body:        "upstream exploded",
			wantMessage: "upstream exploded",
		},
		{
			name:        "empty body",
			status:      http.StatusInternalServerError,
			body:        "",
			wantMessage: "unknown error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewClient(Config{APIKey: "key", BaseURL: srv.URL}, nil)

			_, err := client.GetSession(context.Background(), "session-abc")

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.wantMessage, apiErr.Message)
		})
	}
}
