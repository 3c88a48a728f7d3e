package github

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetIssue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/acme/widget/issues/42", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/vnd.github+json", r.Header.Get("Accept"))
		assert.Equal(t, "2022-11-28", r.Header.Get("X-GitHub-Api-Version"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Issue{Number: 42, Title: "Uploader loses retries", State: "open"})
	}))
	defer srv.Close()

	client := NewClient(Config{Token: "test-token", BaseURL: srv.URL}, nil)

	issue, err := client.GetIssue(context.Background(), "acme", "widget", 42)

	require.NoError(t, err)
	assert.Equal(t, 42, issue.Number)
	assert.Equal(t, "Uploader loses retries", issue.Title)
}

func TestListIssuesFiltersPullRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "open", q.Get("state"))
		assert.Equal(t, "updated", q.Get("sort"))
		assert.Equal(t, "desc", q.Get("direction"))
		assert.Equal(t, "1", q.Get("page"))
		assert.Equal(t, "30", q.Get("per_page"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]Issue{
			{Number: 1, Title: "real issue"},
			{Number: 2, Title: "a pull request", PullRequest: map[string]any{"url": "https://api.github.com/repos/acme/widget/pulls/2"}},
			{Number: 3, Title: "another issue"},
		})
	}))
	defer srv.Close()

	client := NewClient(Config{Token: "t", BaseURL: srv.URL}, nil)

	issues, err := client.ListIssues(context.Background(), "acme", "widget", ListOptions{})

	require.NoError(t, err)
	require.Len(t, issues, 2)
	assert.Equal(t, 1, issues[0].Number)
	assert.Equal(t, 3, issues[1].Number)
}

func TestListIssuesOptions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "closed", q.Get("state"))
		assert.Equal(t, "bug,agent-ready", q.Get("labels"))
		assert.Equal(t, "octocat", q.Get("assignee"))
		assert.Equal(t, "2", q.Get("page"))
		assert.Equal(t, "100", q.Get("per_page"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]Issue{})
	}))
	defer srv.Close()

	client := NewClient(Config{Token: "t", BaseURL: srv.URL}, nil)

	// per_page above the API cap is clamped.
	_, err := client.ListIssues(context.Background(), "acme", "widget", ListOptions{
		Labels:   "bug,agent-ready",
		State:    "closed",
		Assignee: "octocat",
		Page:     2,
		PerPage:  250,
	})

	require.NoError(t, err)
}

func TestListComments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/acme/widget/issues/42/comments", r.URL.Path)
		assert.Equal(t, "10", r.URL.Query().Get("per_page"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]Comment{
			{ID: 1, Body: "first"},
			{ID: 2, Body: "second"},
		})
	}))
	defer srv.Close()

	client := NewClient(Config{Token: "t", BaseURL: srv.URL}, nil)

	comments, err := client.ListComments(context.Background(), "acme", "widget", 42, 10)

	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "first", comments[0].Body)
}

func TestCreateComment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/repos/acme/widget/issues/42/comments", r.URL.Path)

		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "scoping summary", payload["body"])

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(Comment{ID: 99, Body: payload["body"]})
	}))
	defer srv.Close()

	client := NewClient(Config{Token: "t", BaseURL: srv.URL}, nil)

	comment, err := client.CreateComment(context.Background(), "acme", "widget", 42, "scoping summary")

	require.NoError(t, err)
	assert.Equal(t, int64(99), comment.ID)
}

func TestAPIErrorMessage(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
	}{
		{
			name:        "github error payload",
			status:      http.StatusNotFound,
			body:        `{"message": "Not Found", "documentation_url": "https://docs.github.com"}`,
			wantMessage: "Not Found",
		},
		{
			name:        "non-json body",
			status:      http.StatusBadGateway,
			body:        "bad gateway",
			wantMessage: "bad gateway",
		},
		{
			name:        "empty body",
			status:      http.StatusForbidden,
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

			client := NewClient(Config{Token: "t", BaseURL: srv.URL}, nil)

			_, err := client.GetIssue(context.Background(), "acme", "widget", 42)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.wantMessage, apiErr.Message)
		})
	}
}

func TestIssueHelpers(t *testing.T) {
	issue := Issue{
		Number: 7,
		Labels: []Label{{Name: "bug"}, {Name: "agent-ready"}},
	}

	assert.False(t, issue.IsPullRequest())
	assert.Equal(t, []string{"bug", "agent-ready"}, issue.LabelNames())
	assert.Equal(t, "bug, agent-ready", issue.DisplayLabels())

	pr := Issue{Number: 8, PullRequest: map[string]any{}}
	assert.True(t, pr.IsPullRequest())
}
