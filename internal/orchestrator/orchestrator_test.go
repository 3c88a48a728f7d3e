package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devtriage/issuepilot/internal/agent"
	"github.com/devtriage/issuepilot/internal/config"
	"github.com/devtriage/issuepilot/internal/domain"
	"github.com/devtriage/issuepilot/internal/github"
	"github.com/devtriage/issuepilot/internal/store"
)

// fakeTracker is a canned github.Client.
type fakeTracker struct {
	issue       *github.Issue
	issueErr    error
	comments    []github.Comment
	commentsErr error

	postedComments []string
	createErr      error
}

func (f *fakeTracker) GetIssue(_ context.Context, _, _ string, _ int) (*github.Issue, error) {
	if f.issueErr != nil {
		return nil, f.issueErr
	}
	return f.issue, nil
}

func (f *fakeTracker) ListIssues(_ context.Context, _, _ string, _ github.ListOptions) ([]github.Issue, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeTracker) ListComments(_ context.Context, _, _ string, _, _ int) ([]github.Comment, error) {
	if f.commentsErr != nil {
		return nil, f.commentsErr
	}
	return f.comments, nil
}

func (f *fakeTracker) CreateComment(_ context.Context, _, _ string, _ int, body string) (*github.Comment, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.postedComments = append(f.postedComments, body)
	return &github.Comment{ID: 1, Body: body}, nil
}

// fakeAgent returns one session from CreateSession and a scripted sequence
// from GetSession.
type fakeAgent struct {
	created    *agent.Session
	createErr  error
	createReqs []agent.CreateSessionRequest

	polled   []*agent.Session
	pollErr  error
	getCalls int
}

func (f *fakeAgent) CreateSession(_ context.Context, req agent.CreateSessionRequest) (*agent.Session, error) {
	f.createReqs = append(f.createReqs, req)
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.created, nil
}

func (f *fakeAgent) GetSession(_ context.Context, _ string) (*agent.Session, error) {
	if f.pollErr != nil {
		return nil, f.pollErr
	}
	i := f.getCalls
	if i >= len(f.polled) {
		i = len(f.polled) - 1
	}
	f.getCalls++
	return f.polled[i], nil
}

// fakeRepo is an in-memory store.Repository with switchable failures.
type fakeRepo struct {
	failEverything bool

	issues   map[string]*domain.Issue
	nextID   int64
	sessions []*domain.SessionRecord
	outcomes map[string]store.SessionOutcome
	events   []*domain.Event
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		issues:   map[string]*domain.Issue{},
		outcomes: map[string]store.SessionOutcome{},
	}
}

func issueKey(owner, repo string, number int) string {
	return domain.IssueRef{Owner: owner, Repo: repo, Number: number}.String()
}

func (f *fakeRepo) GetOrCreateIssue(_ context.Context, issue *domain.Issue) (*domain.Issue, bool, error) {
	if f.failEverything {
		return nil, false, errors.New("store down")
	}
	key := issueKey(issue.Owner, issue.Repo, issue.Number)
	if existing, ok := f.issues[key]; ok {
		return existing, false, nil
	}
	f.nextID++
	created := *issue
	created.ID = f.nextID
	f.issues[key] = &created
	return &created, true, nil
}

func (f *fakeRepo) GetIssue(_ context.Context, owner, repo string, number int) (*domain.Issue, error) {
	if f.failEverything {
		return nil, errors.New("store down")
	}
	return f.issues[issueKey(owner, repo, number)], nil
}

func (f *fakeRepo) UpdateIssueScoping(_ context.Context, issueID int64, result *domain.ScopingResult, scopedAt time.Time) error {
	if f.failEverything {
		return errors.New("store down")
	}
	for _, issue := range f.issues {
		if issue.ID == issueID {
			issue.IsScoped = true
			issue.Plan = result.Plan
			risk := string(result.RiskLevel)
			issue.RiskLevel = &risk
			issue.Confidence = &result.Confidence
			issue.EstimatedEffort = &result.EstEffortHours
			issue.LastScopedAt = &scopedAt
		}
	}
	return nil
}

func (f *fakeRepo) UpdateIssueExecution(_ context.Context, issueID int64, result *domain.ExecutionResult, executedAt time.Time) error {
	if f.failEverything {
		return errors.New("store down")
	}
	for _, issue := range f.issues {
		if issue.ID == issueID {
			issue.IsExecuted = true
			issue.PRURL = result.PRURL
			issue.BranchName = result.Branch
			issue.LastExecutedAt = &executedAt
		}
	}
	return nil
}

func (f *fakeRepo) CreateSession(_ context.Context, rec *domain.SessionRecord) error {
	if f.failEverything {
		return errors.New("store down")
	}
	f.sessions = append(f.sessions, rec)
	return nil
}

func (f *fakeRepo) UpdateSessionOutcome(_ context.Context, sessionID string, outcome store.SessionOutcome) error {
	if f.failEverything {
		return errors.New("store down")
	}
	f.outcomes[sessionID] = outcome
	return nil
}

func (f *fakeRepo) GetSession(_ context.Context, sessionID string) (*domain.SessionRecord, error) {
	if f.failEverything {
		return nil, errors.New("store down")
	}
	for _, rec := range f.sessions {
		if rec.SessionID == sessionID {
			return rec, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) ListSessions(_ context.Context, _ int) ([]*domain.SessionRecord, error) {
	if f.failEverything {
		return nil, errors.New("store down")
	}
	return f.sessions, nil
}

func (f *fakeRepo) AppendEvent(_ context.Context, event *domain.Event) error {
	if f.failEverything {
		return errors.New("store down")
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakeRepo) ListEvents(_ context.Context, _ int) ([]*domain.Event, error) {
	if f.failEverything {
		return nil, errors.New("store down")
	}
	return f.events, nil
}

func (f *fakeRepo) Ping(_ context.Context) error { return nil }
func (f *fakeRepo) Close() error                 { return nil }

func (f *fakeRepo) eventTypes() []domain.EventType {
	types := make([]domain.EventType, 0, len(f.events))
	for _, ev := range f.events {
		types = append(types, ev.Type)
	}
	return types
}

func testConfig() *config.Config {
	return &config.Config{
		Polling: config.PollingConfig{
			Interval:       time.Millisecond,
			MaxInterval:    time.Millisecond,
			ScopeTimeout:   time.Second,
			ExecuteTimeout: time.Second,
		},
	}
}

func trackerWithIssue() *fakeTracker {
	return &fakeTracker{
		issue: &github.Issue{
			Number: 42,
			Title:  "Uploader loses retries",
			Body:   "The uploader gives up after one attempt.",
			State:  "open",
			Labels: []github.Label{{Name: "bug"}},
		},
		comments: []github.Comment{
			{ID: 1, Body: "seen on 1.2 too"},
		},
	}
}

func scopedSession(id string) *agent.Session {
	return &agent.Session{
		SessionID: id,
		Status:    "finished",
		URL:       "https://app.example.com/" + id,
		StructuredOutput: map[string]any{
			"summary":          "Add backoff to the uploader",
			"plan":             []any{"reproduce", "add backoff", "test"},
			"risk_level":       "low",
			"est_effort_hours": 2.5,
			"confidence":       0.9,
		},
	}
}

func TestScopeCompleted(t *testing.T) {
	tracker := trackerWithIssue()
	sessions := &fakeAgent{
		created: &agent.Session{SessionID: "s-1", Status: "running", URL: "https://app.example.com/s-1"},
		polled: []*agent.Session{
			{SessionID: "s-1", Status: "running"},
			scopedSession("s-1"),
		},
	}
	repo := newFakeRepo()

	orch := New(testConfig(), tracker, sessions, repo, nil)

	resp, err := orch.Scope(context.Background(), "acme", "widget", 42, true)

	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, resp.Status)
	assert.Equal(t, "s-1", resp.SessionID)
	require.NotNil(t, resp.Result)
	assert.Equal(t, "Add backoff to the uploader", resp.Result.Summary)
	assert.Equal(t, []string{"reproduce", "add backoff", "test"}, resp.Result.Plan)
	assert.Equal(t, domain.RiskLow, resp.Result.RiskLevel)
	assert.Equal(t, 0.9, resp.Result.Confidence)

	// The prompt embeds the issue and its discussion.
	require.Len(t, sessions.createReqs, 1)
	assert.Contains(t, sessions.createReqs[0].Prompt, "Uploader loses retries")
	assert.Contains(t, sessions.createReqs[0].Prompt, "seen on 1.2 too")
	assert.Equal(t, "https://github.com/acme/widget", sessions.createReqs[0].RepoURL)

	// Issue, session, outcome, and events all recorded.
	issue := repo.issues[issueKey("acme", "widget", 42)]
	require.NotNil(t, issue)
	assert.True(t, issue.IsScoped)
	require.Len(t, repo.sessions, 1)
	assert.Equal(t, domain.PhaseScope, repo.sessions[0].Phase)
	assert.Contains(t, repo.outcomes, "s-1")
	assert.Equal(t, []domain.EventType{domain.EventScopeStarted, domain.EventScopeCompleted}, repo.eventTypes())

	// Comment posting is off by default.
	assert.Empty(t, tracker.postedComments)
}

func TestScopeNoWait(t *testing.T) {
	tracker := trackerWithIssue()
	sessions := &fakeAgent{
		created: &agent.Session{SessionID: "s-1", Status: "running", URL: "https://app.example.com/s-1"},
	}
	repo := newFakeRepo()

	orch := New(testConfig(), tracker, sessions, repo, nil)

	resp, err := orch.Scope(context.Background(), "acme", "widget", 42, false)

	require.NoError(t, err)
	assert.Equal(t, StatusSessionCreated, resp.Status)
	assert.Equal(t, "s-1", resp.SessionID)
	assert.Nil(t, resp.Result)
	assert.Zero(t, sessions.getCalls)

	// The session record is still written before returning.
	require.Len(t, repo.sessions, 1)
	assert.Equal(t, []domain.EventType{domain.EventScopeStarted}, repo.eventTypes())
}

func TestScopeIssueFetchFailure(t *testing.T) {
	ghErr := &github.APIError{StatusCode: 404, Message: "Not Found"}
	tracker := &fakeTracker{issueErr: ghErr}
	repo := newFakeRepo()

	orch := New(testConfig(), tracker, &fakeAgent{}, repo, nil)

	_, err := orch.Scope(context.Background(), "acme", "widget", 42, true)

	var apiErr *github.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 404, apiErr.StatusCode)
	assert.Empty(t, repo.sessions)
	assert.Empty(t, repo.events)
}

func TestScopeCommentFetchFailureDegrades(t *testing.T) {
	tracker := trackerWithIssue()
	tracker.commentsErr = &github.APIError{StatusCode: 500, Message: "oops"}
	sessions := &fakeAgent{
		created: &agent.Session{SessionID: "s-1", Status: "running"},
		polled:  []*agent.Session{scopedSession("s-1")},
	}

	orch := New(testConfig(), tracker, sessions, newFakeRepo(), nil)

	resp, err := orch.Scope(context.Background(), "acme", "widget", 42, true)

	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, resp.Status)
	assert.NotContains(t, sessions.createReqs[0].Prompt, "Discussion")
}

func TestScopeTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.Polling.ScopeTimeout = 5 * time.Millisecond

	tracker := trackerWithIssue()
	sessions := &fakeAgent{
		created: &agent.Session{SessionID: "s-1", Status: "running", URL: "https://app.example.com/s-1"},
		polled:  []*agent.Session{{SessionID: "s-1", Status: "running"}},
	}
	repo := newFakeRepo()

	orch := New(cfg, tracker, sessions, repo, nil)

	_, err := orch.Scope(context.Background(), "acme", "widget", 42, true)

	var timeoutErr *agent.TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, "s-1", timeoutErr.SessionID)
	assert.NotEmpty(t, timeoutErr.URL)

	require.Len(t, repo.events, 2)
	failure := repo.events[1]
	assert.Equal(t, domain.EventScopeFailed, failure.Type)
	assert.True(t, failure.IsError)
}

func TestScopeNoOutputIsFailure(t *testing.T) {
	tracker := trackerWithIssue()
	sessions := &fakeAgent{
		created: &agent.Session{SessionID: "s-1", Status: "running", URL: "https://app.example.com/s-1"},
		polled:  []*agent.Session{{SessionID: "s-1", Status: "finished"}},
	}
	repo := newFakeRepo()

	orch := New(testConfig(), tracker, sessions, repo, nil)

	_, err := orch.Scope(context.Background(), "acme", "widget", 42, true)

	var noOutput *NoOutputError
	require.ErrorAs(t, err, &noOutput)
	assert.Equal(t, "s-1", noOutput.SessionID)
	assert.Equal(t, "https://app.example.com/s-1", noOutput.URL)
	assert.Equal(t, []domain.EventType{domain.EventScopeStarted, domain.EventScopeFailed}, repo.eventTypes())
}

func TestScopePersistenceFailureDoesNotAbort(t *testing.T) {
	tracker := trackerWithIssue()
	sessions := &fakeAgent{
		created: &agent.Session{SessionID: "s-1", Status: "running"},
		polled:  []*agent.Session{scopedSession("s-1")},
	}
	repo := newFakeRepo()
	repo.failEverything = true

	orch := New(testConfig(), tracker, sessions, repo, nil)

	resp, err := orch.Scope(context.Background(), "acme", "widget", 42, true)

	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, resp.Status)
	require.NotNil(t, resp.Result)
}

func TestScopePostsCommentWhenEnabled(t *testing.T) {
	cfg := testConfig()
	cfg.PostScopeComment = true

	tracker := trackerWithIssue()
	sessions := &fakeAgent{
		created: &agent.Session{SessionID: "s-1", Status: "running"},
		polled:  []*agent.Session{scopedSession("s-1")},
	}

	orch := New(cfg, tracker, sessions, newFakeRepo(), nil)

	_, err := orch.Scope(context.Background(), "acme", "widget", 42, true)

	require.NoError(t, err)
	require.Len(t, tracker.postedComments, 1)
	assert.Contains(t, tracker.postedComments[0], "Scoping complete")
	assert.Contains(t, tracker.postedComments[0], "1. reproduce")
	assert.Contains(t, tracker.postedComments[0], "Risk: low")
}

func TestScopeCommentFailureDegrades(t *testing.T) {
	cfg := testConfig()
	cfg.PostScopeComment = true

	tracker := trackerWithIssue()
	tracker.createErr = &github.APIError{StatusCode: 403, Message: "forbidden"}
	sessions := &fakeAgent{
		created: &agent.Session{SessionID: "s-1", Status: "running"},
		polled:  []*agent.Session{scopedSession("s-1")},
	}

	orch := New(cfg, tracker, sessions, newFakeRepo(), nil)

	resp, err := orch.Scope(context.Background(), "acme", "widget", 42, true)

	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, resp.Status)
}

func TestExecuteCompleted(t *testing.T) {
	tracker := trackerWithIssue()
	sessions := &fakeAgent{
		created: &agent.Session{SessionID: "e-1", Status: "running", URL: "https://app.example.com/e-1"},
		polled: []*agent.Session{
			{
				SessionID: "e-1",
				Status:    "finished",
				StructuredOutput: map[string]any{
					"status":       "done",
					"branch":       "fix-issue-42-backoff",
					"pr_url":       "https://github.com/acme/widget/pull/7",
					"tests_passed": 12.0,
					"tests_failed": 0.0,
				},
			},
		},
	}
	repo := newFakeRepo()

	orch := New(testConfig(), tracker, sessions, repo, nil)

	resp, err := orch.Execute(context.Background(), "acme", "widget", 42, true)

	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, resp.Status)
	require.NotNil(t, resp.Result)
	assert.Equal(t, domain.ExecDone, resp.Result.Status)
	require.NotNil(t, resp.Result.PRURL)
	assert.Equal(t, "https://github.com/acme/widget/pull/7", *resp.Result.PRURL)

	issue := repo.issues[issueKey("acme", "widget", 42)]
	require.NotNil(t, issue)
	assert.True(t, issue.IsExecuted)
	assert.Equal(t, []domain.EventType{domain.EventExecuteStarted, domain.EventExecuteCompleted}, repo.eventTypes())
}

func TestExecuteNoOutputIsDegradedSuccess(t *testing.T) {
	tracker := trackerWithIssue()
	sessions := &fakeAgent{
		created: &agent.Session{SessionID: "e-1", Status: "running"},
		polled:  []*agent.Session{{SessionID: "e-1", Status: "finished"}},
	}
	repo := newFakeRepo()

	orch := New(testConfig(), tracker, sessions, repo, nil)

	resp, err := orch.Execute(context.Background(), "acme", "widget", 42, true)

	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, resp.Status)
	assert.Nil(t, resp.Result)

	// The session outcome is still recorded, the issue is not marked
	// executed.
	assert.Contains(t, repo.outcomes, "e-1")
	issue := repo.issues[issueKey("acme", "widget", 42)]
	require.NotNil(t, issue)
	assert.False(t, issue.IsExecuted)
}

func TestExecuteEmbedsStoredPlan(t *testing.T) {
	repo := newFakeRepo()
	repo.nextID = 1
	scoped := &domain.Issue{
		ID:       1,
		Owner:    "acme",
		Repo:     "widget",
		Number:   42,
		IsScoped: true,
		Plan:     []string{"reproduce", "add backoff"},
	}
	repo.issues[issueKey("acme", "widget", 42)] = scoped

	tracker := trackerWithIssue()
	sessions := &fakeAgent{
		created: &agent.Session{SessionID: "e-1", Status: "running"},
	}

	orch := New(testConfig(), tracker, sessions, repo, nil)

	_, err := orch.Execute(context.Background(), "acme", "widget", 42, false)

	require.NoError(t, err)
	require.Len(t, sessions.createReqs, 1)
	assert.Contains(t, sessions.createReqs[0].Prompt, "**Implementation Plan:**")
	assert.Contains(t, sessions.createReqs[0].Prompt, "1. reproduce")
}

func TestExecuteErroredSession(t *testing.T) {
	tracker := trackerWithIssue()
	sessions := &fakeAgent{
		created: &agent.Session{SessionID: "e-1", Status: "running"},
		polled:  []*agent.Session{{SessionID: "e-1", Status: "failed"}},
	}
	repo := newFakeRepo()

	orch := New(testConfig(), tracker, sessions, repo, nil)

	_, err := orch.Execute(context.Background(), "acme", "widget", 42, true)

	var apiErr *agent.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 500, apiErr.StatusCode)
	assert.Equal(t, []domain.EventType{domain.EventExecuteStarted, domain.EventExecuteFailed}, repo.eventTypes())
}
