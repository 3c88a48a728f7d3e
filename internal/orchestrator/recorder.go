package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"github.com/devtriage/issuepilot/internal/agent"
	"github.com/devtriage/issuepilot/internal/domain"
	"github.com/devtriage/issuepilot/internal/github"
	"github.com/devtriage/issuepilot/internal/store"
)

// recorder maps workflow outcomes onto issue, session, and event records.
// Every store failure is logged and swallowed: the workflow's externally
// visible outcome depends only on the tracker and agent calls, never on
// bookkeeping succeeding.
type recorder struct {
	repo   store.Repository
	logger *slog.Logger
}

func newRecorder(repo store.Repository, logger *slog.Logger) *recorder {
	return &recorder{repo: repo, logger: logger}
}

// started persists the issue record, the new session record, and a started
// event. Returns the issue record, or nil when persistence failed.
func (r *recorder) started(ctx context.Context, phase domain.SessionPhase, issue *github.Issue, ref domain.IssueRef, session *agent.Session) *domain.Issue {
	rec, created, err := r.repo.GetOrCreateIssue(ctx, &domain.Issue{
		Owner:  ref.Owner,
		Repo:   ref.Repo,
		Number: ref.Number,
		Title:  issue.Title,
		Body:   issue.Body,
		State:  issue.State,
		Labels: issue.LabelNames(),
	})
	if err != nil {
		r.logger.Error("Failed to persist issue record", "issue", ref.String(), "error", err)
		rec = nil
	} else if created {
		r.logger.Debug("Created issue record", "issue", ref.String(), "issue_id", rec.ID)
	}

	sessionRec := &domain.SessionRecord{
		SessionID:  session.SessionID,
		SessionURL: session.URL,
		Owner:      ref.Owner,
		Repo:       ref.Repo,
		Number:     ref.Number,
		Phase:      phase,
		Status:     session.Status,
	}
	if rec != nil {
		sessionRec.IssueID = &rec.ID
	}
	if err := r.repo.CreateSession(ctx, sessionRec); err != nil {
		r.logger.Error("Failed to persist session record", "session_id", session.SessionID, "error", err)
	}

	r.appendEvent(ctx, &domain.Event{
		Type:      startedEventType(phase),
		Owner:     ref.Owner,
		Repo:      ref.Repo,
		Number:    ref.Number,
		SessionID: session.SessionID,
		Message:   "session " + session.SessionID + " created for " + ref.String(),
	})

	return rec
}

// scopeCompleted persists the scoping result onto the issue and session
// records plus a completed event.
func (r *recorder) scopeCompleted(ctx context.Context, issueRec *domain.Issue, ref domain.IssueRef, session *agent.Session, result *domain.ScopingResult, duration time.Duration) {
	completedAt := time.Now()

	if issueRec != nil {
		if err := r.repo.UpdateIssueScoping(ctx, issueRec.ID, result, completedAt); err != nil {
			r.logger.Error("Failed to update issue with scoping result", "issue", ref.String(), "error", err)
		}
	}

	if err := r.repo.UpdateSessionOutcome(ctx, session.SessionID, store.SessionOutcome{
		Status:           session.Status,
		StructuredOutput: session.StructuredOutput,
		Scoping:          result,
		Duration:         duration,
		CompletedAt:      completedAt,
	}); err != nil {
		r.logger.Error("Failed to update session outcome", "session_id", session.SessionID, "error", err)
	}

	r.appendEvent(ctx, &domain.Event{
		Type:      domain.EventScopeCompleted,
		Owner:     ref.Owner,
		Repo:      ref.Repo,
		Number:    ref.Number,
		SessionID: session.SessionID,
		Message:   "scoping completed with risk " + string(result.RiskLevel),
	})
}

// executeCompleted persists the execution result (which may be nil for a
// degraded success) onto the issue and session records plus a completed
// event.
func (r *recorder) executeCompleted(ctx context.Context, issueRec *domain.Issue, ref domain.IssueRef, session *agent.Session, result *domain.ExecutionResult, duration time.Duration) {
	completedAt := time.Now()

	if issueRec != nil && result != nil {
		if err := r.repo.UpdateIssueExecution(ctx, issueRec.ID, result, completedAt); err != nil {
			r.logger.Error("Failed to update issue with execution result", "issue", ref.String(), "error", err)
		}
	}

	if err := r.repo.UpdateSessionOutcome(ctx, session.SessionID, store.SessionOutcome{
		Status:           session.Status,
		StructuredOutput: session.StructuredOutput,
		Execution:        result,
		Duration:         duration,
		CompletedAt:      completedAt,
	}); err != nil {
		r.logger.Error("Failed to update session outcome", "session_id", session.SessionID, "error", err)
	}

	message := "execution completed without structured output"
	if result != nil {
		message = "execution completed with status " + string(result.Status)
	}
	r.appendEvent(ctx, &domain.Event{
		Type:      domain.EventExecuteCompleted,
		Owner:     ref.Owner,
		Repo:      ref.Repo,
		Number:    ref.Number,
		SessionID: session.SessionID,
		Message:   message,
	})
}

// failed records a failure event for a session that timed out, errored, or
// resolved without output.
func (r *recorder) failed(ctx context.Context, phase domain.SessionPhase, ref domain.IssueRef, sessionID string, cause error) {
	r.appendEvent(ctx, &domain.Event{
		Type:         failedEventType(phase),
		Owner:        ref.Owner,
		Repo:         ref.Repo,
		Number:       ref.Number,
		SessionID:    sessionID,
		IsError:      true,
		ErrorMessage: cause.Error(),
	})
}

func (r *recorder) appendEvent(ctx context.Context, event *domain.Event) {
	if err := r.repo.AppendEvent(ctx, event); err != nil {
		r.logger.Error("Failed to append audit event", "event_type", event.Type, "error", err)
	}
}

// issueRecord fetches the stored issue record for a ref, or nil when absent
// or on store failure.
func (r *recorder) issueRecord(ctx context.Context, ref domain.IssueRef) *domain.Issue {
	rec, err := r.repo.GetIssue(ctx, ref.Owner, ref.Repo, ref.Number)
	if err != nil {
		r.logger.Error("Failed to load issue record", "issue", ref.String(), "error", err)
		return nil
	}
	return rec
}

func startedEventType(phase domain.SessionPhase) domain.EventType {
	if phase == domain.PhaseExec {
		return domain.EventExecuteStarted
	}
	return domain.EventScopeStarted
}

func failedEventType(phase domain.SessionPhase) domain.EventType {
	if phase == domain.PhaseExec {
		return domain.EventExecuteFailed
	}
	return domain.EventScopeFailed
}
