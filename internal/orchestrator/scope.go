package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/devtriage/issuepilot/internal/agent"
	"github.com/devtriage/issuepilot/internal/domain"
)

// Scope runs the scoping workflow: fetch the issue and its discussion,
// create an agent session that analyzes it, and (when wait is true) poll
// the session to completion and parse the plan out of it.
//
// Failure surface: tracker errors and agent errors propagate with their
// original status codes, a poll timeout surfaces as *agent.TimeoutError,
// and a resolved session without parseable output surfaces as
// *NoOutputError. Persistence never fails the workflow.
func (o *Orchestrator) Scope(ctx context.Context, owner, repo string, number int, wait bool) (*ScopeResponse, error) {
	ref := domain.IssueRef{Owner: owner, Repo: repo, Number: number}

	issue, err := o.tracker.GetIssue(ctx, owner, repo, number)
	if err != nil {
		return nil, err
	}

	// Comment fetch is best effort: a failure degrades to an empty
	// discussion, it never aborts the workflow.
	var comments []string
	fetched, err := o.tracker.ListComments(ctx, owner, repo, number, maxFetchedComments)
	if err != nil {
		o.logger.Warn("Failed to fetch issue comments, continuing without them",
			"issue", ref.String(), "error", err)
	} else {
		for _, c := range fetched {
			comments = append(comments, c.Body)
		}
	}

	prompt := agent.BuildScopingPrompt(owner+"/"+repo, number, issue.Title, issue.Body, comments)

	o.logger.Info("Creating scoping session", "issue", ref.String())
	session, err := o.sessions.CreateSession(ctx, agent.CreateSessionRequest{
		Prompt:                 prompt,
		RepoURL:                ref.RepoURL(),
		StructuredOutputSchema: agent.ScopingSchema(),
	})
	if err != nil {
		return nil, err
	}

	issueRec := o.recorder.started(ctx, domain.PhaseScope, issue, ref, session)

	if !wait {
		return &ScopeResponse{
			Status:        StatusSessionCreated,
			Owner:         owner,
			Repo:          repo,
			Number:        number,
			SessionID:     session.SessionID,
			SessionURL:    session.URL,
			SessionStatus: session.Status,
		}, nil
	}

	start := time.Now()
	final, err := o.poller.PollUntilComplete(ctx, session.SessionID, o.cfg.Polling.ScopeTimeout)
	if err != nil {
		var timeoutErr *agent.TimeoutError
		if errors.As(err, &timeoutErr) && timeoutErr.URL == "" {
			timeoutErr.URL = session.URL
		}
		o.recorder.failed(ctx, domain.PhaseScope, ref, session.SessionID, err)
		return nil, err
	}

	result := agent.ParseScopingOutput(final)
	if result == nil {
		noOutput := &NoOutputError{
			SessionID: final.SessionID,
			URL:       firstNonEmpty(final.URL, session.URL),
		}
		o.recorder.failed(ctx, domain.PhaseScope, ref, session.SessionID, noOutput)
		return nil, noOutput
	}

	o.recorder.scopeCompleted(ctx, issueRec, ref, final, result, time.Since(start))
	o.postScopeComment(ctx, ref, final, result)

	return &ScopeResponse{
		Status:        StatusCompleted,
		Owner:         owner,
		Repo:          repo,
		Number:        number,
		SessionID:     final.SessionID,
		SessionURL:    firstNonEmpty(final.URL, session.URL),
		SessionStatus: final.Status,
		Result:        result,
	}, nil
}

// postScopeComment posts the scoping summary back onto the issue when
// enabled. Same policy as persistence: failure is logged, never surfaced.
func (o *Orchestrator) postScopeComment(ctx context.Context, ref domain.IssueRef, session *agent.Session, result *domain.ScopingResult) {
	if !o.cfg.PostScopeComment {
		return
	}

	var b strings.Builder
	b.WriteString("**Scoping complete**\n\n")
	fmt.Fprintf(&b, "%s\n\n", result.Summary)
	b.WriteString("**Plan:**\n")
	for i, step := range result.Plan {
		fmt.Fprintf(&b, "%d. %s\n", i+1, step)
	}
	fmt.Fprintf(&b, "\nRisk: %s | Estimated effort: %.1fh | Confidence: %.2f\n",
		result.RiskLevel, result.EstEffortHours, result.Confidence)
	if session.URL != "" {
		fmt.Fprintf(&b, "\nSession: %s\n", session.URL)
	}

	if _, err := o.tracker.CreateComment(ctx, ref.Owner, ref.Repo, ref.Number, b.String()); err != nil {
		o.logger.Warn("Failed to post scoping comment", "issue", ref.String(), "error", err)
	}
}
