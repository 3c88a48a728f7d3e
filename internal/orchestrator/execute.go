package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/devtriage/issuepilot/internal/agent"
	"github.com/devtriage/issuepilot/internal/domain"
)

// Execute runs the execution workflow: fetch the issue, create an agent
// session that implements a fix, and (when wait is true) poll it to
// completion. Execution sessions run for a long time, so callers are
// expected to pass wait=false and follow up via the sessions API.
//
// Unlike Scope, a resolved session without parseable output is a degraded
// success here: the session finished, there is just no structured result to
// attach.
func (o *Orchestrator) Execute(ctx context.Context, owner, repo string, number int, wait bool) (*ExecuteResponse, error) {
	ref := domain.IssueRef{Owner: owner, Repo: repo, Number: number}

	issue, err := o.tracker.GetIssue(ctx, owner, repo, number)
	if err != nil {
		return nil, err
	}

	// Feed the stored scoping plan into the prompt when one exists.
	var plan []string
	if rec := o.recorder.issueRecord(ctx, ref); rec != nil && rec.IsScoped {
		plan = rec.Plan
	}

	prompt := agent.BuildExecutionPrompt(ref.RepoURL(), number, issue.Title, issue.Body, plan)

	o.logger.Info("Creating execution session", "issue", ref.String(), "has_plan", len(plan) > 0)
	session, err := o.sessions.CreateSession(ctx, agent.CreateSessionRequest{
		Prompt:                 prompt,
		RepoURL:                ref.RepoURL(),
		StructuredOutputSchema: agent.ExecutionSchema(),
	})
	if err != nil {
		return nil, err
	}

	issueRec := o.recorder.started(ctx, domain.PhaseExec, issue, ref, session)

	if !wait {
		return &ExecuteResponse{
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
	final, err := o.poller.PollUntilComplete(ctx, session.SessionID, o.cfg.Polling.ExecuteTimeout)
	if err != nil {
		var timeoutErr *agent.TimeoutError
		if errors.As(err, &timeoutErr) && timeoutErr.URL == "" {
			timeoutErr.URL = session.URL
		}
		o.recorder.failed(ctx, domain.PhaseExec, ref, session.SessionID, err)
		return nil, err
	}

	result := agent.ParseExecutionOutput(final)
	if result == nil {
		o.logger.Warn("Execution session resolved without structured output",
			"session_id", final.SessionID, "status", final.Status)
	}

	o.recorder.executeCompleted(ctx, issueRec, ref, final, result, time.Since(start))

	return &ExecuteResponse{
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
