package agent

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"
)

// TimeoutError means a session did not reach a terminal state within the
// allowed time. It carries the session URL so a human can follow up on the
// still-running remote session.
type TimeoutError struct {
	SessionID string
	URL       string
	Timeout   time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("session %s did not complete within %s", e.SessionID, e.Timeout)
}

// State is the classification of a session at one poll.
type State int

const (
	StatePending State = iota
	StateDone
	StateErrored
	StateBlocked
)

// The agent service does not document its full status vocabulary; these
// synonym sets are the observed terminal and blocked values. Extend them
// here rather than in the polling loop.
var (
	doneStatuses    = []string{"finished", "completed", "done", "idle", "succeeded"}
	erroredStatuses = []string{"error", "failed"}
)

// Classify maps a session onto the polling state machine. Non-empty
// structured output counts as done regardless of status, including error
// statuses: output availability can outrun the status field, and output in
// hand is the thing being waited for.
func Classify(s *Session) State {
	status := strings.ToLower(s.Status)
	switch {
	case slices.Contains(doneStatuses, status):
		return StateDone
	case s.HasOutput():
		return StateDone
	case slices.Contains(erroredStatuses, status):
		return StateErrored
	case status == "blocked":
		return StateBlocked
	default:
		return StatePending
	}
}

// Poller drives a session from creation to a terminal outcome. It holds no
// state across calls beyond its configuration; elapsed time and the current
// interval are re-derived per call.
type Poller struct {
	client      Client
	interval    time.Duration
	maxInterval time.Duration
	logger      *slog.Logger
}

// NewPoller creates a polling engine. The interval doubles between polls up
// to maxInterval; a maxInterval at or below interval disables backoff.
func NewPoller(client Client, interval, maxInterval time.Duration, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if maxInterval < interval {
		maxInterval = interval
	}
	return &Poller{
		client:      client,
		interval:    interval,
		maxInterval: maxInterval,
		logger:      logger,
	}
}

// PollUntilComplete fetches the session until it reaches a terminal state or
// the timeout elapses. The timeout is checked before each fetch, so a
// session that resolves exactly at the boundary is still reported as timed
// out. A blocked session is never terminal; only the timeout bounds it.
//
// Cancelling ctx releases the wait without affecting the remote session.
func (p *Poller) PollUntilComplete(ctx context.Context, sessionID string, timeout time.Duration) (*Session, error) {
	start := time.Now()
	interval := p.interval
	lastURL := ""

	p.logger.Info("Polling session", "session_id", sessionID, "timeout", timeout)

	for {
		elapsed := time.Since(start)
		if elapsed > timeout {
			return nil, &TimeoutError{SessionID: sessionID, URL: lastURL, Timeout: timeout}
		}

		session, err := p.client.GetSession(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		lastURL = session.URL

		p.logger.Debug("Poll result",
			"session_id", sessionID,
			"status", session.Status,
			"has_output", session.HasOutput(),
			"elapsed", elapsed.Round(time.Second))

		switch Classify(session) {
		case StateDone:
			p.logger.Info("Session finished",
				"session_id", sessionID,
				"status", session.Status,
				"has_output", session.HasOutput(),
				"elapsed", elapsed.Round(time.Second))
			return session, nil
		case StateErrored:
			return nil, &APIError{
				StatusCode: 500,
				Message:    fmt.Sprintf("session %s encountered an error", sessionID),
			}
		case StateBlocked:
			p.logger.Warn("Session is blocked, may need user input", "session_id", sessionID)
		case StatePending:
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		interval *= 2
		if interval > p.maxInterval {
			interval = p.maxInterval
		}
	}
}
