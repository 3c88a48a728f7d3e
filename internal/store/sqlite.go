package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/devtriage/issuepilot/internal/domain"
	"github.com/devtriage/issuepilot/internal/shared"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db      *sql.DB
	issueMu sync.Mutex // serializes issue get-or-create to prevent SQLITE_BUSY races
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS issues (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		owner TEXT NOT NULL,
		repo TEXT NOT NULL,
		issue_number INTEGER NOT NULL,
		title TEXT NOT NULL,
		body TEXT,
		state TEXT NOT NULL,
		labels_json TEXT,
		confidence REAL,
		risk_level TEXT,
		estimated_effort REAL,
		plan_json TEXT,
		pr_url TEXT,
		branch_name TEXT,
		tests_passed INTEGER,
		tests_failed INTEGER,
		is_scoped INTEGER NOT NULL DEFAULT 0,
		is_executed INTEGER NOT NULL DEFAULT 0,
		last_scoped_at INTEGER,
		last_executed_at INTEGER,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		UNIQUE(owner, repo, issue_number)
	);

	CREATE TABLE IF NOT EXISTS agent_sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL UNIQUE,
		session_url TEXT,
		issue_id INTEGER REFERENCES issues(id),
		owner TEXT NOT NULL,
		repo TEXT NOT NULL,
		issue_number INTEGER NOT NULL,
		phase TEXT NOT NULL,
		status TEXT,
		structured_output_json TEXT,
		confidence REAL,
		risk_level TEXT,
		estimated_effort REAL,
		pr_url TEXT,
		branch_name TEXT,
		tests_passed INTEGER,
		tests_failed INTEGER,
		duration_seconds REAL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		completed_at INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_issue ON agent_sessions(owner, repo, issue_number);
	CREATE INDEX IF NOT EXISTS idx_sessions_phase ON agent_sessions(phase);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		event_type TEXT NOT NULL,
		owner TEXT,
		repo TEXT,
		issue_number INTEGER,
		session_id TEXT,
		message TEXT,
		is_error INTEGER NOT NULL DEFAULT 0,
		error_message TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_events_created ON events(created_at);
	CREATE INDEX IF NOT EXISTS idx_events_type ON events(event_type);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

const issueColumns = `id, owner, repo, issue_number, title, body, state, labels_json,
	confidence, risk_level, estimated_effort, plan_json,
	pr_url, branch_name, tests_passed, tests_failed,
	is_scoped, is_executed, last_scoped_at, last_executed_at,
	created_at, updated_at`

// GetOrCreateIssue returns the record for the issue's composite identity,
// creating it if absent.
func (s *SQLiteStore) GetOrCreateIssue(ctx context.Context, issue *domain.Issue) (*domain.Issue, bool, error) {
	s.issueMu.Lock()
	defer s.issueMu.Unlock()

	existing, err := s.getIssueLocked(ctx, issue.Owner, issue.Repo, issue.Number)
	if err != nil {
		return nil, false, err
	}

	now := time.Now()
	labelsJSON, err := marshalJSON(issue.Labels)
	if err != nil {
		return nil, false, fmt.Errorf("encode labels: %w", err)
	}

	if existing != nil {
		// Refresh tracker-sourced fields in place.
		query := `UPDATE issues SET title = ?, body = ?, state = ?, labels_json = ?, updated_at = ? WHERE id = ?`
		if _, err := s.db.ExecContext(ctx, query,
			issue.Title, nullString(issue.Body), issue.State, labelsJSON, now.Unix(), existing.ID,
		); err != nil {
			return nil, false, fmt.Errorf("refresh issue: %w", err)
		}
		existing.Title = issue.Title
		existing.Body = issue.Body
		existing.State = issue.State
		existing.Labels = issue.Labels
		existing.UpdatedAt = now
		return existing, false, nil
	}

	query := `
		INSERT INTO issues (owner, repo, issue_number, title, body, state, labels_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := s.db.ExecContext(ctx, query,
		issue.Owner, issue.Repo, issue.Number,
		issue.Title, nullString(issue.Body), issue.State, labelsJSON,
		now.Unix(), now.Unix(),
	)
	if err != nil {
		return nil, false, fmt.Errorf("insert issue: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, false, fmt.Errorf("get insert id: %w", err)
	}

	created := *issue
	created.ID = id
	created.CreatedAt = now
	created.UpdatedAt = now
	return &created, true, nil
}

// GetIssue retrieves an issue record, or nil if none exists.
func (s *SQLiteStore) GetIssue(ctx context.Context, owner, repo string, number int) (*domain.Issue, error) {
	return s.getIssueLocked(ctx, owner, repo, number)
}

func (s *SQLiteStore) getIssueLocked(ctx context.Context, owner, repo string, number int) (*domain.Issue, error) {
	query := `SELECT ` + issueColumns + ` FROM issues WHERE owner = ? AND repo = ? AND issue_number = ?`

	row := s.db.QueryRowContext(ctx, query, owner, repo, number)
	issue, err := scanIssue(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan issue row: %w", err)
	}
	return issue, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIssue(row rowScanner) (*domain.Issue, error) {
	var issue domain.Issue
	var body, labelsJSON, riskLevel, planJSON, prURL, branchName sql.NullString
	var confidence, estimatedEffort sql.NullFloat64
	var testsPassed, testsFailed sql.NullInt64
	var lastScopedAt, lastExecutedAt sql.NullInt64
	var createdAt, updatedAt int64

	err := row.Scan(
		&issue.ID, &issue.Owner, &issue.Repo, &issue.Number,
		&issue.Title, &body, &issue.State, &labelsJSON,
		&confidence, &riskLevel, &estimatedEffort, &planJSON,
		&prURL, &branchName, &testsPassed, &testsFailed,
		&issue.IsScoped, &issue.IsExecuted, &lastScopedAt, &lastExecutedAt,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	issue.Body = body.String
	if labelsJSON.Valid {
		if err := json.Unmarshal([]byte(labelsJSON.String), &issue.Labels); err != nil {
			slog.Warn("Failed to decode issue labels", "issue_id", issue.ID, "error", err)
		}
	}
	if confidence.Valid {
		issue.Confidence = &confidence.Float64
	}
	if riskLevel.Valid {
		issue.RiskLevel = &riskLevel.String
	}
	if estimatedEffort.Valid {
		issue.EstimatedEffort = &estimatedEffort.Float64
	}
	if planJSON.Valid {
		if err := json.Unmarshal([]byte(planJSON.String), &issue.Plan); err != nil {
			slog.Warn("Failed to decode issue plan", "issue_id", issue.ID, "error", err)
		}
	}
	if prURL.Valid {
		issue.PRURL = &prURL.String
	}
	if branchName.Valid {
		issue.BranchName = &branchName.String
	}
	if testsPassed.Valid {
		n := int(testsPassed.Int64)
		issue.TestsPassed = &n
	}
	if testsFailed.Valid {
		n := int(testsFailed.Int64)
		issue.TestsFailed = &n
	}
	if lastScopedAt.Valid {
		ts := time.Unix(lastScopedAt.Int64, 0)
		issue.LastScopedAt = &ts
	}
	if lastExecutedAt.Valid {
		ts := time.Unix(lastExecutedAt.Int64, 0)
		issue.LastExecutedAt = &ts
	}
	issue.CreatedAt = time.Unix(createdAt, 0)
	issue.UpdatedAt = time.Unix(updatedAt, 0)

	return &issue, nil
}

// UpdateIssueScoping attaches a scoping result to an issue record.
func (s *SQLiteStore) UpdateIssueScoping(ctx context.Context, issueID int64, result *domain.ScopingResult, scopedAt time.Time) error {
	planJSON, err := marshalJSON(result.Plan)
	if err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}

	query := `
		UPDATE issues SET
			confidence = ?, risk_level = ?, estimated_effort = ?, plan_json = ?,
			is_scoped = 1, last_scoped_at = ?, updated_at = ?
		WHERE id = ?`
	res, err := s.db.ExecContext(ctx, query,
		result.Confidence, string(result.RiskLevel), result.EstEffortHours, planJSON,
		scopedAt.Unix(), time.Now().Unix(), issueID,
	)
	if err != nil {
		return fmt.Errorf("update issue scoping: %w", err)
	}
	return warnIfNoRows(res, "UpdateIssueScoping", issueID)
}

// UpdateIssueExecution attaches an execution result to an issue record.
func (s *SQLiteStore) UpdateIssueExecution(ctx context.Context, issueID int64, result *domain.ExecutionResult, executedAt time.Time) error {
	query := `
		UPDATE issues SET
			pr_url = ?, branch_name = ?, tests_passed = ?, tests_failed = ?,
			is_executed = 1, last_executed_at = ?, updated_at = ?
		WHERE id = ?`
	res, err := s.db.ExecContext(ctx, query,
		nullStringPtr(result.PRURL), nullStringPtr(result.Branch),
		nullIntPtr(result.TestsPassed), nullIntPtr(result.TestsFailed),
		executedAt.Unix(), time.Now().Unix(), issueID,
	)
	if err != nil {
		return fmt.Errorf("update issue execution: %w", err)
	}
	return warnIfNoRows(res, "UpdateIssueExecution", issueID)
}

const sessionColumns = `id, session_id, session_url, issue_id, owner, repo, issue_number,
	phase, status, structured_output_json,
	confidence, risk_level, estimated_effort,
	pr_url, branch_name, tests_passed, tests_failed,
	duration_seconds, created_at, updated_at, completed_at`

// CreateSession inserts a new session record.
func (s *SQLiteStore) CreateSession(ctx context.Context, rec *domain.SessionRecord) error {
	now := time.Now()

	var issueID any
	if rec.IssueID != nil {
		issueID = *rec.IssueID
	}

	query := `
		INSERT INTO agent_sessions (
			session_id, session_url, issue_id, owner, repo, issue_number,
			phase, status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := s.db.ExecContext(ctx, query,
		rec.SessionID, nullString(rec.SessionURL), issueID,
		rec.Owner, rec.Repo, rec.Number,
		string(rec.Phase), nullString(rec.Status),
		now.Unix(), now.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert session record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get insert id: %w", err)
	}
	rec.ID = id
	rec.CreatedAt = now
	rec.UpdatedAt = now
	return nil
}

// UpdateSessionOutcome records how a session resolved.
func (s *SQLiteStore) UpdateSessionOutcome(ctx context.Context, sessionID string, outcome SessionOutcome) error {
	outputJSON, err := marshalJSON(outcome.StructuredOutput)
	if err != nil {
		return fmt.Errorf("encode structured output: %w", err)
	}

	var confidence, estimatedEffort, riskLevel any
	if outcome.Scoping != nil {
		confidence = outcome.Scoping.Confidence
		estimatedEffort = outcome.Scoping.EstEffortHours
		riskLevel = string(outcome.Scoping.RiskLevel)
	}

	var prURL, branchName, testsPassed, testsFailed any
	if outcome.Execution != nil {
		prURL = nullStringPtr(outcome.Execution.PRURL)
		branchName = nullStringPtr(outcome.Execution.Branch)
		testsPassed = nullIntPtr(outcome.Execution.TestsPassed)
		testsFailed = nullIntPtr(outcome.Execution.TestsFailed)
	}

	query := `
		UPDATE agent_sessions SET
			status = ?, structured_output_json = ?,
			confidence = ?, risk_level = ?, estimated_effort = ?,
			pr_url = ?, branch_name = ?, tests_passed = ?, tests_failed = ?,
			duration_seconds = ?, completed_at = ?, updated_at = ?
		WHERE session_id = ?`
	res, err := s.db.ExecContext(ctx, query,
		nullString(outcome.Status), outputJSON,
		confidence, riskLevel, estimatedEffort,
		prURL, branchName, testsPassed, testsFailed,
		outcome.Duration.Seconds(), outcome.CompletedAt.Unix(), time.Now().Unix(),
		sessionID,
	)
	if err != nil {
		return fmt.Errorf("update session outcome: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("session record not found: %s", sessionID)
	}
	return nil
}

// GetSession retrieves a session record by remote session ID.
func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (*domain.SessionRecord, error) {
	query := `SELECT ` + sessionColumns + ` FROM agent_sessions WHERE session_id = ?`

	row := s.db.QueryRowContext(ctx, query, sessionID)
	rec, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan session row: %w", err)
	}
	return rec, nil
}

// ListSessions returns the most recent session records, newest first.
func (s *SQLiteStore) ListSessions(ctx context.Context, limit int) ([]*domain.SessionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + sessionColumns + ` FROM agent_sessions ORDER BY created_at DESC, id DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close session rows", "error", closeErr)
		}
	}()

	var records []*domain.SessionRecord
	for rows.Next() {
		rec, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return records, nil
}

func scanSession(row rowScanner) (*domain.SessionRecord, error) {
	var rec domain.SessionRecord
	var sessionURL, status, outputJSON, riskLevel, prURL, branchName sql.NullString
	var issueID sql.NullInt64
	var confidence, estimatedEffort, durationSeconds sql.NullFloat64
	var testsPassed, testsFailed, completedAt sql.NullInt64
	var createdAt, updatedAt int64
	var phase string

	err := row.Scan(
		&rec.ID, &rec.SessionID, &sessionURL, &issueID,
		&rec.Owner, &rec.Repo, &rec.Number,
		&phase, &status, &outputJSON,
		&confidence, &riskLevel, &estimatedEffort,
		&prURL, &branchName, &testsPassed, &testsFailed,
		&durationSeconds, &createdAt, &updatedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.SessionURL = sessionURL.String
	if issueID.Valid {
		rec.IssueID = &issueID.Int64
	}
	rec.Phase = domain.SessionPhase(phase)
	rec.Status = status.String
	if outputJSON.Valid {
		if err := json.Unmarshal([]byte(outputJSON.String), &rec.StructuredOutput); err != nil {
			slog.Warn("Failed to decode session structured output", "session_id", rec.SessionID, "error", err)
		}
	}
	if confidence.Valid {
		rec.Confidence = &confidence.Float64
	}
	if riskLevel.Valid {
		rec.RiskLevel = &riskLevel.String
	}
	if estimatedEffort.Valid {
		rec.EstimatedEffort = &estimatedEffort.Float64
	}
	if prURL.Valid {
		rec.PRURL = &prURL.String
	}
	if branchName.Valid {
		rec.BranchName = &branchName.String
	}
	if testsPassed.Valid {
		n := int(testsPassed.Int64)
		rec.TestsPassed = &n
	}
	if testsFailed.Valid {
		n := int(testsFailed.Int64)
		rec.TestsFailed = &n
	}
	if durationSeconds.Valid {
		rec.DurationSeconds = &durationSeconds.Float64
	}
	rec.CreatedAt = time.Unix(createdAt, 0)
	rec.UpdatedAt = time.Unix(updatedAt, 0)
	if completedAt.Valid {
		ts := time.Unix(completedAt.Int64, 0)
		rec.CompletedAt = &ts
	}

	return &rec, nil
}

// AppendEvent appends an immutable audit event, retrying briefly on SQLite
// concurrency errors so bursts of concurrent workflows do not lose audit
// records.
func (s *SQLiteStore) AppendEvent(ctx context.Context, event *domain.Event) error {
	query := `
		INSERT INTO events (event_type, owner, repo, issue_number, session_id, message, is_error, error_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	now := time.Now()
	maxRetries := 3
	baseDelay := 100 * time.Millisecond

	var err error
	for i := 0; i < maxRetries; i++ {
		_, err = s.db.ExecContext(ctx, query,
			string(event.Type),
			nullString(event.Owner), nullString(event.Repo), nullInt(event.Number),
			nullString(event.SessionID), nullString(event.Message),
			event.IsError, nullString(event.ErrorMessage),
			now.Unix(),
		)
		if err == nil {
			event.CreatedAt = now
			return nil
		}
		if !shared.IsSQLiteConflictError(err) || i == maxRetries-1 {
			break
		}
		delay := baseDelay * time.Duration(1<<i)
		slog.Debug("Event insert hit SQLITE_BUSY, retrying", "attempt", i+1, "delay", delay)
		time.Sleep(delay)
	}
	return fmt.Errorf("append event: %w", err)
}

// ListEvents returns the most recent audit events, newest first.
func (s *SQLiteStore) ListEvents(ctx context.Context, limit int) ([]*domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, event_type, owner, repo, issue_number, session_id, message, is_error, error_message, created_at
		FROM events ORDER BY created_at DESC, id DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close event rows", "error", closeErr)
		}
	}()

	var events []*domain.Event
	for rows.Next() {
		var ev domain.Event
		var eventType string
		var owner, repo, sessionID, message, errorMessage sql.NullString
		var number sql.NullInt64
		var createdAt int64

		if err := rows.Scan(
			&ev.ID, &eventType, &owner, &repo, &number,
			&sessionID, &message, &ev.IsError, &errorMessage, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}

		ev.Type = domain.EventType(eventType)
		ev.Owner = owner.String
		ev.Repo = repo.String
		ev.Number = int(number.Int64)
		ev.SessionID = sessionID.String
		ev.Message = message.String
		ev.ErrorMessage = errorMessage.String
		ev.CreatedAt = time.Unix(createdAt, 0)
		events = append(events, &ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

func marshalJSON(v any) (any, error) {
	switch val := v.(type) {
	case []string:
		if val == nil {
			return nil, nil
		}
	case map[string]any:
		if val == nil {
			return nil, nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullStringPtr(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullInt(n int) any {
	if n == 0 {
		return nil
	}
	return n
}

func nullIntPtr(n *int) any {
	if n == nil {
		return nil
	}
	return *n
}

func warnIfNoRows(res sql.Result, op string, issueID int64) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		slog.Warn(op+" affected 0 rows", "issue_id", issueID)
	}
	return nil
}
