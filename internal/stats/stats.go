// Package stats records completion usage in a local SQLite ledger and
// aggregates it for the stats subcommand. Recording failures must never
// fail a chat: callers log and move on.
package stats

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver
)

// Event statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

const schema = `
CREATE TABLE IF NOT EXISTS usage_events (
	id                TEXT PRIMARY KEY,
	created_at        TEXT NOT NULL,
	conversation      TEXT NOT NULL DEFAULT '',
	model             TEXT NOT NULL,
	provider          TEXT NOT NULL,
	prompt_tokens     INTEGER NOT NULL DEFAULT 0,
	completion_tokens INTEGER NOT NULL DEFAULT 0,
	duration_ms       INTEGER NOT NULL DEFAULT 0,
	status            TEXT NOT NULL,
	error_type        TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_usage_events_model ON usage_events(model);
CREATE INDEX IF NOT EXISTS idx_usage_events_created_at ON usage_events(created_at);
`

// Event is one recorded completion call.
type Event struct {
	ID               string
	CreatedAt        time.Time
	Conversation     string // empty for ephemeral conversations
	Model            string
	Provider         string
	PromptTokens     int
	CompletionTokens int
	Duration         time.Duration
	Status           string
	ErrorType        string // empty on success
}

// ModelSummary aggregates events for one model.
type ModelSummary struct {
	Model            string
	Requests         int
	Errors           int
	PromptTokens     int
	CompletionTokens int
	TotalDuration    time.Duration
}

// Ledger is the usage database.
type Ledger struct {
	db *sql.DB
}

// Open opens the ledger at path, creating the database and schema on
// first use. SQLite supports a single writer, so the pool is pinned to
// one connection.
func Open(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf(
		"file:%s?_journal_mode=WAL&_busy_timeout=5000",
		path,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to open usage ledger: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping usage ledger: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize ledger schema: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return &Ledger{db: db}, nil
}

// Close closes the underlying database.
func (l *Ledger) Close() error {
	if err := l.db.Close(); err != nil {
		return fmt.Errorf("failed to close usage ledger: %w", err)
	}
	return nil
}

// Record inserts one event. A zero ID gets a fresh UUID and a zero time
// gets the current time, so callers only fill what they know.
func (l *Ledger) Record(ev Event) error {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	if ev.Status == "" {
		ev.Status = StatusOK
	}

	query := `
		INSERT INTO usage_events (
			id, created_at, conversation, model, provider,
			prompt_tokens, completion_tokens, duration_ms, status, error_type
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := l.db.Exec(query,
		ev.ID, ev.CreatedAt.UTC().Format(time.RFC3339), ev.Conversation, ev.Model, ev.Provider,
		ev.PromptTokens, ev.CompletionTokens, ev.Duration.Milliseconds(), ev.Status, ev.ErrorType,
	)
	if err != nil {
		return fmt.Errorf("failed to record usage event: %w", err)
	}
	return nil
}

// Recent returns the n most recent events, newest first. n <= 0 returns
// all of them.
func (l *Ledger) Recent(n int) ([]Event, error) {
	if n <= 0 {
		n = -1 // SQLite: negative LIMIT means no limit
	}

	query := `
		SELECT id, created_at, conversation, model, provider,
			prompt_tokens, completion_tokens, duration_ms, status, error_type
		FROM usage_events
		ORDER BY rowid DESC
		LIMIT ?
	`
	rows, err := l.db.Query(query, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		var createdAt string
		var durationMS int64
		if err := rows.Scan(
			&ev.ID, &createdAt, &ev.Conversation, &ev.Model, &ev.Provider,
			&ev.PromptTokens, &ev.CompletionTokens, &durationMS, &ev.Status, &ev.ErrorType,
		); err != nil {
			return nil, fmt.Errorf("failed to scan usage event: %w", err)
		}
		ev.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse event time %q: %w", createdAt, err)
		}
		ev.Duration = time.Duration(durationMS) * time.Millisecond
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read usage events: %w", err)
	}
	return events, nil
}

// Summarize aggregates the n most recent events per model, sorted by
// model name. n <= 0 aggregates everything.
func (l *Ledger) Summarize(n int) ([]ModelSummary, error) {
	if n <= 0 {
		n = -1
	}

	query := `
		SELECT model,
			COUNT(*),
			SUM(CASE WHEN status = ? THEN 1 ELSE 0 END),
			SUM(prompt_tokens),
			SUM(completion_tokens),
			SUM(duration_ms)
		FROM (SELECT * FROM usage_events ORDER BY rowid DESC LIMIT ?)
		GROUP BY model
		ORDER BY model
	`
	rows, err := l.db.Query(query, StatusError, n)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize usage: %w", err)
	}
	defer rows.Close()

	var summaries []ModelSummary
	for rows.Next() {
		var s ModelSummary
		var durationMS int64
		if err := rows.Scan(
			&s.Model, &s.Requests, &s.Errors,
			&s.PromptTokens, &s.CompletionTokens, &durationMS,
		); err != nil {
			return nil, fmt.Errorf("failed to scan usage summary: %w", err)
		}
		s.TotalDuration = time.Duration(durationMS) * time.Millisecond
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read usage summaries: %w", err)
	}
	return summaries, nil
}
