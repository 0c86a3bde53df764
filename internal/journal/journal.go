// Package journal keeps an append-only SQLite record of every question the
// service was asked and how the workflow handled it. Entries are written by
// the CLI, the HTTP server and the evaluator; nothing in the answering path
// reads them back.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver

	"github.com/54b3r/docqa-go/internal/workflow"
)

// Channel identifies where a question came from.
type Channel string

const (
	ChannelCLI  Channel = "cli"
	ChannelHTTP Channel = "http"
	ChannelEval Channel = "eval"
)

// OutcomeError marks a run that failed before reaching a terminal state.
const OutcomeError = "error"

// Entry is one journaled question.
type Entry struct {
	ID       int64
	Channel  Channel
	Question string
	// Outcome is answered, ended or error.
	Outcome string
	// Score is NaN when the run failed before scoring.
	Score     float64
	Passages  int
	Latency   time.Duration
	Error     string
	CreatedAt time.Time
}

// EntryFor builds the entry for one finished workflow run.
func EntryFor(ch Channel, question string, res workflow.Result, runErr error, latency time.Duration) Entry {
	e := Entry{
		Channel:  ch,
		Question: question,
		Latency:  latency,
	}
	if runErr != nil {
		e.Outcome = OutcomeError
		e.Score = math.NaN()
		e.Error = runErr.Error()
		return e
	}
	e.Outcome = string(res.Outcome)
	e.Score = res.RelevanceScore
	e.Passages = len(res.Context)
	return e
}

// Recorder appends journal entries. Implementations must be safe for
// concurrent use.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

// Nop is a Recorder that discards everything. It stands in when the journal
// is disabled.
type Nop struct{}

// Record implements Recorder.
func (Nop) Record(context.Context, Entry) error { return nil }

// Store is a Recorder backed by a local SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the journal at path, creating its parent directory,
// and runs the schema migration. Use ":memory:" in tests.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("journal: create dir for %s: %w", path, err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", path, err)
	}
	// One connection serialises writers and keeps ":memory:" a single database.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS questions (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    channel      TEXT    NOT NULL CHECK(channel IN ('cli','http','eval')),
    question     TEXT    NOT NULL,
    outcome      TEXT    NOT NULL CHECK(outcome IN ('answered','ended','error')),
    score        REAL,             -- NULL when the run failed before scoring
    passages     INTEGER NOT NULL,
    latency_ms   INTEGER NOT NULL,
    error        TEXT    NOT NULL DEFAULT '',
    created_at   INTEGER NOT NULL  -- Unix timestamp (milliseconds)
);
CREATE INDEX IF NOT EXISTS idx_questions_created ON questions (created_at);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("journal: migrate: %w", err)
	}
	return nil
}

// Record appends e. A zero CreatedAt is stamped with the current time.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	var score sql.NullFloat64
	if !math.IsNaN(e.Score) && !math.IsInf(e.Score, 0) {
		score = sql.NullFloat64{Float64: e.Score, Valid: true}
	}

	const q = `INSERT INTO questions (channel, question, outcome, score, passages, latency_ms, error, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, q,
		string(e.Channel), e.Question, e.Outcome, score, e.Passages,
		e.Latency.Milliseconds(), e.Error, e.CreatedAt.UnixMilli(),
	); err != nil {
		return fmt.Errorf("journal: record: %w", err)
	}
	return nil
}

// Recent returns the newest n entries, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]Entry, error) {
	const q = `
SELECT id, channel, question, outcome, score, passages, latency_ms, error, created_at
FROM   questions
ORDER  BY created_at DESC, id DESC
LIMIT  ?`

	rows, err := s.db.QueryContext(ctx, q, n)
	if err != nil {
		return nil, fmt.Errorf("journal: recent: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e         Entry
			ch        string
			score     sql.NullFloat64
			latencyMS int64
			created   int64
		)
		if err := rows.Scan(&e.ID, &ch, &e.Question, &e.Outcome, &score, &e.Passages, &latencyMS, &e.Error, &created); err != nil {
			return nil, fmt.Errorf("journal: recent scan: %w", err)
		}
		e.Channel = Channel(ch)
		e.Score = math.NaN()
		if score.Valid {
			e.Score = score.Float64
		}
		e.Latency = time.Duration(latencyMS) * time.Millisecond
		e.CreatedAt = time.UnixMilli(created)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal: recent rows: %w", err)
	}
	return out, nil
}

// Summary counts entries per outcome.
type Summary struct {
	Answered int
	Ended    int
	Errors   int
	// MeanScore averages the non-NULL scores. NaN when there are none.
	MeanScore float64
}

// Summarize aggregates every entry in the journal.
func (s *Store) Summarize(ctx context.Context) (Summary, error) {
	const q = `
SELECT
    COALESCE(SUM(outcome = 'answered'), 0),
    COALESCE(SUM(outcome = 'ended'), 0),
    COALESCE(SUM(outcome = 'error'), 0),
    AVG(score)
FROM questions`

	var (
		sum  Summary
		mean sql.NullFloat64
	)
	err := s.db.QueryRowContext(ctx, q).Scan(&sum.Answered, &sum.Ended, &sum.Errors, &mean)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return Summary{}, fmt.Errorf("journal: summarize: %w", err)
	}
	sum.MeanScore = math.NaN()
	if mean.Valid {
		sum.MeanScore = mean.Float64
	}
	return sum, nil
}

// Close releases the database connection pool.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("journal: close: %w", err)
	}
	return nil
}
