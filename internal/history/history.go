// Package history keeps a SQLite record of suite runs so results can be
// compared across interpreter builds.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/FocuswithJustin/loxoracle/core/errors"
	"github.com/FocuswithJustin/loxoracle/core/sqlite"
)

var migrations = []string{
	`CREATE TABLE runs (
		id           TEXT PRIMARY KEY,
		started_at   TEXT NOT NULL,
		finished_at  TEXT,
		interpreter  TEXT NOT NULL,
		language     TEXT NOT NULL,
		root         TEXT NOT NULL,
		corpus       TEXT NOT NULL DEFAULT '',
		passed       INTEGER NOT NULL DEFAULT 0,
		failed       INTEGER NOT NULL DEFAULT 0,
		skipped      INTEGER NOT NULL DEFAULT 0,
		expectations INTEGER NOT NULL DEFAULT 0,
		fingerprint  TEXT NOT NULL DEFAULT ''
	);
	CREATE TABLE results (
		run_id       TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		path         TEXT NOT NULL,
		verdict      TEXT NOT NULL,
		skip_reason  TEXT NOT NULL DEFAULT '',
		fixture_hash TEXT NOT NULL DEFAULT '',
		expectations INTEGER NOT NULL DEFAULT 0,
		failures     TEXT NOT NULL DEFAULT '[]',
		duration_ms  INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (run_id, path)
	);
	CREATE INDEX idx_runs_started ON runs(started_at);`,
}

// Run is one recorded suite run.
type Run struct {
	ID          string     `json:"id"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	Interpreter string     `json:"interpreter"`
	Language    string     `json:"language"`
	Root        string     `json:"root"`
	// Corpus is the commit the fixture tree was checked out at, if known.
	Corpus       string `json:"corpus,omitempty"`
	Passed       int    `json:"passed"`
	Failed       int    `json:"failed"`
	Skipped      int    `json:"skipped"`
	Expectations int    `json:"expectations"`
	Fingerprint  string `json:"fingerprint,omitempty"`
}

// Result is the recorded verdict for one fixture of a run.
type Result struct {
	Path         string   `json:"path"`
	Verdict      string   `json:"verdict"`
	SkipReason   string   `json:"skip_reason,omitempty"`
	FixtureHash  string   `json:"fixture_hash,omitempty"`
	Expectations int      `json:"expectations"`
	Failures     []string `json:"failures,omitempty"`
	DurationMS   int64    `json:"duration_ms"`
}

// DB is an open history database.
type DB struct {
	db *sql.DB
}

// Open opens or creates the history database at path.
func Open(ctx context.Context, path string) (*DB, error) {
	db, err := sqlite.Open(path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	if _, err := sqlite.Migrate(ctx, db, migrations); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate history %s: %w", path, err)
	}
	return &DB{db: db}, nil
}

// Close closes the database.
func (h *DB) Close() error {
	return h.db.Close()
}

// BeginRun inserts a run with no results.
func (h *DB) BeginRun(ctx context.Context, run Run) error {
	_, err := h.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, interpreter, language, root, corpus) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, formatTime(run.StartedAt), run.Interpreter, run.Language, run.Root, run.Corpus)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
	}
	return nil
}

// AddResult records one fixture verdict. Recording a path twice replaces
// the earlier verdict.
func (h *DB) AddResult(ctx context.Context, runID string, r Result) error {
	failures, err := json.Marshal(nonNil(r.Failures))
	if err != nil {
		return fmt.Errorf("failed to marshal failures: %w", err)
	}
	_, err = h.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO results (run_id, path, verdict, skip_reason, fixture_hash, expectations, failures, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, r.Path, r.Verdict, r.SkipReason, r.FixtureHash, r.Expectations, string(failures), r.DurationMS)
	if err != nil {
		return fmt.Errorf("failed to insert result %s: %w", r.Path, err)
	}
	return nil
}

// FinishRun stores the totals and fingerprint of a run.
func (h *DB) FinishRun(ctx context.Context, run Run) error {
	finished := time.Now()
	if run.FinishedAt != nil {
		finished = *run.FinishedAt
	}
	res, err := h.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, passed = ?, failed = ?, skipped = ?, expectations = ?, fingerprint = ? WHERE id = ?`,
		formatTime(finished), run.Passed, run.Failed, run.Skipped, run.Expectations, run.Fingerprint, run.ID)
	if err != nil {
		return fmt.Errorf("failed to update run %s: %w", run.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.NewNotFound("run", run.ID)
	}
	return nil
}

const runColumns = `id, started_at, finished_at, interpreter, language, root, corpus, passed, failed, skipped, expectations, fingerprint`

// ListRuns returns the most recent runs first. limit <= 0 means all.
func (h *DB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun returns the run whose ID is id or starts with id. An ambiguous
// prefix is an error.
func (h *DB) GetRun(ctx context.Context, id string) (*Run, error) {
	rows, err := h.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id = ? OR id LIKE ? ORDER BY id LIMIT 2`, id, id+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to query run %s: %w", id, err)
	}
	defer rows.Close()

	var found []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		if run.ID == id {
			return &run, nil
		}
		found = append(found, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	switch len(found) {
	case 0:
		return nil, errors.NewNotFound("run", id)
	case 1:
		return &found[0], nil
	default:
		return nil, fmt.Errorf("run ID prefix %q is ambiguous: %w", id, errors.ErrInvalidInput)
	}
}

// Results returns the fixture verdicts of a run ordered by path.
func (h *DB) Results(ctx context.Context, runID string) ([]Result, error) {
	rows, err := h.db.QueryContext(ctx,
		`SELECT path, verdict, skip_reason, fixture_hash, expectations, failures, duration_ms
		 FROM results WHERE run_id = ? ORDER BY path`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query results of %s: %w", runID, err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var failures string
		if err := rows.Scan(&r.Path, &r.Verdict, &r.SkipReason, &r.FixtureHash, &r.Expectations, &failures, &r.DurationMS); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		if err := json.Unmarshal([]byte(failures), &r.Failures); err != nil {
			return nil, fmt.Errorf("failed to decode failures of %s: %w", r.Path, err)
		}
		if len(r.Failures) == 0 {
			r.Failures = nil
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var run Run
	var started string
	var finished sql.NullString
	if err := s.Scan(&run.ID, &started, &finished, &run.Interpreter, &run.Language, &run.Root, &run.Corpus,
		&run.Passed, &run.Failed, &run.Skipped, &run.Expectations, &run.Fingerprint); err != nil {
		return run, fmt.Errorf("failed to scan run: %w", err)
	}

	t, err := time.Parse(timeLayout, started)
	if err != nil {
		return run, fmt.Errorf("run %s: bad start time %q: %w", run.ID, started, err)
	}
	run.StartedAt = t
	if finished.Valid {
		t, err := time.Parse(timeLayout, finished.String)
		if err != nil {
			return run, fmt.Errorf("run %s: bad finish time %q: %w", run.ID, finished.String, err)
		}
		run.FinishedAt = &t
	}
	return run, nil
}

// timeLayout has fixed width so stored times sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
