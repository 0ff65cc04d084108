// Package history stores the results of past runs in a SQLite database.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/acarl005/stripansi"

	// SQLite driver
	_ "github.com/mattn/go-sqlite3"

	"github.com/abdul-hamid-achik/chlorine/packages/core/runner"
)

// DefaultLimit is the number of runs Recent returns when no limit is given.
const DefaultLimit = 20

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	bundle      TEXT NOT NULL,
	workers     INTEGER NOT NULL,
	started     TEXT NOT NULL,
	duration_us INTEGER NOT NULL,
	total       INTEGER NOT NULL,
	passed      INTEGER NOT NULL,
	failed      INTEGER NOT NULL,
	exit_code   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_started ON runs (started);
CREATE TABLE IF NOT EXISTS spec_results (
	run_id         TEXT NOT NULL REFERENCES runs (id) ON DELETE CASCADE,
	idx            INTEGER NOT NULL,
	name           TEXT NOT NULL,
	options        TEXT NOT NULL,
	passed         INTEGER NOT NULL,
	aborted        INTEGER NOT NULL,
	asserts_passed INTEGER NOT NULL,
	asserts_failed INTEGER NOT NULL,
	duration_us    INTEGER NOT NULL,
	output         TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (run_id, idx)
);
`

// RunRow is one recorded run.
type RunRow struct {
	ID       string
	Bundle   string
	Workers  int
	Started  time.Time
	Duration time.Duration
	Total    int
	Passed   int
	Failed   int
	ExitCode int
}

// SpecRow is the recorded result of one spec in a run. Output is only kept
// for failed specs.
type SpecRow struct {
	Index         int
	Name          string
	Options       string
	Passed        bool
	Aborted       bool
	AssertsPassed int
	AssertsFailed int
	Duration      time.Duration
	Output        string
}

// Store is a run history database.
type Store struct {
	db           *sql.DB
	queryTimeout time.Duration
}

// Open opens or creates the database at path. Paths may carry a sqlite://
// or sqlite: prefix.
func Open(path string) (*Store, error) {
	dsn := dataSource(path)
	if dsn == "" {
		return nil, fmt.Errorf("empty history path")
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite serializes writers
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db, queryTimeout: 30 * time.Second}, nil
}

func dataSource(path string) string {
	path = strings.TrimSpace(path)
	if strings.HasPrefix(path, "sqlite://") {
		path = strings.TrimPrefix(path, "sqlite://")
	} else if strings.HasPrefix(path, "sqlite:") {
		path = strings.TrimPrefix(path, "sqlite:")
	}
	if path == "" {
		return ""
	}
	if strings.Contains(path, "?") {
		return path + "&_foreign_keys=on"
	}
	return path + "?_foreign_keys=on"
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Record stores a run and its spec results in one transaction.
func (s *Store) Record(ctx context.Context, result *runner.RunResult) error {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, bundle, workers, started, duration_us, total, passed, failed, exit_code)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.ID.String(), result.Name, result.Workers,
		result.Started.UTC().Format(time.RFC3339Nano), result.Duration.Microseconds(),
		result.Total, result.Passed, result.Failed, result.ExitCode)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO spec_results (run_id, idx, name, options, passed, aborted, asserts_passed, asserts_failed, duration_us, output)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare spec insert: %w", err)
	}
	defer stmt.Close()

	for _, sr := range result.Specs {
		var output string
		if !sr.Passed {
			output = stripansi.Strip(sr.Output)
		}
		_, err := stmt.ExecContext(ctx,
			result.ID.String(), sr.Index, sr.Name, sr.Options.String(), sr.Passed, sr.Aborted,
			sr.AssertsPassed, sr.AssertsFailed, sr.Duration.Microseconds(), output)
		if err != nil {
			return fmt.Errorf("insert spec %q: %w", sr.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Recent returns the latest runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]RunRow, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, bundle, workers, started, duration_us, total, passed, failed, exit_code
		 FROM runs ORDER BY started DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var runs []RunRow
	for rows.Next() {
		var r RunRow
		var started string
		var durationUs int64
		if err := rows.Scan(&r.ID, &r.Bundle, &r.Workers, &started, &durationUs,
			&r.Total, &r.Passed, &r.Failed, &r.ExitCode); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		r.Started, err = time.Parse(time.RFC3339Nano, started)
		if err != nil {
			return nil, fmt.Errorf("run %s: bad start time %q: %w", r.ID, started, err)
		}
		r.Duration = time.Duration(durationUs) * time.Microsecond
		runs = append(runs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return runs, nil
}

// Specs returns the spec results of a run in declaration order.
func (s *Store) Specs(ctx context.Context, runID string) ([]SpecRow, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		`SELECT idx, name, options, passed, aborted, asserts_passed, asserts_failed, duration_us, output
		 FROM spec_results WHERE run_id = ? ORDER BY idx`, runID)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var specs []SpecRow
	for rows.Next() {
		var sr SpecRow
		var durationUs int64
		if err := rows.Scan(&sr.Index, &sr.Name, &sr.Options, &sr.Passed, &sr.Aborted,
			&sr.AssertsPassed, &sr.AssertsFailed, &durationUs, &sr.Output); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		sr.Duration = time.Duration(durationUs) * time.Microsecond
		specs = append(specs, sr)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return specs, nil
}

// Prune deletes all but the newest keep runs and returns how many were removed.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM runs WHERE id NOT IN (SELECT id FROM runs ORDER BY started DESC, rowid DESC LIMIT ?)`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune failed: %w", err)
	}
	return res.RowsAffected()
}
