// Package history mirrors completed iterations into a local SQLite database
// for operator-facing run history ("ralph status"). It is a read side
// effect only: the event loop never reads this database back to reconstruct
// its own state — that would violate the append-only event log's role as
// the run's sole durable state. A Store that fails to open or write simply
// means history is unavailable for that run; it never aborts a run.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

const (
	schemaVersion  = 1
	schemaChecksum = "ralph-v1-iterations"
)

// Store wraps the SQLite connection used for run/iteration history.
type Store struct {
	db *sql.DB
}

// Open creates (or reuses) the database at path, applying its schema. An
// empty path defaults to "~/.ralph/history.db".
func Open(path string) (*Store, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("history: resolve home dir: %w", err)
		}
		path = filepath.Join(home, ".ralph", "history.db")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("history: create db directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_busy_timeout=5000&_foreign_keys=on", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("history: open sqlite3: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &Store{db: db}
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: set journal_mode: %w", err)
	}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) initSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("history: begin migration tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			checksum TEXT NOT NULL,
			applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`); err != nil {
		return fmt.Errorf("history: create schema_migrations: %w", err)
	}

	var maxVersion int
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations;`).Scan(&maxVersion); err != nil {
		return fmt.Errorf("history: read migration max version: %w", err)
	}
	if maxVersion > schemaVersion {
		return fmt.Errorf("history: db schema version %d is newer than supported %d", maxVersion, schemaVersion)
	}
	if maxVersion == schemaVersion {
		var existing string
		if err := tx.QueryRowContext(ctx, `SELECT checksum FROM schema_migrations WHERE version = ?;`, schemaVersion).Scan(&existing); err != nil {
			return fmt.Errorf("history: read schema checksum: %w", err)
		}
		if existing != schemaChecksum {
			return fmt.Errorf("history: schema checksum mismatch: got %q want %q", existing, schemaChecksum)
		}
		return tx.Commit()
	}

	tableStatements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			started_at DATETIME NOT NULL,
			ended_at DATETIME,
			termination_reason TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS iterations (
			run_id TEXT NOT NULL REFERENCES runs(run_id),
			iteration INTEGER NOT NULL,
			hat_id TEXT NOT NULL,
			success INTEGER NOT NULL,
			cost_usd REAL,
			recorded_at DATETIME NOT NULL,
			PRIMARY KEY (run_id, iteration)
		);`,
	}
	for _, stmt := range tableStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("history: create table: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, checksum) VALUES (?, ?);`,
		schemaVersion, schemaChecksum,
	); err != nil {
		return fmt.Errorf("history: record schema version: %w", err)
	}

	return tx.Commit()
}

// NewRunID mints a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// StartRun records the start of a new run.
func (s *Store) StartRun(ctx context.Context, runID string, startedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, started_at) VALUES (?, ?);`,
		runID, startedAt,
	)
	return err
}

// EndRun records a run's termination.
func (s *Store) EndRun(ctx context.Context, runID string, endedAt time.Time, reason string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET ended_at = ?, termination_reason = ? WHERE run_id = ?;`,
		endedAt, reason, runID,
	)
	return err
}

// RecordIteration appends one completed iteration to the run's history.
func (s *Store) RecordIteration(ctx context.Context, runID string, iteration uint32, hatID string, success bool, cost *float64, recordedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO iterations (run_id, iteration, hat_id, success, cost_usd, recorded_at) VALUES (?, ?, ?, ?, ?, ?);`,
		runID, iteration, hatID, success, cost, recordedAt,
	)
	return err
}

// Run is one recorded run summary.
type Run struct {
	RunID              string
	StartedAt          time.Time
	EndedAt            *time.Time
	TerminationReason  string
	IterationCount     int
}

// RecentRuns returns the most recent limit runs, most recent first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.run_id, r.started_at, r.ended_at, COALESCE(r.termination_reason, ''),
		       (SELECT COUNT(*) FROM iterations i WHERE i.run_id = r.run_id)
		FROM runs r
		ORDER BY r.started_at DESC
		LIMIT ?;
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var endedAt sql.NullTime
		if err := rows.Scan(&r.RunID, &r.StartedAt, &endedAt, &r.TerminationReason, &r.IterationCount); err != nil {
			return nil, err
		}
		if endedAt.Valid {
			r.EndedAt = &endedAt.Time
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
