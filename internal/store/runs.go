package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Run kinds.
const (
	KindSanitize = "sanitize"
	KindDedupe   = "dedupe"
)

// Run statuses.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// ErrRunNotFound is returned by ReadRun for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// Run is one recorded sanitize or dedupe run.
type Run struct {
	ID                string    `json:"id"`
	Seq               int64     `json:"seq"`
	Kind              string    `json:"kind"`
	InputPath         string    `json:"input_path"`
	OutputPath        string    `json:"output_path"`
	Status            string    `json:"status"`
	Stage             string    `json:"stage,omitempty"` // stage that failed: load, sanitize, store
	Error             string    `json:"error,omitempty"`
	InputFingerprint  string    `json:"input_fingerprint,omitempty"`
	OutputFingerprint string    `json:"output_fingerprint,omitempty"`
	Scanned           int       `json:"scanned"`
	Removed           int       `json:"removed"`
	Reports           string    `json:"reports"` // JSON array of per-collection reports
	StartedAt         time.Time `json:"started_at"`
	DurationMS        int64     `json:"duration_ms"`
}

// WriteRun inserts a run record and returns its assigned seq.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - writing the same ID
// twice keeps the first record and returns its seq.
func (s *Store) WriteRun(ctx context.Context, run Run) (int64, error) {
	reports := run.Reports
	if reports == "" {
		reports = "[]"
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("write run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, seq, kind, input_path, output_path, status, stage, error,
		 input_fingerprint, output_fingerprint, scanned, removed, reports, started_at, duration_ms)
		VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM runs), ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.Kind,
		run.InputPath,
		run.OutputPath,
		run.Status,
		run.Stage,
		run.Error,
		run.InputFingerprint,
		run.OutputFingerprint,
		run.Scanned,
		run.Removed,
		reports,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.DurationMS,
	)
	if err != nil {
		return 0, fmt.Errorf("write run: %w", err)
	}

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT seq FROM runs WHERE id = ?`, run.ID).Scan(&seq); err != nil {
		return 0, fmt.Errorf("write run: read seq: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("write run: commit: %w", err)
	}
	return seq, nil
}

const runColumns = `id, seq, kind, input_path, output_path, status, stage, error,
	input_fingerprint, output_fingerprint, scanned, removed, reports, started_at, duration_ms`

// ReadRun returns the run with the given ID, or ErrRunNotFound.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return Run{}, err
	}
	return run, nil
}

// ListRuns returns the most recent runs first, ordered by seq DESC.
// A limit of zero or less returns every run.
//
// Returns an empty slice (not nil) when there are no runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		ORDER BY seq DESC, id COLLATE BINARY ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	return runs, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var run Run
	var startedAt string
	err := row.Scan(
		&run.ID,
		&run.Seq,
		&run.Kind,
		&run.InputPath,
		&run.OutputPath,
		&run.Status,
		&run.Stage,
		&run.Error,
		&run.InputFingerprint,
		&run.OutputFingerprint,
		&run.Scanned,
		&run.Removed,
		&run.Reports,
		&startedAt,
		&run.DurationMS,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}

	run.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return Run{}, fmt.Errorf("scan run %s: started_at: %w", run.ID, err)
	}
	return run, nil
}
