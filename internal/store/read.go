package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrRunNotFound is returned when no run has the requested ID.
var ErrRunNotFound = errors.New("run not found")

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run      Run
		dialects string
	)
	if err := row.Scan(&run.ID, &run.Seq, &run.Module, &dialects, &run.Passed, &run.Failed); err != nil {
		return Run{}, err
	}
	names, err := unmarshalDialects(dialects)
	if err != nil {
		return Run{}, err
	}
	run.Dialects = names
	return run, nil
}

// Runs returns the most recent runs, newest first. A limit of zero or
// less returns every run.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, module, dialects, passed, failed
		FROM runs
		ORDER BY seq DESC
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
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// Run returns the run with the given ID.
func (s *Store) Run(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seq, module, dialects, passed, failed
		FROM runs
		WHERE id = ?
	`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	return run, nil
}

// Results returns the results of one run in operation order.
func (s *Store) Results(ctx context.Context, runID string) ([]Result, error) {
	return s.queryResults(ctx, `
		SELECT r.run_id, r.op_index, r.op_name, r.form, r.fingerprint, r.stage, r.code, r.message
		FROM results r
		WHERE r.run_id = ?
		ORDER BY r.op_index ASC
	`, runID)
}

// History returns every recorded result for operations with the given
// fingerprint, oldest run first.
func (s *Store) History(ctx context.Context, fingerprint string) ([]Result, error) {
	return s.queryResults(ctx, `
		SELECT r.run_id, r.op_index, r.op_name, r.form, r.fingerprint, r.stage, r.code, r.message
		FROM results r
		JOIN runs ON runs.id = r.run_id
		WHERE r.fingerprint = ?
		ORDER BY runs.seq ASC, r.op_index ASC
	`, fingerprint)
}

// Failures returns the failed results recorded for a kind name, oldest
// run first.
func (s *Store) Failures(ctx context.Context, opName string) ([]Result, error) {
	return s.queryResults(ctx, `
		SELECT r.run_id, r.op_index, r.op_name, r.form, r.fingerprint, r.stage, r.code, r.message
		FROM results r
		JOIN runs ON runs.id = r.run_id
		WHERE r.op_name = ? AND r.stage != ''
		ORDER BY runs.seq ASC, r.op_index ASC
	`, opName)
}

func (s *Store) queryResults(ctx context.Context, query string, args ...any) ([]Result, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	results := []Result{}
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.RunID, &r.Index, &r.OpName, &r.Form, &r.Fingerprint, &r.Stage, &r.Code, &r.Message); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return results, nil
}
