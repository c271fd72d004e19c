package store

import (
	"context"
	"fmt"
)

// Run is one recorded verification run.
type Run struct {
	ID       string   `json:"id"`
	Seq      int64    `json:"seq"`
	Module   string   `json:"module"`
	Dialects []string `json:"dialects"`
	Passed   int      `json:"passed"`
	Failed   int      `json:"failed"`
}

// Result is the recorded outcome of one operation. Stage, Code, and
// Message are empty when the operation verified.
type Result struct {
	RunID       string `json:"run_id"`
	Index       int    `json:"index"`
	OpName      string `json:"op_name"`
	Form        string `json:"form"`
	Fingerprint string `json:"fingerprint,omitempty"`
	Stage       string `json:"stage,omitempty"`
	Code        string `json:"code,omitempty"`
	Message     string `json:"message,omitempty"`
}

// OK reports whether the operation verified.
func (r Result) OK() bool { return r.Stage == "" }

// RecordRun stores a run and its results in one transaction. The run ID
// comes from the store's IDGenerator and seq is one past the highest
// recorded seq. RunID fields of results are ignored and set to the new ID.
func (s *Store) RecordRun(ctx context.Context, module string, dialects []string, results []Result) (Run, error) {
	run := Run{ID: s.ids.Generate(), Module: module, Dialects: dialects}
	for _, r := range results {
		if r.OK() {
			run.Passed++
		} else {
			run.Failed++
		}
	}

	dialectsJSON, err := marshalDialects(dialects)
	if err != nil {
		return Run{}, fmt.Errorf("record run: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("record run: begin: %w", err)
	}
	defer tx.Rollback()

	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM runs`).Scan(&run.Seq); err != nil {
		return Run{}, fmt.Errorf("record run: next seq: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, seq, module, dialects, passed, failed)
		VALUES (?, ?, ?, ?, ?, ?)
	`, run.ID, run.Seq, run.Module, dialectsJSON, run.Passed, run.Failed)
	if err != nil {
		return Run{}, fmt.Errorf("record run: insert run: %w", err)
	}

	for _, r := range results {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO results (run_id, op_index, op_name, form, fingerprint, stage, code, message)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, run.ID, r.Index, r.OpName, r.Form, r.Fingerprint, r.Stage, r.Code, r.Message)
		if err != nil {
			return Run{}, fmt.Errorf("record run: insert result %d: %w", r.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("record run: commit: %w", err)
	}
	return run, nil
}
