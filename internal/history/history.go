// Package history persists an audit trail of editorial runs: every run, its
// edit operations, and its findings, queryable after the fact.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"redpen/internal/editop"
	"redpen/internal/ir"
)

// Run is one recorded pipeline execution.
type Run struct {
	ID           string         `json:"id"`
	Mode         string         `json:"mode"`
	InputPath    string         `json:"input_path"`
	BundleDir    string         `json:"bundle_dir"`
	StartedAt    time.Time      `json:"started_at"`
	FinishedAt   time.Time      `json:"finished_at"`
	Stats        map[string]int `json:"stats"`
	ReviewNeeded bool           `json:"review_needed"`
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// Store wraps the run-history database.
type Store struct {
	db *sql.DB
}

// Open creates or opens the history database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			mode TEXT,
			input_path TEXT,
			bundle_dir TEXT,
			started_at TEXT,
			finished_at TEXT,
			stats JSON,
			review_needed INTEGER
		);`,
		`CREATE TABLE IF NOT EXISTS editops (
			run_id TEXT,
			op_id TEXT,
			rule_id TEXT,
			engine TEXT,
			intent TEXT,
			anchor TEXT,
			status TEXT,
			before_text TEXT,
			after_text TEXT,
			PRIMARY KEY (run_id, op_id)
		);`,
		`CREATE TABLE IF NOT EXISTS findings (
			run_id TEXT,
			rule_id TEXT,
			severity TEXT,
			category TEXT,
			message TEXT,
			details JSON
		);`,
		`CREATE INDEX IF NOT EXISTS idx_editops_run ON editops(run_id);`,
		`CREATE INDEX IF NOT EXISTS idx_findings_run ON findings(run_id);`,
	}
	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// RecordRun writes a run and its artifacts in one transaction.
func (s *Store) RecordRun(ctx context.Context, run Run, ops []editop.EditOp, findings []ir.Finding) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stats, err := json.Marshal(run.Stats)
	if err != nil {
		return err
	}
	reviewNeeded := 0
	if run.ReviewNeeded {
		reviewNeeded = 1
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs (id, mode, input_path, bundle_dir, started_at, finished_at, stats, review_needed)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Mode, run.InputPath, run.BundleDir,
		run.StartedAt.UTC().Format(time.RFC3339), run.FinishedAt.UTC().Format(time.RFC3339),
		string(stats), reviewNeeded,
	); err != nil {
		return err
	}

	opStmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO editops (run_id, op_id, rule_id, engine, intent, anchor, status, before_text, after_text)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer opStmt.Close()
	for _, op := range ops {
		if _, err := opStmt.ExecContext(ctx,
			run.ID, op.ID, op.RuleID, op.Engine, op.Intent,
			op.Target.Anchor, string(op.Status), op.Before, op.After,
		); err != nil {
			return err
		}
	}

	findingStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO findings (run_id, rule_id, severity, category, message, details)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer findingStmt.Close()
	for _, f := range findings {
		details, err := json.Marshal(f.Details)
		if err != nil {
			return err
		}
		if _, err := findingStmt.ExecContext(ctx,
			run.ID, f.RuleID, f.Severity, f.Category, f.Message, string(details),
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// RecentRuns lists the latest runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, mode, input_path, bundle_dir, started_at, finished_at, stats, review_needed
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started, finished, stats string
		var reviewNeeded int
		if err := rows.Scan(&r.ID, &r.Mode, &r.InputPath, &r.BundleDir, &started, &finished, &stats, &reviewNeeded); err != nil {
			return nil, err
		}
		r.StartedAt, _ = time.Parse(time.RFC3339, started)
		r.FinishedAt, _ = time.Parse(time.RFC3339, finished)
		r.ReviewNeeded = reviewNeeded != 0
		if stats != "" {
			if err := json.Unmarshal([]byte(stats), &r.Stats); err != nil {
				return nil, fmt.Errorf("decode stats for run %s: %w", r.ID, err)
			}
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// OpsForRun returns the recorded edit operations of one run.
func (s *Store) OpsForRun(ctx context.Context, runID string) ([]editop.EditOp, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT op_id, rule_id, engine, intent, anchor, status, before_text, after_text
		 FROM editops WHERE run_id = ?`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ops []editop.EditOp
	for rows.Next() {
		var op editop.EditOp
		var status string
		if err := rows.Scan(&op.ID, &op.RuleID, &op.Engine, &op.Intent,
			&op.Target.Anchor, &status, &op.Before, &op.After); err != nil {
			return nil, err
		}
		op.Status = editop.Status(status)
		ops = append(ops, op)
	}
	return ops, rows.Err()
}
