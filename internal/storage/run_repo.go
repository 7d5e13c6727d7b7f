package storage

import (
	"context"
	"fmt"
	"sync"

	"pubgraph/internal/models"
)

type RunRepo struct {
	db *DB

	schemaMu       sync.Mutex
	schemaPrepared bool
}

func NewRunRepo(db *DB) *RunRepo {
	return &RunRepo{db: db}
}

func (r *RunRepo) UpsertRun(ctx context.Context, run models.ImportRun) error {
	if err := r.ensureSchema(ctx); err != nil {
		return err
	}
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO import_runs(run_id, manifest, status, created, merged, skipped, discrepancies, report_path, last_error, updated_at)
VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, NULLIF($8,''), NULLIF($9,''), NOW())
ON CONFLICT (run_id)
DO UPDATE SET
  status = EXCLUDED.status,
  created = EXCLUDED.created,
  merged = EXCLUDED.merged,
  skipped = EXCLUDED.skipped,
  discrepancies = EXCLUDED.discrepancies,
  report_path = COALESCE(EXCLUDED.report_path, import_runs.report_path),
  last_error = EXCLUDED.last_error,
  updated_at = NOW()`,
		run.RunID, run.Manifest, run.Status, run.Created, run.Merged, run.Skipped,
		run.Discrepancies, run.ReportPath, run.LastError)
	if err != nil {
		return fmt.Errorf("upsert import run: %w", err)
	}
	return nil
}

func (r *RunRepo) GetRun(ctx context.Context, runID string) (models.ImportRun, bool, error) {
	if err := r.ensureSchema(ctx); err != nil {
		return models.ImportRun{}, false, err
	}
	var run models.ImportRun
	err := r.db.Pool.QueryRow(ctx, `
SELECT run_id::text, manifest, status, created, merged, skipped, discrepancies,
       COALESCE(report_path,''), COALESCE(last_error,''), started_at, updated_at
FROM import_runs WHERE run_id=$1::uuid`, runID).Scan(
		&run.RunID, &run.Manifest, &run.Status, &run.Created, &run.Merged, &run.Skipped,
		&run.Discrepancies, &run.ReportPath, &run.LastError, &run.StartedAt, &run.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return models.ImportRun{}, false, nil
		}
		return models.ImportRun{}, false, fmt.Errorf("get import run: %w", err)
	}
	return run, true, nil
}

func (r *RunRepo) ListRuns(ctx context.Context, limit int) ([]models.ImportRun, error) {
	if err := r.ensureSchema(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Pool.Query(ctx, `
SELECT run_id::text, manifest, status, created, merged, skipped, discrepancies,
       COALESCE(report_path,''), COALESCE(last_error,''), started_at, updated_at
FROM import_runs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list import runs: %w", err)
	}
	defer rows.Close()
	out := make([]models.ImportRun, 0)
	for rows.Next() {
		var run models.ImportRun
		if err := rows.Scan(
			&run.RunID, &run.Manifest, &run.Status, &run.Created, &run.Merged, &run.Skipped,
			&run.Discrepancies, &run.ReportPath, &run.LastError, &run.StartedAt, &run.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan import run: %w", err)
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

func (r *RunRepo) ensureSchema(ctx context.Context) error {
	r.schemaMu.Lock()
	defer r.schemaMu.Unlock()

	if r.schemaPrepared {
		return nil
	}
	ddl := `
CREATE TABLE IF NOT EXISTS import_runs (
  run_id UUID PRIMARY KEY,
  manifest TEXT NOT NULL,
  status TEXT NOT NULL CHECK (status IN ('running','completed','failed')),
  created INT NOT NULL DEFAULT 0,
  merged INT NOT NULL DEFAULT 0,
  skipped INT NOT NULL DEFAULT 0,
  discrepancies INT NOT NULL DEFAULT 0,
  report_path TEXT,
  last_error TEXT,
  started_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_import_runs_started ON import_runs(started_at DESC);
`
	if _, err := r.db.Pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensure import_runs schema: %w", err)
	}
	r.schemaPrepared = true
	return nil
}
