package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/castrove/castrove/internal/castrove"
)

const runColumns = `id, workflow_id, trigger_type, status, steps, asset_url, posts, slot_key, started_at, finished_at`

// CreateRun stores a new run record.
func (d *DB) CreateRun(ctx context.Context, r *castrove.RunRecord) error {
	stepsJSON, _ := json.Marshal(r.Steps)
	postsJSON, _ := json.Marshal(r.Posts)
	_, err := d.Pool.ExecContext(ctx,
		`INSERT INTO runs (`+runColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		r.ID, r.WorkflowID, r.TriggerType, string(r.Status),
		stepsJSON, r.AssetURL, postsJSON, r.SlotKey,
		r.StartedAt, r.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// GetRun retrieves a run record by ID.
func (d *DB) GetRun(ctx context.Context, id string) (*castrove.RunRecord, error) {
	row := d.Pool.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id = $1`, id)
	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, castrove.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return r, nil
}

// UpdateRun updates an existing run record.
func (d *DB) UpdateRun(ctx context.Context, r *castrove.RunRecord) error {
	stepsJSON, _ := json.Marshal(r.Steps)
	postsJSON, _ := json.Marshal(r.Posts)
	_, err := d.Pool.ExecContext(ctx,
		`UPDATE runs SET status=$1, steps=$2, asset_url=$3, posts=$4, slot_key=$5, finished_at=$6
		 WHERE id=$7`,
		string(r.Status), stepsJSON, r.AssetURL, postsJSON, r.SlotKey, r.FinishedAt, r.ID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	return nil
}

// ListRunsByWorkflow returns a workflow's runs, newest first.
func (d *DB) ListRunsByWorkflow(ctx context.Context, workflowID string, limit int) ([]*castrove.RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.Pool.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs
		 WHERE workflow_id = $1 ORDER BY started_at DESC, id DESC LIMIT $2`,
		workflowID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []*castrove.RunRecord
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// LatestRun returns the most recent run for a workflow.
func (d *DB) LatestRun(ctx context.Context, workflowID string) (*castrove.RunRecord, error) {
	row := d.Pool.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM runs
		 WHERE workflow_id = $1 ORDER BY started_at DESC, id DESC LIMIT 1`,
		workflowID,
	)
	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, castrove.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest run: %w", err)
	}
	return r, nil
}

// DeleteRunsByWorkflow removes a workflow's run records (hard purge path).
func (d *DB) DeleteRunsByWorkflow(ctx context.Context, workflowID string) error {
	_, err := d.Pool.ExecContext(ctx, `DELETE FROM runs WHERE workflow_id = $1`, workflowID)
	if err != nil {
		return fmt.Errorf("delete runs: %w", err)
	}
	return nil
}

func scanRun(row rowScanner) (*castrove.RunRecord, error) {
	r := &castrove.RunRecord{}
	var status string
	var stepsJSON, postsJSON []byte

	err := row.Scan(&r.ID, &r.WorkflowID, &r.TriggerType, &status,
		&stepsJSON, &r.AssetURL, &postsJSON, &r.SlotKey,
		&r.StartedAt, &r.FinishedAt)
	if err != nil {
		return nil, err
	}

	r.Status = castrove.RunStatus(status)
	json.Unmarshal(stepsJSON, &r.Steps)
	json.Unmarshal(postsJSON, &r.Posts)
	return r, nil
}
