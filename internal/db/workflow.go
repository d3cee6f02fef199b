package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/castrove/castrove/internal/castrove"
)

const workflowColumns = `id, label, state, cadence, content, last_run_at, next_due_at, created_at, updated_at, run_count, success_count, failure_count`

// CreateWorkflow stores a new workflow definition.
func (d *DB) CreateWorkflow(ctx context.Context, w *castrove.Workflow) error {
	cadenceJSON, _ := json.Marshal(w.Cadence)
	contentJSON, _ := json.Marshal(w.Content)
	_, err := d.Pool.ExecContext(ctx,
		`INSERT INTO workflows (`+workflowColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		w.ID, w.Label, string(w.State), cadenceJSON, contentJSON,
		w.LastRunAt, w.NextDueAt, w.CreatedAt, w.UpdatedAt,
		w.RunCount, w.SuccessCount, w.FailureCount,
	)
	if err != nil {
		return fmt.Errorf("insert workflow: %w", err)
	}
	return nil
}

// GetWorkflow retrieves a workflow by ID.
func (d *DB) GetWorkflow(ctx context.Context, id string) (*castrove.Workflow, error) {
	row := d.Pool.QueryRowContext(ctx,
		`SELECT `+workflowColumns+` FROM workflows WHERE id = $1`, id)
	w, err := scanWorkflow(row)
	if err == sql.ErrNoRows {
		return nil, castrove.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get workflow: %w", err)
	}
	return w, nil
}

// UpdateWorkflow replaces all mutable workflow fields.
func (d *DB) UpdateWorkflow(ctx context.Context, w *castrove.Workflow) error {
	cadenceJSON, _ := json.Marshal(w.Cadence)
	contentJSON, _ := json.Marshal(w.Content)
	res, err := d.Pool.ExecContext(ctx,
		`UPDATE workflows
		 SET label=$1, state=$2, cadence=$3, content=$4, last_run_at=$5, next_due_at=$6,
		     updated_at=$7, run_count=$8, success_count=$9, failure_count=$10
		 WHERE id=$11`,
		w.Label, string(w.State), cadenceJSON, contentJSON,
		w.LastRunAt, w.NextDueAt, w.UpdatedAt,
		w.RunCount, w.SuccessCount, w.FailureCount, w.ID,
	)
	if err != nil {
		return fmt.Errorf("update workflow: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return castrove.ErrNotFound
	}
	return nil
}

// DeleteWorkflow physically removes a workflow; runs cascade.
func (d *DB) DeleteWorkflow(ctx context.Context, id string) error {
	_, err := d.Pool.ExecContext(ctx, `DELETE FROM workflows WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete workflow: %w", err)
	}
	return nil
}

// ListWorkflows returns workflows matching the state/due filter, ordered by
// next_due_at then id so due scans are deterministic.
func (d *DB) ListWorkflows(ctx context.Context, states []castrove.WorkflowState, dueBefore *time.Time, includeDeleted bool) ([]*castrove.Workflow, error) {
	var conds []string
	var args []any

	if len(states) > 0 {
		placeholders := make([]string, len(states))
		for i, s := range states {
			args = append(args, string(s))
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conds = append(conds, "state IN ("+strings.Join(placeholders, ", ")+")")
	} else if !includeDeleted {
		conds = append(conds, "state <> 'deleted'")
	}
	if dueBefore != nil {
		args = append(args, *dueBefore)
		conds = append(conds, fmt.Sprintf("next_due_at IS NOT NULL AND next_due_at <= $%d", len(args)))
	}

	query := `SELECT ` + workflowColumns + ` FROM workflows`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY next_due_at NULLS LAST, id"

	rows, err := d.Pool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}
	defer rows.Close()

	var out []*castrove.Workflow
	for rows.Next() {
		w, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan workflow: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkflow(row rowScanner) (*castrove.Workflow, error) {
	w := &castrove.Workflow{}
	var state string
	var cadenceJSON, contentJSON []byte

	err := row.Scan(&w.ID, &w.Label, &state, &cadenceJSON, &contentJSON,
		&w.LastRunAt, &w.NextDueAt, &w.CreatedAt, &w.UpdatedAt,
		&w.RunCount, &w.SuccessCount, &w.FailureCount)
	if err != nil {
		return nil, err
	}

	w.State = castrove.WorkflowState(state)
	json.Unmarshal(cadenceJSON, &w.Cadence)
	json.Unmarshal(contentJSON, &w.Content)
	return w, nil
}
