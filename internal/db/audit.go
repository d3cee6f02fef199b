package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/castrove/castrove/internal/castrove"
)

// AppendAudit stores one audit entry.
func (d *DB) AppendAudit(ctx context.Context, e *castrove.AuditEntry) error {
	diffJSON, _ := json.Marshal(e.Diff)
	_, err := d.Pool.ExecContext(ctx,
		`INSERT INTO audit_log (id, workflow_id, kind, diff, ok, error, at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.WorkflowID, e.Kind, diffJSON, e.OK, e.Error, e.At,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// ListAuditByWorkflow returns audit entries, newest first. An empty
// workflowID returns entries for all workflows.
func (d *DB) ListAuditByWorkflow(ctx context.Context, workflowID string, limit int) ([]*castrove.AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT id, workflow_id, kind, diff, ok, error, at FROM audit_log`
	args := []any{limit}
	if workflowID != "" {
		query += ` WHERE workflow_id = $2`
		args = append(args, workflowID)
	}
	query += ` ORDER BY at DESC LIMIT $1`

	rows, err := d.Pool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var out []*castrove.AuditEntry
	for rows.Next() {
		e := &castrove.AuditEntry{}
		var diffJSON []byte
		if err := rows.Scan(&e.ID, &e.WorkflowID, &e.Kind, &diffJSON, &e.OK, &e.Error, &e.At); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		json.Unmarshal(diffJSON, &e.Diff)
		out = append(out, e)
	}
	return out, rows.Err()
}
