// Package repository abstracts persistence for workflows, run records, and
// the audit log. Memory adapters back tests and DB-less deployments; the
// persistent adapters add a PostgreSQL backend.
package repository

import (
	"context"
	"time"

	"github.com/castrove/castrove/internal/castrove"
)

// WorkflowFilter narrows List results. Zero value matches everything except
// soft-deleted workflows (IncludeDeleted opts back in).
type WorkflowFilter struct {
	States         []castrove.WorkflowState
	DueBefore      *time.Time
	IncludeDeleted bool
}

// Match reports whether w passes the filter.
func (f WorkflowFilter) Match(w *castrove.Workflow) bool {
	if !f.IncludeDeleted && w.State == castrove.StateDeleted && len(f.States) == 0 {
		return false
	}
	if len(f.States) > 0 {
		ok := false
		for _, s := range f.States {
			if w.State == s {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if f.DueBefore != nil {
		if w.NextDueAt == nil || w.NextDueAt.After(*f.DueBefore) {
			return false
		}
	}
	return true
}

// WorkflowRepository abstracts persistence for workflow definitions.
type WorkflowRepository interface {
	Create(ctx context.Context, w *castrove.Workflow) error
	Get(ctx context.Context, id string) (*castrove.Workflow, error)
	Update(ctx context.Context, w *castrove.Workflow) error
	// Delete physically removes the row. Soft delete is a state change and
	// goes through Update; Delete exists for hard purges only.
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter WorkflowFilter) ([]*castrove.Workflow, error)
}

// RunRepository abstracts persistence for run records.
type RunRepository interface {
	Create(ctx context.Context, r *castrove.RunRecord) error
	Get(ctx context.Context, id string) (*castrove.RunRecord, error)
	Update(ctx context.Context, r *castrove.RunRecord) error
	// ListByWorkflow returns runs for one workflow, newest first.
	ListByWorkflow(ctx context.Context, workflowID string, limit int) ([]*castrove.RunRecord, error)
	// Latest returns the most recent run for the workflow, or
	// castrove.ErrNotFound when it has never run.
	Latest(ctx context.Context, workflowID string) (*castrove.RunRecord, error)
	// DeleteByWorkflow removes a workflow's runs as part of a hard purge.
	DeleteByWorkflow(ctx context.Context, workflowID string) error
}

// AuditRepository appends and reads audit entries.
type AuditRepository interface {
	Append(ctx context.Context, e *castrove.AuditEntry) error
	ListByWorkflow(ctx context.Context, workflowID string, limit int) ([]*castrove.AuditEntry, error)
}
