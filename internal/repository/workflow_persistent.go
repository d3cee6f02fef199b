package repository

import (
	"context"
	"log/slog"

	"github.com/castrove/castrove/internal/castrove"
	"github.com/castrove/castrove/internal/db"
)

// PersistentWorkflowRepository wraps a MemoryWorkflowRepository with a
// PostgreSQL backend. Writes go to both stores (DB failure is logged but
// non-fatal); reads try memory first, falling back to the database so the
// scheduler can resume from persisted state after a restart.
type PersistentWorkflowRepository struct {
	mem *MemoryWorkflowRepository
	db  *db.DB
}

func NewPersistentWorkflowRepository(mem *MemoryWorkflowRepository, database *db.DB) *PersistentWorkflowRepository {
	return &PersistentWorkflowRepository{mem: mem, db: database}
}

// WarmCache loads all persisted workflows into the memory layer. Called once
// at startup so ticks do not depend on DB availability.
func (r *PersistentWorkflowRepository) WarmCache(ctx context.Context) error {
	workflows, err := r.db.ListWorkflows(ctx, nil, nil, true)
	if err != nil {
		return err
	}
	for _, w := range workflows {
		_ = r.mem.Create(ctx, w)
	}
	slog.Info("repository: warmed workflow cache", "count", len(workflows))
	return nil
}

func (r *PersistentWorkflowRepository) Create(ctx context.Context, w *castrove.Workflow) error {
	if err := r.mem.Create(ctx, w); err != nil {
		return err
	}
	if err := r.db.CreateWorkflow(ctx, w); err != nil {
		slog.Warn("db create workflow failed, in-memory only", "id", w.ID, "err", err)
	}
	return nil
}

func (r *PersistentWorkflowRepository) Get(ctx context.Context, id string) (*castrove.Workflow, error) {
	w, err := r.mem.Get(ctx, id)
	if err == nil {
		return w, nil
	}

	dbW, dbErr := r.db.GetWorkflow(ctx, id)
	if dbErr != nil {
		return nil, err // original ErrNotFound
	}
	_ = r.mem.Create(ctx, dbW)
	return dbW, nil
}

func (r *PersistentWorkflowRepository) Update(ctx context.Context, w *castrove.Workflow) error {
	if err := r.mem.Update(ctx, w); err != nil {
		return err
	}
	if err := r.db.UpdateWorkflow(ctx, w); err != nil {
		slog.Warn("db update workflow failed, in-memory only", "id", w.ID, "err", err)
	}
	return nil
}

func (r *PersistentWorkflowRepository) Delete(ctx context.Context, id string) error {
	if err := r.mem.Delete(ctx, id); err != nil {
		return err
	}
	if err := r.db.DeleteWorkflow(ctx, id); err != nil {
		slog.Warn("db delete workflow failed", "id", id, "err", err)
	}
	return nil
}

func (r *PersistentWorkflowRepository) List(ctx context.Context, filter WorkflowFilter) ([]*castrove.Workflow, error) {
	workflows, err := r.db.ListWorkflows(ctx, filter.States, filter.DueBefore, filter.IncludeDeleted)
	if err == nil {
		return workflows, nil
	}
	slog.Warn("db list workflows failed, falling back to in-memory", "err", err)
	return r.mem.List(ctx, filter)
}
