package repository

import (
	"context"
	"log/slog"

	"github.com/castrove/castrove/internal/castrove"
	"github.com/castrove/castrove/internal/db"
)

// PersistentRunRepository wraps a MemoryRunRepository with a PostgreSQL
// backend, same dual-write contract as the workflow repository.
type PersistentRunRepository struct {
	mem *MemoryRunRepository
	db  *db.DB
}

func NewPersistentRunRepository(mem *MemoryRunRepository, database *db.DB) *PersistentRunRepository {
	return &PersistentRunRepository{mem: mem, db: database}
}

func (r *PersistentRunRepository) Create(ctx context.Context, rec *castrove.RunRecord) error {
	_ = r.mem.Create(ctx, rec)
	if err := r.db.CreateRun(ctx, rec); err != nil {
		slog.Warn("db create run failed, in-memory only", "id", rec.ID, "err", err)
	}
	return nil
}

func (r *PersistentRunRepository) Get(ctx context.Context, id string) (*castrove.RunRecord, error) {
	rec, err := r.mem.Get(ctx, id)
	if err == nil {
		return rec, nil
	}

	dbRec, dbErr := r.db.GetRun(ctx, id)
	if dbErr != nil {
		return nil, err
	}
	_ = r.mem.Create(ctx, dbRec)
	return dbRec, nil
}

func (r *PersistentRunRepository) Update(ctx context.Context, rec *castrove.RunRecord) error {
	_ = r.mem.Update(ctx, rec)
	if err := r.db.UpdateRun(ctx, rec); err != nil {
		slog.Warn("db update run failed, in-memory only", "id", rec.ID, "err", err)
	}
	return nil
}

func (r *PersistentRunRepository) ListByWorkflow(ctx context.Context, workflowID string, limit int) ([]*castrove.RunRecord, error) {
	runs, err := r.db.ListRunsByWorkflow(ctx, workflowID, limit)
	if err == nil {
		return runs, nil
	}
	slog.Warn("db list runs failed, falling back to in-memory", "err", err)
	return r.mem.ListByWorkflow(ctx, workflowID, limit)
}

func (r *PersistentRunRepository) Latest(ctx context.Context, workflowID string) (*castrove.RunRecord, error) {
	rec, err := r.db.LatestRun(ctx, workflowID)
	if err == nil {
		return rec, nil
	}
	return r.mem.Latest(ctx, workflowID)
}

func (r *PersistentRunRepository) DeleteByWorkflow(ctx context.Context, workflowID string) error {
	_ = r.mem.DeleteByWorkflow(ctx, workflowID)
	if err := r.db.DeleteRunsByWorkflow(ctx, workflowID); err != nil {
		slog.Warn("db delete runs failed", "workflow", workflowID, "err", err)
	}
	return nil
}
