package repository

import (
	"context"
	"sort"

	"github.com/castrove/castrove/internal/castrove"
)

// MemoryRunRepository stores run records in memory.
type MemoryRunRepository struct {
	store *memstore[*castrove.RunRecord]
}

func NewMemoryRunRepository() *MemoryRunRepository {
	return &MemoryRunRepository{
		store: newMemstore(func(r *castrove.RunRecord) string { return r.ID }),
	}
}

func (r *MemoryRunRepository) Create(ctx context.Context, rec *castrove.RunRecord) error {
	r.store.set(ctx, cloneRun(rec))
	return nil
}

func (r *MemoryRunRepository) Get(ctx context.Context, id string) (*castrove.RunRecord, error) {
	rec, err := r.store.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return cloneRun(rec), nil
}

func (r *MemoryRunRepository) Update(ctx context.Context, rec *castrove.RunRecord) error {
	if !r.store.has(ctx, rec.ID) {
		return castrove.ErrNotFound
	}
	r.store.set(ctx, cloneRun(rec))
	return nil
}

func (r *MemoryRunRepository) ListByWorkflow(ctx context.Context, workflowID string, limit int) ([]*castrove.RunRecord, error) {
	runs := r.store.filter(ctx, func(rec *castrove.RunRecord) bool {
		return rec.WorkflowID == workflowID
	})
	sort.Slice(runs, func(i, j int) bool {
		if runs[i].StartedAt.Equal(runs[j].StartedAt) {
			return runs[i].ID > runs[j].ID
		}
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	out := make([]*castrove.RunRecord, 0, len(runs))
	for _, rec := range runs {
		out = append(out, cloneRun(rec))
	}
	return out, nil
}

func (r *MemoryRunRepository) Latest(ctx context.Context, workflowID string) (*castrove.RunRecord, error) {
	runs, err := r.ListByWorkflow(ctx, workflowID, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, castrove.ErrNotFound
	}
	return runs[0], nil
}

func (r *MemoryRunRepository) DeleteByWorkflow(ctx context.Context, workflowID string) error {
	for _, rec := range r.store.filter(ctx, func(rec *castrove.RunRecord) bool {
		return rec.WorkflowID == workflowID
	}) {
		if err := r.store.delete(ctx, rec.ID); err != nil {
			return err
		}
	}
	return nil
}

func cloneRun(rec *castrove.RunRecord) *castrove.RunRecord {
	cp := *rec
	if rec.FinishedAt != nil {
		t := *rec.FinishedAt
		cp.FinishedAt = &t
	}
	cp.Steps = append([]castrove.StepResult(nil), rec.Steps...)
	cp.Posts = append([]castrove.PostOutcome(nil), rec.Posts...)
	return &cp
}
