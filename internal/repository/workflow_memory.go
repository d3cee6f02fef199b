package repository

import (
	"context"
	"fmt"

	"github.com/castrove/castrove/internal/castrove"
)

// MemoryWorkflowRepository stores workflows in memory. Values are cloned on
// the way in and out so callers cannot alias stored state.
type MemoryWorkflowRepository struct {
	store *memstore[*castrove.Workflow]
}

func NewMemoryWorkflowRepository() *MemoryWorkflowRepository {
	return &MemoryWorkflowRepository{
		store: newMemstore(func(w *castrove.Workflow) string { return w.ID }),
	}
}

func (r *MemoryWorkflowRepository) Create(ctx context.Context, w *castrove.Workflow) error {
	if r.store.has(ctx, w.ID) {
		return fmt.Errorf("workflow %s already exists", w.ID)
	}
	r.store.set(ctx, w.Clone())
	return nil
}

func (r *MemoryWorkflowRepository) Get(ctx context.Context, id string) (*castrove.Workflow, error) {
	w, err := r.store.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return w.Clone(), nil
}

func (r *MemoryWorkflowRepository) Update(ctx context.Context, w *castrove.Workflow) error {
	if !r.store.has(ctx, w.ID) {
		return castrove.ErrNotFound
	}
	r.store.set(ctx, w.Clone())
	return nil
}

func (r *MemoryWorkflowRepository) Delete(ctx context.Context, id string) error {
	return r.store.delete(ctx, id)
}

func (r *MemoryWorkflowRepository) List(ctx context.Context, filter WorkflowFilter) ([]*castrove.Workflow, error) {
	stored := r.store.filter(ctx, filter.Match)
	out := make([]*castrove.Workflow, 0, len(stored))
	for _, w := range stored {
		out = append(out, w.Clone())
	}
	return out, nil
}
