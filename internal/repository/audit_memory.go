package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/castrove/castrove/internal/castrove"
)

// MemoryAuditRepository keeps audit entries in an append-only slice.
type MemoryAuditRepository struct {
	mu      sync.RWMutex
	entries []*castrove.AuditEntry
}

func NewMemoryAuditRepository() *MemoryAuditRepository {
	return &MemoryAuditRepository{}
}

func (r *MemoryAuditRepository) Append(_ context.Context, e *castrove.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *e
	r.entries = append(r.entries, &cp)
	return nil
}

func (r *MemoryAuditRepository) ListByWorkflow(_ context.Context, workflowID string, limit int) ([]*castrove.AuditEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*castrove.AuditEntry
	for _, e := range r.entries {
		if workflowID == "" || e.WorkflowID == workflowID {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].At.After(out[j].At) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
