package repository

import (
	"context"
	"log/slog"

	"github.com/castrove/castrove/internal/castrove"
	"github.com/castrove/castrove/internal/db"
)

// PersistentAuditRepository appends audit entries to PostgreSQL with an
// in-memory mirror for DB-less reads.
type PersistentAuditRepository struct {
	mem *MemoryAuditRepository
	db  *db.DB
}

func NewPersistentAuditRepository(mem *MemoryAuditRepository, database *db.DB) *PersistentAuditRepository {
	return &PersistentAuditRepository{mem: mem, db: database}
}

func (r *PersistentAuditRepository) Append(ctx context.Context, e *castrove.AuditEntry) error {
	_ = r.mem.Append(ctx, e)
	if err := r.db.AppendAudit(ctx, e); err != nil {
		slog.Warn("db append audit failed, in-memory only", "err", err)
	}
	return nil
}

func (r *PersistentAuditRepository) ListByWorkflow(ctx context.Context, workflowID string, limit int) ([]*castrove.AuditEntry, error) {
	entries, err := r.db.ListAuditByWorkflow(ctx, workflowID, limit)
	if err == nil {
		return entries, nil
	}
	slog.Warn("db list audit failed, falling back to in-memory", "err", err)
	return r.mem.ListByWorkflow(ctx, workflowID, limit)
}
