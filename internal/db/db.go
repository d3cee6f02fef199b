// Package db is the PostgreSQL persistence layer. All structured workflow
// fields (cadence, content spec, step results, post outcomes) are stored as
// JSONB so the schema survives field additions without migrations.
package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// DB wraps a database/sql connection pool for PostgreSQL.
type DB struct {
	Pool *sql.DB
}

// New creates a new database connection and verifies it with a ping.
func New(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pool.SetMaxOpenConns(25)
	pool.SetMaxIdleConns(5)

	if err := pool.PingContext(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Close closes the connection pool.
func (d *DB) Close() error {
	return d.Pool.Close()
}

// Migrate runs the database schema migrations.
func (d *DB) Migrate(ctx context.Context) error {
	_, err := d.Pool.ExecContext(ctx, migrationSQL)
	if err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

const migrationSQL = `
CREATE TABLE IF NOT EXISTS workflows (
    id            TEXT PRIMARY KEY,
    label         TEXT NOT NULL,
    state         TEXT NOT NULL DEFAULT 'draft',
    cadence       JSONB NOT NULL,
    content       JSONB NOT NULL,
    last_run_at   TIMESTAMPTZ,
    next_due_at   TIMESTAMPTZ,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    run_count     INTEGER NOT NULL DEFAULT 0,
    success_count INTEGER NOT NULL DEFAULT 0,
    failure_count INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS runs (
    id           TEXT PRIMARY KEY,
    workflow_id  TEXT NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
    trigger_type TEXT NOT NULL DEFAULT 'tick',
    status       TEXT NOT NULL,
    steps        JSONB NOT NULL DEFAULT '[]',
    asset_url    TEXT NOT NULL DEFAULT '',
    posts        JSONB NOT NULL DEFAULT '[]',
    slot_key     TEXT NOT NULL DEFAULT '',
    started_at   TIMESTAMPTZ NOT NULL,
    finished_at  TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_runs_workflow_id ON runs(workflow_id, started_at DESC);
CREATE INDEX IF NOT EXISTS idx_workflows_due ON workflows(state, next_due_at);

CREATE TABLE IF NOT EXISTS audit_log (
    id          TEXT PRIMARY KEY,
    workflow_id TEXT NOT NULL DEFAULT '',
    kind        TEXT NOT NULL,
    diff        JSONB NOT NULL DEFAULT '{}',
    ok          BOOLEAN NOT NULL,
    error       TEXT NOT NULL DEFAULT '',
    at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_audit_workflow_id ON audit_log(workflow_id, at DESC);
`
