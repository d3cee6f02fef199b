// Package store is the sole writer of workflow and run record state. All
// components request mutations through it; it serializes mutations per
// workflow id and emits an audit entry for every successful change.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/castrove/castrove/internal/castrove"
	"github.com/castrove/castrove/internal/repository"
)

// Store coordinates workflow, run, and audit repositories behind a per-id
// mutation lock. Mutations on different workflow ids proceed concurrently.
type Store struct {
	workflows repository.WorkflowRepository
	runs      repository.RunRepository
	audit     repository.AuditRepository
	clock     func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a Store over the given repositories.
func New(workflows repository.WorkflowRepository, runs repository.RunRepository, audit repository.AuditRepository) *Store {
	return &Store{
		workflows: workflows,
		runs:      runs,
		audit:     audit,
		clock:     time.Now,
		locks:     make(map[string]*sync.Mutex),
	}
}

// SetClock overrides the time source, for tests.
func (s *Store) SetClock(clock func() time.Time) { s.clock = clock }

func (s *Store) lockFor(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

// CreateSpec carries the validated inputs of a new workflow.
type CreateSpec struct {
	Label   string
	Cadence castrove.Cadence
	Content castrove.ContentSpec
	State   castrove.WorkflowState // defaults to running
}

// Create validates the spec and persists a new workflow. On validation
// failure the store is left unchanged; no partial record is created.
func (s *Store) Create(ctx context.Context, spec CreateSpec) (*castrove.Workflow, error) {
	if err := validateContent(spec.Content); err != nil {
		return nil, err
	}
	if err := spec.Cadence.Validate(); err != nil {
		return nil, err
	}
	state := spec.State
	if state == "" {
		state = castrove.StateRunning
	}
	if !state.Valid() || state == castrove.StateDeleted {
		return nil, &castrove.ValidationError{Field: "state", Reason: fmt.Sprintf("cannot create workflow in state %q", state)}
	}

	now := s.clock()
	w := &castrove.Workflow{
		ID:        castrove.GenerateID("wf"),
		Label:     spec.Label,
		State:     state,
		Cadence:   spec.Cadence,
		Content:   normalizeContent(spec.Content),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if w.Label == "" {
		w.Label = w.Content.Topic
	}
	w.RecomputeNextDue(now)

	if err := s.workflows.Create(ctx, w); err != nil {
		return nil, fmt.Errorf("create workflow: %w", err)
	}
	s.emitAudit(ctx, w.ID, "create", map[string]any{
		"label": w.Label, "state": string(w.State), "platforms": w.Content.Platforms,
	})
	return w, nil
}

// Get returns one workflow by id.
func (s *Store) Get(ctx context.Context, id string) (*castrove.Workflow, error) {
	return s.workflows.Get(ctx, id)
}

// List returns workflows matching the filter.
func (s *Store) List(ctx context.Context, filter repository.WorkflowFilter) ([]*castrove.Workflow, error) {
	return s.workflows.List(ctx, filter)
}

// Patch carries field changes for Update. Nil fields are left untouched.
// MergeContent derives the new content from the current one; it runs under
// the per-id lock so concurrent partial updates cannot drop each other's
// fields.
type Patch struct {
	Label        *string
	Cadence      *castrove.Cadence
	MergeContent func(castrove.ContentSpec) (castrove.ContentSpec, error)
}

// Update applies a patch to a workflow. NextDueAt is recomputed when the
// cadence changes. Validation failures leave the workflow unchanged.
func (s *Store) Update(ctx context.Context, id string, patch Patch) (*castrove.Workflow, error) {
	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	w, err := s.workflows.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	diff := map[string]any{}
	if patch.Label != nil {
		w.Label = *patch.Label
		diff["label"] = *patch.Label
	}
	if patch.MergeContent != nil {
		content, err := patch.MergeContent(w.Content)
		if err != nil {
			return nil, err
		}
		if err := validateContent(content); err != nil {
			return nil, err
		}
		w.Content = normalizeContent(content)
		diff["content"] = w.Content
	}
	if patch.Cadence != nil {
		if err := patch.Cadence.Validate(); err != nil {
			return nil, err
		}
		w.Cadence = *patch.Cadence
		diff["cadence"] = w.Cadence
	}

	now := s.clock()
	w.UpdatedAt = now
	w.RecomputeNextDue(now)

	if err := s.workflows.Update(ctx, w); err != nil {
		return nil, fmt.Errorf("update workflow: %w", err)
	}
	s.emitAudit(ctx, id, "update", diff)
	return w, nil
}

// SetState transitions a workflow's lifecycle state. Deleting is a soft
// delete: the row stays for run history and is excluded from scheduling.
// Resuming recomputes NextDueAt so a past-due workflow becomes immediately
// eligible again.
func (s *Store) SetState(ctx context.Context, id string, state castrove.WorkflowState) (*castrove.Workflow, error) {
	if !state.Valid() {
		return nil, &castrove.ValidationError{Field: "state", Reason: fmt.Sprintf("unknown state %q", state)}
	}

	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	w, err := s.workflows.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	prev := w.State
	w.State = state
	now := s.clock()
	w.UpdatedAt = now
	if state == castrove.StateRunning {
		w.RecomputeNextDue(now)
	}

	if err := s.workflows.Update(ctx, w); err != nil {
		return nil, fmt.Errorf("set state: %w", err)
	}
	s.emitAudit(ctx, id, "set_state", map[string]any{"from": string(prev), "to": string(state)})
	return w, nil
}

// RecordRun appends a finished run record and updates the workflow's
// counters and timestamps. LastRunAt is the run's start time so a fixed
// interval advances exactly one interval from when the run began. A partial
// run counts toward success_count; only fully failed runs touch
// failure_count.
func (s *Store) RecordRun(ctx context.Context, run *castrove.RunRecord) error {
	lock := s.lockFor(run.WorkflowID)
	lock.Lock()
	defer lock.Unlock()

	if err := s.runs.Create(ctx, run); err != nil {
		return fmt.Errorf("record run: %w", err)
	}

	w, err := s.workflows.Get(ctx, run.WorkflowID)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}

	started := run.StartedAt
	w.LastRunAt = &started
	w.RunCount++
	if run.Succeeded() {
		w.SuccessCount++
	} else {
		w.FailureCount++
	}
	now := s.clock()
	w.UpdatedAt = now
	w.RecomputeNextDue(now)

	if err := s.workflows.Update(ctx, w); err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	s.emitAudit(ctx, w.ID, "record_run", map[string]any{
		"run_id": run.ID, "status": string(run.Status),
	})
	return nil
}

// Runs returns a workflow's run history, newest first.
func (s *Store) Runs(ctx context.Context, workflowID string, limit int) ([]*castrove.RunRecord, error) {
	if _, err := s.workflows.Get(ctx, workflowID); err != nil {
		return nil, err
	}
	return s.runs.ListByWorkflow(ctx, workflowID, limit)
}

// LatestRun returns the most recent run for a workflow.
func (s *Store) LatestRun(ctx context.Context, workflowID string) (*castrove.RunRecord, error) {
	return s.runs.Latest(ctx, workflowID)
}

// AuditLog returns recent audit entries for a workflow ("" for all).
func (s *Store) AuditLog(ctx context.Context, workflowID string, limit int) ([]*castrove.AuditEntry, error) {
	return s.audit.ListByWorkflow(ctx, workflowID, limit)
}

// Purge hard-deletes a workflow and its run history. Only valid for
// soft-deleted workflows; the normal delete command never reaches here.
func (s *Store) Purge(ctx context.Context, id string) error {
	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	w, err := s.workflows.Get(ctx, id)
	if err != nil {
		return err
	}
	if w.State != castrove.StateDeleted {
		return &castrove.ValidationError{Field: "state", Reason: "only deleted workflows can be purged"}
	}
	if err := s.runs.DeleteByWorkflow(ctx, id); err != nil {
		return fmt.Errorf("purge runs: %w", err)
	}
	if err := s.workflows.Delete(ctx, id); err != nil {
		return fmt.Errorf("purge workflow: %w", err)
	}
	s.emitAudit(ctx, id, "purge", nil)
	return nil
}

// Stats summarizes the store for dashboards and the assistant layer.
type Stats struct {
	TotalWorkflows  int     `json:"total_workflows"`
	RunningCount    int     `json:"running_workflows"`
	PausedCount     int     `json:"paused_workflows"`
	TotalRuns       int     `json:"total_runs"`
	SuccessfulRuns  int     `json:"successful_runs"`
	FailedRuns      int     `json:"failed_runs"`
	SuccessRatePct  float64 `json:"success_rate_pct"`
}

// Overview aggregates counters across all non-deleted workflows.
func (s *Store) Overview(ctx context.Context) (Stats, error) {
	workflows, err := s.workflows.List(ctx, repository.WorkflowFilter{})
	if err != nil {
		return Stats{}, err
	}
	var st Stats
	for _, w := range workflows {
		st.TotalWorkflows++
		switch w.State {
		case castrove.StateRunning:
			st.RunningCount++
		case castrove.StatePaused:
			st.PausedCount++
		}
		st.TotalRuns += w.RunCount
		st.SuccessfulRuns += w.SuccessCount
		st.FailedRuns += w.FailureCount
	}
	if st.TotalRuns > 0 {
		st.SuccessRatePct = float64(st.SuccessfulRuns) / float64(st.TotalRuns) * 100
	}
	return st, nil
}

// RecordRejection audits a command that was refused before it could mutate
// anything, so failed intents are traceable alongside successful mutations.
func (s *Store) RecordRejection(ctx context.Context, workflowID, kind string, diff map[string]any, reason string) {
	entry := &castrove.AuditEntry{
		ID:         castrove.GenerateID("aud"),
		WorkflowID: workflowID,
		Kind:       kind,
		Diff:       diff,
		OK:         false,
		Error:      reason,
		At:         s.clock(),
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		slog.Warn("store: audit append failed", "kind", kind, "workflow", workflowID, "err", err)
	}
}

func (s *Store) emitAudit(ctx context.Context, workflowID, kind string, diff map[string]any) {
	entry := &castrove.AuditEntry{
		ID:         castrove.GenerateID("aud"),
		WorkflowID: workflowID,
		Kind:       kind,
		Diff:       diff,
		OK:         true,
		At:         s.clock(),
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		slog.Warn("store: audit append failed", "kind", kind, "workflow", workflowID, "err", err)
	}
}

func validateContent(c castrove.ContentSpec) error {
	if strings.TrimSpace(c.Topic) == "" {
		return &castrove.ValidationError{Field: "content.topic", Reason: "content description is empty"}
	}
	if len(c.Platforms) == 0 {
		return &castrove.ValidationError{Field: "content.platforms", Reason: "at least one platform is required"}
	}
	seen := make(map[string]bool, len(c.Platforms))
	for _, p := range c.Platforms {
		if strings.TrimSpace(p) == "" {
			return &castrove.ValidationError{Field: "content.platforms", Reason: "platform name is empty"}
		}
		if seen[strings.ToLower(p)] {
			return &castrove.ValidationError{Field: "content.platforms", Reason: fmt.Sprintf("duplicate platform %q", p)}
		}
		seen[strings.ToLower(p)] = true
	}
	if c.IdeaSelector != "" {
		// Compile here so a bad selector is rejected at the boundary rather
		// than failing every run at the selection stage.
		if err := validateSelector(c.IdeaSelector); err != nil {
			return &castrove.ValidationError{Field: "content.idea_selector", Reason: err.Error()}
		}
	}
	return nil
}

// normalizeContent lowercases platform names, preserving caller order.
func normalizeContent(c castrove.ContentSpec) castrove.ContentSpec {
	platforms := make([]string, 0, len(c.Platforms))
	for _, p := range c.Platforms {
		platforms = append(platforms, strings.ToLower(strings.TrimSpace(p)))
	}
	c.Platforms = platforms
	return c
}
