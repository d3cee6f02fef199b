package castrove

import "time"

// WorkflowState is the lifecycle state of a workflow.
type WorkflowState string

const (
	StateDraft   WorkflowState = "draft"
	StateRunning WorkflowState = "running"
	StatePaused  WorkflowState = "paused"
	StateDeleted WorkflowState = "deleted"
)

// Valid reports whether s is a known workflow state.
func (s WorkflowState) Valid() bool {
	switch s {
	case StateDraft, StateRunning, StatePaused, StateDeleted:
		return true
	}
	return false
}

// ContentSpec describes what a workflow produces and where it posts.
type ContentSpec struct {
	Topic        string         `json:"topic" yaml:"topic"`
	Platforms    []string       `json:"platforms" yaml:"platforms"`
	Params       map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
	IdeaSelector string         `json:"idea_selector,omitempty" yaml:"idea_selector,omitempty"`
	IdeaFeedURL  string         `json:"idea_feed_url,omitempty" yaml:"idea_feed_url,omitempty"`
}

// Workflow is a persistent, scheduled content-generation-and-publishing
// definition. NextDueAt is derived from Cadence and LastRunAt and must be
// recomputed whenever either changes.
type Workflow struct {
	ID           string        `json:"id"`
	Label        string        `json:"label"`
	State        WorkflowState `json:"state"`
	Cadence      Cadence       `json:"cadence"`
	Content      ContentSpec   `json:"content"`
	LastRunAt    *time.Time    `json:"last_run_at,omitempty"`
	NextDueAt    *time.Time    `json:"next_due_at,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
	RunCount     int           `json:"run_count"`
	SuccessCount int           `json:"success_count"`
	FailureCount int           `json:"failure_count"`
}

// Schedulable reports whether the workflow may be considered by the
// scheduler at all. Draft, paused, and deleted workflows are never selected.
func (w *Workflow) Schedulable() bool {
	return w.State == StateRunning
}

// RecomputeNextDue refreshes NextDueAt from the cadence and LastRunAt.
func (w *Workflow) RecomputeNextDue(now time.Time) {
	next := w.Cadence.NextDue(w.LastRunAt, now)
	w.NextDueAt = &next
}

// Clone returns a deep copy so repository callers can mutate freely.
func (w *Workflow) Clone() *Workflow {
	cp := *w
	if w.LastRunAt != nil {
		t := *w.LastRunAt
		cp.LastRunAt = &t
	}
	if w.NextDueAt != nil {
		t := *w.NextDueAt
		cp.NextDueAt = &t
	}
	cp.Cadence.Slots = append([]Slot(nil), w.Cadence.Slots...)
	cp.Content.Platforms = append([]string(nil), w.Content.Platforms...)
	if w.Content.Params != nil {
		cp.Content.Params = make(map[string]any, len(w.Content.Params))
		for k, v := range w.Content.Params {
			cp.Content.Params[k] = v
		}
	}
	return &cp
}
