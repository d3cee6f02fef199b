package castrove

import "time"

// RunStatus is the lifecycle state of a single workflow run.
type RunStatus string

const (
	RunStatusPending    RunStatus = "pending"
	RunStatusGenerating RunStatus = "generating"
	RunStatusPublishing RunStatus = "publishing"
	RunStatusSucceeded  RunStatus = "succeeded"
	RunStatusFailed     RunStatus = "failed"
	RunStatusPartial    RunStatus = "partial"
)

// Terminal reports whether the status is a final run outcome.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunStatusSucceeded, RunStatusFailed, RunStatusPartial:
		return true
	}
	return false
}

// Pipeline step names, in execution order.
const (
	StepSelect   = "select"
	StepGenerate = "generate"
	StepPublish  = "publish"
)

// StepResult records the outcome of one pipeline step within a run.
// Error holds the step's error detail verbatim when the step failed.
type StepResult struct {
	Step   string  `json:"step"`
	Status string  `json:"status"` // "succeeded" | "failed" | "partial" | "skipped"
	Error  *string `json:"error,omitempty"`
}

// PostOutcome is the per-platform result of the publish step.
type PostOutcome struct {
	Platform string  `json:"platform"`
	PostID   string  `json:"post_id,omitempty"`
	Error    *string `json:"error,omitempty"`
}

// Trigger type values stored on run records.
const (
	TriggerTick   = "tick"
	TriggerManual = "manual"
)

// RunRecord is the immutable log of one execution attempt of a workflow.
// FinishedAt is nil while the run is in flight.
type RunRecord struct {
	ID          string        `json:"id"`
	WorkflowID  string        `json:"workflow_id"`
	TriggerType string        `json:"trigger_type"`
	Status      RunStatus     `json:"status"`
	Steps       []StepResult  `json:"steps,omitempty"`
	AssetURL    string        `json:"asset_url,omitempty"`
	Posts       []PostOutcome `json:"posts,omitempty"`
	SlotKey     string        `json:"slot_key,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	FinishedAt  *time.Time    `json:"finished_at,omitempty"`
}

// Succeeded reports whether the run reached an audience at all. Partial runs
// count: at least one platform accepted the post.
func (r *RunRecord) Succeeded() bool {
	return r.Status == RunStatusSucceeded || r.Status == RunStatusPartial
}
