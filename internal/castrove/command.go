package castrove

import "time"

// CommandKind identifies the structured intent emitted by the assistant layer.
type CommandKind string

const (
	CommandCreate CommandKind = "create_workflow"
	CommandUpdate CommandKind = "update_workflow"
	CommandPause  CommandKind = "pause"
	CommandResume CommandKind = "resume"
	CommandDelete CommandKind = "delete"
	CommandQuery  CommandKind = "query"
)

// Valid reports whether k is a known command kind.
func (k CommandKind) Valid() bool {
	switch k {
	case CommandCreate, CommandUpdate, CommandPause, CommandResume, CommandDelete, CommandQuery:
		return true
	}
	return false
}

// Command is one structured intent from the assistant layer. WorkflowID is
// empty for create_workflow. Payload carries proposed field changes in the
// assistant intent schema (label, topic, platforms, cadence, params).
type Command struct {
	Kind       CommandKind    `json:"kind"`
	WorkflowID string         `json:"workflow_id,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// CommandResult is returned to the assistant layer for every command.
// Validation failures are carried as structured data rather than thrown past
// the boundary, so the assistant can explain the problem conversationally.
type CommandResult struct {
	OK         bool           `json:"ok"`
	Kind       CommandKind    `json:"kind"`
	WorkflowID string         `json:"workflow_id,omitempty"`
	State      WorkflowState  `json:"state,omitempty"`
	NextDueAt  *time.Time     `json:"next_due_at,omitempty"`
	Message    string         `json:"message,omitempty"`
	Error      *CommandError  `json:"error,omitempty"`
	Workflow   *Workflow      `json:"workflow,omitempty"` // query only
	Runs       []*RunRecord   `json:"runs,omitempty"`     // query only
	Details    map[string]any `json:"details,omitempty"`
}

// CommandError is the structured failure payload of a command.
type CommandError struct {
	Kind  string `json:"kind"` // "validation" | "not_found" | "bad_command"
	Field string `json:"field,omitempty"`
	Text  string `json:"text"`
}

// AuditEntry records one store mutation or command outcome.
type AuditEntry struct {
	ID         string         `json:"id"`
	WorkflowID string         `json:"workflow_id,omitempty"`
	Kind       string         `json:"kind"`
	Diff       map[string]any `json:"diff,omitempty"`
	OK         bool           `json:"ok"`
	Error      string         `json:"error,omitempty"`
	At         time.Time      `json:"at"`
}
