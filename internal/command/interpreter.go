package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/castrove/castrove/internal/castrove"
	"github.com/castrove/castrove/internal/store"
)

// Interpreter turns structured commands from the assistant layer into store
// mutations and query results. Every command, failed or not, leaves an audit
// trail; invalid commands never reach the store.
type Interpreter struct {
	store *store.Store
}

func New(st *store.Store) *Interpreter {
	return &Interpreter{store: st}
}

// Apply executes a single command. It never returns a Go error for domain
// failures; those are reported inside the CommandResult so the caller can
// relay them verbatim.
func (it *Interpreter) Apply(ctx context.Context, cmd castrove.Command) castrove.CommandResult {
	var res castrove.CommandResult
	switch cmd.Kind {
	case castrove.CommandCreate:
		res = it.create(ctx, cmd)
	case castrove.CommandUpdate:
		res = it.update(ctx, cmd)
	case castrove.CommandPause:
		res = it.setState(ctx, cmd, castrove.StatePaused, "paused")
	case castrove.CommandResume:
		res = it.setState(ctx, cmd, castrove.StateRunning, "resumed")
	case castrove.CommandDelete:
		res = it.setState(ctx, cmd, castrove.StateDeleted, "deleted")
	case castrove.CommandQuery:
		res = it.query(ctx, cmd)
	default:
		res = badCommand(cmd, fmt.Sprintf("unknown command kind %q", cmd.Kind))
	}

	if !res.OK {
		slog.Info("command: rejected", "kind", cmd.Kind, "workflow_id", cmd.WorkflowID, "error", res.Error.Text)
		diff := map[string]any{"error_kind": res.Error.Kind}
		if res.Error.Field != "" {
			diff["field"] = res.Error.Field
		}
		it.store.RecordRejection(ctx, cmd.WorkflowID, "command_"+string(cmd.Kind), diff, res.Error.Text)
	}
	return res
}

func (it *Interpreter) create(ctx context.Context, cmd castrove.Command) castrove.CommandResult {
	spec, err := createSpecFromPayload(cmd.Payload)
	if err != nil {
		return failure(cmd, err)
	}

	wf, err := it.store.Create(ctx, spec)
	if err != nil {
		return failure(cmd, err)
	}

	return castrove.CommandResult{
		OK:         true,
		Kind:       cmd.Kind,
		WorkflowID: wf.ID,
		State:      wf.State,
		NextDueAt:  wf.NextDueAt,
		Message:    confirmCreate(wf),
		Workflow:   wf,
	}
}

func (it *Interpreter) update(ctx context.Context, cmd castrove.Command) castrove.CommandResult {
	if cmd.WorkflowID == "" {
		return badCommand(cmd, "workflow_id is required")
	}

	patch, err := patchFromPayload(cmd.Payload)
	if err != nil {
		return failure(cmd, err)
	}

	wf, err := it.store.Update(ctx, cmd.WorkflowID, patch)
	if err != nil {
		return failure(cmd, err)
	}

	return castrove.CommandResult{
		OK:         true,
		Kind:       cmd.Kind,
		WorkflowID: wf.ID,
		State:      wf.State,
		NextDueAt:  wf.NextDueAt,
		Message:    fmt.Sprintf("workflow %s updated; next run %s", wf.ID, describeDue(wf.NextDueAt)),
		Workflow:   wf,
	}
}

func (it *Interpreter) setState(ctx context.Context, cmd castrove.Command, target castrove.WorkflowState, verb string) castrove.CommandResult {
	if cmd.WorkflowID == "" {
		return badCommand(cmd, "workflow_id is required")
	}

	wf, err := it.store.SetState(ctx, cmd.WorkflowID, target)
	if err != nil {
		return failure(cmd, err)
	}

	msg := fmt.Sprintf("workflow %s %s", wf.ID, verb)
	if target == castrove.StateRunning {
		msg += "; next run " + describeDue(wf.NextDueAt)
	}
	return castrove.CommandResult{
		OK:         true,
		Kind:       cmd.Kind,
		WorkflowID: wf.ID,
		State:      wf.State,
		NextDueAt:  wf.NextDueAt,
		Message:    msg,
		Workflow:   wf,
	}
}

func (it *Interpreter) query(ctx context.Context, cmd castrove.Command) castrove.CommandResult {
	if cmd.WorkflowID == "" {
		return badCommand(cmd, "workflow_id is required")
	}

	wf, err := it.store.Get(ctx, cmd.WorkflowID)
	if err != nil {
		return failure(cmd, err)
	}

	limit := 10
	if n, err := asInt(cmd.Payload["limit"]); err == nil && n > 0 {
		limit = n
	}
	runs, err := it.store.Runs(ctx, wf.ID, limit)
	if err != nil {
		return failure(cmd, err)
	}

	return castrove.CommandResult{
		OK:         true,
		Kind:       cmd.Kind,
		WorkflowID: wf.ID,
		State:      wf.State,
		NextDueAt:  wf.NextDueAt,
		Message:    describeWorkflow(wf, runs),
		Workflow:   wf,
		Runs:       runs,
	}
}

func createSpecFromPayload(payload map[string]any) (store.CreateSpec, error) {
	var spec store.CreateSpec

	cadence, err := parseCadence(payload["cadence"])
	if err != nil {
		return spec, err
	}
	spec.Cadence = cadence

	content, err := contentFromPayload(payload, castrove.ContentSpec{})
	if err != nil {
		return spec, err
	}
	spec.Content = content

	if label, ok := payload["label"].(string); ok {
		spec.Label = label
	}
	if state, ok := payload["state"].(string); ok {
		spec.State = castrove.WorkflowState(state)
	}
	return spec, nil
}

func patchFromPayload(payload map[string]any) (store.Patch, error) {
	var patch store.Patch

	if raw, ok := payload["cadence"]; ok {
		cadence, err := parseCadence(raw)
		if err != nil {
			return patch, err
		}
		patch.Cadence = &cadence
	}

	if label, ok := payload["label"].(string); ok {
		patch.Label = &label
	}

	if contentTouched(payload) {
		patch.MergeContent = func(base castrove.ContentSpec) (castrove.ContentSpec, error) {
			return contentFromPayload(payload, base)
		}
	}

	if patch.Cadence == nil && patch.Label == nil && patch.MergeContent == nil {
		return patch, &castrove.ValidationError{Field: "payload", Reason: "nothing to update"}
	}
	return patch, nil
}

func contentTouched(payload map[string]any) bool {
	for _, key := range []string{"topic", "platforms", "params", "idea_selector", "idea_feed_url"} {
		if _, ok := payload[key]; ok {
			return true
		}
	}
	return false
}

func contentFromPayload(payload map[string]any, base castrove.ContentSpec) (castrove.ContentSpec, error) {
	content := base

	if topic, ok := payload["topic"].(string); ok {
		content.Topic = topic
	}
	if raw, ok := payload["platforms"]; ok {
		items, ok := raw.([]any)
		if !ok {
			return content, &castrove.ValidationError{Field: "platforms", Reason: "platforms must be a list of strings"}
		}
		content.Platforms = nil
		for _, item := range items {
			p, ok := item.(string)
			if !ok {
				return content, &castrove.ValidationError{Field: "platforms", Reason: "platforms must be a list of strings"}
			}
			content.Platforms = append(content.Platforms, p)
		}
	}
	if params, ok := payload["params"].(map[string]any); ok {
		content.Params = params
	}
	if sel, ok := payload["idea_selector"].(string); ok {
		content.IdeaSelector = sel
	}
	if feed, ok := payload["idea_feed_url"].(string); ok {
		content.IdeaFeedURL = feed
	}
	return content, nil
}

func confirmCreate(wf *castrove.Workflow) string {
	return fmt.Sprintf("workflow %s created for %s on %s; first run %s",
		wf.ID, wf.Content.Topic, strings.Join(wf.Content.Platforms, ", "), describeDue(wf.NextDueAt))
}

func describeWorkflow(wf *castrove.Workflow, runs []*castrove.RunRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "workflow %s (%s) is %s; %d runs, %d succeeded, %d failed; next run %s",
		wf.ID, wf.Content.Topic, wf.State, wf.RunCount, wf.SuccessCount, wf.FailureCount, describeDue(wf.NextDueAt))
	if len(runs) > 0 {
		last := runs[0]
		fmt.Fprintf(&b, "; last run %s at %s", last.Status, last.StartedAt.Format(time.RFC3339))
	}
	return b.String()
}

func describeDue(due *time.Time) string {
	if due == nil {
		return "not scheduled"
	}
	return "at " + due.UTC().Format(time.RFC3339)
}

func failure(cmd castrove.Command, err error) castrove.CommandResult {
	res := castrove.CommandResult{Kind: cmd.Kind, WorkflowID: cmd.WorkflowID}

	var verr *castrove.ValidationError
	switch {
	case errors.As(err, &verr):
		res.Error = &castrove.CommandError{Kind: "validation", Field: verr.Field, Text: verr.Reason}
	case errors.Is(err, castrove.ErrNotFound):
		res.Error = &castrove.CommandError{Kind: "not_found", Text: fmt.Sprintf("workflow %s not found", cmd.WorkflowID)}
	default:
		res.Error = &castrove.CommandError{Kind: "bad_command", Text: err.Error()}
	}
	return res
}

func badCommand(cmd castrove.Command, text string) castrove.CommandResult {
	return castrove.CommandResult{
		Kind:       cmd.Kind,
		WorkflowID: cmd.WorkflowID,
		Error:      &castrove.CommandError{Kind: "bad_command", Text: text},
	}
}
