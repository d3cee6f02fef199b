package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castrove/castrove/internal/castrove"
	"github.com/castrove/castrove/internal/repository"
	"github.com/castrove/castrove/internal/store"
)

func newTestInterpreter() (*store.Store, *Interpreter) {
	st := store.New(
		repository.NewMemoryWorkflowRepository(),
		repository.NewMemoryRunRepository(),
		repository.NewMemoryAuditRepository(),
	)
	return st, New(st)
}

func createPayload() map[string]any {
	return map[string]any{
		"topic":     "cute baby animals",
		"platforms": []any{"tiktok", "youtube"},
		"cadence":   map[string]any{"interval_minutes": float64(240)},
	}
}

func TestApply_CreateWorkflow(t *testing.T) {
	_, interp := newTestInterpreter()

	res := interp.Apply(context.Background(), castrove.Command{
		Kind:    castrove.CommandCreate,
		Payload: createPayload(),
	})

	require.True(t, res.OK, "create rejected: %+v", res.Error)
	assert.NotEmpty(t, res.WorkflowID)
	assert.Equal(t, castrove.StateRunning, res.State)
	require.NotNil(t, res.NextDueAt, "confirmation must carry the next due time")
	assert.Contains(t, res.Message, res.WorkflowID)
	assert.Contains(t, res.Message, "tiktok")
}

func TestApply_CreateWithDurationString(t *testing.T) {
	st, interp := newTestInterpreter()

	payload := createPayload()
	payload["cadence"] = map[string]any{"interval": "4h"}
	res := interp.Apply(context.Background(), castrove.Command{
		Kind:    castrove.CommandCreate,
		Payload: payload,
	})
	require.True(t, res.OK)

	wf, err := st.Get(context.Background(), res.WorkflowID)
	require.NoError(t, err)
	assert.Equal(t, 240, wf.Cadence.IntervalMinutes)
}

func TestApply_CreateWithWeekdaySlots(t *testing.T) {
	st, interp := newTestInterpreter()

	payload := createPayload()
	payload["cadence"] = map[string]any{
		"slots": []any{
			map[string]any{"weekday": "saturday", "hour": float64(9)},
			map[string]any{"weekday": "sunday", "hour": float64(9)},
		},
	}
	res := interp.Apply(context.Background(), castrove.Command{
		Kind:    castrove.CommandCreate,
		Payload: payload,
	})
	require.True(t, res.OK, "create rejected: %+v", res.Error)

	wf, err := st.Get(context.Background(), res.WorkflowID)
	require.NoError(t, err)
	require.Len(t, wf.Cadence.Slots, 2)
	assert.Equal(t, time.Saturday, wf.Cadence.Slots[0].Weekday)
	assert.Equal(t, 9, wf.Cadence.Slots[0].Hour)
}

func TestApply_CreateMissingPlatforms(t *testing.T) {
	_, interp := newTestInterpreter()

	payload := createPayload()
	delete(payload, "platforms")
	res := interp.Apply(context.Background(), castrove.Command{
		Kind:    castrove.CommandCreate,
		Payload: payload,
	})

	require.False(t, res.OK)
	require.NotNil(t, res.Error)
	assert.Equal(t, "validation", res.Error.Kind)
	assert.Equal(t, "content.platforms", res.Error.Field)
}

func TestApply_UpdateCadence(t *testing.T) {
	st, interp := newTestInterpreter()
	ctx := context.Background()

	created := interp.Apply(ctx, castrove.Command{Kind: castrove.CommandCreate, Payload: createPayload()})
	require.True(t, created.OK)

	res := interp.Apply(ctx, castrove.Command{
		Kind:       castrove.CommandUpdate,
		WorkflowID: created.WorkflowID,
		Payload:    map[string]any{"cadence": "hourly"},
	})
	require.True(t, res.OK, "update rejected: %+v", res.Error)

	wf, err := st.Get(ctx, created.WorkflowID)
	require.NoError(t, err)
	assert.Equal(t, 60, wf.Cadence.IntervalMinutes)
}

func TestApply_UpdatePlatformsKeepsTopic(t *testing.T) {
	st, interp := newTestInterpreter()
	ctx := context.Background()

	created := interp.Apply(ctx, castrove.Command{Kind: castrove.CommandCreate, Payload: createPayload()})
	require.True(t, created.OK)

	res := interp.Apply(ctx, castrove.Command{
		Kind:       castrove.CommandUpdate,
		WorkflowID: created.WorkflowID,
		Payload:    map[string]any{"platforms": []any{"instagram"}},
	})
	require.True(t, res.OK, "update rejected: %+v", res.Error)

	wf, err := st.Get(ctx, created.WorkflowID)
	require.NoError(t, err)
	assert.Equal(t, []string{"instagram"}, wf.Content.Platforms)
	assert.Equal(t, "cute baby animals", wf.Content.Topic)
}

func TestApply_InvalidUpdateLeavesWorkflowUntouched(t *testing.T) {
	st, interp := newTestInterpreter()
	ctx := context.Background()

	created := interp.Apply(ctx, castrove.Command{Kind: castrove.CommandCreate, Payload: createPayload()})
	require.True(t, created.OK)

	res := interp.Apply(ctx, castrove.Command{
		Kind:       castrove.CommandUpdate,
		WorkflowID: created.WorkflowID,
		Payload:    map[string]any{"cadence": "sometimes, when the mood strikes"},
	})
	require.False(t, res.OK)
	assert.Equal(t, "validation", res.Error.Kind)

	wf, err := st.Get(ctx, created.WorkflowID)
	require.NoError(t, err)
	assert.Equal(t, 240, wf.Cadence.IntervalMinutes, "failed update must not mutate the workflow")
}

func TestApply_PauseResumeDelete(t *testing.T) {
	st, interp := newTestInterpreter()
	ctx := context.Background()

	created := interp.Apply(ctx, castrove.Command{Kind: castrove.CommandCreate, Payload: createPayload()})
	require.True(t, created.OK)
	id := created.WorkflowID

	paused := interp.Apply(ctx, castrove.Command{Kind: castrove.CommandPause, WorkflowID: id})
	require.True(t, paused.OK)
	assert.Equal(t, castrove.StatePaused, paused.State)

	resumed := interp.Apply(ctx, castrove.Command{Kind: castrove.CommandResume, WorkflowID: id})
	require.True(t, resumed.OK)
	assert.Equal(t, castrove.StateRunning, resumed.State)
	assert.NotNil(t, resumed.NextDueAt)

	deleted := interp.Apply(ctx, castrove.Command{Kind: castrove.CommandDelete, WorkflowID: id})
	require.True(t, deleted.OK)
	assert.Equal(t, castrove.StateDeleted, deleted.State)

	// Soft delete: the record and its history survive.
	wf, err := st.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, castrove.StateDeleted, wf.State)
}

func TestApply_QueryIncludesRuns(t *testing.T) {
	st, interp := newTestInterpreter()
	ctx := context.Background()

	created := interp.Apply(ctx, castrove.Command{Kind: castrove.CommandCreate, Payload: createPayload()})
	require.True(t, created.OK)

	run := &castrove.RunRecord{
		ID:         castrove.GenerateID("run"),
		WorkflowID: created.WorkflowID,
		Status:     castrove.RunStatusSucceeded,
		StartedAt:  time.Now(),
	}
	require.NoError(t, st.RecordRun(ctx, run))

	res := interp.Apply(ctx, castrove.Command{Kind: castrove.CommandQuery, WorkflowID: created.WorkflowID})
	require.True(t, res.OK)
	require.Len(t, res.Runs, 1)
	assert.Contains(t, res.Message, "1 runs")
	assert.Contains(t, res.Message, "1 succeeded")
}

func TestApply_UnknownWorkflow(t *testing.T) {
	_, interp := newTestInterpreter()

	res := interp.Apply(context.Background(), castrove.Command{
		Kind:       castrove.CommandPause,
		WorkflowID: "wf-missing",
	})
	require.False(t, res.OK)
	assert.Equal(t, "not_found", res.Error.Kind)
}

func TestApply_UnknownKind(t *testing.T) {
	_, interp := newTestInterpreter()

	res := interp.Apply(context.Background(), castrove.Command{Kind: "explode"})
	require.False(t, res.OK)
	assert.Equal(t, "bad_command", res.Error.Kind)
}

func TestApply_RejectedCommandIsAudited(t *testing.T) {
	st, interp := newTestInterpreter()
	ctx := context.Background()

	payload := createPayload()
	delete(payload, "platforms")
	res := interp.Apply(ctx, castrove.Command{
		Kind:    castrove.CommandCreate,
		Payload: payload,
	})
	require.False(t, res.OK)

	entries, err := st.AuditLog(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1, "a refused command must leave an audit entry")

	entry := entries[0]
	assert.False(t, entry.OK)
	assert.Equal(t, "command_create_workflow", entry.Kind)
	assert.Equal(t, res.Error.Text, entry.Error)
	assert.Equal(t, "validation", entry.Diff["error_kind"])
	assert.Equal(t, "content.platforms", entry.Diff["field"])
}

func TestApply_ConcurrentPartialUpdatesKeepAllFields(t *testing.T) {
	st, interp := newTestInterpreter()
	ctx := context.Background()

	created := interp.Apply(ctx, castrove.Command{
		Kind:    castrove.CommandCreate,
		Payload: createPayload(),
	})
	require.True(t, created.OK)

	// Topic-only and platforms-only updates race on the same workflow;
	// neither may erase the other's fields.
	done := make(chan castrove.CommandResult, 2)
	go func() {
		done <- interp.Apply(ctx, castrove.Command{
			Kind:       castrove.CommandUpdate,
			WorkflowID: created.WorkflowID,
			Payload:    map[string]any{"topic": "tiny kittens"},
		})
	}()
	go func() {
		done <- interp.Apply(ctx, castrove.Command{
			Kind:       castrove.CommandUpdate,
			WorkflowID: created.WorkflowID,
			Payload:    map[string]any{"platforms": []any{"instagram"}},
		})
	}()
	for i := 0; i < 2; i++ {
		res := <-done
		require.True(t, res.OK, "update rejected: %+v", res.Error)
	}

	wf, err := st.Get(ctx, created.WorkflowID)
	require.NoError(t, err)
	assert.Equal(t, "tiny kittens", wf.Content.Topic)
	assert.Equal(t, []string{"instagram"}, wf.Content.Platforms)
}

func TestParseCadence_Phrases(t *testing.T) {
	cases := []struct {
		phrase  string
		want    castrove.Cadence
		wantErr bool
	}{
		{phrase: "4h", want: castrove.Cadence{IntervalMinutes: 240}},
		{phrase: "every 4 hours", want: castrove.Cadence{IntervalMinutes: 240}},
		{phrase: "90 minutes", want: castrove.Cadence{IntervalMinutes: 90}},
		{phrase: "hourly", want: castrove.Cadence{IntervalMinutes: 60}},
		{phrase: "weekends at 10", want: castrove.Cadence{Slots: []castrove.Slot{
			{Weekday: time.Saturday, Hour: 10}, {Weekday: time.Sunday, Hour: 10},
		}}},
		{phrase: "saturdays at 9", want: castrove.Cadence{Slots: []castrove.Slot{
			{Weekday: time.Saturday, Hour: 9},
		}}},
		{phrase: "never", wantErr: true},
		{phrase: "weekends at 25", wantErr: true},
	}

	for _, tc := range cases {
		got, err := parseCadence(tc.phrase)
		if tc.wantErr {
			assert.Error(t, err, "phrase %q", tc.phrase)
			continue
		}
		require.NoError(t, err, "phrase %q", tc.phrase)
		assert.Equal(t, tc.want.IntervalMinutes, got.IntervalMinutes, "phrase %q", tc.phrase)
		assert.ElementsMatch(t, tc.want.Slots, got.Slots, "phrase %q", tc.phrase)
	}
}

func TestParseCadence_WeekdayNumbers(t *testing.T) {
	got, err := parseCadence(map[string]any{
		"slots": []any{map[string]any{"weekday": float64(6), "hour": float64(18)}},
	})
	require.NoError(t, err)
	require.Len(t, got.Slots, 1)
	assert.Equal(t, time.Saturday, got.Slots[0].Weekday)
	assert.Equal(t, 18, got.Slots[0].Hour)
}

func TestParseCadence_RejectsBothForms(t *testing.T) {
	_, err := parseCadence(map[string]any{
		"interval_minutes": float64(60),
		"slots":            []any{map[string]any{"weekday": "monday", "hour": float64(9)}},
	})
	assert.Error(t, err)
}
