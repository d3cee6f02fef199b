package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/castrove/castrove/internal/castrove"
	"github.com/castrove/castrove/internal/repository"
)

func newTestStore() *Store {
	return New(
		repository.NewMemoryWorkflowRepository(),
		repository.NewMemoryRunRepository(),
		repository.NewMemoryAuditRepository(),
	)
}

func validSpec() CreateSpec {
	return CreateSpec{
		Label:   "morning pets",
		Cadence: castrove.Cadence{IntervalMinutes: 240},
		Content: castrove.ContentSpec{
			Topic:     "cute baby animals",
			Platforms: []string{"tiktok", "youtube"},
		},
	}
}

func TestCreate_DefaultsAndNextDue(t *testing.T) {
	s := newTestStore()
	now := time.Date(2026, 1, 3, 10, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return now })

	w, err := s.Create(context.Background(), validSpec())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if w.ID == "" {
		t.Fatal("expected generated workflow ID")
	}
	if w.State != castrove.StateRunning {
		t.Fatalf("expected default state running, got %s", w.State)
	}
	if w.NextDueAt == nil || !w.NextDueAt.Equal(now) {
		t.Fatalf("expected first due at creation time, got %v", w.NextDueAt)
	}
}

func TestCreate_EmptyPlatformsLeavesStoreUnchanged(t *testing.T) {
	s := newTestStore()

	spec := validSpec()
	spec.Content.Platforms = nil
	_, err := s.Create(context.Background(), spec)

	var verr *castrove.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Field != "content.platforms" {
		t.Fatalf("expected platforms field error, got %q", verr.Field)
	}

	workflows, err := s.List(context.Background(), repository.WorkflowFilter{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(workflows) != 0 {
		t.Fatalf("expected no workflows after rejected create, got %d", len(workflows))
	}
}

func TestCreate_RejectsBadSelector(t *testing.T) {
	s := newTestStore()

	spec := validSpec()
	spec.Content.IdeaSelector = `language ==`
	if _, err := s.Create(context.Background(), spec); err == nil {
		t.Fatal("expected error for unparseable selector")
	}
}

func TestCreate_NormalizesPlatformCase(t *testing.T) {
	s := newTestStore()

	spec := validSpec()
	spec.Content.Platforms = []string{"TikTok", " YouTube "}
	w, err := s.Create(context.Background(), spec)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if w.Content.Platforms[0] != "tiktok" || w.Content.Platforms[1] != "youtube" {
		t.Fatalf("expected lowercased platforms, got %v", w.Content.Platforms)
	}
}

func TestUpdate_InvalidCadenceLeavesWorkflowUnchanged(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	w, err := s.Create(ctx, validSpec())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	bad := castrove.Cadence{
		IntervalMinutes: 60,
		Slots:           []castrove.Slot{{Weekday: time.Monday, Hour: 9}},
	}
	if _, err := s.Update(ctx, w.ID, Patch{Cadence: &bad}); err == nil {
		t.Fatal("expected error for conflicting cadence forms")
	}

	got, err := s.Get(ctx, w.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Cadence.IntervalMinutes != 240 || len(got.Cadence.Slots) != 0 {
		t.Fatalf("workflow cadence mutated by failed update: %+v", got.Cadence)
	}
}

func TestUpdate_CadenceChangeRecomputesNextDue(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	now := time.Date(2026, 1, 3, 10, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return now })

	w, err := s.Create(ctx, validSpec())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	run := &castrove.RunRecord{
		ID:         castrove.GenerateID("run"),
		WorkflowID: w.ID,
		Status:     castrove.RunStatusSucceeded,
		StartedAt:  now,
	}
	if err := s.RecordRun(ctx, run); err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}

	hourly := castrove.Cadence{IntervalMinutes: 60}
	updated, err := s.Update(ctx, w.ID, Patch{Cadence: &hourly})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	want := now.Add(time.Hour)
	if updated.NextDueAt == nil || !updated.NextDueAt.Equal(want) {
		t.Fatalf("expected next due %v after cadence change, got %v", want, updated.NextDueAt)
	}
}

func TestSetState_PauseAndResume(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	now := time.Date(2026, 1, 3, 10, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return now })

	w, err := s.Create(ctx, validSpec())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	paused, err := s.SetState(ctx, w.ID, castrove.StatePaused)
	if err != nil {
		t.Fatalf("pause failed: %v", err)
	}
	if paused.State != castrove.StatePaused {
		t.Fatalf("expected paused, got %s", paused.State)
	}

	// Resume later: eligibility is recomputed, not backdated.
	now = now.Add(3 * time.Hour)
	resumed, err := s.SetState(ctx, w.ID, castrove.StateRunning)
	if err != nil {
		t.Fatalf("resume failed: %v", err)
	}
	if resumed.NextDueAt == nil || !resumed.NextDueAt.Equal(now) {
		t.Fatalf("expected next due recomputed at resume time %v, got %v", now, resumed.NextDueAt)
	}
}

func TestSetState_SoftDeleteKeepsHistory(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	w, err := s.Create(ctx, validSpec())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	run := &castrove.RunRecord{
		ID:         castrove.GenerateID("run"),
		WorkflowID: w.ID,
		Status:     castrove.RunStatusSucceeded,
		StartedAt:  time.Now(),
	}
	if err := s.RecordRun(ctx, run); err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}

	if _, err := s.SetState(ctx, w.ID, castrove.StateDeleted); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	// Deleted workflows drop out of default listings but keep their rows.
	listed, err := s.List(ctx, repository.WorkflowFilter{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(listed) != 0 {
		t.Fatalf("expected deleted workflow hidden from default list, got %d", len(listed))
	}

	got, err := s.Get(ctx, w.ID)
	if err != nil {
		t.Fatalf("Get after delete failed: %v", err)
	}
	if got.State != castrove.StateDeleted {
		t.Fatalf("expected deleted state, got %s", got.State)
	}

	runs, err := s.Runs(ctx, w.ID, 10)
	if err != nil {
		t.Fatalf("Runs after delete failed: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected run history preserved, got %d runs", len(runs))
	}
}

func TestRecordRun_Counters(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	now := time.Date(2026, 1, 3, 10, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return now })

	w, err := s.Create(ctx, validSpec())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	statuses := []castrove.RunStatus{
		castrove.RunStatusSucceeded,
		castrove.RunStatusPartial,
		castrove.RunStatusFailed,
	}
	for i, status := range statuses {
		run := &castrove.RunRecord{
			ID:         castrove.GenerateID("run"),
			WorkflowID: w.ID,
			Status:     status,
			StartedAt:  now.Add(time.Duration(i) * time.Hour),
		}
		if err := s.RecordRun(ctx, run); err != nil {
			t.Fatalf("RecordRun %d failed: %v", i, err)
		}
	}

	got, err := s.Get(ctx, w.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.RunCount != 3 {
		t.Errorf("expected run_count 3, got %d", got.RunCount)
	}
	// Partial runs reached an audience, so they count as successes.
	if got.SuccessCount != 2 {
		t.Errorf("expected success_count 2, got %d", got.SuccessCount)
	}
	if got.FailureCount != 1 {
		t.Errorf("expected failure_count 1, got %d", got.FailureCount)
	}
}

func TestRecordRun_NextDueFromRunStart(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	now := time.Date(2026, 1, 3, 10, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return now })

	w, err := s.Create(ctx, validSpec())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// The run took 12 minutes; the interval still advances from its start.
	started := now
	finished := now.Add(12 * time.Minute)
	run := &castrove.RunRecord{
		ID:         castrove.GenerateID("run"),
		WorkflowID: w.ID,
		Status:     castrove.RunStatusSucceeded,
		StartedAt:  started,
		FinishedAt: &finished,
	}
	now = finished
	if err := s.RecordRun(ctx, run); err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}

	got, err := s.Get(ctx, w.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	want := started.Add(4 * time.Hour)
	if got.NextDueAt == nil || !got.NextDueAt.Equal(want) {
		t.Fatalf("expected next due %v (start + interval), got %v", want, got.NextDueAt)
	}
	if got.LastRunAt == nil || !got.LastRunAt.Equal(started) {
		t.Fatalf("expected LastRunAt %v, got %v", started, got.LastRunAt)
	}
}

func TestPurge_OnlyDeletedWorkflows(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	w, err := s.Create(ctx, validSpec())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := s.Purge(ctx, w.ID); err == nil {
		t.Fatal("expected error purging a running workflow")
	}

	if _, err := s.SetState(ctx, w.ID, castrove.StateDeleted); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if err := s.Purge(ctx, w.ID); err != nil {
		t.Fatalf("Purge failed: %v", err)
	}
	if _, err := s.Get(ctx, w.ID); !errors.Is(err, castrove.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after purge, got %v", err)
	}
}

func TestOverview_Aggregates(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	a, err := s.Create(ctx, validSpec())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := s.Create(ctx, validSpec()); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	run := &castrove.RunRecord{
		ID:         castrove.GenerateID("run"),
		WorkflowID: a.ID,
		Status:     castrove.RunStatusSucceeded,
		StartedAt:  time.Now(),
	}
	if err := s.RecordRun(ctx, run); err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}

	stats, err := s.Overview(ctx)
	if err != nil {
		t.Fatalf("Overview failed: %v", err)
	}
	if stats.TotalWorkflows != 2 || stats.RunningCount != 2 {
		t.Fatalf("unexpected workflow counts: %+v", stats)
	}
	if stats.TotalRuns != 1 || stats.SuccessfulRuns != 1 {
		t.Fatalf("unexpected run counts: %+v", stats)
	}
	if stats.SuccessRatePct != 100 {
		t.Fatalf("expected 100%% success rate, got %v", stats.SuccessRatePct)
	}
}

func TestStore_ConcurrentRecordRun(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	w, err := s.Create(ctx, validSpec())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			run := &castrove.RunRecord{
				ID:         castrove.GenerateID("run"),
				WorkflowID: w.ID,
				Status:     castrove.RunStatusSucceeded,
				StartedAt:  time.Now(),
			}
			if err := s.RecordRun(ctx, run); err != nil {
				t.Errorf("RecordRun %d failed: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	got, err := s.Get(ctx, w.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.RunCount != n || got.SuccessCount != n {
		t.Fatalf("lost updates: run_count=%d success_count=%d", got.RunCount, got.SuccessCount)
	}
}
