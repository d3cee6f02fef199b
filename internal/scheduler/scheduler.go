// Package scheduler drives the periodic tick loop. Each tick selects due
// running workflows in deterministic order, marks them in flight, and hands
// them to the executor on worker goroutines. The scheduler never runs a
// workflow itself and a single workflow's failure never stops the tick.
package scheduler

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/castrove/castrove/internal/castrove"
	"github.com/castrove/castrove/internal/repository"
	"github.com/castrove/castrove/internal/store"
)

// Runner executes one workflow pipeline and returns its run record.
// Satisfied by *executor.Executor.
type Runner interface {
	Execute(ctx context.Context, wf *castrove.Workflow, trigger string) *castrove.RunRecord
}

// Scheduler owns the tick loop and the in-flight set that guarantees
// per-workflow run serialization.
type Scheduler struct {
	store  *store.Store
	runner Runner
	tick   time.Duration
	clock  func() time.Time

	mu       sync.Mutex
	inFlight map[string]struct{}

	wg   sync.WaitGroup
	stop chan struct{}
	once sync.Once
}

// New creates a Scheduler. tick <= 0 falls back to one minute.
func New(st *store.Store, runner Runner, tick time.Duration) *Scheduler {
	if tick <= 0 {
		tick = time.Minute
	}
	return &Scheduler{
		store:    st,
		runner:   runner,
		tick:     tick,
		clock:    time.Now,
		inFlight: make(map[string]struct{}),
		stop:     make(chan struct{}),
	}
}

// SetClock overrides the time source, for tests.
func (s *Scheduler) SetClock(clock func() time.Time) { s.clock = clock }

// Start runs the tick loop until Stop is called or ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.tick)
	slog.Info("scheduler: started", "tick", s.tick)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			case <-ticker.C:
				s.Tick(ctx)
			}
		}
	}()
}

// Stop halts the tick loop and waits for in-flight runs to complete and
// record. Paused or stopped workflows never lose a run record this way.
func (s *Scheduler) Stop() {
	s.once.Do(func() { close(s.stop) })
	s.wg.Wait()
	slog.Info("scheduler: stopped")
}

// Tick evaluates all running workflows once and dispatches the due ones.
// Exported so tests and the manual-trigger path can drive time explicitly.
func (s *Scheduler) Tick(ctx context.Context) {
	now := s.clock()
	due, err := s.store.List(ctx, repository.WorkflowFilter{
		States:    []castrove.WorkflowState{castrove.StateRunning},
		DueBefore: &now,
	})
	if err != nil {
		slog.Error("scheduler: due scan failed", "err", err)
		return
	}

	// Deterministic dispatch order: next_due_at ascending, then id.
	sort.Slice(due, func(i, j int) bool {
		a, b := due[i], due[j]
		if a.NextDueAt != nil && b.NextDueAt != nil && !a.NextDueAt.Equal(*b.NextDueAt) {
			return a.NextDueAt.Before(*b.NextDueAt)
		}
		return a.ID < b.ID
	})

	for _, wf := range due {
		if !s.dueNow(wf, now) {
			continue
		}
		if err := s.markInFlight(wf.ID); err != nil {
			// Already executing: skip silently, this is not an error.
			continue
		}
		slog.Info("scheduler: dispatching workflow", "workflow", wf.ID, "label", wf.Label)
		s.wg.Add(1)
		go s.runOne(ctx, wf)
	}
}

// TriggerNow runs a workflow immediately, bypassing its cadence but
// respecting run serialization. Used by the manual-run API.
func (s *Scheduler) TriggerNow(ctx context.Context, id string) (*castrove.RunRecord, error) {
	wf, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.markInFlight(wf.ID); err != nil {
		return nil, err
	}

	run := s.runner.Execute(ctx, wf, castrove.TriggerManual)
	s.clearInFlight(wf.ID)
	if err := s.store.RecordRun(ctx, run); err != nil {
		slog.Error("scheduler: failed to record manual run", "workflow", wf.ID, "err", err)
	}
	return run, nil
}

// InFlight reports whether the workflow is currently executing.
func (s *Scheduler) InFlight(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.inFlight[id]
	return ok
}

// runOne executes a single dispatched workflow on its own goroutine. The
// in-flight marker is cleared before NextDueAt is recomputed (RecordRun), so
// the next tick sees a consistent due time.
func (s *Scheduler) runOne(ctx context.Context, wf *castrove.Workflow) {
	defer s.wg.Done()

	run := s.runner.Execute(ctx, wf, castrove.TriggerTick)
	s.clearInFlight(wf.ID)
	if err := s.store.RecordRun(ctx, run); err != nil {
		slog.Error("scheduler: failed to record run", "workflow", wf.ID, "run", run.ID, "err", err)
	}
}

// dueNow applies the slot double-fire guard: a slot cadence fires at most
// once per slot occurrence, even if the previous run finished within the
// same hour. Interval cadences rely on NextDueAt alone.
func (s *Scheduler) dueNow(wf *castrove.Workflow, now time.Time) bool {
	if len(wf.Cadence.Slots) == 0 {
		return true
	}
	key := wf.Cadence.SlotKeyAt(now)
	if key == "" {
		return false
	}
	if wf.LastRunAt != nil && wf.Cadence.SlotKeyAt(*wf.LastRunAt) == key {
		return false
	}
	return true
}

func (s *Scheduler) markInFlight(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.inFlight[id]; ok {
		return castrove.ErrInFlight
	}
	s.inFlight[id] = struct{}{}
	return nil
}

func (s *Scheduler) clearInFlight(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, id)
}
