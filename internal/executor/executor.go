// Package executor runs a single workflow's pipeline: idea selection, asset
// generation, and per-platform publication. Every execution produces a run
// record regardless of outcome; capability errors are converted into step
// results and never escape to the caller.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/castrove/castrove/internal/capability"
	"github.com/castrove/castrove/internal/castrove"
	"github.com/castrove/castrove/internal/ideas"
)

// Config bounds each pipeline stage. Generation is network-bound and may
// take minutes; exceeding a deadline is a step failure, not a hang.
type Config struct {
	SelectTimeout      time.Duration
	GenerateTimeout    time.Duration
	PublishTimeout     time.Duration
	MaxParallelPublish int
}

// DefaultConfig returns the stage bounds used when the config file is silent.
func DefaultConfig() Config {
	return Config{
		SelectTimeout:      30 * time.Second,
		GenerateTimeout:    10 * time.Minute,
		PublishTimeout:     2 * time.Minute,
		MaxParallelPublish: 4,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.SelectTimeout <= 0 {
		c.SelectTimeout = d.SelectTimeout
	}
	if c.GenerateTimeout <= 0 {
		c.GenerateTimeout = d.GenerateTimeout
	}
	if c.PublishTimeout <= 0 {
		c.PublishTimeout = d.PublishTimeout
	}
	if c.MaxParallelPublish <= 0 {
		c.MaxParallelPublish = d.MaxParallelPublish
	}
	return c
}

// Executor executes one workflow pipeline at a time per call. It is
// stateless between calls and safe for concurrent use across workflows.
type Executor struct {
	bank  *ideas.Bank
	gen   capability.Generator
	pub   capability.Publisher
	cfg   Config
	clock func() time.Time
}

// New creates an Executor over the given idea bank and capability clients.
func New(bank *ideas.Bank, gen capability.Generator, pub capability.Publisher, cfg Config) *Executor {
	return &Executor{
		bank:  bank,
		gen:   gen,
		pub:   pub,
		cfg:   cfg.withDefaults(),
		clock: time.Now,
	}
}

// SetClock overrides the time source, for tests.
func (e *Executor) SetClock(clock func() time.Time) { e.clock = clock }

// Execute runs the workflow's pipeline end to end and returns the completed
// run record. The caller persists it; Execute itself never writes state.
func (e *Executor) Execute(ctx context.Context, wf *castrove.Workflow, trigger string) *castrove.RunRecord {
	started := e.clock()
	run := &castrove.RunRecord{
		ID:          castrove.GenerateID("run"),
		WorkflowID:  wf.ID,
		TriggerType: trigger,
		Status:      castrove.RunStatusPending,
		SlotKey:     wf.Cadence.SlotKeyAt(started),
		StartedAt:   started,
	}
	defer func() {
		finished := e.clock()
		run.FinishedAt = &finished
	}()

	slog.Info("executor: run started", "workflow", wf.ID, "run", run.ID, "trigger", trigger)

	// Stage 1: idea selection.
	req, err := e.selectRequest(ctx, wf)
	if err != nil {
		failStep(run, castrove.StepSelect, err)
		run.Status = castrove.RunStatusFailed
		slog.Warn("executor: idea selection failed", "workflow", wf.ID, "run", run.ID, "err", err)
		return run
	}
	okStep(run, castrove.StepSelect)

	// Stage 2: asset generation.
	run.Status = castrove.RunStatusGenerating
	asset, err := e.generate(ctx, req)
	if err != nil {
		failStep(run, castrove.StepGenerate, err)
		run.Status = castrove.RunStatusFailed
		slog.Warn("executor: generation failed", "workflow", wf.ID, "run", run.ID, "err", err)
		return run
	}
	okStep(run, castrove.StepGenerate)
	run.AssetURL = asset.URL
	slog.Info("executor: asset ready", "workflow", wf.ID, "run", run.ID, "asset", asset.URL)

	// Stage 3: publication, one platform at a time but in parallel.
	run.Status = castrove.RunStatusPublishing
	run.Posts = e.publishAll(ctx, asset, wf.Content.Platforms, req.Caption)

	succeeded, failed := 0, 0
	for _, post := range run.Posts {
		if post.Error == nil {
			succeeded++
		} else {
			failed++
		}
	}
	switch {
	case failed == 0:
		run.Status = castrove.RunStatusSucceeded
		okStep(run, castrove.StepPublish)
	case succeeded == 0:
		run.Status = castrove.RunStatusFailed
		failStep(run, castrove.StepPublish, fmt.Errorf("all %d targets failed", failed))
	default:
		run.Status = castrove.RunStatusPartial
		partialStep(run, castrove.StepPublish, fmt.Errorf("%d of %d targets failed", failed, len(run.Posts)))
	}

	slog.Info("executor: run finished", "workflow", wf.ID, "run", run.ID,
		"status", string(run.Status), "posted", succeeded, "failed", failed)
	return run
}

// selectRequest resolves the workflow's content spec into a concrete
// generation request, consulting the feed-backed bank when configured.
func (e *Executor) selectRequest(ctx context.Context, wf *castrove.Workflow) (capability.GenerationRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.SelectTimeout)
	defer cancel()

	bank := e.bank
	if wf.Content.IdeaFeedURL != "" {
		feedBank, err := ideas.BankFromFeed(ctx, wf.Content.IdeaFeedURL, 20)
		if err != nil {
			return capability.GenerationRequest{}, fmt.Errorf("idea feed: %w", err)
		}
		bank = feedBank
	}

	idea, err := bank.Select(wf.Content)
	if err != nil {
		return capability.GenerationRequest{}, err
	}
	return buildRequest(wf.Content, idea), nil
}

func (e *Executor) generate(ctx context.Context, req capability.GenerationRequest) (*capability.Asset, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.GenerateTimeout)
	defer cancel()
	return e.gen.Generate(ctx, req)
}

// publishAll posts the asset to every target independently. One platform's
// failure does not block its siblings; outcomes keep the platform order of
// the content spec.
func (e *Executor) publishAll(ctx context.Context, asset *capability.Asset, platforms []string, caption string) []castrove.PostOutcome {
	outcomes := make([]castrove.PostOutcome, len(platforms))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.MaxParallelPublish)
	for i, platform := range platforms {
		i, platform := i, platform
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(gctx, e.cfg.PublishTimeout)
			defer cancel()

			outcome := castrove.PostOutcome{Platform: platform}
			res, err := e.pub.Publish(pctx, asset, platform, caption)
			if err != nil {
				msg := err.Error()
				outcome.Error = &msg
			} else {
				outcome.PostID = res.PostID
			}
			outcomes[i] = outcome
			return nil // per-target errors are outcomes, never group failures
		})
	}
	g.Wait()
	return outcomes
}

// buildRequest composes the generation prompt and caption from the content
// spec and the selected idea.
func buildRequest(spec castrove.ContentSpec, idea ideas.Idea) capability.GenerationRequest {
	var prompt strings.Builder
	if spec.Topic != "" {
		prompt.WriteString("Theme: " + spec.Topic + ". ")
	}
	prompt.WriteString(idea.Prompt())

	caption := idea.Hook
	if len(idea.Tags) > 0 {
		caption += " " + hashtags(idea.Tags)
	}

	aspect := "9:16"
	if v, ok := spec.Params["aspect_ratio"].(string); ok && v != "" {
		aspect = v
	}

	return capability.GenerationRequest{
		Prompt:      prompt.String(),
		Title:       idea.Slug,
		Caption:     caption,
		AspectRatio: aspect,
		Params:      spec.Params,
	}
}

func hashtags(tags []string) string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ReplaceAll(strings.TrimSpace(t), " ", "")
		if t != "" {
			out = append(out, "#"+t)
		}
	}
	return strings.Join(out, " ")
}

func okStep(run *castrove.RunRecord, step string) {
	run.Steps = append(run.Steps, castrove.StepResult{Step: step, Status: "succeeded"})
}

func failStep(run *castrove.RunRecord, step string, err error) {
	msg := err.Error()
	run.Steps = append(run.Steps, castrove.StepResult{Step: step, Status: "failed", Error: &msg})
}

func partialStep(run *castrove.RunRecord, step string, err error) {
	msg := err.Error()
	run.Steps = append(run.Steps, castrove.StepResult{Step: step, Status: "partial", Error: &msg})
}
