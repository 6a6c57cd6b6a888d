// Package runner drives a full visual test run: it fans a page×device
// matrix out to the worker pool and, per task, captures, resolves the
// baseline, diffs, persists artifacts and classifies.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	multierror "github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/frankbria/iris/go/baseline"
	"github.com/frankbria/iris/go/capture"
	"github.com/frankbria/iris/go/diff"
	"github.com/frankbria/iris/go/engine"
	"github.com/frankbria/iris/go/severity"
	"github.com/frankbria/iris/go/storage"
	"github.com/frankbria/iris/go/timer"
	"github.com/frankbria/iris/go/types"
	"github.com/frankbria/iris/go/workerpool"
)

// Annotator is the optional external classifier asked whether a diff looks
// intentional. Its answer is recorded as an annotation and never affects
// pass/fail.
type Annotator interface {
	Annotate(ctx context.Context, out *diff.Outcome) (string, error)
}

// Config configures a test run.
type Config struct {
	// TestName namespaces artifacts and baselines.
	TestName string

	// Concurrency caps in-flight comparisons. <= 0 means 1.
	Concurrency int

	// TaskTimeout bounds a single task's capture and diff phases; on
	// expiry only that task records a timeout error.
	TaskTimeout time.Duration

	// RunTimeout bounds the whole run. Tasks not yet dispatched when it
	// fires are reported as cancelled.
	RunTimeout time.Duration

	// DiffOptions apply to every comparison in the run.
	DiffOptions diff.Options

	// BaselineRef is passed through to the baseline store's resolver.
	BaselineRef string

	// UpdateBaselines overwrites every baseline with the fresh capture
	// instead of comparing. An explicit action; never implied.
	UpdateBaselines bool
}

// Runner is the top-level facade. A single task's failure is reified into
// its result; Run only returns an error for conditions that prevent any
// task from proceeding.
type Runner struct {
	cfg       Config
	engine    *engine.Engine
	capturer  capture.Capturer
	baselines baseline.Store
	store     *storage.Manager
	annotator Annotator
}

func New(cfg Config, eng *engine.Engine, capturer capture.Capturer, baselines baseline.Store, store *storage.Manager) *Runner {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &Runner{
		cfg:       cfg,
		engine:    eng,
		capturer:  capturer,
		baselines: baselines,
		store:     store,
	}
}

// SetAnnotator attaches the optional diff annotator.
func (r *Runner) SetAnnotator(a Annotator) {
	r.annotator = a
}

type task struct {
	page   types.Page
	device types.Device
}

// Run executes the pages×devices matrix and aggregates the results.
//
// Exactly one ComparisonResult is recorded per dispatched task, failures
// included. Counters in the summary are derived from the final result
// slice, not incremented concurrently.
func (r *Runner) Run(ctx context.Context, pages []types.Page, devices []types.Device) (*types.TestRunResult, error) {
	defer timer.New("visual test run").Stop()
	start := time.Now()

	if r.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.RunTimeout)
		defer cancel()
	}

	tasks := make([]task, 0, len(pages)*len(devices))
	for _, p := range pages {
		for _, d := range devices {
			tasks = append(tasks, task{page: p, device: d})
		}
	}
	zap.S().Infof("running %d comparisons (%d pages × %d devices) at concurrency %d",
		len(tasks), len(pages), len(devices), r.cfg.Concurrency)

	// Diff overlays are persisted off the hot path; the comparison result
	// only needs the deterministic artifact path, not the finished write.
	saves := workerpool.New(r.cfg.Concurrency)
	out, err := workerpool.Run(ctx, tasks, r.cfg.Concurrency, func(taskCtx context.Context, _ int, t task) types.ComparisonResult {
		return r.compareOne(taskCtx, t, saves)
	})
	saves.Wait()
	if err != nil {
		// Only the orchestration invariant produces an error here; it
		// indicates a bug, not a test failure.
		return nil, errors.Wrap(err, "orchestrating comparisons")
	}

	results := make([]types.ComparisonResult, 0, len(out.Completed))
	for _, tr := range out.Completed {
		results = append(results, tr.Value)
	}
	cancelled := make([]types.TaskKey, 0, len(out.Pending))
	for _, idx := range out.Pending {
		cancelled = append(cancelled, types.TaskKey{
			Page:   tasks[idx].page.Name,
			Device: tasks[idx].device.Name,
		})
	}

	result := &types.TestRunResult{
		RunID:         uuid.NewString(),
		TestName:      r.cfg.TestName,
		Results:       results,
		Summary:       types.BuildSummary(results),
		Cancelled:     cancelled,
		OverallStatus: overallStatus(results, cancelled),
		Duration:      time.Since(start),
	}
	return result, nil
}

// Close releases the external collaborators.
func (r *Runner) Close() error {
	var result *multierror.Error
	if r.capturer != nil {
		if err := r.capturer.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

func overallStatus(results []types.ComparisonResult, cancelled []types.TaskKey) types.Status {
	if len(cancelled) > 0 {
		return types.StatusCancelled
	}
	for i := range results {
		if !results[i].Passed || results[i].Error != "" {
			return types.StatusFailed
		}
	}
	return types.StatusPassed
}

// compareOne is the unit of work. It never panics and never returns an
// error: all failures are reified into the ComparisonResult so a bad task
// cannot abort its siblings.
func (r *Runner) compareOne(ctx context.Context, t task, saves *workerpool.Pool) (res types.ComparisonResult) {
	start := time.Now()
	res = types.ComparisonResult{
		Page:      t.page.Name,
		Device:    t.device.Name,
		Threshold: r.cfg.DiffOptions.Threshold,
	}
	defer func() {
		if p := recover(); p != nil {
			r.fail(&res, errors.Errorf("panic in comparison task: %v", p))
		}
		res.Duration = time.Since(start)
	}()

	if r.cfg.TaskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.TaskTimeout)
		defer cancel()
	}

	current, err := r.capturer.Capture(ctx, t.page, t.device)
	if err != nil {
		r.fail(&res, taskError(ctx, err))
		return res
	}

	saved, err := r.store.SaveRaster(ctx, r.cfg.TestName,
		storage.ArtifactName(t.page.Name, t.device.Name, storage.KindCurrent),
		current, storage.SaveOptions{})
	if err != nil {
		r.fail(&res, err)
		return res
	}
	res.ScreenshotPath = saved.Path

	baseImg, err := r.baselines.Resolve(ctx, t.page.Name, t.device.Name, r.cfg.BaselineRef)
	if err != nil {
		r.fail(&res, err)
		return res
	}

	if baseImg == nil || r.cfg.UpdateBaselines {
		// First-run bootstrap (or an explicit update): the capture becomes
		// the baseline and the comparison trivially passes.
		if err := r.baselines.Store(ctx, t.page.Name, t.device.Name, current); err != nil {
			r.fail(&res, err)
			return res
		}
		res.BaselineCreated = baseImg == nil
		res.Passed = true
		res.Similarity = 1
		res.Severity = severity.Minor
		return res
	}

	cmp, err := r.engine.Compare(ctx, baseImg, current, r.cfg.DiffOptions)
	if err != nil {
		r.fail(&res, taskError(ctx, err))
		return res
	}

	res.Similarity = cmp.Outcome.Similarity
	res.PixelDifference = cmp.Outcome.PixelDifference
	res.Severity = cmp.Severity
	res.CacheHit = cmp.CacheHit
	res.Passed = cmp.Outcome.PixelDifference <= r.cfg.DiffOptions.Threshold

	if cmp.Outcome.DiffImage != nil {
		name := storage.ArtifactName(t.page.Name, t.device.Name, storage.KindDiff)
		res.DiffPath = r.store.ImagePath(r.cfg.TestName, name)
		// Detached from the task context so a task timeout firing after the
		// comparison cannot abandon a half-written overlay; Run waits for
		// the pool before returning.
		saveCtx := context.WithoutCancel(ctx)
		page, device, img := t.page.Name, t.device.Name, cmp.Outcome.DiffImage
		saves.Go(func() {
			_, err := r.store.SaveRaster(saveCtx, r.cfg.TestName, name, img, storage.SaveOptions{AutoOptimize: true})
			if err != nil {
				// The metrics stand on their own; losing the overlay is
				// worth a warning, not a failed comparison.
				zap.S().Warnf("saving diff image for %s/%s: %s", page, device, err)
			}
		})
	}

	if r.annotator != nil {
		if note, err := r.annotator.Annotate(ctx, cmp.Outcome); err != nil {
			zap.S().Warnf("annotating %s/%s: %s", t.page.Name, t.device.Name, err)
		} else {
			res.Annotation = note
		}
	}
	return res
}

func (r *Runner) fail(res *types.ComparisonResult, err error) {
	res.Passed = false
	res.Severity = severity.Error
	res.Error = err.Error()
}

// taskError prefixes deadline expiry so timeouts are distinguishable in
// reports from genuine capture or diff failures.
func taskError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("timeout: %w", err)
	}
	return err
}
