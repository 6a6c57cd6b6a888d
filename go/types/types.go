// Package types holds the data model shared between the runner, the CLI and
// report consumers. The JSON shape of ComparisonResult and TestRunResult is
// the contract with external reporters; keep it stable.
package types

import (
	"time"

	"github.com/frankbria/iris/go/severity"
)

// Page identifies an application surface under test.
type Page struct {
	// Name is a stable identifier used in artifact paths.
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Device is a viewport configuration a page is rendered at.
type Device struct {
	Name   string  `json:"name"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Scale  float64 `json:"scale,omitempty"`
	Mobile bool    `json:"mobile,omitempty"`
}

// ComparisonResult is the outcome of one page×device comparison. Written
// exactly once, then immutable.
type ComparisonResult struct {
	Page   string `json:"page"`
	Device string `json:"device"`

	Passed          bool              `json:"passed"`
	Similarity      float64           `json:"similarity"`
	PixelDifference float64           `json:"pixel_difference"`
	Threshold       float64           `json:"threshold"`
	Severity        severity.Severity `json:"severity"`

	ScreenshotPath string `json:"screenshot_path,omitempty"`
	DiffPath       string `json:"diff_path,omitempty"`

	// Error is set when capture, diff or persistence failed for this task.
	// Task failures never abort sibling tasks.
	Error string `json:"error,omitempty"`

	// BaselineCreated is true for first-run bootstrap: no baseline existed,
	// the capture became one, and the result counts as passed.
	BaselineCreated bool `json:"baseline_created"`

	// Annotation is an optional note from an external classifier about
	// whether the diff looks intentional. Informational only.
	Annotation string `json:"annotation,omitempty"`

	CacheHit bool          `json:"cache_hit"`
	Duration time.Duration `json:"duration"`
}

// Status is the aggregate verdict of a run.
type Status string

const (
	StatusPassed    Status = "passed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Summary aggregates a run's results. Counters are computed by summing the
// final result slice, never incremented from concurrent contexts.
type Summary struct {
	TotalComparisons int                       `json:"total_comparisons"`
	Passed           int                       `json:"passed"`
	Failed           int                       `json:"failed"`
	BySeverity       map[severity.Severity]int `json:"by_severity"`
}

// TaskKey identifies a submitted comparison that did not run because the
// run was cancelled first.
type TaskKey struct {
	Page   string `json:"page"`
	Device string `json:"device"`
}

// TestRunResult is the full outcome of a run.
//
// Invariant: len(Results) == Summary.TotalComparisons. When the run was
// cancelled before all tasks dispatched, the undispatched tasks appear in
// Cancelled and are not counted in the summary; the partition is explicit
// rather than pretending the run completed.
type TestRunResult struct {
	RunID    string             `json:"run_id"`
	TestName string             `json:"test_name"`
	Results  []ComparisonResult `json:"results"`
	Summary  Summary            `json:"summary"`

	// Cancelled lists submitted-but-never-completed tasks; empty on a full
	// run.
	Cancelled []TaskKey `json:"cancelled,omitempty"`

	OverallStatus Status        `json:"overall_status"`
	Duration      time.Duration `json:"duration"`
}

// BuildSummary computes the aggregate counters from a final result slice.
func BuildSummary(results []ComparisonResult) Summary {
	s := Summary{
		TotalComparisons: len(results),
		BySeverity:       map[severity.Severity]int{},
	}
	for i := range results {
		if results[i].Passed {
			s.Passed++
		} else {
			s.Failed++
		}
		s.BySeverity[results[i].Severity]++
	}
	return s
}
