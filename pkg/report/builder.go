package report

import (
	"time"

	"github.com/google/uuid"

	"github.com/devicelab-dev/portal-capture/pkg/config"
	"github.com/devicelab-dev/portal-capture/pkg/core"
)

// Meta describes how the run was started.
type Meta struct {
	Mode          string // ModeFlow or ModeLegacy
	RunnerVersion string
	Driver        string
}

// BuildSkeleton creates the initial report from a parsed flow.
// All steps are set to "pending". Called after validation, before the
// browser is launched.
func BuildSkeleton(flow *config.FlowConfig, meta Meta) *Report {
	now := time.Now()
	r := &Report{
		Version:     Version,
		RunID:       uuid.NewString(),
		Status:      StatusPending,
		StartTime:   now,
		LastUpdated: now,
		Mode:        meta.Mode,
		Source:      flow.SourcePath,
		BaseURL:     flow.BaseURL,
		Account:     core.AccountNotRequested.String(),
		Runner:      RunnerInfo{Version: meta.RunnerVersion, Driver: meta.Driver},
		Steps:       make([]Step, len(flow.Steps)),
	}
	for i, s := range flow.Steps {
		r.Steps[i] = Step{Index: i, Name: s.Name, Status: StatusPending}
	}
	r.Summary = computeSummary(r.Steps)
	return r
}

// Build creates a complete report from a finished run.
func Build(run *core.RunResult, meta Meta) *Report {
	r := &Report{
		Version: Version,
		RunID:   uuid.NewString(),
		Mode:    meta.Mode,
		Runner:  RunnerInfo{Version: meta.RunnerVersion, Driver: meta.Driver},
	}
	applyRun(r, run)
	return r
}

// applyRun copies the final run outcome into r.
func applyRun(r *Report, run *core.RunResult) {
	end := run.StartTime.Add(run.Duration)
	r.StartTime = run.StartTime
	r.EndTime = &end
	r.Duration = millis(run.Duration)
	r.LastUpdated = end
	r.Source = run.Source
	r.BaseURL = run.BaseURL
	r.Account = run.Account.String()

	steps := make([]Step, len(run.Steps))
	for i, s := range run.Steps {
		steps[i] = stepEntry(s)
	}
	// Steps the run never reached keep their pending entries.
	if len(steps) < len(r.Steps) {
		steps = append(steps, r.Steps[len(steps):]...)
	}
	r.Steps = steps
	r.Summary = computeSummary(r.Steps)

	if run.Error != "" {
		r.Error = &Error{Type: run.Category.String(), Message: run.Error}
	}
	r.Status = runStatus(run)
}

// ApplyError records an error that ended the run before a result existed.
func ApplyError(r *Report, err error) {
	r.Error = errorEntry(err)
	r.Status = StatusFailed
}

func errorEntry(err error) *Error {
	return &Error{Type: core.CategoryOf(err).String(), Message: err.Error()}
}

func runStatus(run *core.RunResult) Status {
	if run.Success() {
		return StatusPassed
	}
	return StatusFailed
}

// stepEntry converts a step result into its report entry.
func stepEntry(s core.StepResult) Step {
	e := Step{
		Index:         s.Index,
		Name:          s.Name,
		Status:        Status(s.Status.String()),
		CaptureTarget: s.CaptureTarget,
		Output:        s.OutputPath,
		Message:       s.Message,
	}
	if !s.StartTime.IsZero() {
		start := s.StartTime
		e.StartTime = &start
		e.Duration = millis(s.Duration)
	}
	if s.Navigation != nil {
		e.Navigation = s.Navigation.Outcome.String()
	}
	if s.Scroll.Status != core.ScrollNotRun {
		e.Scroll = &Scroll{
			Status:     s.Scroll.Status.String(),
			Iterations: s.Scroll.Iterations,
			Offset:     s.Scroll.Offset,
		}
	}
	if s.Error != "" {
		e.Error = &Error{Type: s.Category.String(), Message: s.Error}
	}
	return e
}

// computeSummary calculates the summary from step statuses.
func computeSummary(steps []Step) Summary {
	var s Summary
	for _, step := range steps {
		s.Total++
		switch step.Status {
		case StatusPassed:
			s.Passed++
		case StatusFallback:
			s.Fallback++
		case StatusFailed:
			s.Failed++
		case StatusSkipped:
			s.Skipped++
		case StatusRunning:
			s.Running++
		case StatusPending:
			s.Pending++
		}
	}
	return s
}

func millis(d time.Duration) *int64 {
	ms := d.Milliseconds()
	return &ms
}
