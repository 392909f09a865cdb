package core

import (
	"time"
)

// ScrollStatus describes how an auto-scroll pass ended
type ScrollStatus int

const (
	ScrollNotRun    ScrollStatus = iota // Step ended before scrolling
	ScrollCompleted                     // Reached the bottom of the page
	ScrollPartial                       // Stopped at the iteration bound
	ScrollFailed                        // Page scripting failed
)

// String returns the string representation of ScrollStatus
func (s ScrollStatus) String() string {
	switch s {
	case ScrollCompleted:
		return "completed"
	case ScrollPartial:
		return "partial"
	case ScrollFailed:
		return "failed"
	default:
		return "not_run"
	}
}

// MarshalText implements encoding.TextMarshaler
func (s ScrollStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ScrollResult captures the outcome of one auto-scroll pass
type ScrollResult struct {
	Status     ScrollStatus `json:"status"`
	Iterations int          `json:"iterations"`
	Offset     int          `json:"offset"` // Accumulated scroll distance in px
}

// AccountOutcome describes the sub-account selection after login
type AccountOutcome int

const (
	AccountNotRequested AccountOutcome = iota // No account name configured
	AccountSelected                           // Link clicked and navigation observed
	AccountNotFound                           // Link never became visible, session left on post-login page
)

// String returns the string representation of AccountOutcome
func (a AccountOutcome) String() string {
	switch a {
	case AccountSelected:
		return "selected"
	case AccountNotFound:
		return "not_found"
	default:
		return "not_requested"
	}
}

// MarshalText implements encoding.TextMarshaler
func (a AccountOutcome) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// StepResult captures the complete outcome of processing a single step
type StepResult struct {
	// Identity
	Index int    `json:"index"` // 0-based position in the flow
	Name  string `json:"name"`

	// Status
	Status   StepStatus    `json:"status"`
	Category ErrorCategory `json:"-"`

	// Timing
	StartTime time.Time     `json:"startTime"`
	Duration  time.Duration `json:"duration"`

	// Phases
	Navigation    *Navigation  `json:"navigation,omitempty"` // nil when the step has no navigation selector
	Scroll        ScrollResult `json:"scroll"`
	CaptureTarget string       `json:"captureTarget,omitempty"` // Selector captured, "" for full page
	OutputPath    string       `json:"outputPath,omitempty"`

	// Output
	Message string `json:"message,omitempty"` // Human-readable explanation
	Error   string `json:"error,omitempty"`   // Technical error message
}

// RunResult captures the complete outcome of one flow run
type RunResult struct {
	// Identity
	Source  string `json:"source,omitempty"` // Flow file path, or "legacy"
	BaseURL string `json:"baseUrl"`

	// Timing
	StartTime time.Time     `json:"startTime"`
	Duration  time.Duration `json:"duration"`

	// Results
	Account AccountOutcome `json:"account"`
	Steps   []StepResult   `json:"steps"`

	// Summary (computed)
	TotalSteps    int `json:"totalSteps"`
	PassedSteps   int `json:"passedSteps"`
	FallbackSteps int `json:"fallbackSteps"`
	SkippedSteps  int `json:"skippedSteps"`
	FailedSteps   int `json:"failedSteps"`

	// Error info (if the run aborted)
	Error    string        `json:"error,omitempty"`
	Category ErrorCategory `json:"-"`
}

// ComputeSummary calculates step counts from the Steps slice
func (r *RunResult) ComputeSummary() {
	r.TotalSteps = len(r.Steps)
	r.PassedSteps = 0
	r.FallbackSteps = 0
	r.SkippedSteps = 0
	r.FailedSteps = 0

	for _, step := range r.Steps {
		switch step.Status {
		case StatusPassed:
			r.PassedSteps++
		case StatusFallback:
			r.FallbackSteps++
		case StatusSkipped:
			r.SkippedSteps++
		case StatusFailed:
			r.FailedSteps++
		}
	}
}

// Outputs returns the paths of all written images, in step order
func (r *RunResult) Outputs() []string {
	var paths []string
	for _, step := range r.Steps {
		if step.OutputPath != "" {
			paths = append(paths, step.OutputPath)
		}
	}
	return paths
}

// Success returns true if the run completed and no step failed.
// Skipped and fallback steps do not count as failures.
func (r *RunResult) Success() bool {
	if r.Error != "" {
		return false
	}
	for _, step := range r.Steps {
		if step.Status == StatusFailed {
			return false
		}
	}
	return true
}
