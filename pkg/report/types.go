// Package report provides the JSON run report.
//
// The report is a single file, rewritten atomically on every update so a
// consumer polling it always reads a complete document:
//   - status and summary reflect the steps processed so far
//   - updateSeq increases on every write
//   - image paths are listed per step, never inline data
package report

import "time"

// Version is the report schema version.
const Version = "1.0.0"

// Status represents the run or step status.
type Status string

// Status values.
const (
	StatusPending  Status = "pending"
	StatusRunning  Status = "running"
	StatusPassed   Status = "passed"
	StatusFallback Status = "fallback"
	StatusSkipped  Status = "skipped"
	StatusFailed   Status = "failed"
)

// IsTerminal returns true if the status is a final state.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusPassed, StatusFallback, StatusSkipped, StatusFailed:
		return true
	}
	return false
}

// Mode values.
const (
	ModeFlow   = "flow"
	ModeLegacy = "legacy"
)

// Report is the run report written to --report.
type Report struct {
	Version     string     `json:"version"`
	RunID       string     `json:"runId"`
	UpdateSeq   uint64     `json:"updateSeq"`
	Status      Status     `json:"status"`
	StartTime   time.Time  `json:"startTime"`
	EndTime     *time.Time `json:"endTime,omitempty"`
	Duration    *int64     `json:"duration,omitempty"` // milliseconds
	LastUpdated time.Time  `json:"lastUpdated"`
	Mode        string     `json:"mode"`
	Source      string     `json:"source,omitempty"`
	BaseURL     string     `json:"baseUrl"`
	Account     string     `json:"account"`
	Runner      RunnerInfo `json:"runner"`
	Summary     Summary    `json:"summary"`
	Steps       []Step     `json:"steps"`
	Error       *Error     `json:"error,omitempty"`
}

// RunnerInfo describes the tool that produced the report.
type RunnerInfo struct {
	Version string `json:"version"`
	Driver  string `json:"driver"` // chromium, mock
}

// Summary contains aggregated step counts.
type Summary struct {
	Total    int `json:"total"`
	Passed   int `json:"passed"`
	Fallback int `json:"fallback"`
	Failed   int `json:"failed"`
	Skipped  int `json:"skipped"`
	Running  int `json:"running"`
	Pending  int `json:"pending"`
}

// Step is the report entry for one step.
type Step struct {
	Index         int        `json:"index"`
	Name          string     `json:"name"`
	Status        Status     `json:"status"`
	StartTime     *time.Time `json:"startTime,omitempty"`
	Duration      *int64     `json:"duration,omitempty"` // milliseconds
	Navigation    string     `json:"navigation,omitempty"`
	Scroll        *Scroll    `json:"scroll,omitempty"`
	CaptureTarget string     `json:"captureTarget,omitempty"`
	Output        string     `json:"output,omitempty"`
	Message       string     `json:"message,omitempty"`
	Error         *Error     `json:"error,omitempty"`
}

// Scroll is the outcome of a step's auto-scroll pass.
type Scroll struct {
	Status     string `json:"status"` // completed, partial, failed
	Iterations int    `json:"iterations"`
	Offset     int    `json:"offset"`
}

// Error contains error details.
type Error struct {
	Type    string `json:"type"` // config, element, timeout, navigation, step, consent, browser
	Message string `json:"message"`
}
