package report

import (
	"sync"
	"time"

	"github.com/devicelab-dev/portal-capture/pkg/core"
	"github.com/devicelab-dev/portal-capture/pkg/logger"
)

// LiveWriter keeps the report file current while a run progresses.
// Every update is flushed immediately; steps take seconds, so there is
// nothing to debounce.
type LiveWriter struct {
	mu     sync.Mutex
	path   string
	report *Report
	err    error // first write error
}

// NewLiveWriter creates a LiveWriter for report at path.
func NewLiveWriter(path string, report *Report) *LiveWriter {
	return &LiveWriter{path: path, report: report}
}

// Start marks the run as started.
func (w *LiveWriter) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.report.Status = StatusRunning
	w.report.StartTime = time.Now()
	w.flushLocked()
}

// StepStarted marks step idx as running.
func (w *LiveWriter) StepStarted(idx int) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if idx < 0 || idx >= len(w.report.Steps) {
		return
	}
	now := time.Now()
	w.report.Steps[idx].Status = StatusRunning
	w.report.Steps[idx].StartTime = &now
	w.flushLocked()
}

// StepCompleted records the outcome of a step.
func (w *LiveWriter) StepCompleted(res core.StepResult) {
	w.mu.Lock()
	defer w.mu.Unlock()

	entry := stepEntry(res)
	if res.Index >= len(w.report.Steps) {
		w.report.Steps = append(w.report.Steps, entry)
	} else {
		w.report.Steps[res.Index] = entry
	}
	w.flushLocked()
}

// SetAccount records the sub-account outcome after login.
func (w *LiveWriter) SetAccount(account core.AccountOutcome) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.report.Account = account.String()
	w.flushLocked()
}

// Finish applies the final run result.
func (w *LiveWriter) Finish(run *core.RunResult) {
	w.mu.Lock()
	defer w.mu.Unlock()

	applyRun(w.report, run)
	w.flushLocked()
}

// Fail marks the run as failed with err, for errors raised before a run
// result exists.
func (w *LiveWriter) Fail(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	w.report.EndTime = &now
	w.report.Duration = millis(now.Sub(w.report.StartTime))
	ApplyError(w.report, err)
	w.flushLocked()
}

// Report returns a copy of the current report.
func (w *LiveWriter) Report() Report {
	w.mu.Lock()
	defer w.mu.Unlock()

	r := *w.report
	r.Steps = append([]Step(nil), w.report.Steps...)
	return r
}

// Err returns the first write error, if any.
func (w *LiveWriter) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// flushLocked updates metadata and writes the report while holding the lock.
func (w *LiveWriter) flushLocked() {
	w.report.UpdateSeq++
	w.report.LastUpdated = time.Now()
	w.report.Summary = computeSummary(w.report.Steps)

	if err := Write(w.path, w.report); err != nil {
		logger.Warn("write report %s: %v", w.path, err)
		if w.err == nil {
			w.err = err
		}
	}
}
