package executor

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/devicelab-dev/portal-capture/pkg/artifact"
	"github.com/devicelab-dev/portal-capture/pkg/config"
	"github.com/devicelab-dev/portal-capture/pkg/core"
	"github.com/devicelab-dev/portal-capture/pkg/driver/mock"
)

var fixedNow = func() time.Time { return time.Date(2024, 5, 17, 9, 30, 0, 0, time.UTC) }

func newProcessor(t *testing.T, page core.Page) (*Processor, string) {
	t.Helper()
	dir := t.TempDir()
	return &Processor{
		Page:     page,
		Timeouts: config.DefaultTimeouts(),
		Scroll:   fastScroll(),
		Images:   &artifact.Writer{Dir: dir, Now: fixedNow},
	}, dir
}

func countFiles(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	return len(entries)
}

func TestProcess_SkipsStepWithMissingLink(t *testing.T) {
	page := mock.New(mock.Config{Elements: []*mock.Element{
		{Selector: "#ok-1", Visible: true, Navigates: true},
		{Selector: "#ok-3", Visible: true, Navigates: true},
	}})
	p, dir := newProcessor(t, page)

	steps := []config.StepConfig{
		{Name: "one", NavigationSelector: "#ok-1"},
		{Name: "two", NavigationSelector: "#never-visible"},
		{Name: "three", NavigationSelector: "#ok-3"},
		{Name: "four"},
	}

	var started []string
	p.OnStepStart = func(idx, total int, step config.StepConfig) {
		if total != 4 {
			t.Errorf("total = %d, want 4", total)
		}
		started = append(started, step.Name)
	}

	results := p.Process(context.Background(), steps)

	if len(results) != 4 || len(started) != 4 {
		t.Fatalf("attempted %d/%d steps, want 4", len(started), len(results))
	}
	want := []core.StepStatus{core.StatusPassed, core.StatusSkipped, core.StatusPassed, core.StatusPassed}
	for i, r := range results {
		if r.Status != want[i] {
			t.Errorf("step %d status = %s, want %s", i, r.Status, want[i])
		}
		if r.Index != i || r.Name != steps[i].Name {
			t.Errorf("step %d identity = %d/%q", i, r.Index, r.Name)
		}
	}
	if results[1].Error == "" || results[1].OutputPath != "" {
		t.Errorf("skipped step = %+v, want error and no output", results[1])
	}
	if results[1].Scroll.Status != core.ScrollNotRun {
		t.Errorf("skipped step scrolled: %+v", results[1].Scroll)
	}
	if got := countFiles(t, dir); got != 3 {
		t.Errorf("files written = %d, want 3", got)
	}
	if _, err := os.Stat(filepath.Join(dir, "one_2024-05-17.gif")); err != nil {
		t.Errorf("one_2024-05-17.gif: %v", err)
	}
}

func TestProcess_ToleratesMissingNavigation(t *testing.T) {
	page := mock.New(mock.Config{Elements: []*mock.Element{
		{Selector: "#tab", Visible: true}, // click works but never navigates
	}})
	p, _ := newProcessor(t, page)

	results := p.Process(context.Background(), []config.StepConfig{{Name: "tab", NavigationSelector: "#tab"}})

	if results[0].Status != core.StatusPassed {
		t.Errorf("Status = %s, want passed", results[0].Status)
	}
	if results[0].Navigation == nil || results[0].Navigation.Outcome != core.NoNavigationDetected {
		t.Errorf("Navigation = %+v, want no_navigation", results[0].Navigation)
	}
}

func TestProcess_FallbackEqualsFullPage(t *testing.T) {
	page := mock.New(mock.Config{})
	p, _ := newProcessor(t, page)

	results := p.Process(context.Background(), []config.StepConfig{
		{Name: "missing", ScreenshotSelector: "#does-not-exist"},
		{Name: "full"},
	})

	if results[0].Status != core.StatusFallback {
		t.Fatalf("Status = %s, want fallback", results[0].Status)
	}
	if results[0].Error != "" {
		t.Errorf("fallback recorded an error: %s", results[0].Error)
	}
	if results[1].Status != core.StatusPassed {
		t.Fatalf("full page Status = %s, want passed", results[1].Status)
	}

	fallback, err := os.ReadFile(results[0].OutputPath)
	if err != nil {
		t.Fatal(err)
	}
	full, err := os.ReadFile(results[1].OutputPath)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(fallback, full) {
		t.Error("fallback capture differs from a full page capture")
	}
}

func TestProcess_ElementCapture(t *testing.T) {
	page := mock.New(mock.Config{Elements: []*mock.Element{{Selector: "#table", Visible: true}}})
	p, _ := newProcessor(t, page)

	results := p.Process(context.Background(), []config.StepConfig{{Name: "table", ScreenshotSelector: "#table"}})

	if results[0].Status != core.StatusPassed || results[0].CaptureTarget != "#table" {
		t.Errorf("result = %+v, want passed capture of #table", results[0])
	}
	data, err := os.ReadFile(results[0].OutputPath)
	if err != nil {
		t.Fatal(err)
	}
	want, err := artifact.ToGrayscaleGIF(mock.ElementPNG())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, want) {
		t.Error("written image is not the element capture")
	}
}

func TestProcess_CaptureFailureDoesNotAbort(t *testing.T) {
	page := mock.New(mock.Config{ScreenshotErr: errors.New("target closed")})
	p, dir := newProcessor(t, page)

	var completed int
	p.OnStepComplete = func(idx, total int, r core.StepResult) { completed++ }

	results := p.Process(context.Background(), []config.StepConfig{{Name: "a"}, {Name: "b"}})

	if completed != 2 {
		t.Errorf("completed = %d, want 2", completed)
	}
	for _, r := range results {
		if r.Status != core.StatusFailed || r.Error == "" {
			t.Errorf("result = %+v, want failed with error", r)
		}
	}
	if got := countFiles(t, dir); got != 0 {
		t.Errorf("files written = %d, want 0", got)
	}
}

func TestProcess_ScrollFailureStillCaptures(t *testing.T) {
	page := mock.New(mock.Config{ScrollErr: errors.New("evaluate failed")})
	p, _ := newProcessor(t, page)

	results := p.Process(context.Background(), []config.StepConfig{{Name: "a"}})

	if results[0].Status != core.StatusPassed {
		t.Errorf("Status = %s, want passed", results[0].Status)
	}
	if results[0].Scroll.Status != core.ScrollFailed {
		t.Errorf("Scroll = %s, want failed", results[0].Scroll.Status)
	}
}

func TestProcess_CancelledSkipsRemaining(t *testing.T) {
	page := mock.New(mock.Config{})
	p, _ := newProcessor(t, page)
	ctx, cancel := context.WithCancel(context.Background())

	p.OnStepComplete = func(idx, total int, r core.StepResult) {
		if idx == 0 {
			cancel()
		}
	}

	results := p.Process(ctx, []config.StepConfig{{Name: "a"}, {Name: "b"}, {Name: "c"}})

	if results[0].Status != core.StatusPassed {
		t.Errorf("step 0 = %s, want passed", results[0].Status)
	}
	for _, r := range results[1:] {
		if r.Status != core.StatusSkipped || r.Message != "run cancelled" {
			t.Errorf("step %d = %+v, want skipped as cancelled", r.Index, r)
		}
	}
}

func TestCaptureTarget(t *testing.T) {
	page := mock.New(mock.Config{Elements: []*mock.Element{{Selector: "#chart", Visible: true}}})

	tests := []struct {
		selector string
		target   string
		fallback bool
	}{
		{"", "", false},
		{"body", "", false},
		{"html", "", false},
		{"#chart", "#chart", false},
		{"#gone", "", true},
	}

	for _, tt := range tests {
		shot, err := CaptureTarget(page, tt.selector)
		if err != nil {
			t.Errorf("CaptureTarget(%q) error = %v", tt.selector, err)
			continue
		}
		if shot.Target != tt.target || shot.Fallback != tt.fallback {
			t.Errorf("CaptureTarget(%q) = target %q fallback %v, want %q %v",
				tt.selector, shot.Target, shot.Fallback, tt.target, tt.fallback)
		}
		if len(shot.Data) == 0 {
			t.Errorf("CaptureTarget(%q) returned no data", tt.selector)
		}
	}
}
