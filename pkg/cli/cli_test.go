package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/portal-capture/pkg/core"
	"github.com/devicelab-dev/portal-capture/pkg/report"
)

// captureStdout redirects console output for the duration of a test.
func captureStdout(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := stdout
	stdout = &buf
	t.Cleanup(func() { stdout = prev })
	return &buf
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const testFlow = `
baseUrl: https://portal.example.com
login:
  url: /login
steps:
  - name: home
  - name: reports
    navigationSelector: "#reports"
    screenshotSelector: "#table"
`

func TestParseEnvVars_Valid(t *testing.T) {
	result := parseEnvVars([]string{"USER=test", "PASSWORD=secret"})
	if result["USER"] != "test" || result["PASSWORD"] != "secret" {
		t.Errorf("parseEnvVars() = %v", result)
	}
}

func TestParseEnvVars_ValueWithEquals(t *testing.T) {
	result := parseEnvVars([]string{"PASSWORD=a=b=c"})
	if result["PASSWORD"] != "a=b=c" {
		t.Errorf("expected a=b=c, got %s", result["PASSWORD"])
	}
}

func TestParseEnvVars_InvalidFormat(t *testing.T) {
	result := parseEnvVars([]string{"NOEQUALS"})
	if len(result) != 0 {
		t.Errorf("expected empty map, got %v", result)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		ms   int64
		want string
	}{
		{0, "0ms"},
		{999, "999ms"},
		{1000, "1.0s"},
		{12345, "12.3s"},
		{60000, "1m 0s"},
		{125000, "2m 5s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.ms); got != tt.want {
			t.Errorf("formatDuration(%d) = %q, want %q", tt.ms, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate() = %q", got)
	}
	if got := truncate("zażółć gęślą jaźń", 10); got != "zażółć ..." {
		t.Errorf("truncate() = %q", got)
	}
}

func TestExitCode(t *testing.T) {
	if got := exitCode(cli.Exit("bad", 1)); got != 1 {
		t.Errorf("exitCode(Exit 1) = %d", got)
	}
	if got := exitCode(cli.Exit("interrupted", 130)); got != 130 {
		t.Errorf("exitCode(Exit 130) = %d", got)
	}
	if got := exitCode(errors.New("flag provided but not defined")); got != 1 {
		t.Errorf("exitCode(plain) = %d", got)
	}
}

func TestStatusSymbol(t *testing.T) {
	tests := map[core.StepStatus]string{
		core.StatusPassed:   "✓",
		core.StatusFallback: "⚠",
		core.StatusSkipped:  "↷",
		core.StatusFailed:   "✗",
	}
	for status, want := range tests {
		if got, _ := statusSymbol(status); got != want {
			t.Errorf("statusSymbol(%s) = %q, want %q", status, got, want)
		}
	}
}

func TestGlobalFlags(t *testing.T) {
	names := make(map[string]bool)
	for _, f := range GlobalFlags {
		for _, n := range f.Names() {
			names[n] = true
		}
	}
	for _, want := range []string{"config", "c", "headless", "output", "o", "report", "log-file", "verbose", "no-color", "dry-run", "viewport", "env", "e"} {
		if !names[want] {
			t.Errorf("missing global flag %q", want)
		}
	}
}

func TestNewApp_Commands(t *testing.T) {
	app := NewApp()
	for _, name := range []string{"capture", "validate", "install", "status"} {
		if app.Command(name) == nil {
			t.Errorf("missing command %q", name)
		}
	}
	if app.Action == nil {
		t.Error("root action not set")
	}
}

func TestRun_DryRun(t *testing.T) {
	captureStdout(t)
	dir := t.TempDir()
	flowPath := writeFile(t, dir, "flow.yaml", testFlow)
	outDir := filepath.Join(dir, "out")
	reportPath := filepath.Join(dir, "run.json")

	err := NewApp().Run([]string{
		"portal-capture",
		"--config", flowPath,
		"--output", outDir,
		"--report", reportPath,
		"--dry-run", "--no-color",
		"-e", "LOGIN_USERNAME=u",
		"-e", "PASSWORD=p",
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	date := time.Now().Format("2006-01-02")
	for _, name := range []string{"home", "reports"} {
		if _, err := os.Stat(filepath.Join(outDir, name+"_"+date+".gif")); err != nil {
			t.Errorf("missing image for %s: %v", name, err)
		}
	}

	r, err := report.Read(reportPath)
	if err != nil {
		t.Fatalf("report.Read() error = %v", err)
	}
	if r.Status != report.StatusPassed || r.Summary.Passed != 2 {
		t.Errorf("report status = %s, summary = %+v", r.Status, r.Summary)
	}
	if r.Runner.Driver != "mock" || r.Mode != report.ModeFlow {
		t.Errorf("report runner = %+v, mode = %s", r.Runner, r.Mode)
	}
}

func TestRun_InvalidFlow(t *testing.T) {
	out := captureStdout(t)
	dir := t.TempDir()
	flowPath := writeFile(t, dir, "flow.yaml", "baseUrl: portal.example.com\nsteps:\n  - name: a/b\n")

	err := NewApp().Run([]string{
		"portal-capture", "--config", flowPath, "--dry-run", "--no-color",
		"-e", "LOGIN_USERNAME=u", "-e", "PASSWORD=p",
	})
	if err == nil {
		t.Fatal("expected error for invalid flow")
	}
	if exitCode(err) != 1 {
		t.Errorf("exitCode = %d, want 1", exitCode(err))
	}
	if !strings.Contains(out.String(), "path separators") {
		t.Errorf("output does not list the validation error:\n%s", out.String())
	}
}

func TestRun_UnexpectedArgument(t *testing.T) {
	captureStdout(t)
	err := NewApp().Run([]string{"portal-capture", "flow.yaml"})
	if err == nil || !strings.Contains(err.Error(), "--config") {
		t.Errorf("Run() error = %v, want hint about --config", err)
	}
}

func TestRun_InvalidViewport(t *testing.T) {
	captureStdout(t)
	err := NewApp().Run([]string{"portal-capture", "--viewport", "big", "--dry-run"})
	if err == nil || !strings.Contains(err.Error(), "viewport") {
		t.Errorf("Run() error = %v, want viewport error", err)
	}
}

func TestValidateCommand(t *testing.T) {
	out := captureStdout(t)
	dir := t.TempDir()
	flowPath := writeFile(t, dir, "flow.yaml", testFlow)

	err := NewApp().Run([]string{
		"portal-capture", "--config", flowPath, "--no-color",
		"-e", "LOGIN_USERNAME=u", "-e", "PASSWORD=p",
		"validate",
	})
	if err != nil {
		t.Fatalf("validate error = %v", err)
	}
	if !strings.Contains(out.String(), "is valid (2 steps)") {
		t.Errorf("output = %q", out.String())
	}
}

func TestValidateCommand_MissingFile(t *testing.T) {
	captureStdout(t)
	err := NewApp().Run([]string{
		"portal-capture", "--config", filepath.Join(t.TempDir(), "missing.yaml"), "validate",
	})
	if err == nil {
		t.Error("expected error for missing flow document")
	}
}

func TestCaptureCommand_DryRun(t *testing.T) {
	captureStdout(t)
	outDir := t.TempDir()

	err := NewApp().Run([]string{
		"portal-capture", "--output", outDir, "--dry-run", "--no-color",
		"-e", "LOGIN_URL=https://portal.example.com/login",
		"-e", "LOGIN_USERNAME=u",
		"-e", "PASSWORD=p",
		"-e", "TARGET_URL=https://portal.example.com/dashboard",
		"-e", "ACCOUNT_NAME=",
		"capture",
	})
	if err != nil {
		t.Fatalf("capture error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(outDir, "output.gif")); err != nil {
		t.Errorf("output.gif missing: %v", err)
	}
}

func TestCaptureCommand_MissingEnv(t *testing.T) {
	captureStdout(t)
	t.Setenv("LOGIN_URL", "")
	t.Setenv("TARGET_URL", "")

	err := NewApp().Run([]string{"portal-capture", "--dry-run", "capture"})
	if err == nil {
		t.Fatal("expected error for missing variables")
	}
	if !strings.Contains(err.Error(), "LOGIN_URL") {
		t.Errorf("error = %v, want the missing variable named", err)
	}
}

func TestPrintSummary(t *testing.T) {
	out := captureStdout(t)
	result := &core.RunResult{
		Duration: 3 * time.Second,
		Steps: []core.StepResult{
			{Name: "home", Status: core.StatusPassed, OutputPath: "home_2024-05-17.gif"},
			{Name: "reports", Status: core.StatusSkipped},
			{Name: "invoices", Status: core.StatusFallback, OutputPath: "invoices_2024-05-17.gif"},
		},
	}
	result.ComputeSummary()

	printSummary(result)

	s := out.String()
	for _, want := range []string{"1 steps captured", "1 steps skipped", "full page instead", "home_2024-05-17.gif", "TOTAL", "2/3"} {
		if !strings.Contains(s, want) {
			t.Errorf("summary missing %q:\n%s", want, s)
		}
	}

	out.Reset()
	printSummary(nil)
	if out.Len() != 0 {
		t.Error("printSummary(nil) printed output")
	}
}

func TestRun_DryRunRepeatedStepName(t *testing.T) {
	out := captureStdout(t)
	dir := t.TempDir()
	flowPath := writeFile(t, dir, "flow.yaml", `
baseUrl: https://portal.example.com
login:
  url: /login
steps:
  - name: home
  - name: home
    navigationSelector: "#next"
`)
	outDir := filepath.Join(dir, "out")

	err := NewApp().Run([]string{
		"portal-capture", "--config", flowPath, "--output", outDir, "--dry-run", "--no-color",
		"-e", "LOGIN_USERNAME=u", "-e", "PASSWORD=p",
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(out.String(), `step name "home" repeats steps[0]`) {
		t.Errorf("output does not warn about the repeated name:\n%s", out.String())
	}
	date := time.Now().Format("2006-01-02")
	if _, err := os.Stat(filepath.Join(outDir, "home_"+date+".gif")); err != nil {
		t.Errorf("missing image: %v", err)
	}
}

func TestStatusCommand(t *testing.T) {
	out := captureStdout(t)
	path := filepath.Join(t.TempDir(), "run.json")
	r := &report.Report{
		RunID:     "run-1",
		UpdateSeq: 4,
		Status:    report.StatusRunning,
		Mode:      report.ModeFlow,
		Summary:   report.Summary{Total: 3, Passed: 1, Running: 1, Pending: 1},
		Steps: []report.Step{
			{Index: 0, Name: "home", Status: report.StatusPassed, Output: "home_2024-05-17.gif"},
			{Index: 1, Name: "reports", Status: report.StatusRunning},
			{Index: 2, Name: "invoices", Status: report.StatusPending},
		},
	}
	if err := report.Write(path, r); err != nil {
		t.Fatal(err)
	}

	if err := NewApp().Run([]string{"portal-capture", "--no-color", "status", path}); err != nil {
		t.Fatalf("status error = %v", err)
	}

	s := out.String()
	for _, want := range []string{"run-1", "RUNNING", "update #4", "1/3 steps done", "home → home_2024-05-17.gif", "invoices"} {
		if !strings.Contains(s, want) {
			t.Errorf("status output missing %q:\n%s", want, s)
		}
	}
}

func TestStatusCommand_ReportFlag(t *testing.T) {
	captureStdout(t)
	err := NewApp().Run([]string{"portal-capture", "--report", filepath.Join(t.TempDir(), "missing.json"), "status"})
	if err == nil || exitCode(err) != 1 {
		t.Errorf("error = %v, want exit 1 for a missing report", err)
	}

	err = NewApp().Run([]string{"portal-capture", "status"})
	if err == nil || !strings.Contains(err.Error(), "report path required") {
		t.Errorf("error = %v, want a missing path error", err)
	}
}
