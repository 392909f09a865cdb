package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/devicelab-dev/portal-capture/pkg/auth"
	"github.com/devicelab-dev/portal-capture/pkg/config"
	"github.com/devicelab-dev/portal-capture/pkg/core"
	"github.com/devicelab-dev/portal-capture/pkg/report"
	"github.com/devicelab-dev/portal-capture/pkg/validator"
)

// stdout receives console output; logs go to stderr.
var stdout io.Writer = color.Output

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

func printBanner() {
	fmt.Fprintln(stdout)
	fmt.Fprintf(stdout, "  %s %s\n", bold("portal-capture"), gray(Version))
	fmt.Fprintln(stdout)
}

// printSetupStep prints a setup step with spinner-style prefix
func printSetupStep(msg string) {
	fmt.Fprintf(stdout, "  %s %s\n", cyan("⏳"), msg)
}

// printSetupSuccess prints a success message for setup
func printSetupSuccess(msg string) {
	fmt.Fprintf(stdout, "  %s %s\n", green("✓"), msg)
}

func printValidation(r *validator.Result) {
	for _, w := range r.Warnings {
		fmt.Fprintf(stdout, "  %s %s\n", yellow("⚠"), w)
	}
	for _, err := range r.Errors {
		fmt.Fprintf(stdout, "  %s %v\n", red("✗"), err)
	}
}

func onLogin(res *auth.Result) {
	printSetupSuccess("Logged in at " + res.LoginURL)
	switch res.Account {
	case core.AccountSelected:
		printSetupSuccess("Account selected")
	case core.AccountNotFound:
		fmt.Fprintf(stdout, "  %s Account not found, continuing on the current page\n", yellow("⚠"))
	}
	fmt.Fprintln(stdout, strings.Repeat("─", 60))
}

// Live progress callbacks
func onStepStart(idx, total int, step config.StepConfig) {
	fmt.Fprintf(stdout, "\n  %s %s\n", cyan(fmt.Sprintf("[%d/%d]", idx+1, total)), bold(step.Name))
}

func onStepComplete(res core.StepResult) {
	symbol, paint := statusSymbol(res.Status)
	desc := res.Name
	if res.OutputPath != "" {
		desc += " → " + res.OutputPath
	}
	fmt.Fprintf(stdout, "    %s %s %s\n", paint(symbol), desc, gray("("+formatDuration(res.Duration.Milliseconds())+")"))

	detail := res.Error
	if detail == "" {
		detail = res.Message
	}
	if detail != "" {
		fmt.Fprintf(stdout, "      %s %s\n", gray("╰─"), detail)
	}
}

func statusSymbol(s core.StepStatus) (string, func(a ...interface{}) string) {
	switch s {
	case core.StatusPassed:
		return "✓", green
	case core.StatusFallback:
		return "⚠", yellow
	case core.StatusSkipped:
		return "↷", cyan
	case core.StatusFailed:
		return "✗", red
	default:
		return "-", gray
	}
}

// reportSymbol maps a report status onto the console symbols.
func reportSymbol(s report.Status) (string, func(a ...interface{}) string) {
	switch s {
	case report.StatusPassed:
		return statusSymbol(core.StatusPassed)
	case report.StatusFallback:
		return statusSymbol(core.StatusFallback)
	case report.StatusSkipped:
		return statusSymbol(core.StatusSkipped)
	case report.StatusFailed:
		return statusSymbol(core.StatusFailed)
	case report.StatusRunning:
		return "⏳", cyan
	default:
		return "·", gray
	}
}

func printReport(r *report.Report) {
	symbol, paint := reportSymbol(r.Status)
	fmt.Fprintf(stdout, "  %s %s %s\n", bold("Run"), r.RunID, paint(symbol+" "+strings.ToUpper(string(r.Status))))
	fmt.Fprintf(stdout, "  %s, update #%d at %s\n", r.Mode, r.UpdateSeq, r.LastUpdated.Format(time.RFC3339))

	sum := r.Summary
	done := sum.Total - sum.Pending - sum.Running
	fmt.Fprintf(stdout, "  %d/%d steps done: %d passed, %d fallback, %d skipped, %d failed\n",
		done, sum.Total, sum.Passed, sum.Fallback, sum.Skipped, sum.Failed)

	for _, step := range r.Steps {
		symbol, paint := reportSymbol(step.Status)
		desc := step.Name
		if step.Output != "" {
			desc += " → " + step.Output
		}
		fmt.Fprintf(stdout, "    %s %s\n", paint(symbol), desc)
		if step.Error != nil {
			fmt.Fprintf(stdout, "      %s %s\n", gray("╰─"), step.Error.Message)
		}
	}
	if r.Error != nil {
		fmt.Fprintf(stdout, "  %s %s\n", red("✗"), r.Error.Message)
	}
}

func printSummary(result *core.RunResult) {
	if result == nil {
		return
	}

	fmt.Fprintln(stdout)
	if result.PassedSteps > 0 {
		fmt.Fprintf(stdout, "  %s (%s)\n", green(fmt.Sprintf("%d steps captured", result.PassedSteps)), formatDuration(result.Duration.Milliseconds()))
	}
	if result.FallbackSteps > 0 {
		fmt.Fprintf(stdout, "  %s\n", yellow(fmt.Sprintf("%d steps captured the full page instead", result.FallbackSteps)))
	}
	if result.SkippedSteps > 0 {
		fmt.Fprintf(stdout, "  %s\n", cyan(fmt.Sprintf("%d steps skipped", result.SkippedSteps)))
	}
	if result.FailedSteps > 0 {
		fmt.Fprintf(stdout, "  %s\n", red(fmt.Sprintf("%d steps failing", result.FailedSteps)))
	}
	if result.Error != "" {
		fmt.Fprintf(stdout, "  %s %s\n", red("✗"), result.Error)
	}
	if len(result.Steps) == 0 {
		fmt.Fprintln(stdout)
		return
	}
	fmt.Fprintln(stdout)

	tableWidth := 92
	fmt.Fprintln(stdout, strings.Repeat("═", tableWidth))
	fmt.Fprintf(stdout, "  %-28s %-10s %-38s %10s\n", "Step", "Status", "Output", "Duration")
	fmt.Fprintln(stdout, strings.Repeat("─", tableWidth))
	for _, s := range result.Steps {
		symbol, paint := statusSymbol(s.Status)
		status := fmt.Sprintf("%-10s", symbol+" "+strings.ToUpper(s.Status.String()))
		fmt.Fprintf(stdout, "  %-28s %s %-38s %10s\n",
			truncate(s.Name, 28), paint(status), truncate(s.OutputPath, 38), formatDuration(s.Duration.Milliseconds()))
	}
	fmt.Fprintln(stdout, strings.Repeat("─", tableWidth))
	fmt.Fprintf(stdout, "  %-28s %-10s %-38s %10s\n",
		bold("TOTAL"), fmt.Sprintf("%d/%d", result.PassedSteps+result.FallbackSteps, result.TotalSteps), "",
		formatDuration(result.Duration.Milliseconds()))
	fmt.Fprintln(stdout, strings.Repeat("═", tableWidth))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// formatDuration formats milliseconds to a human-readable string.
// Shows milliseconds for values < 1s, seconds otherwise.
func formatDuration(ms int64) string {
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	if ms < 60000 {
		return fmt.Sprintf("%.1fs", float64(ms)/1000)
	}
	d := time.Duration(ms) * time.Millisecond
	return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
}
