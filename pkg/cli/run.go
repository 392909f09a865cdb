package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/portal-capture/pkg/auth"
	"github.com/devicelab-dev/portal-capture/pkg/config"
	"github.com/devicelab-dev/portal-capture/pkg/core"
	"github.com/devicelab-dev/portal-capture/pkg/driver/chromium"
	"github.com/devicelab-dev/portal-capture/pkg/driver/mock"
	"github.com/devicelab-dev/portal-capture/pkg/executor"
	"github.com/devicelab-dev/portal-capture/pkg/logger"
	"github.com/devicelab-dev/portal-capture/pkg/report"
	"github.com/devicelab-dev/portal-capture/pkg/validator"
)

// RunConfig holds the resolved command-line settings for a run.
type RunConfig struct {
	ConfigPath string
	Env        config.Env
	Headless   bool
	Viewport   chromium.Viewport
	OutputDir  string
	ReportPath string
	LogFile    string
	Verbose    bool
	NoColor    bool
	DryRun     bool
}

func (c *RunConfig) driverName() string {
	if c.DryRun {
		return "mock"
	}
	return "chromium"
}

// newRunConfig reads the global flags.
func newRunConfig(c *cli.Context) (*RunConfig, error) {
	viewport, err := chromium.ParseViewport(c.String("viewport"))
	if err != nil {
		return nil, err
	}

	env := config.FromOS()
	for k, v := range parseEnvVars(c.StringSlice("env")) {
		env[k] = v
	}

	return &RunConfig{
		ConfigPath: c.String("config"),
		Env:        env,
		Headless:   c.Bool("headless"),
		Viewport:   viewport,
		OutputDir:  filepath.Clean(c.String("output")),
		ReportPath: c.String("report"),
		LogFile:    c.String("log-file"),
		Verbose:    c.Bool("verbose"),
		NoColor:    c.Bool("no-color"),
		DryRun:     c.Bool("dry-run"),
	}, nil
}

// setup applies the ambient settings shared by every command and returns
// the function undoing them.
func (c *RunConfig) setup() (func(), error) {
	if c.NoColor {
		color.NoColor = true
	}
	if err := logger.Init(logger.Options{File: c.LogFile, Verbose: c.Verbose}); err != nil {
		return nil, err
	}
	return logger.Close, nil
}

// pageSession is an open page and its teardown.
type pageSession struct {
	page     core.Page
	teardown func()
}

// openPage launches Chromium, or the simulated page for dry runs.
func openPage(cfg *RunConfig) (*pageSession, error) {
	if cfg.DryRun {
		printSetupStep("Dry run: using a simulated page")
		return &pageSession{
			page:     mock.New(mock.Config{AllVisible: true, URL: "about:blank"}),
			teardown: func() {},
		}, nil
	}

	printSetupStep(fmt.Sprintf("Launching Chromium (%s)", cfg.Viewport))
	session, err := chromium.Setup(chromium.Options{
		Headless: cfg.Headless,
		Viewport: cfg.Viewport,
	})
	if err != nil {
		return nil, err
	}
	printSetupSuccess("Browser ready")
	return &pageSession{
		page: session.Page(),
		teardown: func() {
			if err := session.Teardown(); err != nil {
				logger.Warn("browser teardown: %v", err)
			}
		},
	}, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runFlow(c *cli.Context) error {
	if c.NArg() > 0 {
		return cli.Exit(fmt.Sprintf("unexpected argument %q, use --config to pick the flow document", c.Args().First()), 1)
	}

	cfg, err := newRunConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	cleanup, err := cfg.setup()
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer cleanup()

	return executeFlow(cfg)
}

// executeFlow validates the flow document, opens the page and runs it.
func executeFlow(cfg *RunConfig) error {
	printBanner()

	vr := validator.Validate(cfg.ConfigPath, cfg.Env)
	printValidation(vr)
	if !vr.IsValid() {
		return cli.Exit(fmt.Sprintf("invalid flow document %s", cfg.ConfigPath), 1)
	}
	flow := vr.Flow
	settings := config.ResolveSettings(cfg.Env)

	live := newLiveReport(cfg, report.BuildSkeleton(flow, reportMeta(cfg, report.ModeFlow)))

	session, err := openPage(cfg)
	if err != nil {
		live.Fail(err)
		return cli.Exit(fmt.Sprintf("browser setup failed: %v", err), 1)
	}
	defer session.teardown()

	ctx, stop := signalContext()
	defer stop()

	runner := executor.New(session.page, runnerConfig(cfg, settings, live))
	live.Start()
	result, err := runner.Run(ctx, flow)
	live.Finish(result)

	printSummary(result)
	if path := cfg.ReportPath; path != "" {
		fmt.Fprintf(stdout, "  Report: %s\n", path)
	}

	if err != nil {
		return cli.Exit(fmt.Sprintf("login failed: %v", err), 1)
	}
	if ctx.Err() != nil {
		return cli.Exit("interrupted", 1)
	}
	return nil
}

func reportMeta(cfg *RunConfig, mode string) report.Meta {
	return report.Meta{Mode: mode, RunnerVersion: Version, Driver: cfg.driverName()}
}

func runnerConfig(cfg *RunConfig, settings config.Settings, live *liveReport) executor.RunnerConfig {
	return executor.RunnerConfig{
		Settings:  settings,
		OutputDir: cfg.OutputDir,
		OnLogin: func(res *auth.Result) {
			onLogin(res)
			live.SetAccount(res.Account)
		},
		OnStepStart: func(idx, total int, step config.StepConfig) {
			onStepStart(idx, total, step)
			live.StepStarted(idx)
		},
		OnStepComplete: func(idx, total int, res core.StepResult) {
			onStepComplete(res)
			live.StepCompleted(res)
		},
	}
}

// liveReport forwards to a report.LiveWriter when --report is set.
type liveReport struct {
	w *report.LiveWriter
}

func newLiveReport(cfg *RunConfig, r *report.Report) *liveReport {
	if cfg.ReportPath == "" {
		return &liveReport{}
	}
	return &liveReport{w: report.NewLiveWriter(cfg.ReportPath, r)}
}

func (l *liveReport) Start() {
	if l.w != nil {
		l.w.Start()
	}
}

func (l *liveReport) SetAccount(a core.AccountOutcome) {
	if l.w != nil {
		l.w.SetAccount(a)
	}
}

func (l *liveReport) StepStarted(idx int) {
	if l.w != nil {
		l.w.StepStarted(idx)
	}
}

func (l *liveReport) StepCompleted(res core.StepResult) {
	if l.w != nil {
		l.w.StepCompleted(res)
	}
}

func (l *liveReport) Finish(run *core.RunResult) {
	if l.w != nil && run != nil {
		l.w.Finish(run)
	}
}

func (l *liveReport) Fail(err error) {
	if l.w != nil {
		l.w.Fail(err)
	}
}

// parseEnvVars parses KEY=VALUE pairs; entries without "=" are ignored.
func parseEnvVars(envs []string) map[string]string {
	result := make(map[string]string)
	for _, e := range envs {
		parts := strings.SplitN(e, "=", 2)
		if len(parts) == 2 {
			result[parts[0]] = parts[1]
		}
	}
	return result
}
