// Package executor runs a flow against a page: login, then the
// navigate/scroll/capture steps.
package executor

import (
	"context"
	"time"

	"github.com/devicelab-dev/portal-capture/pkg/artifact"
	"github.com/devicelab-dev/portal-capture/pkg/auth"
	"github.com/devicelab-dev/portal-capture/pkg/config"
	"github.com/devicelab-dev/portal-capture/pkg/consent"
	"github.com/devicelab-dev/portal-capture/pkg/core"
	"github.com/devicelab-dev/portal-capture/pkg/logger"
)

// RunnerConfig configures the runner.
type RunnerConfig struct {
	Settings  config.Settings
	OutputDir string           // Where images and diagnostics are written
	Now       func() time.Time // Clock for output names; defaults to time.Now

	// Live progress callbacks
	OnLogin        func(res *auth.Result)
	OnStepStart    func(idx, total int, step config.StepConfig)
	OnStepComplete func(idx, total int, result core.StepResult)
}

// Runner orchestrates a run on a single page.
type Runner struct {
	config RunnerConfig
	page   core.Page
	auth   *auth.Authenticator
	images *artifact.Writer
}

// New creates a new Runner.
func New(page core.Page, cfg RunnerConfig) *Runner {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	images := artifact.NewWriter(cfg.OutputDir)
	images.Now = cfg.Now
	return &Runner{
		config: cfg,
		page:   page,
		auth:   auth.New(cfg.Settings, consent.New(cfg.Settings, images)),
		images: images,
	}
}

// Run logs in and processes every step. An authentication failure aborts
// the run and is returned; step failures are only recorded in the result.
func (r *Runner) Run(ctx context.Context, flow *config.FlowConfig) (*core.RunResult, error) {
	result := r.newResult(flow.SourcePath, flow.BaseURL)
	defer r.finish(result)

	logger.Info("starting login flow")
	loginRes, err := r.auth.Login(r.page, flow)
	if loginRes != nil {
		result.Account = loginRes.Account
		if r.config.OnLogin != nil {
			r.config.OnLogin(loginRes)
		}
	}
	if err != nil {
		result.Error = err.Error()
		result.Category = core.CategoryOf(err)
		return result, err
	}

	logger.Info("processing %d steps", len(flow.Steps))
	result.Steps = r.processor().Process(ctx, flow.Steps)
	return result, nil
}

func (r *Runner) processor() *Processor {
	return &Processor{
		Page:           r.page,
		Timeouts:       r.config.Settings.Timeouts,
		Scroll:         r.config.Settings.Scroll,
		Images:         r.images,
		OnStepStart:    r.config.OnStepStart,
		OnStepComplete: r.config.OnStepComplete,
	}
}

func (r *Runner) newResult(source, baseURL string) *core.RunResult {
	return &core.RunResult{
		Source:    source,
		BaseURL:   baseURL,
		StartTime: r.config.Now(),
	}
}

func (r *Runner) finish(result *core.RunResult) {
	result.Duration = r.config.Now().Sub(result.StartTime)
	result.ComputeSummary()
}
