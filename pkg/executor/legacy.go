package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/devicelab-dev/portal-capture/pkg/config"
	"github.com/devicelab-dev/portal-capture/pkg/core"
	"github.com/devicelab-dev/portal-capture/pkg/logger"
)

// RunLegacy runs the single-shot capture mode: login at LOGIN_URL, select
// the account or open TARGET_URL, optionally follow a link by its text,
// then scroll and write one image.
func (r *Runner) RunLegacy(ctx context.Context, cfg *config.LegacyConfig) (*core.RunResult, error) {
	flow := cfg.Flow()
	result := r.newResult(flow.SourcePath, cfg.LoginURL)
	defer r.finish(result)

	// Account selection is handled here so that its failure falls back to
	// TARGET_URL instead of aborting.
	account := flow.Login.AccountName
	flow.Login.AccountName = ""

	loginRes, err := r.auth.Login(r.page, flow)
	if loginRes != nil && r.config.OnLogin != nil {
		r.config.OnLogin(loginRes)
	}
	if err != nil {
		result.Error = err.Error()
		result.Category = core.CategoryOf(err)
		return result, err
	}

	result.Account, err = r.auth.SelectAccount(r.page, account)
	if err != nil {
		logger.Error("could not select account %q: %v", account, err)
		result.Account = core.AccountNotFound
	}
	if result.Account == core.AccountSelected {
		logger.Info("using account page %s, ignoring %s", r.page.URL(), config.EnvTargetURL)
	} else {
		logger.Info("navigating to target URL: %s", cfg.TargetURL)
		if err := r.openTarget(cfg.TargetURL); err != nil {
			err = core.ErrNavigationFailed.
				WithMessage(fmt.Sprintf("open target page %s", cfg.TargetURL)).
				WithCause(err)
			result.Error = err.Error()
			result.Category = core.CategoryOf(err)
			return result, err
		}
	}

	step := config.StepConfig{Name: "output", ScreenshotSelector: cfg.ScreenshotSelector}
	if r.config.OnStepStart != nil {
		r.config.OnStepStart(0, 1, step)
	}
	res := r.captureLegacy(ctx, cfg, step)
	result.Steps = []core.StepResult{res}
	if r.config.OnStepComplete != nil {
		r.config.OnStepComplete(0, 1, res)
	}
	return result, nil
}

// openTarget loads url and waits for the network to settle.
func (r *Runner) openTarget(url string) error {
	if err := r.page.Navigate(url); err != nil {
		return err
	}
	return r.page.WaitForNetworkIdle(r.config.Settings.Timeouts.Navigation)
}

func (r *Runner) captureLegacy(ctx context.Context, cfg *config.LegacyConfig, step config.StepConfig) (res core.StepResult) {
	res = core.StepResult{Name: step.Name, StartTime: time.Now()}
	defer func() { res.Duration = time.Since(res.StartTime) }()

	if link := cfg.LinkTarget(); link != "" {
		p := r.processor()
		nav, err := p.navigate(link)
		res.Navigation = &nav
		if err != nil {
			// The capture still happens on the current page.
			logger.Error("could not find or click link %q: %v", cfg.NavigateToLink, err)
		} else {
			logger.Info("navigated to %s", r.page.URL())
		}
	}

	scroll, err := AutoScroll(ctx, r.page, r.config.Settings.Scroll)
	res.Scroll = scroll
	if err != nil {
		logger.Warn("auto-scroll stopped after %d increments: %v", scroll.Iterations, err)
	}

	shot, err := CaptureTarget(r.page, step.ScreenshotSelector)
	if err != nil {
		return failStep(&res, step, "capture", err)
	}
	res.CaptureTarget = shot.Target

	path, err := r.images.WriteAs(cfg.OutputFile, shot.Data)
	if err != nil {
		return failStep(&res, step, "write image", err)
	}
	res.OutputPath = path
	res.Status = core.StatusPassed
	if shot.Fallback {
		res.Status = core.StatusFallback
	}
	logger.Info("saved %s", path)
	return res
}
