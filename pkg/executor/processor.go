package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/devicelab-dev/portal-capture/pkg/config"
	"github.com/devicelab-dev/portal-capture/pkg/core"
	"github.com/devicelab-dev/portal-capture/pkg/logger"
)

// ImageWriter persists a step screenshot and returns the written path.
// Implemented by *artifact.Writer.
type ImageWriter interface {
	WriteGIF(name string, screenshot []byte) (string, error)
}

// Processor runs the navigate/scroll/capture steps of a flow.
type Processor struct {
	Page     core.Page
	Timeouts config.Timeouts
	Scroll   config.ScrollOptions
	Images   ImageWriter

	// Live progress callbacks
	OnStepStart    func(idx, total int, step config.StepConfig)
	OnStepComplete func(idx, total int, result core.StepResult)
}

// Process runs every step in order and folds each outcome into a
// StepResult. A failing step never stops the loop; once ctx is done the
// remaining steps are marked skipped.
func (p *Processor) Process(ctx context.Context, steps []config.StepConfig) []core.StepResult {
	results := make([]core.StepResult, len(steps))
	total := len(steps)

	for i, step := range steps {
		if ctx.Err() != nil {
			results[i] = core.StepResult{
				Index:   i,
				Name:    step.Name,
				Status:  core.StatusSkipped,
				Message: "run cancelled",
				Error:   ctx.Err().Error(),
			}
			continue
		}

		if p.OnStepStart != nil {
			p.OnStepStart(i, total, step)
		}
		results[i] = p.processStep(ctx, i, step)
		if p.OnStepComplete != nil {
			p.OnStepComplete(i, total, results[i])
		}
	}
	return results
}

func (p *Processor) processStep(ctx context.Context, idx int, step config.StepConfig) (res core.StepResult) {
	log := logger.WithField("step", step.Name)
	res = core.StepResult{
		Index:     idx,
		Name:      step.Name,
		StartTime: time.Now(),
	}
	defer func() { res.Duration = time.Since(res.StartTime) }()

	log.Infof("processing step %d", idx+1)

	// 1. Navigation
	if step.NavigationSelector != "" {
		nav, err := p.navigate(step.NavigationSelector)
		res.Navigation = &nav
		if err != nil {
			log.Errorf("could not find or click link %q: %v", step.NavigationSelector, err)
			res.Status = core.StatusSkipped
			res.Category = core.ErrCategoryStep
			res.Message = "navigation failed, step skipped"
			res.Error = stepError(step, "navigate", err).Error()
			return res
		}
		if nav.Detected() {
			log.Infof("navigated to %s", p.Page.URL())
		} else {
			log.Infof("no navigation after clicking %q, continuing", step.NavigationSelector)
		}
	}

	// 2. Auto-scroll
	scroll, err := AutoScroll(ctx, p.Page, p.Scroll)
	res.Scroll = scroll
	switch {
	case err != nil:
		log.Warnf("auto-scroll stopped after %d increments: %v", scroll.Iterations, err)
	case scroll.Status == core.ScrollPartial:
		log.Warnf("auto-scroll hit the %d increment bound at offset %dpx", scroll.Iterations, scroll.Offset)
	}

	// 3. Capture
	shot, err := CaptureTarget(p.Page, step.ScreenshotSelector)
	if err != nil {
		return failStep(&res, step, "capture", err)
	}
	res.CaptureTarget = shot.Target

	// 4. Convert and write
	path, err := p.Images.WriteGIF(step.Name, shot.Data)
	if err != nil {
		return failStep(&res, step, "write image", err)
	}
	res.OutputPath = path
	res.Status = core.StatusPassed
	if shot.Fallback {
		res.Status = core.StatusFallback
		res.Message = fmt.Sprintf("selector %q not found, captured full page", step.ScreenshotSelector)
	}
	log.Infof("saved %s", path)
	return res
}

// navigate waits for the link, then clicks it racing a tolerated
// navigation wait.
func (p *Processor) navigate(selector string) (core.Navigation, error) {
	target := core.Target{Selector: selector}
	if err := p.Page.WaitVisible(target, p.Timeouts.Element); err != nil {
		return core.Navigation{}, err
	}
	return p.Page.ClickAndWaitForNavigation(target, p.Timeouts.Navigation)
}

func failStep(res *core.StepResult, step config.StepConfig, phase string, err error) core.StepResult {
	logger.WithField("step", step.Name).Errorf("%s failed: %v", phase, err)
	res.Status = core.StatusFailed
	res.Category = core.ErrCategoryStep
	res.Error = stepError(step, phase, err).Error()
	return *res
}

func stepError(step config.StepConfig, phase string, err error) *core.ExecutionError {
	return core.ErrStepFailure.
		WithMessage(fmt.Sprintf("step %q: %s", step.Name, phase)).
		WithDetails(map[string]interface{}{"step": step.Name, "phase": phase}).
		WithCause(err)
}
