package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/devicelab-dev/portal-capture/pkg/config"
	"github.com/devicelab-dev/portal-capture/pkg/core"
)

// AutoScroll scrolls down by opts.Distance every opts.Interval until the
// accumulated offset reaches scrollHeight - viewportHeight, forcing lazy
// content to render. The page height is re-read on every increment, so
// content that keeps growing is followed until opts.MaxIterations, where
// the pass ends as ScrollPartial rather than hanging.
func AutoScroll(ctx context.Context, page core.Page, opts config.ScrollOptions) (core.ScrollResult, error) {
	defaults := config.DefaultScrollOptions()
	if opts.Distance <= 0 {
		opts.Distance = defaults.Distance
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = defaults.MaxIterations
	}

	res := core.ScrollResult{Status: core.ScrollPartial}
	for res.Iterations < opts.MaxIterations {
		if err := sleep(ctx, opts.Interval); err != nil {
			return res, err
		}

		m, err := page.ScrollMetrics()
		if err != nil {
			res.Status = core.ScrollFailed
			return res, fmt.Errorf("read scroll metrics: %w", err)
		}
		if err := page.ScrollBy(opts.Distance); err != nil {
			res.Status = core.ScrollFailed
			return res, fmt.Errorf("scroll by %dpx: %w", opts.Distance, err)
		}
		res.Iterations++
		res.Offset += opts.Distance

		if res.Offset >= m.ScrollHeight-m.ViewportHeight {
			res.Status = core.ScrollCompleted
			return res, nil
		}
	}
	return res, nil
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
