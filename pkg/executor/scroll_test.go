package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/devicelab-dev/portal-capture/pkg/config"
	"github.com/devicelab-dev/portal-capture/pkg/core"
	"github.com/devicelab-dev/portal-capture/pkg/driver/mock"
)

func fastScroll() config.ScrollOptions {
	return config.ScrollOptions{Distance: 100, Interval: 0, MaxIterations: 50}
}

func TestAutoScroll_StopsAtBottom(t *testing.T) {
	page := mock.New(mock.Config{ScrollHeight: 500, ViewportHeight: 400})

	res, err := AutoScroll(context.Background(), page, fastScroll())
	if err != nil {
		t.Fatalf("AutoScroll() error = %v", err)
	}
	if res.Status != core.ScrollCompleted {
		t.Errorf("Status = %s, want completed", res.Status)
	}
	if res.Iterations != 1 || res.Offset != 100 {
		t.Errorf("res = %+v, want one 100px increment", res)
	}
	if len(page.CallsTo("scroll")) != 1 {
		t.Errorf("scroll calls = %d, want 1", len(page.CallsTo("scroll")))
	}
}

func TestAutoScroll_TallPage(t *testing.T) {
	page := mock.New(mock.Config{ScrollHeight: 2450, ViewportHeight: 400})

	res, err := AutoScroll(context.Background(), page, fastScroll())
	if err != nil {
		t.Fatalf("AutoScroll() error = %v", err)
	}
	// 2050px to scroll: 21 increments reach 2100
	if res.Status != core.ScrollCompleted || res.Iterations != 21 || res.Offset != 2100 {
		t.Errorf("res = %+v, want completed after 21 increments", res)
	}
}

func TestAutoScroll_ShortPageScrollsOnce(t *testing.T) {
	page := mock.New(mock.Config{ScrollHeight: 300, ViewportHeight: 800})

	res, err := AutoScroll(context.Background(), page, fastScroll())
	if err != nil {
		t.Fatalf("AutoScroll() error = %v", err)
	}
	if res.Status != core.ScrollCompleted || res.Iterations != 1 {
		t.Errorf("res = %+v, want completed after 1 increment", res)
	}
}

func TestAutoScroll_InfinitePageIsPartial(t *testing.T) {
	page := mock.New(mock.Config{ScrollHeight: 1000, ViewportHeight: 400, GrowBy: 100})
	opts := fastScroll()
	opts.MaxIterations = 5

	res, err := AutoScroll(context.Background(), page, opts)
	if err != nil {
		t.Fatalf("AutoScroll() error = %v, want nil for partial scroll", err)
	}
	if res.Status != core.ScrollPartial {
		t.Errorf("Status = %s, want partial", res.Status)
	}
	if res.Iterations != 5 || res.Offset != 500 {
		t.Errorf("res = %+v, want 5 increments", res)
	}
}

func TestAutoScroll_ScriptError(t *testing.T) {
	page := mock.New(mock.Config{ScrollErr: errors.New("execution context was destroyed")})

	res, err := AutoScroll(context.Background(), page, fastScroll())
	if err == nil {
		t.Fatal("expected error")
	}
	if res.Status != core.ScrollFailed {
		t.Errorf("Status = %s, want failed", res.Status)
	}
}

func TestAutoScroll_Cancelled(t *testing.T) {
	page := mock.New(mock.Config{ScrollHeight: 100000, ViewportHeight: 400})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opts := fastScroll()
	opts.Interval = time.Hour
	res, err := AutoScroll(ctx, page, opts)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if res.Iterations != 0 {
		t.Errorf("Iterations = %d, want 0", res.Iterations)
	}
}

func TestAutoScroll_WaitsBetweenIncrements(t *testing.T) {
	page := mock.New(mock.Config{ScrollHeight: 700, ViewportHeight: 400})
	opts := fastScroll()
	opts.Interval = 10 * time.Millisecond

	start := time.Now()
	res, err := AutoScroll(context.Background(), page, opts)
	if err != nil {
		t.Fatalf("AutoScroll() error = %v", err)
	}
	if res.Iterations != 3 {
		t.Errorf("Iterations = %d, want 3", res.Iterations)
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("elapsed = %v, want at least 3 intervals", elapsed)
	}
}
