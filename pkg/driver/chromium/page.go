package chromium

import (
	"errors"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/devicelab-dev/portal-capture/pkg/core"
)

const (
	scrollMetricsScript = `() => ({ scrollHeight: document.body.scrollHeight, viewportHeight: window.innerHeight })`
	scrollByScript      = `dy => window.scrollBy(0, dy)`
	removeScript        = `sel => { const el = document.querySelector(sel); if (el) el.remove(); }`
)

// Page adapts a playwright.Page to core.Page.
type Page struct {
	page playwright.Page
}

var _ core.Page = (*Page)(nil)

// NewPage wraps a playwright page.
func NewPage(page playwright.Page) *Page {
	return &Page{page: page}
}

// locator resolves target to the first matching element, inside its
// frame when one is set.
func (p *Page) locator(target core.Target) playwright.Locator {
	var loc playwright.Locator
	if target.Frame != "" {
		loc = p.page.FrameLocator(target.Frame).Locator(target.Selector)
	} else {
		loc = p.page.Locator(target.Selector)
	}
	if target.HasText != "" {
		loc = loc.Filter(playwright.LocatorFilterOptions{HasText: target.HasText})
	}
	return loc.First()
}

func (p *Page) Navigate(url string) error {
	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
	})
	return convertError(err)
}

func (p *Page) URL() string {
	return p.page.URL()
}

func (p *Page) WaitForDOMReady(timeout time.Duration) error {
	return convertError(p.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateDomcontentloaded,
		Timeout: ms(timeout),
	}))
}

func (p *Page) WaitForNetworkIdle(timeout time.Duration) error {
	return convertError(p.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateNetworkidle,
		Timeout: ms(timeout),
	}))
}

func (p *Page) WaitVisible(target core.Target, timeout time.Duration) error {
	return convertError(p.locator(target).WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: ms(timeout),
	}))
}

func (p *Page) WaitHidden(selector string, timeout time.Duration) error {
	return convertError(p.page.Locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateHidden,
		Timeout: ms(timeout),
	}))
}

func (p *Page) Fill(target core.Target, value string) error {
	return convertError(p.locator(target).Fill(value))
}

func (p *Page) Click(target core.Target) error {
	return convertError(p.locator(target).Click())
}

// ClickAndWaitForNavigation arms a navigation wait, clicks and reports
// whether the navigation settled. Only click failures are returned.
func (p *Page) ClickAndWaitForNavigation(target core.Target, timeout time.Duration) (core.Navigation, error) {
	var clickErr error
	_, err := p.page.ExpectNavigation(func() error {
		clickErr = p.locator(target).Click()
		return clickErr
	}, playwright.PageExpectNavigationOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
		Timeout:   ms(timeout),
	})

	if clickErr != nil {
		return core.Navigation{}, convertError(clickErr)
	}
	if err != nil {
		return core.Navigation{Outcome: core.NoNavigationDetected, Reason: convertError(err)}, nil
	}
	return core.Navigation{Outcome: core.Navigated}, nil
}

func (p *Page) Exists(selector string) (bool, error) {
	n, err := p.page.Locator(selector).Count()
	if err != nil {
		return false, convertError(err)
	}
	return n > 0, nil
}

func (p *Page) Remove(selector string) error {
	_, err := p.page.Evaluate(removeScript, selector)
	return convertError(err)
}

func (p *Page) Screenshot() ([]byte, error) {
	data, err := p.page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(true),
		Type:     playwright.ScreenshotTypePng,
	})
	return data, convertError(err)
}

func (p *Page) ScreenshotElement(selector string) ([]byte, bool, error) {
	el, err := p.page.QuerySelector(selector)
	if err != nil {
		return nil, false, convertError(err)
	}
	if el == nil {
		return nil, false, nil
	}
	data, err := el.Screenshot(playwright.ElementHandleScreenshotOptions{
		Type: playwright.ScreenshotTypePng,
	})
	if err != nil {
		return nil, true, convertError(err)
	}
	return data, true, nil
}

func (p *Page) ScrollMetrics() (core.ScrollMetrics, error) {
	v, err := p.page.Evaluate(scrollMetricsScript)
	if err != nil {
		return core.ScrollMetrics{}, convertError(err)
	}
	return parseScrollMetrics(v)
}

func (p *Page) ScrollBy(dy int) error {
	_, err := p.page.Evaluate(scrollByScript, dy)
	return convertError(err)
}

// parseScrollMetrics decodes the object returned by scrollMetricsScript.
func parseScrollMetrics(v interface{}) (core.ScrollMetrics, error) {
	obj, ok := v.(map[string]interface{})
	if !ok {
		return core.ScrollMetrics{}, fmt.Errorf("unexpected scroll metrics %T", v)
	}
	height, ok1 := toInt(obj["scrollHeight"])
	viewport, ok2 := toInt(obj["viewportHeight"])
	if !ok1 || !ok2 {
		return core.ScrollMetrics{}, fmt.Errorf("unexpected scroll metrics %v", obj)
	}
	return core.ScrollMetrics{ScrollHeight: height, ViewportHeight: viewport}, nil
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

// convertError maps playwright timeouts to core.ErrWaitTimeout.
func convertError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, playwright.ErrTimeout) {
		return core.ErrWaitTimeout.WithCause(err)
	}
	return err
}

func ms(d time.Duration) *float64 {
	return playwright.Float(float64(d.Milliseconds()))
}
