// Package chromium implements core.Page on a Playwright-driven Chromium.
package chromium

import (
	"fmt"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/devicelab-dev/portal-capture/pkg/config"
	"github.com/devicelab-dev/portal-capture/pkg/core"
	"github.com/devicelab-dev/portal-capture/pkg/logger"
)

// Default viewport, matching Playwright's own context default.
const (
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720
)

// Viewport is the page size in CSS pixels.
type Viewport struct {
	Width  int
	Height int
}

func (v Viewport) String() string {
	return fmt.Sprintf("%dx%d", v.Width, v.Height)
}

// ParseViewport parses "WIDTHxHEIGHT".
func ParseViewport(s string) (Viewport, error) {
	var v Viewport
	if _, err := fmt.Sscanf(s, "%dx%d", &v.Width, &v.Height); err != nil {
		return Viewport{}, fmt.Errorf("invalid viewport %q, want WIDTHxHEIGHT", s)
	}
	if v.Width <= 0 || v.Height <= 0 {
		return Viewport{}, fmt.Errorf("invalid viewport %q: dimensions must be positive", s)
	}
	return v, nil
}

// Options configures the browser session.
type Options struct {
	Headless        bool
	Viewport        Viewport
	DefaultTimeout  time.Duration // applies to actions without an explicit timeout
	DriverDirectory string        // playwright driver and browsers; defaults under the home dir
}

func (o *Options) applyDefaults() {
	if o.Viewport.Width == 0 || o.Viewport.Height == 0 {
		o.Viewport = Viewport{Width: DefaultViewportWidth, Height: DefaultViewportHeight}
	}
	if o.DefaultTimeout == 0 {
		o.DefaultTimeout = 30 * time.Second
	}
	if o.DriverDirectory == "" {
		o.DriverDirectory = config.GetDriversDir("playwright")
	}
}

// defaultTimeoutMillis is DefaultTimeout in the unit playwright expects.
func (o Options) defaultTimeoutMillis() float64 {
	return float64(o.DefaultTimeout.Milliseconds())
}

func (o Options) runOptions() *playwright.RunOptions {
	w := logger.GetWriter()
	return &playwright.RunOptions{
		DriverDirectory: o.DriverDirectory,
		Browsers:        []string{"chromium"},
		Verbose:         false,
		Stdout:          w,
		Stderr:          w,
	}
}

// Session owns the playwright process, the browser and its single page.
type Session struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	page    *Page

	closeOnce sync.Once
	closeErr  error
}

// Install downloads the playwright driver and Chromium.
func Install(opts Options) error {
	opts.applyDefaults()
	logger.Info("installing playwright driver and chromium into %s", opts.DriverDirectory)
	if err := playwright.Install(opts.runOptions()); err != nil {
		return core.ErrBrowser.WithMessage("install playwright").WithCause(err)
	}
	return nil
}

// Setup starts playwright, launches Chromium and opens one page.
// Anything started before a failure is torn down again.
func Setup(opts Options) (*Session, error) {
	opts.applyDefaults()

	pw, err := playwright.Run(opts.runOptions())
	if err != nil {
		return nil, core.ErrBrowser.
			WithMessage("start playwright (run `portal-capture install` first)").
			WithCause(err)
	}
	s := &Session{pw: pw}

	logger.Info("launching chromium (headless=%v, viewport=%s)", opts.Headless, opts.Viewport)
	s.browser, err = pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	})
	if err != nil {
		s.Teardown()
		return nil, core.ErrBrowser.WithMessage("launch chromium").WithCause(err)
	}

	bctx, err := s.browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{Width: opts.Viewport.Width, Height: opts.Viewport.Height},
	})
	if err != nil {
		s.Teardown()
		return nil, core.ErrBrowser.WithMessage("create browser context").WithCause(err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		s.Teardown()
		return nil, core.ErrBrowser.WithMessage("open page").WithCause(err)
	}
	page.SetDefaultTimeout(opts.defaultTimeoutMillis())
	s.page = NewPage(page)
	return s, nil
}

// Page returns the session page.
func (s *Session) Page() *Page {
	return s.page
}

// Teardown closes the browser and stops playwright. It is safe to call
// more than once and on a nil or partially started session.
func (s *Session) Teardown() error {
	if s == nil {
		return nil
	}
	s.closeOnce.Do(func() {
		if s.browser != nil {
			if err := s.browser.Close(); err != nil {
				logger.Warn("close browser: %v", err)
				s.closeErr = err
			}
		}
		if s.pw != nil {
			if err := s.pw.Stop(); err != nil {
				logger.Warn("stop playwright: %v", err)
				if s.closeErr == nil {
					s.closeErr = err
				}
			}
		}
		logger.Debug("browser session closed")
	})
	return s.closeErr
}
