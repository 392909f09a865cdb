// Package mock provides a scriptable in-memory page for testing and dry runs.
package mock

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"
	"time"

	"github.com/devicelab-dev/portal-capture/pkg/core"
)

// Element is a fake DOM element.
type Element struct {
	Selector   string
	Frame      string // iframe selector the element lives in, "" for the main page
	Text       string
	Visible    bool
	Navigates  bool   // clicking triggers a navigation
	NavigateTo string // URL after navigation; unchanged when empty
	ClickErr   error
	Screenshot []byte // element capture; a generated PNG when nil

	Value   string // last filled value
	removed bool
}

// Config configures mock page behavior.
type Config struct {
	URL      string
	Elements []*Element

	// AllVisible treats any selector without a configured element as a
	// visible element that navigates on click. Used for dry runs.
	AllVisible bool

	ScrollHeight   int
	ViewportHeight int
	GrowBy         int // scrollHeight grows by this much on every ScrollBy

	NavigateErr   error
	NavigateErrs  map[string]error // per-URL navigation failures
	DOMReadyErr   error
	IdleErr       error
	ScreenshotErr error
	ScrollErr     error
	FullPage      []byte // full-page capture; a generated PNG when nil

	Delay time.Duration // artificial delay per interaction
}

// Call records one interaction with the page.
type Call struct {
	Method string
	Target string
	Value  string
}

func (c Call) String() string {
	if c.Value != "" {
		return fmt.Sprintf("%s %s=%s", c.Method, c.Target, c.Value)
	}
	if c.Target != "" {
		return c.Method + " " + c.Target
	}
	return c.Method
}

// Page is a mock implementation of core.Page.
type Page struct {
	Config Config

	mu     sync.Mutex
	url    string
	offset int
	calls  []Call
}

var _ core.Page = (*Page)(nil)

// New creates a new mock page.
func New(cfg Config) *Page {
	if cfg.ViewportHeight == 0 {
		cfg.ViewportHeight = 800
	}
	if cfg.ScrollHeight == 0 {
		cfg.ScrollHeight = cfg.ViewportHeight
	}
	return &Page{Config: cfg, url: cfg.URL}
}

// Calls returns a copy of the recorded interactions in order.
func (p *Page) Calls() []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Call(nil), p.calls...)
}

// CallsTo returns the recorded interactions with the given method.
func (p *Page) CallsTo(method string) []Call {
	var out []Call
	for _, c := range p.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// Offset returns the accumulated scroll offset.
func (p *Page) Offset() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.offset
}

func (p *Page) record(method, target, value string) {
	p.calls = append(p.calls, Call{Method: method, Target: target, Value: value})
	if p.Config.Delay > 0 {
		time.Sleep(p.Config.Delay)
	}
}

// find returns the first element matching target in document order.
func (p *Page) find(target core.Target) *Element {
	for _, el := range p.Config.Elements {
		if el.removed || el.Selector != target.Selector || el.Frame != target.Frame {
			continue
		}
		if target.HasText != "" && !strings.Contains(el.Text, target.HasText) {
			continue
		}
		return el
	}
	if p.Config.AllVisible {
		el := &Element{Selector: target.Selector, Frame: target.Frame, Text: target.HasText, Visible: true, Navigates: true}
		p.Config.Elements = append(p.Config.Elements, el)
		return el
	}
	return nil
}

func timeout(what string, target fmt.Stringer, d time.Duration) error {
	return core.ErrWaitTimeout.WithMessage(fmt.Sprintf("%s %s: timeout %s exceeded", what, target, d))
}

// Navigate simulates loading url.
func (p *Page) Navigate(url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.record("navigate", url, "")
	if p.Config.NavigateErr != nil {
		return p.Config.NavigateErr
	}
	if err := p.Config.NavigateErrs[url]; err != nil {
		return err
	}
	p.url = url
	p.offset = 0
	return nil
}

// URL returns the current URL.
func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

// WaitForDOMReady returns DOMReadyErr.
func (p *Page) WaitForDOMReady(time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.record("domready", "", "")
	return p.Config.DOMReadyErr
}

// WaitForNetworkIdle returns IdleErr.
func (p *Page) WaitForNetworkIdle(time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.record("networkidle", "", "")
	return p.Config.IdleErr
}

// WaitVisible succeeds immediately for visible elements and times out otherwise.
func (p *Page) WaitVisible(target core.Target, d time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.record("wait", target.String(), "")
	if el := p.find(target); el != nil && el.Visible {
		return nil
	}
	return timeout("waiting for", target, d)
}

// WaitHidden times out while a visible element matches selector.
func (p *Page) WaitHidden(selector string, d time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	target := core.Target{Selector: selector}
	p.record("waithidden", selector, "")
	for _, el := range p.Config.Elements {
		if !el.removed && el.Selector == selector && el.Frame == "" && el.Visible {
			return timeout("waiting for hidden", target, d)
		}
	}
	return nil
}

// Fill stores value on the matching element.
func (p *Page) Fill(target core.Target, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.record("fill", target.String(), value)
	el := p.find(target)
	if el == nil {
		return fmt.Errorf("fill %s: no element", target)
	}
	el.Value = value
	return nil
}

// Click clicks the matching element.
func (p *Page) Click(target core.Target) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, err := p.click(target)
	return err
}

func (p *Page) click(target core.Target) (*Element, error) {
	p.record("click", target.String(), "")
	el := p.find(target)
	if el == nil || !el.Visible {
		return nil, fmt.Errorf("click %s: element not visible", target)
	}
	if el.ClickErr != nil {
		return nil, el.ClickErr
	}
	if el.Navigates {
		if el.NavigateTo != "" {
			p.url = el.NavigateTo
		}
		p.offset = 0
	}
	return el, nil
}

// ClickAndWaitForNavigation clicks and reports Navigated for elements
// configured to navigate.
func (p *Page) ClickAndWaitForNavigation(target core.Target, d time.Duration) (core.Navigation, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	el, err := p.click(target)
	if err != nil {
		return core.Navigation{}, err
	}
	if el.Navigates {
		return core.Navigation{Outcome: core.Navigated}, nil
	}
	return core.Navigation{
		Outcome: core.NoNavigationDetected,
		Reason:  timeout("waiting for navigation after clicking", target, d),
	}, nil
}

// Exists reports whether a main-page element matches selector.
func (p *Page) Exists(selector string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.record("exists", selector, "")
	return p.find(core.Target{Selector: selector}) != nil, nil
}

// Remove detaches the first main-page element matching selector.
func (p *Page) Remove(selector string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.record("remove", selector, "")
	if el := p.find(core.Target{Selector: selector}); el != nil {
		el.removed = true
	}
	return nil
}

// Screenshot returns the full-page capture.
func (p *Page) Screenshot() ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.record("screenshot", "", "")
	if p.Config.ScreenshotErr != nil {
		return nil, p.Config.ScreenshotErr
	}
	if p.Config.FullPage != nil {
		return p.Config.FullPage, nil
	}
	return FullPagePNG(), nil
}

// ScreenshotElement returns the element capture, or found=false.
func (p *Page) ScreenshotElement(selector string) ([]byte, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.record("screenshot", selector, "")
	el := p.find(core.Target{Selector: selector})
	if el == nil {
		return nil, false, nil
	}
	if p.Config.ScreenshotErr != nil {
		return nil, true, p.Config.ScreenshotErr
	}
	if el.Screenshot != nil {
		return el.Screenshot, true, nil
	}
	return ElementPNG(), true, nil
}

// ScrollMetrics returns the configured geometry.
func (p *Page) ScrollMetrics() (core.ScrollMetrics, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.Config.ScrollErr != nil {
		return core.ScrollMetrics{}, p.Config.ScrollErr
	}
	return core.ScrollMetrics{
		ScrollHeight:   p.Config.ScrollHeight,
		ViewportHeight: p.Config.ViewportHeight,
	}, nil
}

// ScrollBy advances the offset and grows the page by GrowBy.
func (p *Page) ScrollBy(dy int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.record("scroll", "", fmt.Sprint(dy))
	if p.Config.ScrollErr != nil {
		return p.Config.ScrollErr
	}
	p.offset += dy
	p.Config.ScrollHeight += p.Config.GrowBy
	return nil
}

// FullPagePNG returns the generated full-page capture (16x32).
func FullPagePNG() []byte {
	return gradientPNG(16, 32)
}

// ElementPNG returns the generated element capture (16x8).
func ElementPNG() []byte {
	return gradientPNG(16, 8)
}

func gradientPNG(w, h int) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 255 / w), G: uint8(y * 255 / h), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
