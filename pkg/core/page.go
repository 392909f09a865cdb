package core

import (
	"time"
)

// Page defines the interface for driving a single browser page.
// Implementations: playwright (chromium), mock.
// Components above the driver layer only talk to a Page.
type Page interface {
	// Navigate loads url and waits for the load event.
	Navigate(url string) error

	// URL returns the current page URL.
	URL() string

	// WaitForDOMReady waits until the DOM content loaded milestone.
	WaitForDOMReady(timeout time.Duration) error

	// WaitForNetworkIdle waits until there are no network connections
	// for at least 500ms.
	WaitForNetworkIdle(timeout time.Duration) error

	// WaitVisible waits for the first match of target to become visible.
	// A timeout satisfies errors.Is(err, ErrWaitTimeout).
	WaitVisible(target Target, timeout time.Duration) error

	// WaitHidden waits for selector to be hidden or detached.
	WaitHidden(selector string, timeout time.Duration) error

	// Fill replaces the value of the first match of target.
	Fill(target Target, value string) error

	// Click clicks the first match of target.
	Click(target Target) error

	// ClickAndWaitForNavigation starts waiting for a navigation, clicks the
	// first match of target and reports whether a navigation settled.
	// The error is reserved for the click itself.
	ClickAndWaitForNavigation(target Target, timeout time.Duration) (Navigation, error)

	// Exists reports whether selector matches an element right now.
	Exists(selector string) (bool, error)

	// Remove detaches the first match of selector from the DOM.
	Remove(selector string) error

	// Screenshot captures the full scrollable page as PNG.
	Screenshot() ([]byte, error)

	// ScreenshotElement captures the first match of selector as PNG.
	// found is false when nothing matches.
	ScreenshotElement(selector string) (data []byte, found bool, err error)

	// ScrollMetrics returns the scrollable height and viewport height.
	ScrollMetrics() (ScrollMetrics, error)

	// ScrollBy scrolls the window vertically by dy pixels.
	ScrollBy(dy int) error
}

// Target identifies an element on the page.
type Target struct {
	Selector string // Playwright/CSS selector
	Frame    string // Optional iframe selector the element lives in
	HasText  string // Optional substring the element text must contain
}

// String renders the target for logs and error details.
func (t Target) String() string {
	s := t.Selector
	if t.Frame != "" {
		s = t.Frame + " >> " + s
	}
	if t.HasText != "" {
		s += " [text~=" + t.HasText + "]"
	}
	return s
}

// ScrollMetrics describes the page geometry relevant to scrolling.
type ScrollMetrics struct {
	ScrollHeight   int `json:"scrollHeight"`
	ViewportHeight int `json:"viewportHeight"`
}

// NavigationOutcome is the result of racing a click against a navigation wait.
type NavigationOutcome int

const (
	NavigationNone       NavigationOutcome = iota // No click was attempted
	Navigated                                     // A navigation settled after the click
	NoNavigationDetected                          // The click succeeded but no navigation settled in time
)

// String returns the string representation of NavigationOutcome
func (o NavigationOutcome) String() string {
	switch o {
	case Navigated:
		return "navigated"
	case NoNavigationDetected:
		return "no_navigation"
	default:
		return "none"
	}
}

// MarshalText implements encoding.TextMarshaler
func (o NavigationOutcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Navigation is the explicit two-outcome result of a click-and-navigate race.
type Navigation struct {
	Outcome NavigationOutcome `json:"outcome"`
	Reason  error             `json:"-"` // Why no navigation was detected
}

// Detected reports whether a navigation settled.
func (n Navigation) Detected() bool {
	return n.Outcome == Navigated
}
