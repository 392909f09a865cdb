// Package consent dismisses the privacy/cookie overlay some portals show
// before login. Handling is best-effort: failures are logged, never returned.
package consent

import (
	"errors"
	"fmt"

	"github.com/devicelab-dev/portal-capture/pkg/config"
	"github.com/devicelab-dev/portal-capture/pkg/core"
	"github.com/devicelab-dev/portal-capture/pkg/logger"
)

// DebugScreenshotFile is written when consent handling fails.
const DebugScreenshotFile = "debug_consent_error.png"

// Action describes what the handler did.
type Action int

const (
	NotPresent     Action = iota // No consent control or overlay found
	ClickedInFrame               // Accept control clicked inside the consent iframe
	ClickedOnPage                // Accept control clicked on the main page
	OverlayRemoved               // Overlay node removed from the DOM
	Failed                       // An unexpected error stopped handling
)

// String returns the string representation of Action
func (a Action) String() string {
	switch a {
	case ClickedInFrame:
		return "clicked_in_frame"
	case ClickedOnPage:
		return "clicked_on_page"
	case OverlayRemoved:
		return "overlay_removed"
	case Failed:
		return "failed"
	default:
		return "not_present"
	}
}

// Result is the outcome of one Handle pass.
type Result struct {
	Action    Action
	Err       error  // Logged failure, wrapped in core.ErrConsentFailure
	DebugPath string // Diagnostic screenshot, if one was written
}

// DebugWriter persists the diagnostic screenshot.
type DebugWriter interface {
	WriteDebugPNG(file string, data []byte) (string, error)
}

// Handler dismisses the consent overlay.
type Handler struct {
	Selectors config.Selectors
	Timeouts  config.Timeouts
	Debug     DebugWriter // nil disables the diagnostic screenshot
}

// New creates a handler from resolved settings.
func New(settings config.Settings, debug DebugWriter) *Handler {
	return &Handler{
		Selectors: settings.Selectors,
		Timeouts:  settings.Timeouts,
		Debug:     debug,
	}
}

// Handle makes a single pass over the page: iframe probe, then page probe,
// then overlay removal, then a tolerated wait for the overlay to hide.
func (h *Handler) Handle(page core.Page) Result {
	action, err := h.dismiss(page)
	if err == nil {
		logger.Info("consent: %s", action)
		return Result{Action: action}
	}

	res := Result{
		Action: Failed,
		Err:    core.ErrConsentFailure.WithCause(err),
	}
	logger.Warn("consent handling failed, continuing: %v", err)
	res.DebugPath = h.saveDebugScreenshot(page)
	return res
}

func (h *Handler) dismiss(page core.Page) (Action, error) {
	if err := page.WaitForDOMReady(h.Timeouts.DOMReady); err != nil {
		return Failed, fmt.Errorf("wait for DOM content: %w", err)
	}

	action, err := h.clickAccept(page)
	if err != nil {
		return Failed, err
	}

	if action == NotPresent {
		removed, err := h.removeOverlay(page)
		if err != nil {
			return Failed, err
		}
		if removed {
			action = OverlayRemoved
		}
	}

	if err := page.WaitHidden(h.Selectors.ConsentOverlay, h.Timeouts.OverlayHidden); err != nil {
		logger.Debug("consent overlay still visible after %s: %v", h.Timeouts.OverlayHidden, err)
	}
	return action, nil
}

// clickAccept probes the iframe first, then the main page.
func (h *Handler) clickAccept(page core.Page) (Action, error) {
	probes := []struct {
		target core.Target
		action Action
	}{
		{core.Target{Frame: h.Selectors.ConsentFrame, Selector: h.Selectors.ConsentButton}, ClickedInFrame},
		{core.Target{Selector: h.Selectors.ConsentButton}, ClickedOnPage},
	}

	for _, probe := range probes {
		err := page.WaitVisible(probe.target, h.Timeouts.ConsentProbe)
		if errors.Is(err, core.ErrWaitTimeout) {
			logger.Debug("consent control not visible: %s", probe.target)
			continue
		}
		if err != nil {
			return Failed, fmt.Errorf("probe %s: %w", probe.target, err)
		}
		if err := page.Click(probe.target); err != nil {
			return Failed, fmt.Errorf("click %s: %w", probe.target, err)
		}
		return probe.action, nil
	}
	return NotPresent, nil
}

func (h *Handler) removeOverlay(page core.Page) (bool, error) {
	exists, err := page.Exists(h.Selectors.ConsentOverlay)
	if err != nil {
		return false, fmt.Errorf("query %s: %w", h.Selectors.ConsentOverlay, err)
	}
	if !exists {
		return false, nil
	}
	if err := page.Remove(h.Selectors.ConsentOverlay); err != nil {
		return false, fmt.Errorf("remove %s: %w", h.Selectors.ConsentOverlay, err)
	}
	logger.Info("consent overlay %s removed", h.Selectors.ConsentOverlay)
	return true, nil
}

func (h *Handler) saveDebugScreenshot(page core.Page) string {
	if h.Debug == nil {
		return ""
	}
	data, err := page.Screenshot()
	if err != nil {
		logger.Warn("consent debug screenshot failed: %v", err)
		return ""
	}
	path, err := h.Debug.WriteDebugPNG(DebugScreenshotFile, data)
	if err != nil {
		logger.Warn("consent debug screenshot not saved: %v", err)
		return ""
	}
	logger.Info("consent debug screenshot saved to %s", path)
	return path
}
