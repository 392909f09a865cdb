package executor

import (
	"fmt"
	"strings"

	"github.com/devicelab-dev/portal-capture/pkg/core"
	"github.com/devicelab-dev/portal-capture/pkg/logger"
)

// Capture is a screenshot and how it was obtained.
type Capture struct {
	Data     []byte
	Target   string // selector captured, "" for the full page
	Fallback bool   // the requested element was missing
}

// fullPageSelector reports whether selector means "the whole page".
func fullPageSelector(selector string) bool {
	switch strings.TrimSpace(selector) {
	case "", "body", "html":
		return true
	default:
		return false
	}
}

// CaptureTarget screenshots selector, or the full page when selector is
// empty, body or html. A selector matching nothing falls back to a full
// page capture with a warning.
func CaptureTarget(page core.Page, selector string) (*Capture, error) {
	if !fullPageSelector(selector) {
		data, found, err := page.ScreenshotElement(selector)
		if err != nil {
			return nil, fmt.Errorf("screenshot %s: %w", selector, err)
		}
		if found {
			return &Capture{Data: data, Target: selector}, nil
		}
		logger.Warn("selector %q not found, taking full page screenshot instead", selector)
	}

	data, err := page.Screenshot()
	if err != nil {
		return nil, fmt.Errorf("full page screenshot: %w", err)
	}
	return &Capture{Data: data, Fallback: !fullPageSelector(selector)}, nil
}
