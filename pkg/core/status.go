package core

// StepStatus represents the outcome of processing a step
type StepStatus int

const (
	StatusPending  StepStatus = iota // Not yet processed
	StatusPassed                     // Captured the requested target
	StatusFallback                   // Capture target missing, full page captured instead
	StatusSkipped                    // Navigation failed or the run was cancelled
	StatusFailed                     // Capture, conversion or write failed
)

// String returns the string representation of StepStatus
func (s StepStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusPassed:
		return "passed"
	case StatusFallback:
		return "fallback"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler
func (s StepStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// IsTerminal returns true if the status is a final state
func (s StepStatus) IsTerminal() bool {
	switch s {
	case StatusPassed, StatusFallback, StatusSkipped, StatusFailed:
		return true
	default:
		return false
	}
}

// IsSuccess returns true if an image was written (passed or fallback)
func (s StepStatus) IsSuccess() bool {
	return s == StatusPassed || s == StatusFallback
}

// ErrorCategory classifies the type of error for better debugging and reporting
type ErrorCategory int

const (
	ErrCategoryNone       ErrorCategory = iota // No error
	ErrCategoryConfig                          // Unreadable flow document, missing secret
	ErrCategoryElement                         // Required element missing or not interactable
	ErrCategoryTimeout                         // Bounded wait expired
	ErrCategoryNavigation                      // Page did not navigate when it had to
	ErrCategoryStep                            // Isolated step failure
	ErrCategoryConsent                         // Best-effort consent handling failed
	ErrCategoryBrowser                         // Browser launch or teardown
)

// String returns the string representation of ErrorCategory
func (c ErrorCategory) String() string {
	switch c {
	case ErrCategoryNone:
		return "none"
	case ErrCategoryConfig:
		return "config"
	case ErrCategoryElement:
		return "element"
	case ErrCategoryTimeout:
		return "timeout"
	case ErrCategoryNavigation:
		return "navigation"
	case ErrCategoryStep:
		return "step"
	case ErrCategoryConsent:
		return "consent"
	case ErrCategoryBrowser:
		return "browser"
	default:
		return "unknown"
	}
}
