package core

import (
	"errors"
	"fmt"
)

// ExecutionError represents a structured error with category and details
type ExecutionError struct {
	Category ErrorCategory
	Code     string                 // Machine-readable code: element_not_found, missing_secret, etc.
	Message  string                 // Human-readable message
	Details  map[string]interface{} // Additional context (selector, step, field)
	Cause    error                  // Underlying error
}

// Error implements the error interface
func (e *ExecutionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// Is matches any ExecutionError carrying the same code, so copies made with
// WithCause/WithMessage/WithDetails still match their predefined error.
func (e *ExecutionError) Is(target error) bool {
	t, ok := target.(*ExecutionError)
	if !ok || t == nil {
		return false
	}
	return e.Code != "" && e.Code == t.Code
}

// WithCause returns a copy of the error with the given cause
func (e *ExecutionError) WithCause(cause error) *ExecutionError {
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  e.Message,
		Details:  e.Details,
		Cause:    cause,
	}
}

// WithMessage returns a copy of the error with a custom message
func (e *ExecutionError) WithMessage(msg string) *ExecutionError {
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  msg,
		Details:  e.Details,
		Cause:    e.Cause,
	}
}

// WithDetails returns a copy of the error with additional details
func (e *ExecutionError) WithDetails(details map[string]interface{}) *ExecutionError {
	merged := make(map[string]interface{})
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  e.Message,
		Details:  merged,
		Cause:    e.Cause,
	}
}

// Detail returns a detail value as a string, or "" if absent.
func (e *ExecutionError) Detail(key string) string {
	if v, ok := e.Details[key]; ok {
		return fmt.Sprint(v)
	}
	return ""
}

// Predefined errors
var (
	// Config errors: fatal before any browser launches
	ErrConfig = &ExecutionError{
		Category: ErrCategoryConfig,
		Code:     "invalid_config",
		Message:  "invalid configuration",
	}
	ErrMissingSecret = &ExecutionError{
		Category: ErrCategoryConfig,
		Code:     "missing_secret",
		Message:  "missing required secret",
	}

	// Element errors: fatal during login
	ErrElementNotFound = &ExecutionError{
		Category: ErrCategoryElement,
		Code:     "element_not_found",
		Message:  "element not found",
	}
	ErrInteraction = &ExecutionError{
		Category: ErrCategoryElement,
		Code:     "interaction_failed",
		Message:  "element interaction failed",
	}

	// Timeout errors
	ErrWaitTimeout = &ExecutionError{
		Category: ErrCategoryTimeout,
		Code:     "wait_timeout",
		Message:  "wait condition timed out",
	}

	// Navigation errors
	ErrNavigationFailed = &ExecutionError{
		Category: ErrCategoryNavigation,
		Code:     "navigation_failed",
		Message:  "navigation failed",
	}

	// Step errors: isolated per step, never abort the run
	ErrStepFailure = &ExecutionError{
		Category: ErrCategoryStep,
		Code:     "step_failure",
		Message:  "step failed",
	}

	// Consent errors: logged only
	ErrConsentFailure = &ExecutionError{
		Category: ErrCategoryConsent,
		Code:     "consent_failure",
		Message:  "consent handling failed",
	}

	// Browser lifecycle errors
	ErrBrowser = &ExecutionError{
		Category: ErrCategoryBrowser,
		Code:     "browser_error",
		Message:  "browser session error",
	}
)

// NewExecutionError creates a new ExecutionError with the given parameters
func NewExecutionError(category ErrorCategory, code, message string) *ExecutionError {
	return &ExecutionError{
		Category: category,
		Code:     code,
		Message:  message,
	}
}

// ElementNotFound builds an ElementNotFoundError naming the selector.
func ElementNotFound(field string, target Target, cause error) *ExecutionError {
	return ErrElementNotFound.
		WithMessage(fmt.Sprintf("%s not found: %s", field, target)).
		WithDetails(map[string]interface{}{"field": field, "selector": target.String()}).
		WithCause(cause)
}

// CategoryOf returns the category of the first ExecutionError in err's
// chain, or ErrCategoryNone.
func CategoryOf(err error) ErrorCategory {
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return execErr.Category
	}
	return ErrCategoryNone
}
