// Package validator checks flow documents before a browser is launched.
package validator

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/devicelab-dev/portal-capture/pkg/config"
	"github.com/devicelab-dev/portal-capture/pkg/core"
)

// ValidationError represents a validation error with context.
type ValidationError struct {
	File    string
	Field   string // flow document path, e.g. steps[2].name
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.File, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.File, e.Field, e.Message)
}

// Result contains the validation result.
type Result struct {
	// File is the validated flow document.
	File string
	// Flow is the parsed document, nil when it could not be loaded.
	Flow *config.FlowConfig
	// Errors contains all validation errors found.
	Errors []error
	// Warnings are problems that do not stop a run.
	Warnings []string
}

// IsValid returns true if there are no validation errors.
func (r *Result) IsValid() bool {
	return len(r.Errors) == 0
}

func (r *Result) addError(field, format string, args ...interface{}) {
	r.Errors = append(r.Errors, &ValidationError{
		File:    r.File,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	})
}

func (r *Result) addWarning(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Validate loads the flow document at path with env and validates it.
// Unreadable documents and missing credentials are reported as errors.
func Validate(path string, env config.Env) *Result {
	result := &Result{File: path}

	flow, err := config.Load(path, env)
	if err != nil {
		var execErr *core.ExecutionError
		if errors.As(err, &execErr) && errors.Is(err, core.ErrMissingSecret) {
			result.addError(execErr.Detail("field"), "not set (use %s)", execErr.Detail("variables"))
		} else {
			result.addError("", "%v", err)
		}
		return result
	}

	// Load records path as the flow's SourcePath.
	return ValidateFlow(flow)
}

// ValidateFlow validates an already loaded flow.
func ValidateFlow(flow *config.FlowConfig) *Result {
	result := &Result{File: flow.SourcePath, Flow: flow}
	loginAbsolute := isAbsoluteHTTP(flow.Login.URL)

	switch {
	case flow.BaseURL == "" && !loginAbsolute:
		result.addError("baseUrl", "required")
	case flow.BaseURL != "" && !isAbsoluteHTTP(flow.BaseURL):
		result.addError("baseUrl", "must be an absolute http(s) URL, got %q", flow.BaseURL)
	}

	if u := flow.Login.URL; u != "" && !loginAbsolute && !strings.HasPrefix(u, "/") {
		result.addError("login.url", "must be a path starting with / or an absolute URL, got %q", u)
	}

	if len(flow.Steps) == 0 {
		result.addWarning("no steps defined, only login will run")
	}

	seen := make(map[string]int)
	for i, step := range flow.Steps {
		field := fmt.Sprintf("steps[%d].name", i)
		name := step.Name
		switch {
		case strings.TrimSpace(name) == "":
			result.addError(field, "required")
			continue
		case name == "." || name == "..":
			result.addError(field, "%q is not a valid file name", name)
		case strings.ContainsAny(name, `/\`):
			result.addError(field, "%q must not contain path separators", name)
		}
		if prev, ok := seen[name]; ok {
			result.addWarning("%s: step name %q repeats steps[%d], the later image overwrites the earlier one", field, name, prev)
			continue
		}
		seen[name] = i
	}
	return result
}

func isAbsoluteHTTP(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
