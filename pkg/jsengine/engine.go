// Package jsengine evaluates ${...} JavaScript expressions embedded in flow files.
package jsengine

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/dop251/goja"
)

// envNamePattern matches ALL_CAPS names exposed as bare globals.
var envNamePattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]{2,}$`)

// Engine wraps a goja runtime holding flow variables.
type Engine struct {
	runtime *goja.Runtime
	env     *goja.Object
	mu      sync.Mutex
}

// New creates a new JS engine instance with an empty env object.
func New() *Engine {
	e := &Engine{runtime: goja.New()}
	e.env = e.runtime.NewObject()
	e.runtime.Set("env", e.env)
	return e
}

// SetVariable sets a global variable
func (e *Engine) SetVariable(name string, value interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.runtime.Set(name, value)
}

// SetVariables sets multiple variables
func (e *Engine) SetVariables(vars map[string]interface{}) {
	for k, v := range vars {
		e.SetVariable(k, v)
	}
}

// ImportEnv exposes KEY=VALUE pairs under env.KEY, and ALL_CAPS keys
// additionally as bare globals unless the name is already defined, either
// as a variable or as a builtin such as JSON.
func (e *Engine) ImportEnv(environ []string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			continue
		}
		e.env.Set(key, value)
		if !envNamePattern.MatchString(key) {
			continue
		}
		if e.runtime.Get(key) != nil {
			continue
		}
		e.runtime.Set(key, value)
	}
}

// Eval evaluates a JavaScript expression and returns the result
func (e *Engine) Eval(script string) (interface{}, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	result, err := e.runtime.RunString(script)
	if err != nil {
		return nil, fmt.Errorf("JS eval error: %w", err)
	}
	if result == nil || goja.IsUndefined(result) || goja.IsNull(result) {
		return nil, nil
	}
	return result.Export(), nil
}

// EvalString evaluates a JavaScript expression and returns string result.
// An undefined or null result is an error so a missing value never
// silently becomes an empty string.
func (e *Engine) EvalString(script string) (string, error) {
	result, err := e.Eval(script)
	if err != nil {
		return "", err
	}
	if result == nil {
		return "", fmt.Errorf("expression %q is undefined", script)
	}
	return fmt.Sprintf("%v", result), nil
}

// HasExpressions reports whether text contains a ${...} expression.
func HasExpressions(text string) bool {
	return strings.Contains(text, "${")
}

// ExpandVariables expands ${...} expressions in a string using JS evaluation.
// Braces inside the expression are balanced; an unmatched ${ is left as-is.
func (e *Engine) ExpandVariables(text string) (string, error) {
	result := text
	start := 0

	for {
		// Find ${
		idx := strings.Index(result[start:], "${")
		if idx == -1 {
			break
		}
		idx += start

		// Find matching }
		depth := 1
		end := idx + 2
		for end < len(result) && depth > 0 {
			if result[end] == '{' {
				depth++
			} else if result[end] == '}' {
				depth--
			}
			end++
		}

		if depth != 0 {
			start = idx + 2
			continue
		}

		expr := strings.TrimSpace(result[idx+2 : end-1])
		value, err := e.EvalString(expr)
		if err != nil {
			return "", fmt.Errorf("expand ${%s}: %w", expr, err)
		}

		result = result[:idx] + value + result[end:]
		start = idx + len(value)
	}

	return result, nil
}
