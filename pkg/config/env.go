package config

import (
	"os"
	"sort"
	"strings"
)

// Env is a snapshot of the process environment, taken once at startup.
type Env map[string]string

// FromOS snapshots os.Environ().
func FromOS() Env {
	env := make(Env)
	for _, kv := range os.Environ() {
		if key, value, ok := strings.Cut(kv, "="); ok {
			env[key] = value
		}
	}
	return env
}

// Get returns the value for key, or "" when unset.
func (e Env) Get(key string) string {
	return e[key]
}

// First returns the first non-empty value among keys.
func (e Env) First(keys ...string) string {
	for _, key := range keys {
		if v := e[key]; v != "" {
			return v
		}
	}
	return ""
}

// Pairs returns the snapshot as sorted KEY=VALUE strings.
func (e Env) Pairs() []string {
	pairs := make([]string, 0, len(e))
	for k, v := range e {
		pairs = append(pairs, k+"="+v)
	}
	sort.Strings(pairs)
	return pairs
}
