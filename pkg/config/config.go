// Package config loads flow documents and resolves runtime settings.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/devicelab-dev/portal-capture/pkg/core"
	"github.com/devicelab-dev/portal-capture/pkg/jsengine"
	"github.com/devicelab-dev/portal-capture/pkg/logger"
)

// Environment variables overlaid onto the login section.
const (
	EnvLoginUsername = "LOGIN_USERNAME"
	EnvUsername      = "USERNAME" // legacy fallback
	EnvPassword      = "PASSWORD"
	EnvAccountName   = "ACCOUNT_NAME"
)

// DefaultFlowFile is the flow document read when --config is not given.
const DefaultFlowFile = "flow.yaml"

// FlowConfig represents a flow document (flow.yaml).
type FlowConfig struct {
	BaseURL string       `yaml:"baseUrl"`
	Login   LoginConfig  `yaml:"login"`
	Steps   []StepConfig `yaml:"steps"`

	SourcePath string `yaml:"-"` // Path the document was loaded from
}

// LoginConfig describes the credential form and optional sub-account.
type LoginConfig struct {
	URL         string `yaml:"url"` // Path appended to baseUrl, or an absolute URL
	Username    string `yaml:"username,omitempty"`
	Password    string `yaml:"password,omitempty"`
	AccountName string `yaml:"accountName,omitempty"`
}

// StepConfig describes one navigate/scroll/capture step.
type StepConfig struct {
	Name               string `yaml:"name"`                         // Output filename stem
	NavigationSelector string `yaml:"navigationSelector,omitempty"` // Link to click first
	ScreenshotSelector string `yaml:"screenshotSelector,omitempty"` // Element to capture; empty, body or html = full page
}

// LoginURL returns the URL of the login form.
func (c *FlowConfig) LoginURL() string {
	u := c.Login.URL
	if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return u
	}
	if strings.HasSuffix(c.BaseURL, "/") && strings.HasPrefix(u, "/") {
		return c.BaseURL + u[1:]
	}
	return c.BaseURL + u
}

// Load reads a flow document, expands ${...} expressions and overlays
// credentials from env. Environment values always take precedence over
// document values. Every failure is a config error.
func Load(path string, env Env) (*FlowConfig, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- user-provided flow file
	if err != nil {
		return nil, core.ErrConfig.
			WithMessage(fmt.Sprintf("read flow file %s", path)).
			WithCause(err)
	}

	cfg, err := Parse(data, env)
	if err != nil {
		return nil, err
	}
	cfg.SourcePath = path
	return cfg, nil
}

// Parse parses a flow document held in memory. See Load.
func Parse(data []byte, env Env) (*FlowConfig, error) {
	var cfg FlowConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, core.ErrConfig.WithMessage("parse flow document").WithCause(err)
	}

	literalPassword := cfg.Login.Password != "" && !jsengine.HasExpressions(cfg.Login.Password)

	if err := cfg.expand(env); err != nil {
		return nil, err
	}
	cfg.overlayEnv(env)

	if cfg.Login.Username == "" {
		return nil, missingSecret("username", EnvLoginUsername, EnvUsername)
	}
	if cfg.Login.Password == "" {
		return nil, missingSecret("password", EnvPassword)
	}
	if literalPassword && env.Get(EnvPassword) == "" {
		logger.Warn("login password taken from the flow document; prefer %s", EnvPassword)
	}

	return &cfg, nil
}

// overlayEnv replaces login fields with non-empty environment values.
func (c *FlowConfig) overlayEnv(env Env) {
	if v := env.First(EnvLoginUsername, EnvUsername); v != "" {
		c.Login.Username = v
	}
	if v := env.Get(EnvPassword); v != "" {
		c.Login.Password = v
	}
	if v := env.Get(EnvAccountName); v != "" {
		c.Login.AccountName = v
	}
}

// expand evaluates ${...} expressions in the document's string fields.
// baseUrl is expanded first and is visible to later fields as baseUrl.
// Credentials that env overrides are left untouched.
func (c *FlowConfig) expand(env Env) error {
	x := &expander{env: env, vars: make(map[string]interface{})}
	if err := x.expand(&c.BaseURL); err != nil {
		return err
	}
	x.set("baseUrl", c.BaseURL)

	fields := []*string{&c.Login.URL}
	if env.First(EnvLoginUsername, EnvUsername) == "" {
		fields = append(fields, &c.Login.Username)
	}
	if env.Get(EnvPassword) == "" {
		fields = append(fields, &c.Login.Password)
	}
	if env.Get(EnvAccountName) == "" {
		fields = append(fields, &c.Login.AccountName)
	}
	for i := range c.Steps {
		s := &c.Steps[i]
		fields = append(fields, &s.Name, &s.NavigationSelector, &s.ScreenshotSelector)
	}

	for _, field := range fields {
		if err := x.expand(field); err != nil {
			return err
		}
	}
	return nil
}

// expander creates its JS engine on the first field holding an expression.
type expander struct {
	env    Env
	vars   map[string]interface{}
	engine *jsengine.Engine
}

func (x *expander) set(name string, value interface{}) {
	x.vars[name] = value
	if x.engine != nil {
		x.engine.SetVariable(name, value)
	}
}

func (x *expander) expand(field *string) error {
	if !jsengine.HasExpressions(*field) {
		return nil
	}
	if x.engine == nil {
		x.engine = jsengine.New()
		x.engine.ImportEnv(x.env.Pairs())
		x.engine.SetVariables(x.vars)
	}
	expanded, err := x.engine.ExpandVariables(*field)
	if err != nil {
		return core.ErrConfig.WithMessage("expand flow document").WithCause(err)
	}
	*field = expanded
	return nil
}

func missingSecret(field string, vars ...string) error {
	return core.ErrMissingSecret.
		WithMessage(fmt.Sprintf("login %s not set: export %s", field, strings.Join(vars, " or "))).
		WithDetails(map[string]interface{}{"field": field, "variables": vars})
}
