package config

import (
	"fmt"
	"strings"

	"github.com/devicelab-dev/portal-capture/pkg/core"
)

// Variables read by the single-shot capture mode.
const (
	EnvLoginURL             = "LOGIN_URL"
	EnvTargetURL            = "TARGET_URL"
	EnvNavigateToLink       = "NAVIGATE_TO_LINK"
	EnvSelectorToScreenshot = "SELECTOR_TO_SCREENSHOT"
)

// LegacyOutputFile is the single image the capture mode writes.
const LegacyOutputFile = "output.gif"

// LegacyConfig drives the single-shot capture mode, configured entirely
// from the environment.
type LegacyConfig struct {
	LoginURL           string
	Username           string
	Password           string
	TargetURL          string // opened when no account was selected
	AccountName        string
	NavigateToLink     string // visible text of a link to follow before capture
	ScreenshotSelector string
	OutputFile         string
}

// LoadLegacy resolves the capture mode settings from env.
func LoadLegacy(env Env) (*LegacyConfig, error) {
	cfg := &LegacyConfig{
		LoginURL:           env.Get(EnvLoginURL),
		Username:           env.First(EnvLoginUsername, EnvUsername),
		Password:           env.Get(EnvPassword),
		TargetURL:          env.Get(EnvTargetURL),
		AccountName:        env.Get(EnvAccountName),
		NavigateToLink:     env.Get(EnvNavigateToLink),
		ScreenshotSelector: env.Get(EnvSelectorToScreenshot),
		OutputFile:         LegacyOutputFile,
	}
	if cfg.ScreenshotSelector == "" {
		cfg.ScreenshotSelector = "body"
	}

	var missing []string
	if cfg.LoginURL == "" {
		missing = append(missing, EnvLoginURL)
	}
	if cfg.Username == "" {
		missing = append(missing, EnvLoginUsername)
	}
	if cfg.Password == "" {
		missing = append(missing, EnvPassword)
	}
	if cfg.TargetURL == "" {
		missing = append(missing, EnvTargetURL)
	}
	if len(missing) > 0 {
		return nil, core.ErrMissingSecret.
			WithMessage(fmt.Sprintf("missing required environment variables: %s", strings.Join(missing, ", "))).
			WithDetails(map[string]interface{}{"variables": missing})
	}
	return cfg, nil
}

// Flow returns the equivalent flow for the login phase. The login form
// lives at LOGIN_URL itself.
func (l *LegacyConfig) Flow() *FlowConfig {
	return &FlowConfig{
		BaseURL: l.LoginURL,
		Login: LoginConfig{
			Username:    l.Username,
			Password:    l.Password,
			AccountName: l.AccountName,
		},
		SourcePath: "env",
	}
}

// LinkTarget returns the selector matching the link to follow, or "".
func (l *LegacyConfig) LinkTarget() string {
	if l.NavigateToLink == "" {
		return ""
	}
	text := strings.ReplaceAll(l.NavigateToLink, `"`, `\"`)
	return fmt.Sprintf(`a:has-text("%s"), span:has-text("%s")`, text, text)
}
