package config

import (
	"time"
)

// Selector override variables.
const (
	EnvUsernameSelector      = "USERNAME_SELECTOR"
	EnvNextButtonSelector    = "NEXT_BUTTON_SELECTOR"
	EnvPasswordSelector      = "PASSWORD_SELECTOR"
	EnvConsentButtonSelector = "CONSENT_BUTTON_SELECTOR"
	EnvLoginButtonSelector   = "LOGIN_BUTTON_SELECTOR"
)

// Selectors holds every selector the login and consent flows use.
// Defaults target the portal's Polish markup and usually need adjusting
// for other sites.
type Selectors struct {
	Username      string
	NextButton    string
	Password      string
	ConsentButton string
	LoginButton   string

	ConsentFrame   string // iframe the consent dialog may live in
	ConsentOverlay string // root node of the consent overlay
	AccountLink    string // connected sub-account links
}

// DefaultSelectors returns the built-in selectors.
func DefaultSelectors() Selectors {
	return Selectors{
		Username:       `input[name="Alias"]`,
		NextButton:     `button:has-text("Dalej"), button[id="btNext"]`,
		Password:       `input[name="Password"]`,
		ConsentButton:  `#save-default-button, button:has-text("Zgadzam się")`,
		LoginButton:    `button:has-text("Zaloguj")`,
		ConsentFrame:   "#respect-privacy-frame",
		ConsentOverlay: "#respect-privacy-wrapper",
		AccountLink:    "a.connected-account",
	}
}

// SelectorsFromEnv returns the defaults with non-empty overrides from env.
func SelectorsFromEnv(env Env) Selectors {
	s := DefaultSelectors()
	for key, field := range map[string]*string{
		EnvUsernameSelector:      &s.Username,
		EnvNextButtonSelector:    &s.NextButton,
		EnvPasswordSelector:      &s.Password,
		EnvConsentButtonSelector: &s.ConsentButton,
		EnvLoginButtonSelector:   &s.LoginButton,
	} {
		if v := env.Get(key); v != "" {
			*field = v
		}
	}
	return s
}

// Timeouts are the fixed bounds for every wait. There is no retry.
type Timeouts struct {
	Element       time.Duration // login form controls, account link, step links
	ConsentProbe  time.Duration // each consent visibility probe
	OverlayHidden time.Duration // consent overlay disappearing
	DOMReady      time.Duration // DOMContentLoaded before consent handling
	Navigation    time.Duration // click-and-navigate races
}

// DefaultTimeouts returns the built-in timeouts.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Element:       10 * time.Second,
		ConsentProbe:  5 * time.Second,
		OverlayHidden: 5 * time.Second,
		DOMReady:      15 * time.Second,
		Navigation:    15 * time.Second,
	}
}

// ScrollOptions controls the auto-scroll pass before each capture.
type ScrollOptions struct {
	Distance      int           // px per increment
	Interval      time.Duration // delay before each increment
	MaxIterations int           // bound after which the scroll is partial
}

// DefaultScrollOptions returns 100px every 100ms, at most 600 increments
// (60000px, one minute).
func DefaultScrollOptions() ScrollOptions {
	return ScrollOptions{
		Distance:      100,
		Interval:      100 * time.Millisecond,
		MaxIterations: 600,
	}
}

// Settings bundles everything resolved once at startup and passed into
// each component at construction.
type Settings struct {
	Selectors Selectors
	Timeouts  Timeouts
	Scroll    ScrollOptions
}

// ResolveSettings builds Settings from defaults and env overrides.
func ResolveSettings(env Env) Settings {
	return Settings{
		Selectors: SelectorsFromEnv(env),
		Timeouts:  DefaultTimeouts(),
		Scroll:    DefaultScrollOptions(),
	}
}
