// Package auth drives the two-step credential form and optional
// sub-account selection.
package auth

import (
	"errors"
	"fmt"

	"github.com/devicelab-dev/portal-capture/pkg/config"
	"github.com/devicelab-dev/portal-capture/pkg/consent"
	"github.com/devicelab-dev/portal-capture/pkg/core"
	"github.com/devicelab-dev/portal-capture/pkg/logger"
)

// ConsentHandler dismisses a consent overlay. Implemented by *consent.Handler.
type ConsentHandler interface {
	Handle(page core.Page) consent.Result
}

// Authenticator logs into the portal.
type Authenticator struct {
	Selectors config.Selectors
	Timeouts  config.Timeouts
	Consent   ConsentHandler
}

// Result records what happened during login.
type Result struct {
	LoginURL   string
	Consent    consent.Result
	Navigation core.Navigation // after clicking the login control
	Account    core.AccountOutcome
}

// New creates an authenticator from resolved settings.
func New(settings config.Settings, consentHandler ConsentHandler) *Authenticator {
	return &Authenticator{
		Selectors: settings.Selectors,
		Timeouts:  settings.Timeouts,
		Consent:   consentHandler,
	}
}

// Login navigates to the login page, handles consent, submits username
// and password, and selects the configured sub-account. Any missing form
// control aborts with core.ErrElementNotFound.
func (a *Authenticator) Login(page core.Page, cfg *config.FlowConfig) (*Result, error) {
	res := &Result{LoginURL: cfg.LoginURL()}

	logger.Info("navigating to %s", res.LoginURL)
	if err := page.Navigate(res.LoginURL); err != nil {
		return res, core.ErrNavigationFailed.
			WithMessage(fmt.Sprintf("open login page %s", res.LoginURL)).
			WithCause(err)
	}

	if a.Consent != nil {
		res.Consent = a.Consent.Handle(page)
	}

	logger.Info("filling username: %s", cfg.Login.Username)
	if err := a.fill(page, "username field", a.Selectors.Username, cfg.Login.Username); err != nil {
		return res, err
	}

	if err := a.click(page, "next button", a.Selectors.NextButton); err != nil {
		return res, err
	}

	logger.Info("filling password")
	if err := a.fill(page, "password field", a.Selectors.Password, cfg.Login.Password); err != nil {
		return res, err
	}

	loginTarget := core.Target{Selector: a.Selectors.LoginButton}
	if err := a.waitFor(page, "login button", loginTarget); err != nil {
		return res, err
	}
	nav, err := page.ClickAndWaitForNavigation(loginTarget, a.Timeouts.Navigation)
	if err != nil {
		return res, interactionFailed("click", "login button", loginTarget, err)
	}
	res.Navigation = nav
	if !nav.Detected() {
		// Some portals log in without a full navigation.
		logger.Info("no navigation after login click: %v", nav.Reason)
	}
	logger.Info("logged in, now at %s", page.URL())

	account, err := a.SelectAccount(page, cfg.Login.AccountName)
	res.Account = account
	return res, err
}

// SelectAccount clicks the first connected-account link containing name.
// A link that never becomes visible is logged and reported as
// AccountNotFound; a click that does not navigate is an error.
func (a *Authenticator) SelectAccount(page core.Page, name string) (core.AccountOutcome, error) {
	if name == "" {
		return core.AccountNotRequested, nil
	}

	target := core.Target{Selector: a.Selectors.AccountLink, HasText: name}
	logger.Info("selecting account %q", name)

	if err := page.WaitVisible(target, a.Timeouts.Element); err != nil {
		logger.Warn("account %q not found (%s): %v", name, target, err)
		return core.AccountNotFound, nil
	}

	nav, err := page.ClickAndWaitForNavigation(target, a.Timeouts.Navigation)
	if err != nil {
		return core.AccountNotFound, interactionFailed("click", "account link", target, err)
	}
	if !nav.Detected() {
		return core.AccountNotFound, core.ErrNavigationFailed.
			WithMessage(fmt.Sprintf("account %q: no navigation after click", name)).
			WithDetails(map[string]interface{}{"selector": target.String()}).
			WithCause(nav.Reason)
	}

	logger.Info("account %q selected, now at %s", name, page.URL())
	return core.AccountSelected, nil
}

func (a *Authenticator) waitFor(page core.Page, field string, target core.Target) error {
	err := page.WaitVisible(target, a.Timeouts.Element)
	if err == nil {
		return nil
	}
	if errors.Is(err, core.ErrWaitTimeout) {
		return core.ElementNotFound(field, target, err)
	}
	return interactionFailed("wait for", field, target, err)
}

func (a *Authenticator) fill(page core.Page, field, selector, value string) error {
	target := core.Target{Selector: selector}
	if err := a.waitFor(page, field, target); err != nil {
		return err
	}
	if err := page.Fill(target, value); err != nil {
		return interactionFailed("fill", field, target, err)
	}
	return nil
}

func (a *Authenticator) click(page core.Page, field, selector string) error {
	target := core.Target{Selector: selector}
	if err := a.waitFor(page, field, target); err != nil {
		return err
	}
	if err := page.Click(target); err != nil {
		return interactionFailed("click", field, target, err)
	}
	return nil
}

func interactionFailed(verb, field string, target core.Target, cause error) error {
	return core.ErrInteraction.
		WithMessage(fmt.Sprintf("%s %s (%s)", verb, field, target)).
		WithDetails(map[string]interface{}{"field": field, "selector": target.String()}).
		WithCause(cause)
}
