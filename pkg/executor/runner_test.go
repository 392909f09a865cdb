package executor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/devicelab-dev/portal-capture/pkg/auth"
	"github.com/devicelab-dev/portal-capture/pkg/config"
	"github.com/devicelab-dev/portal-capture/pkg/core"
	"github.com/devicelab-dev/portal-capture/pkg/driver/mock"
)

func testSettings() config.Settings {
	s := config.ResolveSettings(config.Env{})
	s.Scroll = fastScroll()
	return s
}

// loginPage returns a mock page with a working login form.
func loginPage(extra ...*mock.Element) *mock.Page {
	sel := config.DefaultSelectors()
	elements := []*mock.Element{
		{Selector: sel.Username, Visible: true},
		{Selector: sel.NextButton, Visible: true},
		{Selector: sel.Password, Visible: true},
		{Selector: sel.LoginButton, Visible: true, Navigates: true, NavigateTo: "https://x.test/home"},
	}
	return mock.New(mock.Config{Elements: append(elements, extra...)})
}

func newTestRunner(t *testing.T, page core.Page) (*Runner, string) {
	t.Helper()
	dir := t.TempDir()
	return New(page, RunnerConfig{Settings: testSettings(), OutputDir: dir, Now: fixedNow}), dir
}

func TestRun_EndToEnd(t *testing.T) {
	page := loginPage()
	r, dir := newTestRunner(t, page)

	flow := &config.FlowConfig{
		BaseURL:    "https://x.test",
		Login:      config.LoginConfig{URL: "/login", Username: "u", Password: "p"},
		Steps:      []config.StepConfig{{Name: "home"}},
		SourcePath: "flow.yaml",
	}

	var loggedIn bool
	r.config.OnLogin = func(res *auth.Result) {
		loggedIn = true
		if res.LoginURL != "https://x.test/login" {
			t.Errorf("LoginURL = %q", res.LoginURL)
		}
	}

	result, err := r.Run(context.Background(), flow)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !loggedIn {
		t.Error("OnLogin not called")
	}

	navs := page.CallsTo("navigate")
	if len(navs) != 1 || navs[0].Target != "https://x.test/login" {
		t.Errorf("navigations = %v, want the login URL only", navs)
	}

	// username is filled before the password
	fills := page.CallsTo("fill")
	if len(fills) != 2 || fills[0].Value != "u" || fills[1].Value != "p" {
		t.Errorf("fills = %v, want username then password", fills)
	}

	if !result.Success() || result.PassedSteps != 1 || result.TotalSteps != 1 {
		t.Errorf("result = %+v, want one passed step", result)
	}
	if result.Account != core.AccountNotRequested {
		t.Errorf("Account = %s, want not requested", result.Account)
	}
	if result.Source != "flow.yaml" || result.BaseURL != "https://x.test" {
		t.Errorf("result source = %q %q", result.Source, result.BaseURL)
	}

	want := filepath.Join(dir, "home_2024-05-17.gif")
	if result.Steps[0].OutputPath != want {
		t.Errorf("OutputPath = %q, want %q", result.Steps[0].OutputPath, want)
	}
	if _, err := os.Stat(want); err != nil {
		t.Errorf("output missing: %v", err)
	}
	if outs := result.Outputs(); len(outs) != 1 || outs[0] != want {
		t.Errorf("Outputs() = %v", outs)
	}
}

func TestRun_LoginFailureAborts(t *testing.T) {
	// no password field
	sel := config.DefaultSelectors()
	page := mock.New(mock.Config{Elements: []*mock.Element{
		{Selector: sel.Username, Visible: true},
		{Selector: sel.NextButton, Visible: true},
	}})
	r, dir := newTestRunner(t, page)

	flow := &config.FlowConfig{
		BaseURL: "https://x.test",
		Login:   config.LoginConfig{URL: "/login", Username: "u", Password: "secret-pw"},
		Steps:   []config.StepConfig{{Name: "home"}},
	}

	result, err := r.Run(context.Background(), flow)
	if !errors.Is(err, core.ErrElementNotFound) {
		t.Fatalf("Run() error = %v, want ErrElementNotFound", err)
	}
	if result.Error == "" || result.Success() {
		t.Errorf("result = %+v, want failed run", result)
	}
	if strings.Contains(result.Error, "secret-pw") {
		t.Error("password leaked into the run error")
	}
	if len(result.Steps) != 0 || countFiles(t, dir) != 0 {
		t.Error("steps ran after a login failure")
	}
}

func TestRun_WithAccount(t *testing.T) {
	page := loginPage(&mock.Element{
		Selector:   config.DefaultSelectors().AccountLink,
		Text:       "Firma ABC Sp. z o.o.",
		Visible:    true,
		Navigates:  true,
		NavigateTo: "https://x.test/account/abc",
	})
	r, _ := newTestRunner(t, page)

	flow := &config.FlowConfig{
		BaseURL: "https://x.test",
		Login:   config.LoginConfig{URL: "/login", Username: "u", Password: "p", AccountName: "Firma ABC"},
		Steps:   []config.StepConfig{{Name: "summary"}},
	}

	result, err := r.Run(context.Background(), flow)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Account != core.AccountSelected {
		t.Errorf("Account = %s, want selected", result.Account)
	}
	if page.URL() != "https://x.test/account/abc" {
		t.Errorf("URL = %q, want the account page", page.URL())
	}
}

func TestRun_MissingAccountContinues(t *testing.T) {
	page := loginPage()
	r, _ := newTestRunner(t, page)

	flow := &config.FlowConfig{
		BaseURL: "https://x.test",
		Login:   config.LoginConfig{URL: "/login", Username: "u", Password: "p", AccountName: "Nope"},
		Steps:   []config.StepConfig{{Name: "home"}},
	}

	result, err := r.Run(context.Background(), flow)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Account != core.AccountNotFound {
		t.Errorf("Account = %s, want not found", result.Account)
	}
	if result.PassedSteps != 1 {
		t.Errorf("PassedSteps = %d, want 1", result.PassedSteps)
	}
}

func TestRun_StepCallbacks(t *testing.T) {
	page := loginPage(&mock.Element{Selector: "#reports", Visible: true, Navigates: true})
	r, _ := newTestRunner(t, page)

	var events []string
	r.config.OnStepStart = func(idx, total int, step config.StepConfig) {
		events = append(events, "start:"+step.Name)
	}
	r.config.OnStepComplete = func(idx, total int, res core.StepResult) {
		events = append(events, "done:"+res.Status.String())
	}

	flow := &config.FlowConfig{
		BaseURL: "https://x.test",
		Login:   config.LoginConfig{URL: "/login", Username: "u", Password: "p"},
		Steps: []config.StepConfig{
			{Name: "reports", NavigationSelector: "#reports"},
			{Name: "broken", NavigationSelector: "#missing"},
		},
	}

	result, err := r.Run(context.Background(), flow)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []string{"start:reports", "done:passed", "start:broken", "done:skipped"}
	if strings.Join(events, ",") != strings.Join(want, ",") {
		t.Errorf("events = %v, want %v", events, want)
	}
	if result.PassedSteps != 1 || result.SkippedSteps != 1 {
		t.Errorf("summary = %d passed %d skipped", result.PassedSteps, result.SkippedSteps)
	}
	// skipped steps do not fail the run
	if !result.Success() {
		t.Error("Success() = false, want true")
	}
}
