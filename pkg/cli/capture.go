package cli

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/portal-capture/pkg/config"
	"github.com/devicelab-dev/portal-capture/pkg/executor"
	"github.com/devicelab-dev/portal-capture/pkg/report"
)

var captureCommand = &cli.Command{
	Name:  "capture",
	Usage: "Capture a single page configured by environment variables",
	Description: `Single-shot mode: log in at LOGIN_URL, open the ACCOUNT_NAME sub-account
or TARGET_URL, optionally follow the link whose text is NAVIGATE_TO_LINK,
then save SELECTOR_TO_SCREENSHOT (default: the full page) as output.gif.

Required: LOGIN_URL, LOGIN_USERNAME (or USERNAME), PASSWORD, TARGET_URL

Examples:
  portal-capture capture
  portal-capture --headless --output ./out capture`,
	Action: runCapture,
}

func runCapture(c *cli.Context) error {
	cfg, err := newRunConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	cleanup, err := cfg.setup()
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer cleanup()

	return executeCapture(cfg)
}

func executeCapture(cfg *RunConfig) error {
	printBanner()

	legacy, err := config.LoadLegacy(cfg.Env)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	settings := config.ResolveSettings(cfg.Env)

	live := newLiveReport(cfg, report.BuildSkeleton(legacy.Flow(), reportMeta(cfg, report.ModeLegacy)))

	session, err := openPage(cfg)
	if err != nil {
		live.Fail(err)
		return cli.Exit(fmt.Sprintf("browser setup failed: %v", err), 1)
	}
	defer session.teardown()

	ctx, stop := signalContext()
	defer stop()

	runner := executor.New(session.page, runnerConfig(cfg, settings, live))
	live.Start()
	result, err := runner.RunLegacy(ctx, legacy)
	live.Finish(result)

	printSummary(result)
	if err != nil {
		return cli.Exit(fmt.Sprintf("capture failed: %v", err), 1)
	}
	return nil
}
