// Package cli provides the command-line interface for portal-capture.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

// Version is set at build time.
var Version = "dev"

// GlobalFlags are available to all commands.
var GlobalFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to the flow document",
		Value:   "flow.yaml",
		EnvVars: []string{"FLOW_CONFIG"},
	},
	&cli.StringSliceFlag{
		Name:    "env",
		Aliases: []string{"e"},
		Usage:   "Environment variables (KEY=VALUE), override the process environment",
	},
	&cli.BoolFlag{
		Name:    "headless",
		Usage:   "Run the browser without a window",
		EnvVars: []string{"HEADLESS"},
	},
	&cli.StringFlag{
		Name:  "viewport",
		Usage: "Browser viewport as WIDTHxHEIGHT",
		Value: "1280x720",
	},
	&cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "Directory for captured images",
		Value:   ".",
	},
	&cli.StringFlag{
		Name:  "report",
		Usage: "Write a JSON run report to this path, updated live",
	},
	&cli.StringFlag{
		Name:  "log-file",
		Usage: "Also write logs to this file",
	},
	&cli.BoolFlag{
		Name:    "verbose",
		Usage:   "Enable verbose logging",
		EnvVars: []string{"PORTAL_CAPTURE_VERBOSE"},
	},
	&cli.BoolFlag{
		Name:  "no-color",
		Usage: "Disable colored output",
	},
	&cli.BoolFlag{
		Name:  "dry-run",
		Usage: "Rehearse the flow against a simulated page, no browser",
	},
}

// NewApp builds the CLI application.
func NewApp() *cli.App {
	return &cli.App{
		Name:    "portal-capture",
		Usage:   "Log in to a web portal and capture pages as grayscale GIFs",
		Version: Version,
		Description: `portal-capture logs in to a web portal with credentials from the
environment, then visits each step of a flow document, scrolls the page
to load lazy content and saves a grayscale GIF per step.

Credentials:
  LOGIN_USERNAME (or USERNAME), PASSWORD, optional ACCOUNT_NAME

Examples:
  portal-capture --config flow.yaml --output ./captures
  portal-capture --headless --report run.json
  portal-capture validate
  portal-capture capture        # single page from LOGIN_URL/TARGET_URL`,
		Flags:  GlobalFlags,
		Action: runFlow,
		Commands: []*cli.Command{
			captureCommand,
			validateCommand,
			installCommand,
			statusCommand,
		},
		// Exit codes are decided in Execute.
		ExitErrHandler: func(*cli.Context, error) {},
	}
}

// Execute runs the CLI.
func Execute() {
	if err := NewApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	var coder cli.ExitCoder
	if errors.As(err, &coder) && coder.ExitCode() != 0 {
		return coder.ExitCode()
	}
	return 1
}
