package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/portal-capture/pkg/report"
)

var statusCommand = &cli.Command{
	Name:      "status",
	Usage:     "Show the progress recorded in a run report",
	ArgsUsage: "[report.json]",
	Description: `Reads a report written with --report, including one still being updated
by a running capture, and prints the run status and each step.

Examples:
  portal-capture status run.json
  portal-capture --report run.json status`,
	Action: runStatus,
}

func runStatus(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		path = c.String("report")
	}
	if path == "" {
		return cli.Exit("report path required: portal-capture status <report.json>", 1)
	}
	if c.Bool("no-color") {
		color.NoColor = true
	}

	r, err := report.Read(path)
	if err != nil {
		return cli.Exit(fmt.Sprintf("read report: %v", err), 1)
	}
	printReport(r)
	return nil
}
