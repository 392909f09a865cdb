package cli

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/portal-capture/pkg/validator"
)

var validateCommand = &cli.Command{
	Name:  "validate",
	Usage: "Check the flow document without launching a browser",
	Description: `Parses the flow document, expands ${...} expressions and checks base URL,
login URL, step names and credentials.

Examples:
  portal-capture validate
  portal-capture --config flows/monthly.yaml validate`,
	Action: runValidate,
}

func runValidate(c *cli.Context) error {
	cfg, err := newRunConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	cleanup, err := cfg.setup()
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer cleanup()

	result := validator.Validate(cfg.ConfigPath, cfg.Env)
	printValidation(result)
	if !result.IsValid() {
		return cli.Exit(fmt.Sprintf("%d error(s) in %s", len(result.Errors), cfg.ConfigPath), 1)
	}
	printSetupSuccess(fmt.Sprintf("%s is valid (%d steps)", cfg.ConfigPath, len(result.Flow.Steps)))
	return nil
}
