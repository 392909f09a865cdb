package cli

import (
	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/portal-capture/pkg/config"
	"github.com/devicelab-dev/portal-capture/pkg/driver/chromium"
)

var installCommand = &cli.Command{
	Name:  "install",
	Usage: "Download the playwright driver and Chromium",
	Description: `Installs the browser once per machine. The default location is
<home>/drivers/playwright, where <home> is $PORTAL_CAPTURE_HOME, the
directory above the binary, or the user cache directory.`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "dir",
			Usage: "Install into this directory",
		},
	},
	Action: runInstall,
}

func runInstall(c *cli.Context) error {
	cfg, err := newRunConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	cleanup, err := cfg.setup()
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer cleanup()

	dir := c.String("dir")
	if dir == "" {
		dir = config.GetDriversDir("playwright")
	}
	printSetupStep("Installing playwright driver and Chromium into " + dir)
	if err := chromium.Install(chromium.Options{DriverDirectory: dir}); err != nil {
		return cli.Exit(err.Error(), 1)
	}
	printSetupSuccess("Browser installed")
	return nil
}
