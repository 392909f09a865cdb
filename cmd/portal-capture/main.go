// Command portal-capture logs in to a web portal and saves grayscale GIF
// captures of its pages.
package main

import "github.com/devicelab-dev/portal-capture/pkg/cli"

func main() {
	cli.Execute()
}
