// Command canvasync materializes timeline scene fixtures onto a preview
// canvas, serves live sessions and runs scenario conformance tests.
package main

import (
	"os"

	"github.com/roach88/canvasync/internal/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:], os.Stdout, os.Stderr))
}
