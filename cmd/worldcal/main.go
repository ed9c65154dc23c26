// Command worldcal compiles worldbuilding calendars, decodes and formats
// their timestamps, and serves them over HTTP.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/worldcal/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "worldcal:", err)
	}
	os.Exit(cli.GetExitCode(err))
}
