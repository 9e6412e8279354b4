// Command downbeat is a terminal metronome.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/downbeat/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "downbeat:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
