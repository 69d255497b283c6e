package main

import (
	"os"

	"github.com/calderdata/intentgate/internal/cli"
)

func main() {
	// Commands render their own error output; main only maps the error to
	// the process exit code.
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(cli.GetExitCode(err))
	}
}
