// Command withdef resolves definition records through def-wrapped views.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/withdef/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
