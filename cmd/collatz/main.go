// Command collatz explores the 3n+1 problem: step counts, trajectories,
// range verification, record hunts, journaled scans, and conformance
// suites.
package main

import (
	"fmt"
	"os"

	"github.com/Mearkatz/beetle-collatz/internal/cli"
)

func main() {
	root := cli.NewRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
