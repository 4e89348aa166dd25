package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/reportcore/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err != nil {
		// ExitErrors were already reported through the output formatter.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
	}
	os.Exit(cli.GetExitCode(err))
}
