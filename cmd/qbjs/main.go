package main

import (
	"errors"
	"os"

	"github.com/asofdevlab/qbjs/internal/cache"
	"github.com/asofdevlab/qbjs/internal/cli"
)

func main() {
	results := cache.New(cache.Options[cli.SQLResult]{})
	cmd := cli.NewRootCommand(results)

	err := cmd.Execute()
	results.Close()
	if err != nil {
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			// cobra errors (unknown flag, bad args) are not printed by
			// commands with SilenceErrors, so report them here.
			cmd.PrintErrln("Error:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
