package main

import (
	"os"

	"github.com/roach88/cardstack/internal/cli"
)

func main() {
	// Subcommands report their own errors through the output formatter.
	err := cli.NewRootCommand().Execute()
	os.Exit(cli.GetExitCode(err))
}
