package main

import (
	"fmt"
	"os"

	"github.com/gradnav/gradnav/internal/cli"
)

func main() {
	rootCmd := cli.RootCmd()

	// Default to serve when invoked with no subcommand
	if len(os.Args) == 1 {
		rootCmd.SetArgs([]string{"serve"})
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
