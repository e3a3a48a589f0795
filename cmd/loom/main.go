// Package main is the entry point for the loom CLI.
package main

import (
	"fmt"
	"os"

	"github.com/loomchat/loom/internal/cli"
)

// Version information (set by goreleaser)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	fullVersion := fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
	if err := cli.Execute(fullVersion); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
