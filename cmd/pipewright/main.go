// Package main provides the pipewright CLI.
package main

import (
	"os"

	"github.com/leapstack-labs/pipewright/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
