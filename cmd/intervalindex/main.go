// Package main provides the entry point for the intervalindex CLI.
package main

import (
	"fmt"
	"os"

	"github.com/Sumatoshi-tech/intervalindex/cmd/intervalindex/commands"
	"github.com/Sumatoshi-tech/intervalindex/pkg/version"
)

func main() {
	version.InitBinaryVersion()

	err := commands.NewRootCommand().Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
