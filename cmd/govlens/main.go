// Package main is the govlens entry point.
package main

import (
	"fmt"
	"os"

	"github.com/custodia-labs/govlens/internal/adapters/driving/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := cli.Execute(version); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
