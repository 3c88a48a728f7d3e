package main

import (
	"os"

	"github.com/devtriage/issuepilot/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
