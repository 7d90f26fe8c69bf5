package main

import (
	"os"

	"github.com/rocbridge/rocbridge/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
