package main

import (
	"os"

	"github.com/gkobilansky/ab-sim/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
