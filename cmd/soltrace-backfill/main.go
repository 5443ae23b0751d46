package main

import (
	"os"

	"github.com/lugondev/soltrace/cmd/soltrace-backfill/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
