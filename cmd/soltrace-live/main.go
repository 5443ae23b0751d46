package main

import (
	"os"

	"github.com/lugondev/soltrace/cmd/soltrace-live/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
