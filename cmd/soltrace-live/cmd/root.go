// Package cmd implements the soltrace-live CLI: an init subcommand
// that provisions a storage backend's schema, and a run subcommand
// that starts the live push-stream ingestion engine.
package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/lugondev/soltrace/internal/config"
)

var v = config.NewViper()

var rootCmd = &cobra.Command{
	Use:   "soltrace-live",
	Short: "Ingest Solana program events from a live log subscription",
	Long: `soltrace-live decodes Anchor events from a program's live log
stream and persists them exactly once per transaction signature.`,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("db-url", "", "storage backend URL (sqlite:, postgres://, or mongodb://)")
	flags.String("log-level", "info", "log level: debug, info, warn, or error")

	for _, name := range []string{"db-url", "log-level"} {
		if err := config.BindFlag(v, flags, name); err != nil {
			panic(err)
		}
	}

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(runCmd)
}

// Execute runs the selected subcommand.
func Execute() error {
	return rootCmd.Execute()
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
