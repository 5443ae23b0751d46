package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lugondev/soltrace/internal/config"
	"github.com/lugondev/soltrace/internal/storage"

	_ "github.com/lugondev/soltrace/internal/storage/mongo"
	_ "github.com/lugondev/soltrace/internal/storage/postgres"
	_ "github.com/lugondev/soltrace/internal/storage/sqlite"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Provision the storage backend's schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.FromViper(v)
		if err != nil {
			return err
		}
		if cfg.DBURL == "" {
			return fmt.Errorf("soltrace-live init: --db-url is required")
		}

		logger := newLogger(cfg.LogLevel)
		ctx := context.Background()

		store, err := storage.Open(ctx, cfg.DBURL)
		if err != nil {
			return fmt.Errorf("soltrace-live init: %w", err)
		}
		defer store.Close()

		if err := store.Initialize(ctx); err != nil {
			return fmt.Errorf("soltrace-live init: initialize schema: %w", err)
		}

		logger.Info("storage backend initialized", "db_url", cfg.DBURL)
		return nil
	},
}
