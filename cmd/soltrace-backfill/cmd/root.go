// Package cmd implements the soltrace-backfill CLI: a single-shot
// command that pages through a program's historical signatures and
// persists the events found in each transaction. Unlike soltrace-live,
// this binary takes no subcommands, so the work happens directly in
// rootCmd's RunE.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"github.com/lugondev/soltrace/internal/backfill"
	"github.com/lugondev/soltrace/internal/config"
	"github.com/lugondev/soltrace/internal/idl"
	"github.com/lugondev/soltrace/internal/metrics"
	"github.com/lugondev/soltrace/internal/rpcclient"
	"github.com/lugondev/soltrace/internal/storage"

	_ "github.com/lugondev/soltrace/internal/storage/mongo"
	_ "github.com/lugondev/soltrace/internal/storage/postgres"
	_ "github.com/lugondev/soltrace/internal/storage/sqlite"
)

var v = config.NewViper()

var rootCmd = &cobra.Command{
	Use:   "soltrace-backfill",
	Short: "Backfill Solana program events from transaction history",
	Long: `soltrace-backfill pages through a program's historical
signatures via RPC and persists the Anchor events found in each
transaction, exactly once per signature.`,
	RunE: runBackfill,
}

func init() {
	flags := rootCmd.Flags()
	flags.String("rpc-url", "", "Solana JSON-RPC HTTP endpoint")
	flags.String("db-url", "", "storage backend URL (sqlite:, postgres://, or mongodb://)")
	flags.String("idl-dir", "", "directory containing Anchor IDL JSON files")
	flags.String("programs", "", "comma-separated program IDs to backfill")
	flags.Int("limit", 1000, "maximum signatures to fetch per program")
	flags.Int("batch-size", 50, "signatures processed concurrently per batch")
	flags.Int("batch-delay", 0, "milliseconds to sleep between batches")
	flags.Int("concurrency", 10, "maximum concurrent transaction fetches within a batch")
	flags.Int("max-retries", 3, "maximum fetch retries per transaction")
	flags.String("commitment", "confirmed", "commitment level: processed, confirmed, or finalized")
	flags.String("metrics-backend", "prometheus", "metrics sink: prometheus, log, or both")
	flags.String("log-level", "info", "log level: debug, info, warn, or error")

	names := []string{
		"rpc-url", "db-url", "idl-dir", "programs", "limit",
		"batch-size", "batch-delay", "concurrency", "max-retries",
		"commitment", "metrics-backend", "log-level",
	}
	for _, name := range names {
		if err := config.BindFlag(v, flags, name); err != nil {
			panic(err)
		}
	}
}

// Execute runs the backfill command.
func Execute() error {
	return rootCmd.Execute()
}

func runBackfill(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromViper(v)
	if err != nil {
		return err
	}
	if err := validateConfig(cfg); err != nil {
		return err
	}

	logger := newLogger(cfg.LogLevel)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	registry, err := idl.LoadDir(cfg.IDLDir, logger)
	if err != nil {
		return fmt.Errorf("soltrace-backfill: load IDLs: %w", err)
	}
	if len(registry.Programs()) == 0 {
		return fmt.Errorf("soltrace-backfill: no IDLs loaded from %s", cfg.IDLDir)
	}
	if len(cfg.ProgramIDs) == 0 {
		return fmt.Errorf("soltrace-backfill: --programs must name at least one program")
	}
	validPrograms := filterValidProgramIDs(cfg.ProgramIDs, logger)
	if len(validPrograms) == 0 {
		return fmt.Errorf("soltrace-backfill: every program id in --programs is invalid")
	}
	cfg.ProgramIDs = validPrograms

	mgr := storage.NewManager(cfg.DBURL)
	store, err := mgr.Connect(ctx)
	if err != nil {
		return fmt.Errorf("soltrace-backfill: open store: %w", err)
	}
	defer mgr.Close()

	client := rpcclient.New(cfg.RPCURL)
	defer client.Close()

	m, _, err := metrics.ForBackend(cfg.MetricsBackend, logger)
	if err != nil {
		return fmt.Errorf("soltrace-backfill: %w", err)
	}

	engine := backfill.New(backfill.Config{
		ProgramIDs:  cfg.ProgramIDs,
		Limit:       cfg.Limit,
		BatchSize:   cfg.BatchSize,
		BatchDelay:  cfg.BatchDelay,
		Concurrency: cfg.Concurrency,
		MaxRetries:  cfg.MaxRetries,
		Commitment:  cfg.Commitment,
	}, client, registry, store, logger, m)

	logger.Info("starting backfill", "programs", cfg.ProgramIDs, "limit", cfg.Limit)
	return engine.Run(ctx)
}

func validateConfig(cfg *config.Config) error {
	if cfg.DBURL == "" {
		return fmt.Errorf("soltrace-backfill: --db-url is required")
	}
	if cfg.RPCURL == "" {
		return fmt.Errorf("soltrace-backfill: --rpc-url is required")
	}
	if cfg.IDLDir == "" {
		return fmt.Errorf("soltrace-backfill: --idl-dir is required")
	}
	return nil
}

// filterValidProgramIDs keeps only the entries of ids that decode as a
// well-formed base58 public key, logging and dropping the rest. The
// caller treats an all-invalid list as a fatal startup error; a
// partially-invalid list proceeds with whatever remains.
func filterValidProgramIDs(ids []string, logger *slog.Logger) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := solana.PublicKeyFromBase58(id); err != nil {
			logger.Warn("skipping invalid program id", "program_id", id, "err", err)
			continue
		}
		out = append(out, id)
	}
	return out
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
