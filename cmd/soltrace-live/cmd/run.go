package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"github.com/lugondev/soltrace/internal/config"
	"github.com/lugondev/soltrace/internal/idl"
	"github.com/lugondev/soltrace/internal/live"
	"github.com/lugondev/soltrace/internal/metrics"
	"github.com/lugondev/soltrace/internal/storage"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the live log-subscription ingestion engine",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.FromViper(v)
		if err != nil {
			return err
		}
		if err := validateRunConfig(cfg); err != nil {
			return err
		}

		logger := newLogger(cfg.LogLevel)
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		registry, err := idl.LoadDir(cfg.IDLDir, logger)
		if err != nil {
			return fmt.Errorf("soltrace-live run: load IDLs: %w", err)
		}
		if len(registry.Programs()) == 0 {
			return fmt.Errorf("soltrace-live run: no IDLs loaded from %s", cfg.IDLDir)
		}
		if len(cfg.ProgramIDs) == 0 {
			return fmt.Errorf("soltrace-live run: --programs must name at least one program")
		}
		validPrograms := filterValidProgramIDs(cfg.ProgramIDs, logger)
		if len(validPrograms) == 0 {
			return fmt.Errorf("soltrace-live run: every program id in --programs is invalid")
		}
		cfg.ProgramIDs = validPrograms

		mgr := storage.NewManager(cfg.DBURL)
		store, err := mgr.Connect(ctx)
		if err != nil {
			return fmt.Errorf("soltrace-live run: open store: %w", err)
		}
		defer mgr.Close()

		m, prom, err := metrics.ForBackend(cfg.MetricsBackend, logger)
		if err != nil {
			return fmt.Errorf("soltrace-live run: %w", err)
		}
		if cfg.MetricsAddr != "" {
			if prom == nil {
				logger.Warn("--metrics-addr set but the selected metrics backend has no Prometheus registry to serve", "backend", cfg.MetricsBackend)
			} else {
				mux := http.NewServeMux()
				mux.Handle("/metrics", prom.Handler())
				go func() {
					logger.Info("serving metrics", "addr", cfg.MetricsAddr)
					if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
						logger.Warn("metrics server stopped", "addr", cfg.MetricsAddr, "err", err)
					}
				}()
			}
		}

		engine := live.New(live.Config{
			WSEndpoint:     cfg.WSURL,
			ProgramIDs:     cfg.ProgramIDs,
			Commitment:     cfg.Commitment,
			ReconnectDelay: cfg.ReconnectDelay,
			MaxReconnects:  cfg.MaxReconnects,
		}, registry, store, logger, m)

		logger.Info("starting live engine", "engine_id", engine.ID(), "programs", cfg.ProgramIDs, "ws_url", cfg.WSURL)
		return engine.Run(ctx)
	},
}

func init() {
	flags := runCmd.Flags()
	flags.String("rpc-url", "", "Solana JSON-RPC HTTP endpoint")
	flags.String("ws-url", "", "Solana JSON-RPC WebSocket endpoint")
	flags.String("idl-dir", "", "directory containing Anchor IDL JSON files")
	flags.String("programs", "", "comma-separated program IDs to subscribe to")
	flags.String("commitment", "confirmed", "commitment level: processed, confirmed, or finalized")
	flags.Int("reconnect-delay", 5, "seconds to wait between reconnect attempts")
	flags.Int("max-reconnects", -1, "maximum reconnect attempts before giving up (-1 = unbounded)")
	flags.String("metrics-addr", "", "address to serve Prometheus metrics on, e.g. :9090 (empty = disabled)")
	flags.String("metrics-backend", "prometheus", "metrics sink: prometheus, log, or both")

	for _, name := range []string{"rpc-url", "ws-url", "idl-dir", "programs", "commitment", "reconnect-delay", "max-reconnects", "metrics-addr", "metrics-backend"} {
		if err := config.BindFlag(v, flags, name); err != nil {
			panic(err)
		}
	}
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

func validateRunConfig(cfg *config.Config) error {
	if cfg.DBURL == "" {
		return fmt.Errorf("soltrace-live run: --db-url is required")
	}
	if cfg.WSURL == "" {
		return fmt.Errorf("soltrace-live run: --ws-url is required")
	}
	if cfg.IDLDir == "" {
		return fmt.Errorf("soltrace-live run: --idl-dir is required")
	}
	return nil
}
