// Package live maintains a durable push-stream subscription to one or
// more Solana programs' log output and feeds every transaction it
// observes through the decode-and-persist pipeline. The engine holds a
// single logs subscription open per program; any failure tears down the
// whole connection and the reconnect state machine dials again after
// ReconnectDelay.
package live

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/ws"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/lugondev/soltrace/internal/common"
	"github.com/lugondev/soltrace/internal/idl"
	"github.com/lugondev/soltrace/internal/metrics"
	"github.com/lugondev/soltrace/internal/pipeline"
	"github.com/lugondev/soltrace/internal/storage"
)

// State is the engine's current connection state.
type State int

const (
	// StateConnecting covers dialing the websocket and subscribing to
	// every configured program.
	StateConnecting State = iota
	// StateSubscribed means every program's subscription is live.
	StateSubscribed
	// StateReconnecting means the engine is waiting out ReconnectDelay
	// before its next connect attempt.
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateSubscribed:
		return "subscribed"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// Config configures the live engine. MaxReconnects nil means unbounded
// reconnection; when set, the engine exits fatally once consecutive
// reconnect attempts exceed it.
type Config struct {
	WSEndpoint     string
	ProgramIDs     []string
	Commitment     rpc.CommitmentType
	ReconnectDelay time.Duration
	MaxReconnects  *int
}

// Engine runs the live ingestion loop described in Config.
type Engine struct {
	common.LoggerMixin

	id       string
	cfg      Config
	registry *idl.Registry
	store    storage.Store
	metrics  metrics.Metrics
	state    State

	// connect performs one connect-subscribe-stream cycle; it is a
	// field rather than a plain method call so tests can substitute a
	// fake that fails deterministically without a live websocket.
	connect func(ctx context.Context) error
}

// New builds a live Engine. logger and m may be nil. Each Engine is
// tagged with a random run id, logged alongside every record for
// cross-run correlation.
func New(cfg Config, registry *idl.Registry, store storage.Store, logger *slog.Logger, m metrics.Metrics) *Engine {
	if m == nil {
		m = metrics.NewNoopMetrics()
	}
	e := &Engine{id: uuid.NewString(), cfg: cfg, registry: registry, store: store, metrics: m, LoggerMixin: common.NewLoggerMixin()}
	e.SetLogger(logger)
	e.connect = e.runOnce
	return e
}

// State returns the engine's current connection state.
func (e *Engine) State() State { return e.state }

// ID returns the engine's per-run correlation identifier.
func (e *Engine) ID() string { return e.id }

// Run drives the reconnect state machine until ctx is canceled or
// MaxReconnects is configured and exhausted.
func (e *Engine) Run(ctx context.Context) error {
	reconnects := 0
	for {
		e.state = StateConnecting
		err := e.connect(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err == nil {
			// connect only returns nil when ctx was canceled; any
			// other termination is reported as an error.
			continue
		}

		// The bound is on consecutive failures: a cycle that reached
		// Subscribed before dropping starts the count over.
		if e.state == StateSubscribed {
			reconnects = 0
		}
		reconnects++
		_ = e.metrics.IncrementCounter(ctx, metrics.MetricLiveReconnects, 1)
		e.GetLogger().Warn("live subscription dropped, reconnecting",
			"engine_id", e.id, "attempt", reconnects, "delay", e.cfg.ReconnectDelay, "err", err)

		if e.cfg.MaxReconnects != nil && reconnects > *e.cfg.MaxReconnects {
			return fmt.Errorf("live engine: exhausted %d reconnect attempts: %w", *e.cfg.MaxReconnects, err)
		}

		e.state = StateReconnecting
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(e.cfg.ReconnectDelay):
		}
	}
}

// runOnce dials the websocket endpoint, subscribes to every configured
// program's log stream, and blocks streaming records until the
// subscription fails or ctx is canceled.
func (e *Engine) runOnce(ctx context.Context) error {
	client, err := ws.Connect(ctx, e.cfg.WSEndpoint)
	if err != nil {
		return fmt.Errorf("dial %s: %w", e.cfg.WSEndpoint, err)
	}
	defer client.Close()

	subs := make([]*ws.LogSubscription, 0, len(e.cfg.ProgramIDs))
	defer func() {
		for _, s := range subs {
			s.Unsubscribe()
		}
	}()

	for _, programID := range e.cfg.ProgramIDs {
		pubkey, err := solana.PublicKeyFromBase58(programID)
		if err != nil {
			return fmt.Errorf("invalid program id %q: %w", programID, err)
		}
		sub, err := client.LogsSubscribeMentions(pubkey, e.cfg.Commitment)
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", programID, err)
		}
		subs = append(subs, sub)
	}

	e.state = StateSubscribed
	e.GetLogger().Info("live subscription established", "engine_id", e.id, "programs", e.cfg.ProgramIDs, "commitment", e.cfg.Commitment)

	g, gctx := errgroup.WithContext(ctx)
	for i, sub := range subs {
		programID := e.cfg.ProgramIDs[i]
		sub := sub
		g.Go(func() error { return e.consume(gctx, programID, sub) })
	}
	if err := g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
	return nil
}

// consume reads records off one program's log subscription until it
// errors. Records carrying a transaction error are skipped.
func (e *Engine) consume(ctx context.Context, programID string, sub *ws.LogSubscription) error {
	for {
		got, err := sub.Recv(ctx)
		if err != nil {
			return fmt.Errorf("recv %s: %w", programID, err)
		}
		if got.Value.Err != nil {
			continue
		}

		now := time.Now().Unix()
		raw := pipeline.RawEvent{
			Signature: got.Value.Signature.String(),
			ProgramID: programID,
			LogLines:  got.Value.Logs,
			Slot:      0,
			BlockTime: &now,
		}

		n, err := pipeline.Process(ctx, raw, e.registry, e.store, e.GetLogger())
		if err != nil {
			e.GetLogger().Error("pipeline process failed", "signature", raw.Signature, "program_id", programID, "err", err)
			continue
		}
		_ = e.metrics.IncrementCounter(ctx, metrics.MetricLiveEventsInserted, uint64(n))
	}
}
