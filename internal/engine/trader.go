// Package engine orchestrates the mirror loop: consume feed events, infer
// intents, execute buys, and journal the outcome.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"solana-mirror/internal/domain"
	"solana-mirror/internal/intent"
	"solana-mirror/internal/observability"
	"solana-mirror/internal/storage"
)

// EventSource is the feed side of the loop.
type EventSource interface {
	Run(ctx context.Context) error
	Events() <-chan json.RawMessage
}

// TradeExecutor runs one buy and returns the submitted signature.
type TradeExecutor interface {
	Execute(ctx context.Context, in *intent.MirrorIntent) (string, error)
}

// Trader consumes feed events one at a time. Processing is deliberately
// serial: a trade in flight blocks the next event, which keeps at most one
// mirror trade open per observed transaction.
type Trader struct {
	source   EventSource
	executor TradeExecutor
	journal  storage.TradeRecordStore
	logger   *log.Logger

	maxBuySOL      float64
	mirrorBuysOnly bool

	// lastSeenSignature dedups the immediately repeated delivery the feed
	// produces around reconnects. Only an exact consecutive match is skipped.
	lastSeenSignature string
}

// Options configures Trader.
type Options struct {
	Source   EventSource
	Executor TradeExecutor

	// Journal is optional; a nil journal disables trade recording.
	Journal storage.TradeRecordStore

	Logger *log.Logger

	MaxBuySOL      float64
	MirrorBuysOnly bool
}

// NewTrader creates the orchestrator.
func NewTrader(opts Options) *Trader {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Trader{
		source:         opts.Source,
		executor:       opts.Executor,
		journal:        opts.Journal,
		logger:         opts.Logger,
		maxBuySOL:      opts.MaxBuySOL,
		mirrorBuysOnly: opts.MirrorBuysOnly,
	}
}

// Run drives the loop until ctx is canceled or the event source stops.
func (t *Trader) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- t.source.Run(ctx)
	}()

	for {
		select {
		case raw, ok := <-t.source.Events():
			if !ok {
				return <-errCh
			}
			t.handleEvent(ctx, raw)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// handleEvent processes a single raw feed event. Inference and execution
// failures are logged and skipped; only ctx cancellation stops the loop.
func (t *Trader) handleEvent(ctx context.Context, raw json.RawMessage) {
	observability.RecordEventReceived(float64(time.Now().Unix()))

	sig, hasSig := intent.Signature(raw)
	if hasSig {
		if sig == t.lastSeenSignature {
			observability.RecordEventDeduped()
			return
		}
		t.lastSeenSignature = sig
	}

	in, err := intent.Infer(raw, t.maxBuySOL)
	if err != nil {
		t.logger.Printf("engine: inference failed for %s: %v", sig, err)
		observability.RecordInferenceError()
		return
	}
	if in == nil {
		return
	}
	observability.RecordIntent(string(in.Kind))

	switch in.Kind {
	case intent.KindBuy:
		t.handleBuy(ctx, sig, in)
	case intent.KindSell:
		// Sell replication is not implemented; observe and move on.
		t.logger.Printf("engine: observed sell of %s, not mirrored", in.InputMint)
		t.journalTrade(ctx, &domain.MirrorTrade{
			ObservedSignature: sig,
			Mint:              in.InputMint.String(),
			Side:              domain.TradeSideSell,
			Status:            domain.TradeStatusSkipped,
			CreatedAt:         time.Now().UnixMilli(),
		})
	default:
		t.logger.Printf("engine: unknown intent kind %q", in.Kind)
	}
}

func (t *Trader) handleBuy(ctx context.Context, sig string, in *intent.MirrorIntent) {
	if !t.mirrorBuysOnly {
		// Historical switch: it never gated buys and still does not.
		t.logger.Printf("engine: mirror_buys_only disabled, continuing anyway")
	}
	t.logger.Printf("engine: mirroring buy of %s for up to %v SOL (observed %s)", in.OutputMint, in.MaxInputSOL, sig)

	record := &domain.MirrorTrade{
		ObservedSignature: sig,
		Mint:              in.OutputMint.String(),
		Side:              domain.TradeSideBuy,
		MaxInputSOL:       in.MaxInputSOL,
		CreatedAt:         time.Now().UnixMilli(),
	}

	submitted, err := t.executor.Execute(ctx, in)
	if err != nil {
		t.logger.Printf("engine: trade failed for %s: %v", sig, err)
		record.Status = domain.TradeStatusFailed
		record.ErrorReason = err.Error()
	} else {
		record.Status = domain.TradeStatusExecuted
		record.SubmittedSignature = submitted
	}
	t.journalTrade(ctx, record)
}

// journalTrade records the outcome. Journal failures never interrupt
// trading; a duplicate key just means the event was already recorded.
func (t *Trader) journalTrade(ctx context.Context, record *domain.MirrorTrade) {
	if t.journal == nil {
		return
	}
	if err := t.journal.Insert(ctx, record); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return
		}
		t.logger.Printf("engine: journal write failed: %v", err)
		observability.RecordJournalError()
	}
}
