// Package executor turns a buy intent into a submitted swap transaction.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"solana-mirror/internal/app"
	"solana-mirror/internal/intent"
	"solana-mirror/internal/jupiter"
	"solana-mirror/internal/observability"
	"solana-mirror/internal/solana"
)

// LamportsPerSOL is the smallest-unit scale of the native token.
const LamportsPerSOL = 1_000_000_000

// MaxSOLPerTrade is a hard safety rail on the per-trade input amount.
// It is not configurable.
const MaxSOLPerTrade = 1000.0

// ErrAmountOutOfRange is returned when a trade amount fails the safety rail.
var ErrAmountOutOfRange = errors.New("trade amount out of range")

// SOLToLamports converts a SOL amount to lamports, rejecting negative
// amounts and anything above MaxSOLPerTrade.
func SOLToLamports(sol float64) (uint64, error) {
	if sol < 0 || sol > MaxSOLPerTrade || math.IsNaN(sol) {
		return 0, fmt.Errorf("%w: %v SOL", ErrAmountOutOfRange, sol)
	}
	return uint64(math.Round(sol * LamportsPerSOL)), nil
}

// Pipeline stages, used in logs and failure metrics.
const (
	StageQuote     = "quote"
	StageSwapBuild = "swap_build"
	StageDecode    = "decode"
	StageBlockhash = "blockhash"
	StageSign      = "sign"
	StageSend      = "send"
)

// Executor runs the quote, build, re-sign, submit pipeline.
type Executor struct {
	state               *app.State
	jup                 *jupiter.Client
	slippageBps         uint16
	priorityFeeLamports uint64
	logger              *log.Logger
}

// Options configures Executor.
type Options struct {
	State   *app.State
	Jupiter *jupiter.Client

	SlippageBps         uint16
	PriorityFeeLamports uint64

	Logger *log.Logger
}

// NewExecutor creates an executor.
func NewExecutor(opts Options) *Executor {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Executor{
		state:               opts.State,
		jup:                 opts.Jupiter,
		slippageBps:         opts.SlippageBps,
		priorityFeeLamports: opts.PriorityFeeLamports,
		logger:              opts.Logger,
	}
}

// Execute mirrors a buy intent and returns the submitted transaction
// signature. The builder's transaction always gets a fresh blockhash and a
// fresh signature before submission; skipping the refresh is not an option,
// since the builder's blockhash may already be near expiry.
func (e *Executor) Execute(ctx context.Context, in *intent.MirrorIntent) (string, error) {
	if in == nil || in.Kind != intent.KindBuy {
		return "", fmt.Errorf("executor handles buy intents only")
	}

	lamports, err := SOLToLamports(in.MaxInputSOL)
	if err != nil {
		return "", err
	}

	quote, err := e.stageQuote(ctx, in, lamports)
	if err != nil {
		return "", err
	}
	e.logger.Printf("executor: quote %s lamports -> %s of %s", quote.InAmount, quote.OutAmount, in.OutputMint)

	b64, err := e.stageSwapBuild(ctx, quote)
	if err != nil {
		return "", err
	}

	tx, err := solana.DecodeTransaction(b64)
	if err != nil {
		observability.RecordTradeFailed(StageDecode)
		return "", fmt.Errorf("%s: %w", StageDecode, err)
	}

	if err := e.stageBlockhash(ctx, tx); err != nil {
		return "", err
	}

	if err := tx.Sign(e.state.Wallet); err != nil {
		observability.RecordTradeFailed(StageSign)
		return "", fmt.Errorf("%s: %w", StageSign, err)
	}

	sig, err := e.stageSend(ctx, tx)
	if err != nil {
		return "", err
	}

	e.logger.Printf("executor: submitted %s", sig)
	return sig, nil
}

func (e *Executor) stageQuote(ctx context.Context, in *intent.MirrorIntent, lamports uint64) (*jupiter.Quote, error) {
	start := time.Now()
	quote, err := e.jup.GetQuote(ctx, solana.WSOLMint, in.OutputMint.String(), lamports, e.slippageBps)
	observability.RecordStageLatency(StageQuote, time.Since(start).Seconds())
	if err != nil {
		observability.RecordTradeFailed(StageQuote)
		return nil, fmt.Errorf("%s: %w", StageQuote, err)
	}
	return quote, nil
}

func (e *Executor) stageSwapBuild(ctx context.Context, quote *jupiter.Quote) (string, error) {
	start := time.Now()
	b64, err := e.jup.BuildSwapTransaction(ctx, quote, e.state.WalletPubkey, e.priorityFeeLamports)
	observability.RecordStageLatency(StageSwapBuild, time.Since(start).Seconds())
	if err != nil {
		observability.RecordTradeFailed(StageSwapBuild)
		return "", fmt.Errorf("%s: %w", StageSwapBuild, err)
	}
	return b64, nil
}

func (e *Executor) stageBlockhash(ctx context.Context, tx *solana.VersionedTransaction) error {
	start := time.Now()
	fresh, err := e.state.RPC.GetLatestBlockhash(ctx)
	observability.RecordStageLatency(StageBlockhash, time.Since(start).Seconds())
	if err != nil {
		observability.RecordTradeFailed(StageBlockhash)
		return fmt.Errorf("%s: %w", StageBlockhash, err)
	}
	if err := tx.SetRecentBlockhash(fresh); err != nil {
		observability.RecordTradeFailed(StageBlockhash)
		return fmt.Errorf("%s: %w", StageBlockhash, err)
	}
	return nil
}

func (e *Executor) stageSend(ctx context.Context, tx *solana.VersionedTransaction) (string, error) {
	start := time.Now()
	sig, err := e.state.RPC.SendTransaction(ctx, tx)
	observability.RecordStageLatency(StageSend, time.Since(start).Seconds())
	if err != nil {
		observability.RecordTradeFailed(StageSend)
		return "", fmt.Errorf("%s: %w", StageSend, err)
	}
	observability.RecordTradeExecuted()
	return sig, nil
}
