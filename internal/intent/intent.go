// Package intent infers a trade decision from raw feed events.
//
// The heuristic looks only at token balance deltas: if some mint's balance
// rose after the target's transaction, treat it as a buy of that mint. This
// avoids instruction-level decoding and works for most swaps, but it cannot
// tell a swap apart from any other incoming transfer such as an airdrop;
// false positives are an accepted trade-off.
package intent

import (
	"fmt"

	"solana-mirror/internal/solana"
)

// Kind tags a MirrorIntent variant.
type Kind string

// Intent kinds.
const (
	KindBuy  Kind = "buy"
	KindSell Kind = "sell"
)

// DustThreshold is the minimum UI-unit balance delta considered a meaningful
// change rather than rounding noise.
const DustThreshold = 1e-7

// MirrorIntent is the inferred trading action attributed to the target.
type MirrorIntent struct {
	Kind Kind

	// Buy: acquire OutputMint spending up to MaxInputSOL of native currency.
	OutputMint  solana.Pubkey
	MaxInputSOL float64

	// Sell: dispose of InputMint. Recognized but never executed; Fraction
	// is carried for the day sell replication ships, and is unused now.
	InputMint solana.Pubkey
	Fraction  float64
}

// Infer maps one raw feed event to an optional mirror intent. Pure: no I/O,
// no mutation, identical inputs yield identical outputs.
//
// Returns (nil, nil) when the event carries no transaction result or no mint
// gained more than the dust threshold. The winning mint is the one with the
// strictly largest delta; equal deltas break to the lexicographically
// smallest mint so the result does not depend on map iteration order.
//
// The configured maxBuySOL is used verbatim as the trade size; the observed
// delta only selects which token to buy.
func Infer(raw []byte, maxBuySOL float64) (*MirrorIntent, error) {
	result := parseNotification(raw)
	if result == nil || result.Meta == nil {
		return nil, nil
	}

	pre := balanceMap(result.Meta.PreTokenBalances)
	post := balanceMap(result.Meta.PostTokenBalances)

	var bestMint string
	var bestDelta float64
	for mint, postAmount := range post {
		delta := postAmount - pre[mint]
		if delta <= DustThreshold {
			continue
		}
		if bestMint == "" || delta > bestDelta || (delta == bestDelta && mint < bestMint) {
			bestMint = mint
			bestDelta = delta
		}
	}

	if bestMint == "" {
		return nil, nil
	}

	mint, err := solana.ParsePubkey(bestMint)
	if err != nil {
		return nil, fmt.Errorf("mint %q: %w", bestMint, err)
	}

	return &MirrorIntent{
		Kind:        KindBuy,
		OutputMint:  mint,
		MaxInputSOL: maxBuySOL,
	}, nil
}

// Signature extracts the transaction signature from a raw feed event.
// Returns false when the event carries no signature.
func Signature(raw []byte) (string, bool) {
	result := parseNotification(raw)
	if result == nil || result.Signature == "" {
		return "", false
	}
	return result.Signature, true
}

// balanceMap folds a balance snapshot into mint -> UI amount. Entries with
// a missing amount are skipped.
func balanceMap(balances []tokenBalance) map[string]float64 {
	m := make(map[string]float64, len(balances))
	for _, b := range balances {
		if b.Mint == "" || b.UITokenAmount.UIAmount == nil {
			continue
		}
		m[b.Mint] = *b.UITokenAmount.UIAmount
	}
	return m
}
