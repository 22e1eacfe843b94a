package domain

// MirrorTrade is one journal entry: the outcome of processing a single
// observed target transaction that produced a mirror intent.
// Corresponds to the mirror_trades table in PostgreSQL.
type MirrorTrade struct {
	ID                 int64   // BIGSERIAL primary key
	ObservedSignature  string  // signature of the target's transaction (may be empty)
	Mint               string  // token mint selected by inference
	Side               string  // "buy" | "sell"
	Status             string  // "executed" | "failed" | "skipped"
	MaxInputSOL        float64 // configured spend cap at decision time
	SubmittedSignature string  // our transaction signature, when executed
	ErrorReason        string  // failure detail, when failed
	CreatedAt          int64   // record creation timestamp (ms)
}

// Trade side constants.
const (
	TradeSideBuy  = "buy"
	TradeSideSell = "sell"
)

// Trade status constants.
const (
	TradeStatusExecuted = "executed"
	TradeStatusFailed   = "failed"
	TradeStatusSkipped  = "skipped"
)
