package storage

import (
	"context"

	"solana-mirror/internal/domain"
)

// TradeRecordStore provides access to the mirror trade journal.
// The journal is append-only; entries are never updated.
type TradeRecordStore interface {
	// Insert adds a journal entry. Returns ErrDuplicateKey if an entry
	// for the same non-empty observed signature already exists.
	Insert(ctx context.Context, t *domain.MirrorTrade) error

	// GetByObservedSignature retrieves the entry for an observed target
	// transaction. Returns ErrNotFound if none exists.
	GetByObservedSignature(ctx context.Context, signature string) (*domain.MirrorTrade, error)

	// GetRecent retrieves up to limit entries ordered by creation time DESC.
	GetRecent(ctx context.Context, limit int) ([]*domain.MirrorTrade, error)
}
