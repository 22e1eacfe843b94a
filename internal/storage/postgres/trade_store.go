package postgres

import (
	"context"
	"fmt"

	"solana-mirror/internal/domain"
	"solana-mirror/internal/storage"
)

// TradeRecordStore implements storage.TradeRecordStore using PostgreSQL.
type TradeRecordStore struct {
	pool *Pool
}

// NewTradeRecordStore creates a new TradeRecordStore.
func NewTradeRecordStore(pool *Pool) *TradeRecordStore {
	return &TradeRecordStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeRecordStore = (*TradeRecordStore)(nil)

// Insert adds a journal entry. Returns ErrDuplicateKey if an entry for the
// same non-empty observed signature already exists.
func (s *TradeRecordStore) Insert(ctx context.Context, t *domain.MirrorTrade) error {
	if t == nil || t.Status == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO mirror_trades (
			observed_signature, mint, side, status, max_input_sol, submitted_signature, error_reason, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	err := s.pool.QueryRow(ctx, query,
		t.ObservedSignature,
		t.Mint,
		t.Side,
		t.Status,
		t.MaxInputSOL,
		t.SubmittedSignature,
		t.ErrorReason,
		t.CreatedAt,
	).Scan(&t.ID)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert mirror trade: %w", err)
	}
	return nil
}

// GetByObservedSignature retrieves the entry for an observed transaction.
func (s *TradeRecordStore) GetByObservedSignature(ctx context.Context, signature string) (*domain.MirrorTrade, error) {
	if signature == "" {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT id, observed_signature, mint, side, status, max_input_sol, submitted_signature, error_reason, created_at
		FROM mirror_trades
		WHERE observed_signature = $1
	`

	var t domain.MirrorTrade
	err := s.pool.QueryRow(ctx, query, signature).Scan(
		&t.ID,
		&t.ObservedSignature,
		&t.Mint,
		&t.Side,
		&t.Status,
		&t.MaxInputSOL,
		&t.SubmittedSignature,
		&t.ErrorReason,
		&t.CreatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get mirror trade: %w", err)
	}
	return &t, nil
}

// GetRecent retrieves up to limit entries ordered by creation time DESC.
func (s *TradeRecordStore) GetRecent(ctx context.Context, limit int) ([]*domain.MirrorTrade, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT id, observed_signature, mint, side, status, max_input_sol, submitted_signature, error_reason, created_at
		FROM mirror_trades
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query mirror trades: %w", err)
	}
	defer rows.Close()

	var result []*domain.MirrorTrade
	for rows.Next() {
		var t domain.MirrorTrade
		if err := rows.Scan(
			&t.ID,
			&t.ObservedSignature,
			&t.Mint,
			&t.Side,
			&t.Status,
			&t.MaxInputSOL,
			&t.SubmittedSignature,
			&t.ErrorReason,
			&t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan mirror trade: %w", err)
		}
		result = append(result, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mirror trades: %w", err)
	}
	return result, nil
}
