package memory

import (
	"context"
	"sort"
	"sync"

	"solana-mirror/internal/domain"
	"solana-mirror/internal/storage"
)

// TradeRecordStore is an in-memory implementation of storage.TradeRecordStore.
type TradeRecordStore struct {
	mu     sync.RWMutex
	nextID int64
	data   []*domain.MirrorTrade
	bySig  map[string]*domain.MirrorTrade
}

// NewTradeRecordStore creates a new in-memory trade journal.
func NewTradeRecordStore() *TradeRecordStore {
	return &TradeRecordStore{
		nextID: 1,
		bySig:  make(map[string]*domain.MirrorTrade),
	}
}

var _ storage.TradeRecordStore = (*TradeRecordStore)(nil)

// Insert adds a journal entry. Entries with an empty observed signature are
// always accepted; non-empty signatures must be unique.
func (s *TradeRecordStore) Insert(_ context.Context, t *domain.MirrorTrade) error {
	if t == nil || t.Status == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ObservedSignature != "" {
		if _, exists := s.bySig[t.ObservedSignature]; exists {
			return storage.ErrDuplicateKey
		}
	}

	copy := *t
	copy.ID = s.nextID
	s.nextID++
	s.data = append(s.data, &copy)
	if copy.ObservedSignature != "" {
		s.bySig[copy.ObservedSignature] = &copy
	}
	return nil
}

// GetByObservedSignature retrieves the entry for an observed transaction.
func (s *TradeRecordStore) GetByObservedSignature(_ context.Context, signature string) (*domain.MirrorTrade, error) {
	if signature == "" {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.bySig[signature]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copy := *t
	return &copy, nil
}

// GetRecent retrieves up to limit entries ordered by creation time DESC.
func (s *TradeRecordStore) GetRecent(_ context.Context, limit int) ([]*domain.MirrorTrade, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.MirrorTrade, 0, len(s.data))
	for _, t := range s.data {
		copy := *t
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt > result[j].CreatedAt
		}
		return result[i].ID > result[j].ID
	})

	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
