package memory

import (
	"context"
	"sort"
	"sync"

	"solana-pool-monitor/internal/domain"
	"solana-pool-monitor/internal/storage"
)

// liquidityEventKey is the composite key for liquidity event deduplication.
type liquidityEventKey struct {
	Signature  string
	EventIndex int
}

// LiquidityEventStore is an in-memory implementation of storage.LiquidityEventStore.
type LiquidityEventStore struct {
	mu   sync.RWMutex
	data []*domain.LiquidityEvent
	keys map[liquidityEventKey]bool
}

// NewLiquidityEventStore creates a new in-memory liquidity event store.
func NewLiquidityEventStore() *LiquidityEventStore {
	return &LiquidityEventStore{
		data: make([]*domain.LiquidityEvent, 0),
		keys: make(map[liquidityEventKey]bool),
	}
}

// Compile-time interface check.
var _ storage.LiquidityEventStore = (*LiquidityEventStore)(nil)

// Insert adds a new liquidity event. Returns ErrDuplicateKey if (tx_signature, event_index) exists.
func (s *LiquidityEventStore) Insert(_ context.Context, e *domain.LiquidityEvent) error {
	if e == nil {
		return storage.ErrInvalidInput
	}

	key := liquidityEventKey{Signature: e.Signature, EventIndex: e.EventIndex}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.keys[key] {
		return storage.ErrDuplicateKey
	}

	copy := *e
	s.data = append(s.data, &copy)
	s.keys[key] = true

	return nil
}

// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate.
func (s *LiquidityEventStore) InsertBulk(_ context.Context, events []*domain.LiquidityEvent) error {
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[liquidityEventKey]bool)
	for _, e := range events {
		if e == nil {
			return storage.ErrInvalidInput
		}

		key := liquidityEventKey{Signature: e.Signature, EventIndex: e.EventIndex}
		if s.keys[key] || batchKeys[key] {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = true
	}

	for _, e := range events {
		copy := *e
		s.data = append(s.data, &copy)
		s.keys[liquidityEventKey{Signature: e.Signature, EventIndex: e.EventIndex}] = true
	}

	return nil
}

// GetByPool retrieves liquidity events for a pool within slots [start, end] (inclusive).
func (s *LiquidityEventStore) GetByPool(_ context.Context, pool string, startSlot, endSlot int64) ([]*domain.LiquidityEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.LiquidityEvent
	for _, e := range s.data {
		if e.PoolAddress == pool && e.Slot >= startSlot && e.Slot <= endSlot {
			copy := *e
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Slot != result[j].Slot {
			return result[i].Slot < result[j].Slot
		}
		if result[i].Signature != result[j].Signature {
			return result[i].Signature < result[j].Signature
		}
		return result[i].EventIndex < result[j].EventIndex
	})

	return result, nil
}
