package memory

import (
	"context"
	"sort"
	"sync"

	"solana-pool-monitor/internal/domain"
	"solana-pool-monitor/internal/storage"
)

// swapEventKey is the composite key for swap event deduplication.
type swapEventKey struct {
	Signature  string
	EventIndex int
}

// SwapEventStore is an in-memory implementation of storage.SwapEventStore.
type SwapEventStore struct {
	mu   sync.RWMutex
	data []*domain.SwapEvent
	keys map[swapEventKey]bool
}

// NewSwapEventStore creates a new in-memory swap event store.
func NewSwapEventStore() *SwapEventStore {
	return &SwapEventStore{
		data: make([]*domain.SwapEvent, 0),
		keys: make(map[swapEventKey]bool),
	}
}

// Compile-time interface check.
var _ storage.SwapEventStore = (*SwapEventStore)(nil)

// Insert adds a new swap event. Returns ErrDuplicateKey if (tx_signature, event_index) exists.
func (s *SwapEventStore) Insert(_ context.Context, e *domain.SwapEvent) error {
	if e == nil {
		return storage.ErrInvalidInput
	}

	key := swapEventKey{Signature: e.Signature, EventIndex: e.EventIndex}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.keys[key] {
		return storage.ErrDuplicateKey
	}

	// Store a copy
	copy := *e
	s.data = append(s.data, &copy)
	s.keys[key] = true

	return nil
}

// InsertBulk adds multiple swap events atomically. Fails entire batch on any duplicate.
func (s *SwapEventStore) InsertBulk(_ context.Context, events []*domain.SwapEvent) error {
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Check for duplicates (both existing and intra-batch)
	batchKeys := make(map[swapEventKey]bool)
	for _, e := range events {
		if e == nil {
			return storage.ErrInvalidInput
		}

		key := swapEventKey{Signature: e.Signature, EventIndex: e.EventIndex}
		if s.keys[key] || batchKeys[key] {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = true
	}

	for _, e := range events {
		copy := *e
		s.data = append(s.data, &copy)
		s.keys[swapEventKey{Signature: e.Signature, EventIndex: e.EventIndex}] = true
	}

	return nil
}

// GetBySignature retrieves all swap events of a transaction, ordered by event_index ASC.
func (s *SwapEventStore) GetBySignature(_ context.Context, signature string) ([]*domain.SwapEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.SwapEvent
	for _, e := range s.data {
		if e.Signature == signature {
			copy := *e
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].EventIndex < result[j].EventIndex
	})

	return result, nil
}

// GetByPool retrieves swap events for a pool within slots [start, end] (inclusive).
func (s *SwapEventStore) GetByPool(_ context.Context, pool string, startSlot, endSlot int64) ([]*domain.SwapEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.SwapEvent
	for _, e := range s.data {
		if e.PoolAddress == pool && e.Slot >= startSlot && e.Slot <= endSlot {
			copy := *e
			result = append(result, &copy)
		}
	}

	sortSwapEvents(result)

	return result, nil
}

// sortSwapEvents sorts events by (slot, tx_signature, event_index).
func sortSwapEvents(events []*domain.SwapEvent) {
	sort.Slice(events, func(i, j int) bool {
		if events[i].Slot != events[j].Slot {
			return events[i].Slot < events[j].Slot
		}
		if events[i].Signature != events[j].Signature {
			return events[i].Signature < events[j].Signature
		}
		return events[i].EventIndex < events[j].EventIndex
	})
}
