package memory

import (
	"context"
	"sort"
	"sync"

	"solana-pool-monitor/internal/domain"
	"solana-pool-monitor/internal/storage"
)

// PoolStateStore is an in-memory implementation of storage.PoolStateStore.
type PoolStateStore struct {
	mu   sync.RWMutex
	data map[string]*domain.PoolState
}

// NewPoolStateStore creates a new in-memory pool state store.
func NewPoolStateStore() *PoolStateStore {
	return &PoolStateStore{
		data: make(map[string]*domain.PoolState),
	}
}

// Compile-time interface check.
var _ storage.PoolStateStore = (*PoolStateStore)(nil)

// Upsert inserts or replaces the state for a pool address.
func (s *PoolStateStore) Upsert(_ context.Context, st *domain.PoolState) error {
	if st == nil || st.PoolAddress == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copy := *st
	s.data[st.PoolAddress] = &copy

	return nil
}

// Get retrieves the state for a pool address. Returns ErrNotFound if not exists.
func (s *PoolStateStore) Get(_ context.Context, poolAddress string) (*domain.PoolState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.data[poolAddress]
	if !ok {
		return nil, storage.ErrNotFound
	}

	copy := *st
	return &copy, nil
}

// List retrieves all tracked pool states, ordered by pool address ASC.
func (s *PoolStateStore) List(_ context.Context) ([]*domain.PoolState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.PoolState, 0, len(s.data))
	for _, st := range s.data {
		copy := *st
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].PoolAddress < result[j].PoolAddress
	})

	return result, nil
}

// Delete removes the state for a pool address. Returns ErrNotFound if not exists.
func (s *PoolStateStore) Delete(_ context.Context, poolAddress string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[poolAddress]; !ok {
		return storage.ErrNotFound
	}

	delete(s.data, poolAddress)
	return nil
}
