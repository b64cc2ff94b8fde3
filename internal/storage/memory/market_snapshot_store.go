package memory

import (
	"context"
	"sort"
	"sync"

	"solana-pool-monitor/internal/domain"
	"solana-pool-monitor/internal/storage"
)

// snapshotKey is the composite key for snapshot deduplication.
type snapshotKey struct {
	Pool        string
	TimestampMs int64
}

// MarketSnapshotStore is an in-memory implementation of storage.MarketSnapshotStore.
type MarketSnapshotStore struct {
	mu   sync.RWMutex
	data []*domain.MarketSnapshot
	keys map[snapshotKey]bool
}

// NewMarketSnapshotStore creates a new in-memory market snapshot store.
func NewMarketSnapshotStore() *MarketSnapshotStore {
	return &MarketSnapshotStore{
		data: make([]*domain.MarketSnapshot, 0),
		keys: make(map[snapshotKey]bool),
	}
}

// Compile-time interface check.
var _ storage.MarketSnapshotStore = (*MarketSnapshotStore)(nil)

// InsertBulk adds multiple snapshots. Fails entire batch on duplicate (pool, timestamp_ms).
func (s *MarketSnapshotStore) InsertBulk(_ context.Context, snapshots []*domain.MarketSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[snapshotKey]bool)
	for _, m := range snapshots {
		if m == nil {
			return storage.ErrInvalidInput
		}

		key := snapshotKey{Pool: m.PoolAddress, TimestampMs: m.Timestamp}
		if s.keys[key] || batchKeys[key] {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = true
	}

	for _, m := range snapshots {
		copy := *m
		s.data = append(s.data, &copy)
		s.keys[snapshotKey{Pool: m.PoolAddress, TimestampMs: m.Timestamp}] = true
	}

	return nil
}

// GetByPool retrieves snapshots for a pool within [start, end) milliseconds.
func (s *MarketSnapshotStore) GetByPool(_ context.Context, pool string, startMs, endMs int64) ([]*domain.MarketSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.MarketSnapshot
	for _, m := range s.data {
		if m.PoolAddress == pool && m.Timestamp >= startMs && m.Timestamp < endMs {
			copy := *m
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp < result[j].Timestamp
	})

	return result, nil
}
