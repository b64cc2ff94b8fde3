package storage

import (
	"context"

	"solana-pool-monitor/internal/domain"
)

// SwapEventStore provides access to swap_events storage.
type SwapEventStore interface {
	// Insert adds a new swap event. Returns ErrDuplicateKey if (tx_signature, event_index) exists.
	Insert(ctx context.Context, e *domain.SwapEvent) error

	// InsertBulk adds multiple swap events atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, events []*domain.SwapEvent) error

	// GetBySignature retrieves all swap events of a transaction, ordered by event_index ASC.
	GetBySignature(ctx context.Context, signature string) ([]*domain.SwapEvent, error)

	// GetByPool retrieves swap events for a pool within slots [start, end] (inclusive),
	// ordered by (slot, tx_signature, event_index) ASC.
	GetByPool(ctx context.Context, pool string, startSlot, endSlot int64) ([]*domain.SwapEvent, error)
}

// LiquidityEventStore provides access to liquidity_events storage.
type LiquidityEventStore interface {
	// Insert adds a new liquidity event. Returns ErrDuplicateKey if (tx_signature, event_index) exists.
	Insert(ctx context.Context, e *domain.LiquidityEvent) error

	// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, events []*domain.LiquidityEvent) error

	// GetByPool retrieves liquidity events for a pool within slots [start, end] (inclusive),
	// ordered by (slot, tx_signature, event_index) ASC.
	GetByPool(ctx context.Context, pool string, startSlot, endSlot int64) ([]*domain.LiquidityEvent, error)
}

// PoolStateStore provides access to pool_states storage. Unlike the event
// stores this one is mutable: pool state is overwritten as slots advance.
type PoolStateStore interface {
	// Upsert inserts or replaces the state for a pool address.
	Upsert(ctx context.Context, s *domain.PoolState) error

	// Get retrieves the state for a pool address. Returns ErrNotFound if not exists.
	Get(ctx context.Context, poolAddress string) (*domain.PoolState, error)

	// List retrieves all tracked pool states, ordered by pool address ASC.
	List(ctx context.Context) ([]*domain.PoolState, error)

	// Delete removes the state for a pool address. Returns ErrNotFound if not exists.
	Delete(ctx context.Context, poolAddress string) error
}

// MarketSnapshotStore provides access to market_snapshots timeseries storage.
type MarketSnapshotStore interface {
	// InsertBulk adds multiple snapshots. Fails entire batch on duplicate (pool, timestamp_ms).
	InsertBulk(ctx context.Context, snapshots []*domain.MarketSnapshot) error

	// GetByPool retrieves snapshots for a pool within [start, end) milliseconds,
	// ordered by timestamp ASC.
	GetByPool(ctx context.Context, pool string, startMs, endMs int64) ([]*domain.MarketSnapshot, error)
}

// Persister is the write-side surface the monitor drains its persist queue
// into. Implementations decide which backend each record lands in.
type Persister interface {
	PersistSwap(ctx context.Context, e *domain.SwapEvent) error
	PersistLiquidity(ctx context.Context, e *domain.LiquidityEvent) error
	PersistPoolState(ctx context.Context, s *domain.PoolState) error
	PersistSnapshot(ctx context.Context, m *domain.MarketSnapshot) error
}
