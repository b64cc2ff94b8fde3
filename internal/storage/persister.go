package storage

import (
	"context"
	"errors"
	"fmt"

	"solana-pool-monitor/internal/domain"
)

// Stores bundles concrete backends behind the Persister surface. Any nil
// store disables persistence for that record kind, which lets deployments
// run with only the backends they care about.
type Stores struct {
	Swaps     SwapEventStore
	Liquidity LiquidityEventStore
	Pools     PoolStateStore
	Snapshots MarketSnapshotStore
}

// Compile-time interface check.
var _ Persister = (*Stores)(nil)

// PersistSwap writes a swap event. Duplicate keys are swallowed so that
// redelivered transactions stay idempotent.
func (s *Stores) PersistSwap(ctx context.Context, e *domain.SwapEvent) error {
	if s.Swaps == nil || e == nil {
		return nil
	}
	if err := s.Swaps.Insert(ctx, e); err != nil && !errors.Is(err, ErrDuplicateKey) {
		return fmt.Errorf("persist swap %s/%d: %w", e.Signature, e.EventIndex, err)
	}
	return nil
}

// PersistLiquidity writes a liquidity event, swallowing duplicates.
func (s *Stores) PersistLiquidity(ctx context.Context, e *domain.LiquidityEvent) error {
	if s.Liquidity == nil || e == nil {
		return nil
	}
	if err := s.Liquidity.Insert(ctx, e); err != nil && !errors.Is(err, ErrDuplicateKey) {
		return fmt.Errorf("persist liquidity %s/%d: %w", e.Signature, e.EventIndex, err)
	}
	return nil
}

// PersistPoolState overwrites the stored state for a pool.
func (s *Stores) PersistPoolState(ctx context.Context, st *domain.PoolState) error {
	if s.Pools == nil || st == nil {
		return nil
	}
	if err := s.Pools.Upsert(ctx, st); err != nil {
		return fmt.Errorf("persist pool state %s: %w", st.PoolAddress, err)
	}
	return nil
}

// PersistSnapshot appends one timeseries point, swallowing duplicates.
func (s *Stores) PersistSnapshot(ctx context.Context, m *domain.MarketSnapshot) error {
	if s.Snapshots == nil || m == nil {
		return nil
	}
	if err := s.Snapshots.InsertBulk(ctx, []*domain.MarketSnapshot{m}); err != nil {
		if errors.Is(err, ErrDuplicateKey) {
			return nil
		}
		return fmt.Errorf("persist snapshot %s@%d: %w", m.PoolAddress, m.Timestamp, err)
	}
	return nil
}
