package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-pool-monitor/internal/domain"
	"solana-pool-monitor/internal/storage"
)

// PoolStateStore implements storage.PoolStateStore using PostgreSQL.
// The pool_states table is mutable: Upsert overwrites the previous row.
type PoolStateStore struct {
	pool *Pool
}

// NewPoolStateStore creates a new PoolStateStore.
func NewPoolStateStore(pool *Pool) *PoolStateStore {
	return &PoolStateStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PoolStateStore = (*PoolStateStore)(nil)

const selectPoolStateSQL = `
	SELECT pool, protocol, reserve_a, reserve_b, decimals_a, decimals_b,
		mint_a, mint_b, fee_rate, last_price, last_update_slot, last_seen,
		trade_count, swap_volume, liquidity, stale_count, decode_fails
	FROM pool_states
`

// Upsert inserts or replaces the state for a pool address.
func (s *PoolStateStore) Upsert(ctx context.Context, st *domain.PoolState) error {
	if st == nil || st.PoolAddress == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO pool_states (
			pool, protocol, reserve_a, reserve_b, decimals_a, decimals_b,
			mint_a, mint_b, fee_rate, last_price, last_update_slot, last_seen,
			trade_count, swap_volume, liquidity, stale_count, decode_fails
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (pool) DO UPDATE SET
			protocol = EXCLUDED.protocol,
			reserve_a = EXCLUDED.reserve_a,
			reserve_b = EXCLUDED.reserve_b,
			decimals_a = EXCLUDED.decimals_a,
			decimals_b = EXCLUDED.decimals_b,
			mint_a = EXCLUDED.mint_a,
			mint_b = EXCLUDED.mint_b,
			fee_rate = EXCLUDED.fee_rate,
			last_price = EXCLUDED.last_price,
			last_update_slot = EXCLUDED.last_update_slot,
			last_seen = EXCLUDED.last_seen,
			trade_count = EXCLUDED.trade_count,
			swap_volume = EXCLUDED.swap_volume,
			liquidity = EXCLUDED.liquidity,
			stale_count = EXCLUDED.stale_count,
			decode_fails = EXCLUDED.decode_fails
	`

	_, err := s.pool.Exec(ctx, query,
		st.PoolAddress,
		st.Protocol.String(),
		int64(st.ReserveA),
		int64(st.ReserveB),
		int16(st.DecimalsA),
		int16(st.DecimalsB),
		st.MintA,
		st.MintB,
		st.FeeRate,
		st.LastPrice,
		st.LastUpdateSlot,
		st.LastSeen,
		st.TradeCount,
		st.SwapVolume,
		st.Liquidity,
		st.StaleCount,
		st.DecodeFails,
	)
	if err != nil {
		return fmt.Errorf("upsert pool state: %w", err)
	}
	return nil
}

// Get retrieves the state for a pool address. Returns ErrNotFound if not exists.
func (s *PoolStateStore) Get(ctx context.Context, poolAddress string) (*domain.PoolState, error) {
	row := s.pool.QueryRow(ctx, selectPoolStateSQL+` WHERE pool = $1`, poolAddress)

	st, err := scanPoolState(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get pool state: %w", err)
	}
	return st, nil
}

// List retrieves all tracked pool states, ordered by pool address ASC.
func (s *PoolStateStore) List(ctx context.Context) ([]*domain.PoolState, error) {
	rows, err := s.pool.Query(ctx, selectPoolStateSQL+` ORDER BY pool ASC`)
	if err != nil {
		return nil, fmt.Errorf("list pool states: %w", err)
	}
	defer rows.Close()

	var states []*domain.PoolState
	for rows.Next() {
		st, err := scanPoolState(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pool state row: %w", err)
		}
		states = append(states, st)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pool state rows: %w", err)
	}

	return states, nil
}

// Delete removes the state for a pool address. Returns ErrNotFound if not exists.
func (s *PoolStateStore) Delete(ctx context.Context, poolAddress string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM pool_states WHERE pool = $1`, poolAddress)
	if err != nil {
		return fmt.Errorf("delete pool state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// scanPoolState scans one row in select column order.
func scanPoolState(row pgx.Row) (*domain.PoolState, error) {
	var (
		st        domain.PoolState
		protocol  string
		reserveA  int64
		reserveB  int64
		decimalsA int16
		decimalsB int16
	)

	err := row.Scan(
		&st.PoolAddress,
		&protocol,
		&reserveA,
		&reserveB,
		&decimalsA,
		&decimalsB,
		&st.MintA,
		&st.MintB,
		&st.FeeRate,
		&st.LastPrice,
		&st.LastUpdateSlot,
		&st.LastSeen,
		&st.TradeCount,
		&st.SwapVolume,
		&st.Liquidity,
		&st.StaleCount,
		&st.DecodeFails,
	)
	if err != nil {
		return nil, err
	}

	st.Protocol = domain.ParseProtocol(protocol)
	st.ReserveA = uint64(reserveA)
	st.ReserveB = uint64(reserveB)
	st.DecimalsA = uint8(decimalsA)
	st.DecimalsB = uint8(decimalsB)
	return &st, nil
}
