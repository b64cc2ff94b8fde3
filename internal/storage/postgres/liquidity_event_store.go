package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-pool-monitor/internal/domain"
	"solana-pool-monitor/internal/storage"
)

// LiquidityEventStore implements storage.LiquidityEventStore using PostgreSQL.
type LiquidityEventStore struct {
	pool *Pool
}

// NewLiquidityEventStore creates a new LiquidityEventStore.
func NewLiquidityEventStore(pool *Pool) *LiquidityEventStore {
	return &LiquidityEventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.LiquidityEventStore = (*LiquidityEventStore)(nil)

const insertLiquidityEventSQL = `
	INSERT INTO liquidity_events (
		tx_signature, event_index, slot, block_time, pool, protocol,
		event_type, amount_a, amount_b
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`

// Insert adds a new liquidity event. Returns ErrDuplicateKey if (tx_signature, event_index) exists.
func (s *LiquidityEventStore) Insert(ctx context.Context, e *domain.LiquidityEvent) error {
	_, err := s.pool.Exec(ctx, insertLiquidityEventSQL, liquidityEventArgs(e)...)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert liquidity event: %w", err)
	}
	return nil
}

// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate.
func (s *LiquidityEventStore) InsertBulk(ctx context.Context, events []*domain.LiquidityEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, e := range events {
		if _, err := tx.Exec(ctx, insertLiquidityEventSQL, liquidityEventArgs(e)...); err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert liquidity event in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByPool retrieves liquidity events for a pool within slots [start, end] (inclusive).
func (s *LiquidityEventStore) GetByPool(ctx context.Context, pool string, startSlot, endSlot int64) ([]*domain.LiquidityEvent, error) {
	query := `
		SELECT tx_signature, event_index, slot, block_time, pool, protocol,
			event_type, amount_a, amount_b
		FROM liquidity_events
		WHERE pool = $1 AND slot >= $2 AND slot <= $3
		ORDER BY slot ASC, tx_signature ASC, event_index ASC
	`

	rows, err := s.pool.Query(ctx, query, pool, startSlot, endSlot)
	if err != nil {
		return nil, fmt.Errorf("get liquidity events by pool: %w", err)
	}
	defer rows.Close()

	return scanLiquidityEvents(rows)
}

// liquidityEventArgs flattens a LiquidityEvent in insert column order.
// Raw token amounts ride in BIGINT columns, so they round-trip through int64.
func liquidityEventArgs(e *domain.LiquidityEvent) []any {
	return []any{
		e.Signature,
		e.EventIndex,
		e.Slot,
		e.BlockTime,
		e.PoolAddress,
		e.Protocol.String(),
		e.EventType,
		int64(e.AmountA),
		int64(e.AmountB),
	}
}

// scanLiquidityEvents scans multiple rows into a slice of LiquidityEvent.
func scanLiquidityEvents(rows pgx.Rows) ([]*domain.LiquidityEvent, error) {
	var events []*domain.LiquidityEvent

	for rows.Next() {
		var (
			e        domain.LiquidityEvent
			protocol string
			amountA  int64
			amountB  int64
		)

		err := rows.Scan(
			&e.Signature,
			&e.EventIndex,
			&e.Slot,
			&e.BlockTime,
			&e.PoolAddress,
			&protocol,
			&e.EventType,
			&amountA,
			&amountB,
		)
		if err != nil {
			return nil, fmt.Errorf("scan liquidity event row: %w", err)
		}

		e.Protocol = domain.ParseProtocol(protocol)
		e.AmountA = uint64(amountA)
		e.AmountB = uint64(amountB)
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate liquidity event rows: %w", err)
	}

	return events, nil
}
