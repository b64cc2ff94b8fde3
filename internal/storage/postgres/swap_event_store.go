package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-pool-monitor/internal/domain"
	"solana-pool-monitor/internal/storage"
)

// SwapEventStore implements storage.SwapEventStore using PostgreSQL.
type SwapEventStore struct {
	pool *Pool
}

// NewSwapEventStore creates a new SwapEventStore.
func NewSwapEventStore(pool *Pool) *SwapEventStore {
	return &SwapEventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SwapEventStore = (*SwapEventStore)(nil)

const insertSwapEventSQL = `
	INSERT INTO swap_events (
		tx_signature, event_index, slot, block_time, pool, protocol,
		actor, input_mint, input_amount, output_mint, output_amount, route_type
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
`

const selectSwapEventSQL = `
	SELECT tx_signature, event_index, slot, block_time, pool, protocol,
		actor, input_mint, input_amount, output_mint, output_amount, route_type
	FROM swap_events
`

// Insert adds a new swap event. Returns ErrDuplicateKey if (tx_signature, event_index) exists.
func (s *SwapEventStore) Insert(ctx context.Context, e *domain.SwapEvent) error {
	_, err := s.pool.Exec(ctx, insertSwapEventSQL, swapEventArgs(e)...)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert swap event: %w", err)
	}
	return nil
}

// InsertBulk adds multiple swap events atomically. Fails entire batch on any duplicate.
func (s *SwapEventStore) InsertBulk(ctx context.Context, events []*domain.SwapEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, e := range events {
		if _, err := tx.Exec(ctx, insertSwapEventSQL, swapEventArgs(e)...); err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert swap event in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetBySignature retrieves all swap events of a transaction, ordered by event_index ASC.
func (s *SwapEventStore) GetBySignature(ctx context.Context, signature string) ([]*domain.SwapEvent, error) {
	query := selectSwapEventSQL + `
		WHERE tx_signature = $1
		ORDER BY event_index ASC
	`

	rows, err := s.pool.Query(ctx, query, signature)
	if err != nil {
		return nil, fmt.Errorf("get swap events by signature: %w", err)
	}
	defer rows.Close()

	return scanSwapEvents(rows)
}

// GetByPool retrieves swap events for a pool within slots [start, end] (inclusive).
func (s *SwapEventStore) GetByPool(ctx context.Context, pool string, startSlot, endSlot int64) ([]*domain.SwapEvent, error) {
	query := selectSwapEventSQL + `
		WHERE pool = $1 AND slot >= $2 AND slot <= $3
		ORDER BY slot ASC, tx_signature ASC, event_index ASC
	`

	rows, err := s.pool.Query(ctx, query, pool, startSlot, endSlot)
	if err != nil {
		return nil, fmt.Errorf("get swap events by pool: %w", err)
	}
	defer rows.Close()

	return scanSwapEvents(rows)
}

// swapEventArgs flattens a SwapEvent in insert column order.
func swapEventArgs(e *domain.SwapEvent) []any {
	return []any{
		e.Signature,
		e.EventIndex,
		e.Slot,
		e.BlockTime,
		e.PoolAddress,
		e.Protocol.String(),
		e.Actor,
		e.InputToken.Mint,
		e.InputToken.Amount,
		e.OutputToken.Mint,
		e.OutputToken.Amount,
		string(e.RouteType),
	}
}

// scanSwapEvents scans multiple rows into a slice of SwapEvent.
func scanSwapEvents(rows pgx.Rows) ([]*domain.SwapEvent, error) {
	var events []*domain.SwapEvent

	for rows.Next() {
		var (
			e         domain.SwapEvent
			protocol  string
			routeType string
		)

		err := rows.Scan(
			&e.Signature,
			&e.EventIndex,
			&e.Slot,
			&e.BlockTime,
			&e.PoolAddress,
			&protocol,
			&e.Actor,
			&e.InputToken.Mint,
			&e.InputToken.Amount,
			&e.OutputToken.Mint,
			&e.OutputToken.Amount,
			&routeType,
		)
		if err != nil {
			return nil, fmt.Errorf("scan swap event row: %w", err)
		}

		e.Protocol = domain.ParseProtocol(protocol)
		e.RouteType = domain.RouteType(routeType)
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate swap event rows: %w", err)
	}

	return events, nil
}
