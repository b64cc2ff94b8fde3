package clickhouse

import (
	"context"
	"fmt"

	"solana-pool-monitor/internal/domain"
	"solana-pool-monitor/internal/storage"
)

// MarketSnapshotStore implements storage.MarketSnapshotStore using ClickHouse.
type MarketSnapshotStore struct {
	conn *Conn
}

// NewMarketSnapshotStore creates a new MarketSnapshotStore.
func NewMarketSnapshotStore(conn *Conn) *MarketSnapshotStore {
	return &MarketSnapshotStore{conn: conn}
}

// Compile-time interface check.
var _ storage.MarketSnapshotStore = (*MarketSnapshotStore)(nil)

// InsertBulk adds multiple snapshots. Fails entire batch on duplicate (pool, timestamp_ms).
func (s *MarketSnapshotStore) InsertBulk(ctx context.Context, snapshots []*domain.MarketSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	type key struct {
		pool        string
		timestampMs int64
	}
	seen := make(map[key]struct{})
	for _, m := range snapshots {
		k := key{m.PoolAddress, m.Timestamp}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// MergeTree does not enforce uniqueness, so check against existing rows
	for _, m := range snapshots {
		exists, err := s.exists(ctx, m.PoolAddress, m.Timestamp)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO market_snapshots (
			pool, protocol, slot, timestamp_ms, price, liquidity, trade_count, swap_volume
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, m := range snapshots {
		err = batch.Append(
			m.PoolAddress, m.Protocol.String(), uint64(m.Slot), uint64(m.Timestamp),
			m.Price, m.Liquidity, uint64(m.TradeCount), m.SwapVolume,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByPool retrieves snapshots for a pool within [start, end) milliseconds,
// ordered by timestamp ASC.
func (s *MarketSnapshotStore) GetByPool(ctx context.Context, pool string, startMs, endMs int64) ([]*domain.MarketSnapshot, error) {
	query := `
		SELECT pool, protocol, slot, timestamp_ms, price, liquidity, trade_count, swap_volume
		FROM market_snapshots
		WHERE pool = ? AND timestamp_ms >= ? AND timestamp_ms < ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, pool, uint64(startMs), uint64(endMs))
	if err != nil {
		return nil, fmt.Errorf("query snapshots by pool: %w", err)
	}
	defer rows.Close()

	var snapshots []*domain.MarketSnapshot
	for rows.Next() {
		var (
			m          domain.MarketSnapshot
			protocol   string
			slot       uint64
			timestamp  uint64
			tradeCount uint64
		)

		err := rows.Scan(
			&m.PoolAddress, &protocol, &slot, &timestamp,
			&m.Price, &m.Liquidity, &tradeCount, &m.SwapVolume,
		)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}

		m.Protocol = domain.ParseProtocol(protocol)
		m.Slot = int64(slot)
		m.Timestamp = int64(timestamp)
		m.TradeCount = int64(tradeCount)
		snapshots = append(snapshots, &m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}

	return snapshots, nil
}

// exists checks if a snapshot with the given key exists.
func (s *MarketSnapshotStore) exists(ctx context.Context, pool string, timestampMs int64) (bool, error) {
	query := `
		SELECT count(*) FROM market_snapshots
		WHERE pool = ? AND timestamp_ms = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, pool, uint64(timestampMs)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
