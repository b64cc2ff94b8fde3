package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-pool-monitor/internal/domain"
	"solana-pool-monitor/internal/storage"
)

func TestSwapEventStore_InsertAndGetBySignature(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSwapEventStore(pool)
	ctx := context.Background()

	event := &domain.SwapEvent{
		Signature:   "sig1",
		Slot:        100,
		BlockTime:   1704067200,
		PoolAddress: "pool1",
		Protocol:    domain.ProtocolRaydium,
		Actor:       "trader1",
		InputToken:  domain.TokenAmount{Mint: "mintA", Amount: 100},
		OutputToken: domain.TokenAmount{Mint: "mintB", Amount: 5},
		RouteType:   domain.RouteDirect,
		EventIndex:  0,
	}

	err := store.Insert(ctx, event)
	require.NoError(t, err)

	got, err := store.GetBySignature(ctx, "sig1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "trader1", got[0].Actor)
	assert.Equal(t, domain.ProtocolRaydium, got[0].Protocol)
	assert.Equal(t, domain.RouteDirect, got[0].RouteType)
	assert.Equal(t, 100.0, got[0].InputToken.Amount)
	assert.Equal(t, "mintB", got[0].OutputToken.Mint)
}

func TestSwapEventStore_DuplicateKey(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSwapEventStore(pool)
	ctx := context.Background()

	event := &domain.SwapEvent{Signature: "sig1", EventIndex: 0, Slot: 100, PoolAddress: "pool1"}

	require.NoError(t, store.Insert(ctx, event))

	err := store.Insert(ctx, event)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestSwapEventStore_InsertBulk_AtomicOnDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSwapEventStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, &domain.SwapEvent{
		Signature: "sig1", EventIndex: 0, Slot: 100, PoolAddress: "pool1",
	}))

	// Second element collides with an existing row; nothing may land.
	err := store.InsertBulk(ctx, []*domain.SwapEvent{
		{Signature: "sig2", EventIndex: 0, Slot: 101, PoolAddress: "pool1"},
		{Signature: "sig1", EventIndex: 0, Slot: 100, PoolAddress: "pool1"},
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	got, err := store.GetBySignature(ctx, "sig2")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSwapEventStore_GetByPool(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSwapEventStore(pool)
	ctx := context.Background()

	err := store.InsertBulk(ctx, []*domain.SwapEvent{
		{Signature: "sig3", EventIndex: 0, Slot: 300, PoolAddress: "pool1"},
		{Signature: "sig1", EventIndex: 1, Slot: 100, PoolAddress: "pool1"},
		{Signature: "sig1", EventIndex: 0, Slot: 100, PoolAddress: "pool1"},
		{Signature: "sig2", EventIndex: 0, Slot: 200, PoolAddress: "pool2"},
	})
	require.NoError(t, err)

	got, err := store.GetByPool(ctx, "pool1", 100, 300)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, int64(100), got[0].Slot)
	assert.Equal(t, 0, got[0].EventIndex)
	assert.Equal(t, 1, got[1].EventIndex)
	assert.Equal(t, int64(300), got[2].Slot)

	got, err = store.GetByPool(ctx, "pool1", 101, 299)
	require.NoError(t, err)
	assert.Empty(t, got)
}
