package memory

import (
	"context"
	"errors"
	"testing"

	"solana-pool-monitor/internal/domain"
	"solana-pool-monitor/internal/storage"
)

func TestSwapEventStore_InsertAndGet(t *testing.T) {
	store := NewSwapEventStore()
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

	if err := store.Insert(ctx, event); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	result, err := store.GetBySignature(ctx, "sig1")
	if err != nil {
		t.Fatalf("GetBySignature failed: %v", err)
	}
	if len(result) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(result))
	}
	if result[0].Actor != "trader1" {
		t.Errorf("Actor mismatch: got %s, want trader1", result[0].Actor)
	}
}

func TestSwapEventStore_DuplicateKey(t *testing.T) {
	store := NewSwapEventStore()
	ctx := context.Background()

	event := &domain.SwapEvent{Signature: "sig1", EventIndex: 0, Slot: 100, PoolAddress: "pool1"}

	if err := store.Insert(ctx, event); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}
	if err := store.Insert(ctx, event); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestSwapEventStore_SameSignatureDifferentIndex(t *testing.T) {
	store := NewSwapEventStore()
	ctx := context.Background()

	first := &domain.SwapEvent{Signature: "sig1", EventIndex: 1, Slot: 100, PoolAddress: "pool1"}
	second := &domain.SwapEvent{Signature: "sig1", EventIndex: 0, Slot: 100, PoolAddress: "pool1"}

	if err := store.Insert(ctx, first); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := store.Insert(ctx, second); err != nil {
		t.Fatalf("Insert with different index failed: %v", err)
	}

	result, err := store.GetBySignature(ctx, "sig1")
	if err != nil {
		t.Fatalf("GetBySignature failed: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(result))
	}
	if result[0].EventIndex != 0 || result[1].EventIndex != 1 {
		t.Errorf("Events not ordered by event index: %d, %d", result[0].EventIndex, result[1].EventIndex)
	}
}

func TestSwapEventStore_InsertBulk_IntraBatchDuplicate(t *testing.T) {
	store := NewSwapEventStore()
	ctx := context.Background()

	events := []*domain.SwapEvent{
		{Signature: "sig1", EventIndex: 0, Slot: 100, PoolAddress: "pool1"},
		{Signature: "sig1", EventIndex: 0, Slot: 100, PoolAddress: "pool1"},
	}

	if err := store.InsertBulk(ctx, events); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}

	// Nothing from the failed batch should be visible.
	result, err := store.GetBySignature(ctx, "sig1")
	if err != nil {
		t.Fatalf("GetBySignature failed: %v", err)
	}
	if len(result) != 0 {
		t.Errorf("Expected empty store after failed batch, got %d events", len(result))
	}
}

func TestSwapEventStore_GetByPool(t *testing.T) {
	store := NewSwapEventStore()
	ctx := context.Background()

	events := []*domain.SwapEvent{
		{Signature: "sig3", EventIndex: 0, Slot: 300, PoolAddress: "pool1"},
		{Signature: "sig1", EventIndex: 0, Slot: 100, PoolAddress: "pool1"},
		{Signature: "sig2", EventIndex: 0, Slot: 200, PoolAddress: "pool2"},
	}
	if err := store.InsertBulk(ctx, events); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	result, err := store.GetByPool(ctx, "pool1", 100, 300)
	if err != nil {
		t.Fatalf("GetByPool failed: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(result))
	}
	if result[0].Slot != 100 || result[1].Slot != 300 {
		t.Errorf("Events not ordered by slot: %d, %d", result[0].Slot, result[1].Slot)
	}

	// Exclusive of anything outside the slot range.
	result, err = store.GetByPool(ctx, "pool1", 101, 299)
	if err != nil {
		t.Fatalf("GetByPool failed: %v", err)
	}
	if len(result) != 0 {
		t.Errorf("Expected 0 events in narrow range, got %d", len(result))
	}
}

func TestSwapEventStore_ReturnsCopies(t *testing.T) {
	store := NewSwapEventStore()
	ctx := context.Background()

	event := &domain.SwapEvent{Signature: "sig1", EventIndex: 0, Slot: 100, PoolAddress: "pool1", Actor: "trader1"}
	if err := store.Insert(ctx, event); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	result, err := store.GetBySignature(ctx, "sig1")
	if err != nil {
		t.Fatalf("GetBySignature failed: %v", err)
	}
	result[0].Actor = "mutated"

	again, err := store.GetBySignature(ctx, "sig1")
	if err != nil {
		t.Fatalf("GetBySignature failed: %v", err)
	}
	if again[0].Actor != "trader1" {
		t.Errorf("Stored event was mutated through returned copy")
	}
}
