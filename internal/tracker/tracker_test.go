package tracker

import (
	"math"
	"testing"

	"solana-pool-monitor/internal/domain"
)

const poolAddr = "Pool11111111111111111111111111111111111111P"

func raydiumAccount(reserveA, reserveB uint64) *domain.PoolAccount {
	return &domain.PoolAccount{
		Protocol:       domain.ProtocolRaydium,
		TokenA:         domain.TokenSide{Mint: "mintA", Reserve: reserveA, Decimals: 9},
		TokenB:         domain.TokenSide{Mint: "mintB", Reserve: reserveB, Decimals: 6},
		FeeNumerator:   25,
		FeeDenominator: 10_000,
		Extra:          map[string]uint64{},
	}
}

func TestApplyAccount_FirstSeen(t *testing.T) {
	tr := New()

	res := tr.ApplyAccount(poolAddr, 100, raydiumAccount(1_000_000_000, 150_000_000))
	if !res.Created {
		t.Error("expected first-seen creation")
	}
	if res.Stale {
		t.Error("first update must not be stale")
	}

	state, ok := tr.Snapshot(poolAddr)
	if !ok {
		t.Fatal("expected tracked pool")
	}
	if state.LastUpdateSlot != 100 {
		t.Errorf("expected slot 100, got %d", state.LastUpdateSlot)
	}
	// 1 SOL-unit (1e9 raw, 9 decimals) vs 150 quote units (150e6 raw, 6 decimals)
	if math.Abs(state.LastPrice-150.0) > 1e-9 {
		t.Errorf("expected price 150, got %f", state.LastPrice)
	}
	if math.Abs(state.FeeRate-0.0025) > 1e-12 {
		t.Errorf("expected fee rate 0.0025, got %f", state.FeeRate)
	}
}

func TestApplyAccount_MonotonicSlots(t *testing.T) {
	tr := New()

	tr.ApplyAccount(poolAddr, 5, raydiumAccount(1_000_000_000, 150_000_000))

	// Slot 3 arrives late: counted as stale, reserves untouched
	res := tr.ApplyAccount(poolAddr, 3, raydiumAccount(999, 999))
	if !res.Stale {
		t.Error("expected stale flag for out-of-order slot")
	}

	state, _ := tr.Snapshot(poolAddr)
	if state.LastUpdateSlot != 5 {
		t.Errorf("expected slot 5 after stale update, got %d", state.LastUpdateSlot)
	}
	if state.ReserveA != 1_000_000_000 {
		t.Errorf("stale update overwrote reserves: %d", state.ReserveA)
	}
	if state.StaleCount != 1 {
		t.Errorf("expected stale count 1, got %d", state.StaleCount)
	}

	// Slot 7 advances normally
	res = tr.ApplyAccount(poolAddr, 7, raydiumAccount(2_000_000_000, 150_000_000))
	if res.Stale {
		t.Error("slot 7 must not be stale")
	}

	state, _ = tr.Snapshot(poolAddr)
	if state.LastUpdateSlot != 7 {
		t.Errorf("expected final slot 7, got %d", state.LastUpdateSlot)
	}
	if state.ReserveA != 2_000_000_000 {
		t.Errorf("expected updated reserves, got %d", state.ReserveA)
	}
}

func TestApplyAccount_EqualSlotIsStale(t *testing.T) {
	tr := New()

	tr.ApplyAccount(poolAddr, 10, raydiumAccount(1, 1))
	res := tr.ApplyAccount(poolAddr, 10, raydiumAccount(2, 2))
	if !res.Stale {
		t.Error("equal slot must be rejected as stale")
	}
}

func TestApplyAccount_PriceDelta(t *testing.T) {
	tr := New()

	tr.ApplyAccount(poolAddr, 1, raydiumAccount(1_000_000_000, 100_000_000)) // price 100
	res := tr.ApplyAccount(poolAddr, 2, raydiumAccount(1_000_000_000, 98_000_000))

	if math.Abs(res.PriceDelta-(-0.02)) > 1e-9 {
		t.Errorf("expected price delta -0.02, got %f", res.PriceDelta)
	}
}

func TestApplyAccount_AuthoritativePriceOverride(t *testing.T) {
	tr := New()

	t.Run("jupiter price fraction", func(t *testing.T) {
		acct := raydiumAccount(1_000_000_000, 100_000_000)
		acct.Protocol = domain.ProtocolJupiterV2
		acct.Extra = map[string]uint64{"price_num": 300, "price_den": 2}

		res := tr.ApplyAccount("jupPool", 1, acct)
		if res.State.LastPrice != 150 {
			t.Errorf("expected authoritative price 150, got %f", res.State.LastPrice)
		}
	})

	t.Run("orca sqrt price", func(t *testing.T) {
		// sqrt_price = 2^65 encodes sqrt(price) = 2, so price = 4
		acct := &domain.PoolAccount{
			Protocol: domain.ProtocolOrca,
			TokenA:   domain.TokenSide{Mint: "a"},
			TokenB:   domain.TokenSide{Mint: "b"},
			Extra: map[string]uint64{
				"sqrt_price_lo": 0,
				"sqrt_price_hi": 2,
				"liquidity_lo":  1000,
				"liquidity_hi":  0,
			},
		}

		res := tr.ApplyAccount("orcaPool", 1, acct)
		if math.Abs(res.State.LastPrice-4.0) > 1e-9 {
			t.Errorf("expected price 4, got %f", res.State.LastPrice)
		}
		if res.State.Liquidity != 1000 {
			t.Errorf("expected liquidity 1000, got %f", res.State.Liquidity)
		}
	})
}

func TestApplyAccount_ZeroReservesZeroPrice(t *testing.T) {
	tr := New()

	res := tr.ApplyAccount(poolAddr, 1, raydiumAccount(0, 100))
	if res.State.LastPrice != 0 {
		t.Errorf("expected zero price with empty reserve, got %f", res.State.LastPrice)
	}
}

func TestApplySwap(t *testing.T) {
	tr := New()

	ev := &domain.SwapEvent{
		Signature:   "sig",
		Slot:        10,
		PoolAddress: poolAddr,
		Protocol:    domain.ProtocolRaydium,
		InputToken:  domain.TokenAmount{Mint: "mintA", Amount: 100},
		OutputToken: domain.TokenAmount{Mint: "mintB", Amount: 5},
	}

	res := tr.ApplySwap(ev)
	if !res.Created {
		t.Error("expected first-seen creation via swap")
	}

	tr.ApplySwap(ev)
	state, _ := tr.Snapshot(poolAddr)
	if state.TradeCount != 2 {
		t.Errorf("expected trade count 2, got %d", state.TradeCount)
	}
	if state.SwapVolume != 200 {
		t.Errorf("expected volume 200, got %f", state.SwapVolume)
	}
	if state.LastUpdateSlot != 10 {
		t.Errorf("expected slot 10, got %d", state.LastUpdateSlot)
	}
}

func TestApplySwap_StaleStillCounted(t *testing.T) {
	tr := New()

	tr.ApplyAccount(poolAddr, 20, raydiumAccount(1, 1))

	ev := &domain.SwapEvent{
		Slot:        15,
		PoolAddress: poolAddr,
		InputToken:  domain.TokenAmount{Mint: "mintA", Amount: 7},
	}
	res := tr.ApplySwap(ev)
	if !res.Stale {
		t.Error("expected stale swap")
	}

	state, _ := tr.Snapshot(poolAddr)
	if state.TradeCount != 1 {
		t.Error("stale swap must still be counted")
	}
	if state.LastUpdateSlot != 20 {
		t.Errorf("stale swap must not rewind slot, got %d", state.LastUpdateSlot)
	}
}

func TestRecordDecodeError(t *testing.T) {
	tr := New()

	tr.RecordDecodeError(poolAddr)
	tr.RecordDecodeError(poolAddr)

	state, ok := tr.Snapshot(poolAddr)
	if !ok {
		t.Fatal("decode errors must create a visible pool entry")
	}
	if state.DecodeFails != 2 {
		t.Errorf("expected 2 decode failures, got %d", state.DecodeFails)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := New()

	tr.ApplyAccount(poolAddr, 1, raydiumAccount(1, 1))

	state, _ := tr.Snapshot(poolAddr)
	state.ReserveA = 999999

	fresh, _ := tr.Snapshot(poolAddr)
	if fresh.ReserveA == 999999 {
		t.Error("snapshot must be a copy, not a live handle")
	}
}

func TestRemove(t *testing.T) {
	tr := New()

	tr.ApplyAccount(poolAddr, 1, raydiumAccount(1, 1))
	tr.Remove(poolAddr)

	if _, ok := tr.Snapshot(poolAddr); ok {
		t.Error("expected pool removed")
	}
	if tr.Len() != 0 {
		t.Errorf("expected empty tracker, got %d", tr.Len())
	}
}
