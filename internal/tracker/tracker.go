package tracker

import (
	"math"
	"sync"
	"time"

	"solana-pool-monitor/internal/domain"
)

// UpdateResult is the outcome of applying one update to a pool.
type UpdateResult struct {
	// State is an immutable copy of the pool state after the update.
	State domain.PoolState

	// PriceDelta and LiquidityDelta are relative changes against the
	// previous accepted state, 0 when there was no previous value.
	PriceDelta     float64
	LiquidityDelta float64

	// Created is set when this update auto-created the pool (first-seen).
	Created bool

	// Stale is set when the update's slot was not newer than the stored
	// one; the update was counted but reserves and price were kept.
	Stale bool
}

// Tracker owns the latest known state for each tracked pool. All reads
// return copies; the internal map is never handed out. Per-pool writes
// are serialized by the monitor (one task per pool), the mutex covers
// cross-pool access.
type Tracker struct {
	mu    sync.RWMutex
	pools map[string]*domain.PoolState
}

func New() *Tracker {
	return &Tracker{
		pools: make(map[string]*domain.PoolState),
	}
}

// ApplyAccount applies a decoded pool account observed at the given slot.
// Updates are monotonic in slot: a slot at or below the stored one must
// not overwrite reserves or price (out-of-order delivery protection), but
// is still recorded in the stale counter.
func (t *Tracker) ApplyAccount(poolAddress string, slot int64, acct *domain.PoolAccount) UpdateResult {
	t.mu.Lock()
	defer t.mu.Unlock()

	state, created := t.getOrCreate(poolAddress, acct.Protocol)

	if !created && slot <= state.LastUpdateSlot {
		state.StaleCount++
		state.LastSeen = nowMillis()
		return UpdateResult{State: *state, Stale: true}
	}

	oldPrice := state.LastPrice
	oldLiquidity := state.Liquidity

	state.Protocol = acct.Protocol
	state.ReserveA = acct.TokenA.Reserve
	state.ReserveB = acct.TokenB.Reserve
	state.DecimalsA = acct.TokenA.Decimals
	state.DecimalsB = acct.TokenB.Decimals
	state.MintA = acct.TokenA.Mint
	state.MintB = acct.TokenB.Mint
	if acct.FeeDenominator > 0 {
		state.FeeRate = float64(acct.FeeNumerator) / float64(acct.FeeDenominator)
	}
	state.LastPrice = poolPrice(acct)
	state.Liquidity = poolLiquidity(acct)
	state.LastUpdateSlot = slot
	state.LastSeen = nowMillis()

	return UpdateResult{
		State:          *state,
		PriceDelta:     relativeDelta(oldPrice, state.LastPrice),
		LiquidityDelta: relativeDelta(oldLiquidity, state.Liquidity),
		Created:        created,
	}
}

// ApplySwap folds an observed swap into the pool's rolling trade
// counters. Swap volume is the input leg in UI units. The event's slot
// advances LastUpdateSlot only when newer; trade accounting is applied
// either way, so out-of-order swaps are never lost.
func (t *Tracker) ApplySwap(ev *domain.SwapEvent) UpdateResult {
	t.mu.Lock()
	defer t.mu.Unlock()

	state, created := t.getOrCreate(ev.PoolAddress, ev.Protocol)

	stale := !created && ev.Slot <= state.LastUpdateSlot

	state.TradeCount++
	state.SwapVolume += ev.InputToken.Amount
	state.LastSeen = nowMillis()
	if !stale {
		state.LastUpdateSlot = ev.Slot
	}
	if state.Protocol == domain.ProtocolUnknown {
		state.Protocol = ev.Protocol
	}

	return UpdateResult{State: *state, Created: created, Stale: stale}
}

// RecordDecodeError counts a decode failure against a pool. Never a
// silent drop: the counter is visible in snapshots.
func (t *Tracker) RecordDecodeError(poolAddress string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	state, _ := t.getOrCreate(poolAddress, domain.ProtocolUnknown)
	state.DecodeFails++
	state.LastSeen = nowMillis()
}

// Snapshot returns a copy of the pool's state, false if untracked.
func (t *Tracker) Snapshot(poolAddress string) (domain.PoolState, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	state, ok := t.pools[poolAddress]
	if !ok {
		return domain.PoolState{}, false
	}
	return *state, true
}

// Snapshots returns copies of every tracked pool's state.
func (t *Tracker) Snapshots() []domain.PoolState {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]domain.PoolState, 0, len(t.pools))
	for _, state := range t.pools {
		out = append(out, *state)
	}
	return out
}

// Remove drops a pool from the tracked set. Used on task stop and
// inactivity eviction.
func (t *Tracker) Remove(poolAddress string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.pools, poolAddress)
}

// Len returns the number of tracked pools.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.pools)
}

// getOrCreate must be called with mu held.
func (t *Tracker) getOrCreate(poolAddress string, protocol domain.Protocol) (*domain.PoolState, bool) {
	if state, ok := t.pools[poolAddress]; ok {
		return state, false
	}
	state := &domain.PoolState{
		PoolAddress: poolAddress,
		Protocol:    protocol,
	}
	t.pools[poolAddress] = state
	return state, true
}

// poolPrice computes the pool's spot price. An authoritative price field
// decoded from the account overrides the reserve-derived value: Jupiter
// v2 carries a price fraction, Orca carries sqrt_price in Q64.64.
func poolPrice(acct *domain.PoolAccount) float64 {
	if den, ok := acct.Extra["price_den"]; ok && den > 0 {
		return float64(acct.Extra["price_num"]) / float64(den)
	}

	if lo, ok := acct.Extra["sqrt_price_lo"]; ok {
		sqrtPrice := float64(lo) + float64(acct.Extra["sqrt_price_hi"])*math.Exp2(64)
		ratio := sqrtPrice / math.Exp2(64)
		return ratio * ratio
	}

	if acct.TokenA.Reserve == 0 || acct.TokenB.Reserve == 0 {
		return 0
	}
	scaledA := float64(acct.TokenA.Reserve) / math.Pow(10, float64(acct.TokenA.Decimals))
	scaledB := float64(acct.TokenB.Reserve) / math.Pow(10, float64(acct.TokenB.Decimals))
	return scaledB / scaledA
}

// poolLiquidity derives a comparable liquidity figure: the protocol's
// own liquidity value when the account carries one, else the sum of
// decimal-scaled reserves.
func poolLiquidity(acct *domain.PoolAccount) float64 {
	if lo, ok := acct.Extra["liquidity_lo"]; ok {
		return float64(lo) + float64(acct.Extra["liquidity_hi"])*math.Exp2(64)
	}

	scaledA := float64(acct.TokenA.Reserve) / math.Pow(10, float64(acct.TokenA.Decimals))
	scaledB := float64(acct.TokenB.Reserve) / math.Pow(10, float64(acct.TokenB.Decimals))
	return scaledA + scaledB
}

func relativeDelta(prev, cur float64) float64 {
	if prev == 0 {
		return 0
	}
	return (cur - prev) / prev
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
