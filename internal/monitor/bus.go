package monitor

import (
	"fmt"
	"log"
	"sync"

	"solana-pool-monitor/internal/domain"
	"solana-pool-monitor/internal/observability"
)

// Event categories exposed to subscribers.
const (
	CategoryPoolUpdate    = "pool_update"
	CategoryTradeDetected = "trade_detected"
	CategoryPriceAlert    = "price_alert"
	CategoryError         = "error"
)

// PoolUpdate is the payload delivered to pool_update subscribers.
type PoolUpdate struct {
	State          domain.PoolState
	PriceDelta     float64
	LiquidityDelta float64
	Created        bool
}

// ErrorEvent is the payload delivered to error subscribers.
type ErrorEvent struct {
	PoolAddress string
	Category    string
	Err         error
}

// Bus fans events out to registered callbacks. Registries are append-only:
// subscriptions cannot be removed, which keeps reads safe under a shared
// read lock while the monitor publishes.
type Bus struct {
	mu     sync.RWMutex
	logger *log.Logger

	poolUpdateSubs []func(PoolUpdate)
	tradeSubs      []func(domain.SwapEvent)
	alertSubs      []func(domain.PriceAlert)
	errorSubs      []func(ErrorEvent)
}

// NewBus creates an event bus. A nil logger falls back to log.Default().
func NewBus(logger *log.Logger) *Bus {
	if logger == nil {
		logger = log.Default()
	}
	return &Bus{logger: logger}
}

// OnPoolUpdate registers a pool_update subscriber.
func (b *Bus) OnPoolUpdate(fn func(PoolUpdate)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.poolUpdateSubs = append(b.poolUpdateSubs, fn)
}

// OnTrade registers a trade_detected subscriber.
func (b *Bus) OnTrade(fn func(domain.SwapEvent)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tradeSubs = append(b.tradeSubs, fn)
}

// OnPriceAlert registers a price_alert subscriber.
func (b *Bus) OnPriceAlert(fn func(domain.PriceAlert)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.alertSubs = append(b.alertSubs, fn)
}

// OnError registers an error subscriber.
func (b *Bus) OnError(fn func(ErrorEvent)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.errorSubs = append(b.errorSubs, fn)
}

// PublishPoolUpdate delivers a pool update to every subscriber.
func (b *Bus) PublishPoolUpdate(u PoolUpdate) {
	b.mu.RLock()
	subs := b.poolUpdateSubs
	b.mu.RUnlock()

	for _, fn := range subs {
		b.invoke(CategoryPoolUpdate, u.State.PoolAddress, func() { fn(u) })
	}
}

// PublishTrade delivers a swap event to every subscriber.
func (b *Bus) PublishTrade(ev domain.SwapEvent) {
	b.mu.RLock()
	subs := b.tradeSubs
	b.mu.RUnlock()

	for _, fn := range subs {
		b.invoke(CategoryTradeDetected, ev.PoolAddress, func() { fn(ev) })
	}
}

// PublishPriceAlert delivers a price alert to every subscriber.
func (b *Bus) PublishPriceAlert(a domain.PriceAlert) {
	b.mu.RLock()
	subs := b.alertSubs
	b.mu.RUnlock()

	for _, fn := range subs {
		b.invoke(CategoryPriceAlert, a.PoolAddress, func() { fn(a) })
	}
}

// PublishError delivers an error event to every subscriber. Panics in
// error subscribers are logged only, to avoid publish recursion.
func (b *Bus) PublishError(ev ErrorEvent) {
	b.mu.RLock()
	subs := b.errorSubs
	b.mu.RUnlock()

	for _, fn := range subs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					observability.RecordCallbackPanic(CategoryError)
					b.logger.Printf("[bus] error subscriber panicked: %v", r)
				}
			}()
			fn(ev)
		}()
	}
}

// invoke runs one subscriber callback, recovering panics so a failing
// subscriber never interrupts the others or the monitor loop.
func (b *Bus) invoke(category, pool string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			observability.RecordCallbackPanic(category)
			b.logger.Printf("[bus] %s subscriber panicked for pool %s: %v", category, pool, r)
			b.PublishError(ErrorEvent{
				PoolAddress: pool,
				Category:    category,
				Err:         fmt.Errorf("subscriber panic: %v", r),
			})
		}
	}()
	fn()
}
