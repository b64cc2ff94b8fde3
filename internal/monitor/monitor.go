// Package monitor is the concurrency core: it discovers pools from the
// transaction traffic of a monitored address, runs one polling task per
// pool, feeds updates through the tracker, and fans events out to
// subscribers while a single worker drains persistence.
package monitor

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"solana-pool-monitor/internal/amm"
	"solana-pool-monitor/internal/domain"
	"solana-pool-monitor/internal/normalizer"
	"solana-pool-monitor/internal/observability"
	"solana-pool-monitor/internal/solana"
	"solana-pool-monitor/internal/storage"
	"solana-pool-monitor/internal/tracker"
)

// Config holds monitor tuning knobs. Zero values take the defaults.
type Config struct {
	// Address is the top-level address whose transaction stream seeds
	// pool discovery.
	Address string

	// PollInterval is the per-pool account poll cadence. Default 5s.
	PollInterval time.Duration

	// DegradedMultiplier scales PollInterval for the backoff delay after
	// a failed poll. Default 5.
	DegradedMultiplier int

	// MaxConcurrentFetches caps in-flight account fetches across all
	// pool tasks. Default 10.
	MaxConcurrentFetches int

	// FetchTimeout bounds every network fetch. Default 10s.
	FetchTimeout time.Duration

	// AlertThreshold is the relative price move that raises a
	// PriceAlert, inclusive. Default 0.02.
	AlertThreshold float64

	// PersistQueueSize bounds the persist queue; producers block when
	// it is full. Default 256.
	PersistQueueSize int

	// InactivityWindow evicts pools with no accepted update inside it.
	// Default 72h.
	InactivityWindow time.Duration

	// EvictionInterval is how often the inactivity sweep runs.
	// Default 10m.
	EvictionInterval time.Duration

	// SignatureLimit is the page size for signature polling. Default 25.
	SignatureLimit int
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = 5 * time.Second
	}
	if c.DegradedMultiplier <= 0 {
		c.DegradedMultiplier = 5
	}
	if c.MaxConcurrentFetches <= 0 {
		c.MaxConcurrentFetches = 10
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 10 * time.Second
	}
	if c.AlertThreshold <= 0 {
		c.AlertThreshold = 0.02
	}
	if c.PersistQueueSize <= 0 {
		c.PersistQueueSize = 256
	}
	if c.InactivityWindow <= 0 {
		c.InactivityWindow = 72 * time.Hour
	}
	if c.EvictionInterval <= 0 {
		c.EvictionInterval = 10 * time.Minute
	}
	if c.SignatureLimit <= 0 {
		c.SignatureLimit = 25
	}
	return c
}

// Options wires the monitor's collaborators.
type Options struct {
	Config Config

	// RPC is required.
	RPC solana.RPCClient

	// WS is optional; when set, discovery streams logsSubscribe
	// notifications instead of polling signatures.
	WS solana.WSClient

	// Registry defaults to amm.DefaultRegistry().
	Registry *amm.Registry

	// Persister receives everything the persist queue drains. Optional;
	// nil disables persistence.
	Persister storage.Persister

	Logger *log.Logger
}

// Monitor coordinates discovery, per-pool tasks, tracking and fan-out.
type Monitor struct {
	cfg      Config
	rpc      solana.RPCClient
	ws       solana.WSClient
	registry *amm.Registry
	norm     *normalizer.Normalizer
	tracker  *tracker.Tracker
	bus      *Bus
	queue    *PersistQueue
	logger   *log.Logger

	// sem caps concurrent account fetches across all pool tasks.
	sem chan struct{}

	mu      sync.Mutex
	tasks   map[string]*poolTask
	lastSig string
	started bool

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New creates a monitor. It fails fast on a missing RPC client or
// discovery address; those are configuration errors, not runtime ones.
func New(opts Options) (*Monitor, error) {
	if opts.RPC == nil {
		return nil, errors.New("monitor: RPC client is required")
	}
	if opts.Config.Address == "" {
		return nil, errors.New("monitor: discovery address is required")
	}

	cfg := opts.Config.withDefaults()

	registry := opts.Registry
	if registry == nil {
		registry = amm.DefaultRegistry()
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	persister := opts.Persister
	if persister == nil {
		persister = &storage.Stores{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	bus := NewBus(logger)
	m := &Monitor{
		cfg:      cfg,
		rpc:      opts.RPC,
		ws:       opts.WS,
		registry: registry,
		norm:     normalizer.New(registry),
		tracker:  tracker.New(),
		bus:      bus,
		queue:    NewPersistQueue(persister, cfg.PersistQueueSize, bus, logger),
		logger:   logger,
		sem:      make(chan struct{}, cfg.MaxConcurrentFetches),
		tasks:    make(map[string]*poolTask),
		ctx:      ctx,
		cancel:   cancel,
	}
	return m, nil
}

// Bus returns the event bus for subscriber registration.
func (m *Monitor) Bus() *Bus {
	return m.bus
}

// Snapshots returns copies of every tracked pool state.
func (m *Monitor) Snapshots() []domain.PoolState {
	return m.tracker.Snapshots()
}

// Snapshot returns a copy of one pool's state.
func (m *Monitor) Snapshot(pool string) (domain.PoolState, bool) {
	return m.tracker.Snapshot(pool)
}

// PoolStates lists each monitored pool with its task lifecycle state.
// Degraded pools are listed too; operators must be able to tell a
// failing pool from one that was never discovered.
func (m *Monitor) PoolStates() map[string]TaskState {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]TaskState, len(m.tasks))
	for addr, t := range m.tasks {
		out[addr] = t.State()
	}
	return out
}

// Start launches the discovery and eviction loops. It returns
// immediately; Stop shuts everything down.
func (m *Monitor) Start() error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return errors.New("monitor: already started")
	}
	m.started = true
	m.mu.Unlock()

	m.logger.Printf("[monitor] starting, address=%s poll=%v fetches=%d",
		m.cfg.Address, m.cfg.PollInterval, m.cfg.MaxConcurrentFetches)

	m.wg.Add(2)
	go m.discoveryLoop()
	go m.evictionLoop()
	return nil
}

// Stop cancels discovery and every pool task cooperatively, then drains
// the persist queue before returning. Safe to call more than once.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		m.logger.Printf("[monitor] stopping")
		m.cancel()
		m.wg.Wait()

		m.mu.Lock()
		for _, t := range m.tasks {
			t.setState(StateStopped)
		}
		m.mu.Unlock()
		m.updateTaskGauges()

		// Everything already queued is persisted before shutdown
		// completes; records are never left half-applied.
		m.queue.Close()
		m.logger.Printf("[monitor] stopped")
	})
}

// DiscoverPool schedules monitoring for a pool address. Idempotent:
// re-observing an address with a live task is a no-op. Returns true when
// a new task was scheduled.
func (m *Monitor) DiscoverPool(address string, protocol domain.Protocol) bool {
	if address == "" {
		return false
	}

	m.mu.Lock()
	if _, exists := m.tasks[address]; exists {
		m.mu.Unlock()
		return false
	}
	t := newPoolTask(m.ctx, address, protocol)
	m.tasks[address] = t
	m.mu.Unlock()

	observability.RecordPoolDiscovered()
	m.logger.Printf("[monitor] discovered pool %s (%s)", address, protocol)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.runPool(t)
	}()
	m.updateTaskGauges()
	return true
}

// StopPool cancels one pool's task and removes its tracked state.
// Returns false when the pool was not monitored.
func (m *Monitor) StopPool(address string) bool {
	m.mu.Lock()
	t, ok := m.tasks[address]
	if ok {
		delete(m.tasks, address)
	}
	m.mu.Unlock()

	if !ok {
		return false
	}

	t.stop()
	m.tracker.Remove(address)
	m.updateTaskGauges()
	m.logger.Printf("[monitor] stopped pool %s", address)
	return true
}

// discoveryLoop follows the monitored address's transaction stream:
// logsSubscribe when a WS client is wired, signature polling otherwise.
func (m *Monitor) discoveryLoop() {
	defer m.wg.Done()

	if m.ws != nil {
		m.discoverFromLogs()
		return
	}

	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	m.pollSignatures()
	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.pollSignatures()
		}
	}
}

func (m *Monitor) discoverFromLogs() {
	ch, err := m.ws.SubscribeLogs(m.ctx, solana.LogsFilter{Mentions: []string{m.cfg.Address}})
	if err != nil {
		m.logger.Printf("[monitor] logsSubscribe failed, falling back to polling: %v", err)
		m.bus.PublishError(ErrorEvent{Category: "discovery", Err: err})

		ticker := time.NewTicker(m.cfg.PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-m.ctx.Done():
				return
			case <-ticker.C:
				m.pollSignatures()
			}
		}
	}

	for {
		select {
		case <-m.ctx.Done():
			return
		case note, ok := <-ch:
			if !ok {
				m.logger.Printf("[monitor] log stream closed")
				return
			}
			if note.Err != nil {
				// Failed transactions still matter for liquidity
				// bookkeeping, so they are handled like any other.
				m.logger.Printf("[monitor] failed tx in stream: %s", note.Signature)
			}
			m.handleSignature(note.Signature)
		}
	}
}

// pollSignatures pages new signatures for the monitored address, oldest
// first, and runs each transaction through the normalizer.
func (m *Monitor) pollSignatures() {
	ctx, cancel := context.WithTimeout(m.ctx, m.cfg.FetchTimeout)
	defer cancel()

	start := time.Now()
	sigs, err := m.rpc.GetSignaturesForAddress(ctx, m.cfg.Address, &solana.SignaturesOpts{
		Until: m.lastSigCursor(),
		Limit: m.cfg.SignatureLimit,
	})
	observability.RecordRPCLatency("getSignaturesForAddress", time.Since(start).Seconds())
	if err != nil {
		m.logger.Printf("[monitor] signature poll failed: %v", err)
		m.bus.PublishError(ErrorEvent{Category: "discovery", Err: err})
		return
	}
	if len(sigs) == 0 {
		return
	}

	// The RPC returns newest first; replay in chain order.
	for i := len(sigs) - 1; i >= 0; i-- {
		select {
		case <-m.ctx.Done():
			return
		default:
		}
		m.handleSignature(sigs[i].Signature)
	}

	m.mu.Lock()
	m.lastSig = sigs[0].Signature
	m.mu.Unlock()
}

func (m *Monitor) lastSigCursor() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastSig
}

// handleSignature fetches and normalizes one transaction, feeding swaps
// into the tracker, discovering referenced pools, and queueing records
// for persistence.
func (m *Monitor) handleSignature(signature string) {
	ctx, cancel := context.WithTimeout(m.ctx, m.cfg.FetchTimeout)
	defer cancel()

	start := time.Now()
	tx, err := m.rpc.GetTransaction(ctx, signature)
	observability.RecordRPCLatency("getTransaction", time.Since(start).Seconds())
	if err != nil {
		m.logger.Printf("[monitor] fetch tx %s failed: %v", signature, err)
		m.bus.PublishError(ErrorEvent{Category: "discovery", Err: err})
		return
	}
	if tx == nil {
		return
	}

	events := m.norm.Normalize(tx)

	for _, de := range events.DecodeErrs {
		observability.RecordDecodeError(de.Protocol.String(), de.Reason.String())
		m.bus.PublishError(ErrorEvent{Category: "decode", Err: de})
	}
	if events.Ambiguous {
		observability.RecordAmbiguous()
	}
	for _, in := range events.Instructions {
		observability.RecordInstruction(in.Protocol.String(), in.Name)
	}

	if swap := events.Swap; swap != nil {
		m.tracker.ApplySwap(swap)
		observability.RecordSwapEvent(swap.Protocol.String())
		m.bus.PublishTrade(*swap)
		if err := m.queue.EnqueueSwap(m.ctx, swap); err != nil {
			return
		}
		m.DiscoverPool(swap.PoolAddress, swap.Protocol)
	}

	for i := range events.Liquidity {
		ev := events.Liquidity[i]
		observability.RecordLiquidityEvent(ev.EventType)
		if err := m.queue.EnqueueLiquidity(m.ctx, &ev); err != nil {
			return
		}
		m.DiscoverPool(ev.PoolAddress, ev.Protocol)
	}
}

// runPool is the per-pool task loop: poll, apply, publish, sleep. A
// failed poll degrades the task and stretches the delay; it never stops
// the task. Only cancellation does.
func (m *Monitor) runPool(t *poolTask) {
	defer close(t.done)
	defer t.setState(StateStopped)

	for {
		start := time.Now()
		ok := m.pollPool(t)
		observability.RecordPollDuration(time.Since(start).Seconds())

		var delay time.Duration
		if ok {
			t.setState(StateActive)
			delay = m.cfg.PollInterval
		} else {
			t.setState(StateDegraded)
			delay = time.Duration(m.cfg.DegradedMultiplier) * m.cfg.PollInterval
		}
		m.updateTaskGauges()

		select {
		case <-t.ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// pollPool fetches and applies one account update. Returns false on a
// transient failure that should degrade the task.
func (m *Monitor) pollPool(t *poolTask) bool {
	// Bounded fetch concurrency across all pool tasks.
	select {
	case m.sem <- struct{}{}:
	case <-t.ctx.Done():
		return true
	}
	defer func() { <-m.sem }()

	ctx, cancel := context.WithTimeout(t.ctx, m.cfg.FetchTimeout)
	defer cancel()

	start := time.Now()
	info, err := m.rpc.GetAccountInfo(ctx, t.pool)
	observability.RecordRPCLatency("getAccountInfo", time.Since(start).Seconds())
	if err != nil {
		if t.ctx.Err() != nil {
			return true
		}
		m.logger.Printf("[monitor] fetch account %s failed: %v", t.pool, err)
		m.bus.PublishError(ErrorEvent{PoolAddress: t.pool, Category: "fetch", Err: err})
		return false
	}
	if info == nil {
		// Nothing on chain for this address yet. Not a failure.
		return true
	}

	protocol := domain.ResolveProtocol(info.Owner)
	if protocol == domain.ProtocolUnknown {
		protocol = t.protocol
	}

	acct, err := m.registry.DecodeAccount(protocol, info.Data)
	if err != nil {
		m.tracker.RecordDecodeError(t.pool)
		if de := amm.AsDecodeError(err); de != nil {
			observability.RecordDecodeError(de.Protocol.String(), de.Reason.String())
		}
		m.bus.PublishError(ErrorEvent{PoolAddress: t.pool, Category: "decode", Err: err})
		return false
	}
	observability.RecordAccountDecoded(protocol.String())

	res := m.tracker.ApplyAccount(t.pool, info.Slot, acct)
	if res.Stale {
		observability.RecordStaleUpdate()
		return true
	}

	m.bus.PublishPoolUpdate(PoolUpdate{
		State:          res.State,
		PriceDelta:     res.PriceDelta,
		LiquidityDelta: res.LiquidityDelta,
		Created:        res.Created,
	})

	// Threshold is inclusive: a move of exactly the threshold alerts.
	if !res.Created && abs(res.PriceDelta) >= m.cfg.AlertThreshold {
		alert := domain.PriceAlert{
			PoolAddress:     t.pool,
			OldPrice:        res.State.LastPrice / (1 + res.PriceDelta),
			NewPrice:        res.State.LastPrice,
			PercentChange:   res.PriceDelta,
			TriggeredAtSlot: res.State.LastUpdateSlot,
		}
		observability.RecordPriceAlert()
		m.bus.PublishPriceAlert(alert)
	}

	state := res.State
	if err := m.queue.EnqueuePoolState(m.ctx, &state); err != nil {
		return true
	}
	snap := &domain.MarketSnapshot{
		PoolAddress: state.PoolAddress,
		Protocol:    state.Protocol,
		Slot:        state.LastUpdateSlot,
		Timestamp:   state.LastSeen,
		Price:       state.LastPrice,
		Liquidity:   state.Liquidity,
		TradeCount:  state.TradeCount,
		SwapVolume:  state.SwapVolume,
	}
	if err := m.queue.EnqueueSnapshot(m.ctx, snap); err != nil {
		return true
	}

	return true
}

// evictionLoop removes pools with no accepted update inside the
// inactivity window.
func (m *Monitor) evictionLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.EvictionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.evictInactive()
		}
	}
}

func (m *Monitor) evictInactive() {
	cutoff := time.Now().Add(-m.cfg.InactivityWindow).UnixMilli()

	for _, st := range m.tracker.Snapshots() {
		if st.LastSeen > 0 && st.LastSeen < cutoff {
			if m.StopPool(st.PoolAddress) {
				observability.RecordPoolEvicted()
				m.logger.Printf("[monitor] evicted inactive pool %s", st.PoolAddress)
			}
		}
	}
}

func (m *Monitor) updateTaskGauges() {
	m.mu.Lock()
	counts := make(map[TaskState]int, 4)
	for _, t := range m.tasks {
		counts[t.State()]++
	}
	m.mu.Unlock()

	for _, s := range []TaskState{StateDiscovered, StateActive, StateDegraded, StateStopped} {
		observability.UpdatePoolTasks(s.String(), counts[s])
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
