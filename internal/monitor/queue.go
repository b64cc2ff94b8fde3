package monitor

import (
	"context"
	"log"
	"sync"
	"time"

	"solana-pool-monitor/internal/domain"
	"solana-pool-monitor/internal/observability"
	"solana-pool-monitor/internal/storage"
)

// persistRecord is one unit of work for the persist worker. Exactly one
// field is set.
type persistRecord struct {
	swap      *domain.SwapEvent
	liquidity *domain.LiquidityEvent
	state     *domain.PoolState
	snapshot  *domain.MarketSnapshot
}

// PersistQueue is the bounded queue between the monitor and its
// persistence collaborator. A full queue blocks the producer rather than
// dropping records: completeness wins over latency. A single worker
// drains the queue, so persisted records for one pool keep their
// enqueue order.
type PersistQueue struct {
	ch        chan persistRecord
	persister storage.Persister
	bus       *Bus
	logger    *log.Logger
	timeout   time.Duration

	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewPersistQueue creates a queue of the given capacity and starts its
// worker. Close must be called to drain and stop it.
func NewPersistQueue(p storage.Persister, capacity int, bus *Bus, logger *log.Logger) *PersistQueue {
	if capacity <= 0 {
		capacity = 256
	}
	if logger == nil {
		logger = log.Default()
	}

	q := &PersistQueue{
		ch:        make(chan persistRecord, capacity),
		persister: p,
		bus:       bus,
		logger:    logger,
		timeout:   10 * time.Second,
	}

	q.wg.Add(1)
	go q.worker()

	return q
}

// EnqueueSwap blocks until the record is accepted or ctx is done.
func (q *PersistQueue) EnqueueSwap(ctx context.Context, e *domain.SwapEvent) error {
	return q.enqueue(ctx, persistRecord{swap: e})
}

// EnqueueLiquidity blocks until the record is accepted or ctx is done.
func (q *PersistQueue) EnqueueLiquidity(ctx context.Context, e *domain.LiquidityEvent) error {
	return q.enqueue(ctx, persistRecord{liquidity: e})
}

// EnqueuePoolState blocks until the record is accepted or ctx is done.
func (q *PersistQueue) EnqueuePoolState(ctx context.Context, s *domain.PoolState) error {
	return q.enqueue(ctx, persistRecord{state: s})
}

// EnqueueSnapshot blocks until the record is accepted or ctx is done.
func (q *PersistQueue) EnqueueSnapshot(ctx context.Context, m *domain.MarketSnapshot) error {
	return q.enqueue(ctx, persistRecord{snapshot: m})
}

func (q *PersistQueue) enqueue(ctx context.Context, rec persistRecord) error {
	select {
	case q.ch <- rec:
		observability.UpdatePersistQueueDepth(len(q.ch))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Depth returns the number of queued records.
func (q *PersistQueue) Depth() int {
	return len(q.ch)
}

// Close stops accepting records, drains everything already queued, and
// waits for the worker to finish. Safe to call more than once.
func (q *PersistQueue) Close() {
	q.closeOnce.Do(func() {
		close(q.ch)
	})
	q.wg.Wait()
}

// worker drains records one at a time. Persist failures are logged and
// surfaced as error events; they never stop the worker.
func (q *PersistQueue) worker() {
	defer q.wg.Done()

	for rec := range q.ch {
		observability.UpdatePersistQueueDepth(len(q.ch))
		q.persist(rec)
	}
}

func (q *PersistQueue) persist(rec persistRecord) {
	// Shutdown drains the queue after the monitor context is cancelled,
	// so the worker uses its own deadline per record.
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()

	var (
		kind string
		pool string
		err  error
	)

	switch {
	case rec.swap != nil:
		kind, pool = "swap", rec.swap.PoolAddress
		err = q.persister.PersistSwap(ctx, rec.swap)
	case rec.liquidity != nil:
		kind, pool = "liquidity", rec.liquidity.PoolAddress
		err = q.persister.PersistLiquidity(ctx, rec.liquidity)
	case rec.state != nil:
		kind, pool = "pool_state", rec.state.PoolAddress
		err = q.persister.PersistPoolState(ctx, rec.state)
	case rec.snapshot != nil:
		kind, pool = "snapshot", rec.snapshot.PoolAddress
		err = q.persister.PersistSnapshot(ctx, rec.snapshot)
	default:
		return
	}

	observability.RecordPersist(kind, err)
	if err != nil {
		q.logger.Printf("[persist] %s for pool %s failed: %v", kind, pool, err)
		if q.bus != nil {
			q.bus.PublishError(ErrorEvent{PoolAddress: pool, Category: "persist", Err: err})
		}
	}
}
