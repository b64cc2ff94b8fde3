package monitor

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"solana-pool-monitor/internal/domain"
)

// fakePersister counts records and can be made to block or fail, which
// is enough to exercise the queue's draining and backpressure paths.
type fakePersister struct {
	mu     sync.Mutex
	swaps  int
	liqs   int
	states int
	snaps  int

	gate chan struct{} // when set, every persist call blocks until closed
	err  error
}

func (p *fakePersister) wait() {
	if p.gate != nil {
		<-p.gate
	}
}

func (p *fakePersister) PersistSwap(_ context.Context, _ *domain.SwapEvent) error {
	p.wait()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.swaps++
	return p.err
}

func (p *fakePersister) PersistLiquidity(_ context.Context, _ *domain.LiquidityEvent) error {
	p.wait()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.liqs++
	return p.err
}

func (p *fakePersister) PersistPoolState(_ context.Context, _ *domain.PoolState) error {
	p.wait()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.states++
	return p.err
}

func (p *fakePersister) PersistSnapshot(_ context.Context, _ *domain.MarketSnapshot) error {
	p.wait()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snaps++
	return p.err
}

func (p *fakePersister) counts() (swaps, liqs, states, snaps int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.swaps, p.liqs, p.states, p.snaps
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestPersistQueue_DrainsOnClose(t *testing.T) {
	p := &fakePersister{}
	q := NewPersistQueue(p, 16, NewBus(quietLogger()), quietLogger())

	ctx := context.Background()
	if err := q.EnqueueSwap(ctx, &domain.SwapEvent{Signature: "sig", PoolAddress: "pool"}); err != nil {
		t.Fatalf("EnqueueSwap: %v", err)
	}
	if err := q.EnqueueLiquidity(ctx, &domain.LiquidityEvent{Signature: "sig", PoolAddress: "pool"}); err != nil {
		t.Fatalf("EnqueueLiquidity: %v", err)
	}
	if err := q.EnqueuePoolState(ctx, &domain.PoolState{PoolAddress: "pool"}); err != nil {
		t.Fatalf("EnqueuePoolState: %v", err)
	}
	if err := q.EnqueueSnapshot(ctx, &domain.MarketSnapshot{PoolAddress: "pool"}); err != nil {
		t.Fatalf("EnqueueSnapshot: %v", err)
	}

	q.Close()

	swaps, liqs, states, snaps := p.counts()
	if swaps != 1 || liqs != 1 || states != 1 || snaps != 1 {
		t.Errorf("expected one record of each kind, got swaps=%d liqs=%d states=%d snaps=%d",
			swaps, liqs, states, snaps)
	}
	if q.Depth() != 0 {
		t.Errorf("expected empty queue after close, depth %d", q.Depth())
	}
}

func TestPersistQueue_BlockingEnqueueUnblocksOnCancel(t *testing.T) {
	gate := make(chan struct{})
	p := &fakePersister{gate: gate}
	q := NewPersistQueue(p, 1, NewBus(quietLogger()), quietLogger())

	// The first record ends up held by the gated worker, the second
	// fills the channel, so the third has nowhere to go.
	if err := q.EnqueueSwap(context.Background(), &domain.SwapEvent{Signature: "a"}); err != nil {
		t.Fatalf("EnqueueSwap: %v", err)
	}
	if err := q.EnqueueSwap(context.Background(), &domain.SwapEvent{Signature: "b"}); err != nil {
		t.Fatalf("EnqueueSwap: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() {
		errCh <- q.EnqueueSwap(ctx, &domain.SwapEvent{Signature: "c"})
	}()

	select {
	case err := <-errCh:
		t.Fatalf("enqueue returned early with error: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("enqueue did not unblock after cancel")
	}

	close(gate)
	q.Close()

	swaps, _, _, _ := p.counts()
	if swaps != 2 {
		t.Errorf("expected 2 persisted swaps after drain, got %d", swaps)
	}
}

func TestPersistQueue_FailuresSurfaceAsErrorEvents(t *testing.T) {
	p := &fakePersister{err: errors.New("backend down")}
	bus := NewBus(quietLogger())

	var (
		mu     sync.Mutex
		events []ErrorEvent
	)
	bus.OnError(func(ev ErrorEvent) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, ev)
	})

	q := NewPersistQueue(p, 4, bus, quietLogger())
	if err := q.EnqueueSwap(context.Background(), &domain.SwapEvent{Signature: "sig", PoolAddress: "pool"}); err != nil {
		t.Fatalf("EnqueueSwap: %v", err)
	}
	q.Close()

	mu.Lock()
	defer mu.Unlock()
	if len(events) != 1 {
		t.Fatalf("expected 1 error event, got %d", len(events))
	}
	if events[0].Category != "persist" || events[0].PoolAddress != "pool" {
		t.Errorf("unexpected error event: %+v", events[0])
	}
}

func TestPersistQueue_CloseIsIdempotent(t *testing.T) {
	q := NewPersistQueue(&fakePersister{}, 4, NewBus(quietLogger()), quietLogger())
	q.Close()
	q.Close()
}
