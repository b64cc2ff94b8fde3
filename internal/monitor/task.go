package monitor

import (
	"context"
	"sync/atomic"

	"solana-pool-monitor/internal/domain"
)

// TaskState is the lifecycle state of one pool monitoring task.
type TaskState int32

const (
	// StateDiscovered means the task is scheduled but has not polled yet.
	StateDiscovered TaskState = iota
	// StateActive means the task is polling at the normal cadence.
	StateActive
	// StateDegraded means the last poll failed; the task backs off and
	// retries. Degraded pools stay listed, they are never dropped
	// silently.
	StateDegraded
	// StateStopped is terminal, reached only through StopPool or Stop.
	StateStopped
)

func (s TaskState) String() string {
	switch s {
	case StateDiscovered:
		return "discovered"
	case StateActive:
		return "active"
	case StateDegraded:
		return "degraded"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// poolTask is the handle for one monitored pool. Only the task's own
// goroutine mutates the pool's tracked state; the handle itself carries
// just lifecycle bits.
type poolTask struct {
	pool     string
	protocol domain.Protocol

	state  atomic.Int32
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func newPoolTask(parent context.Context, pool string, protocol domain.Protocol) *poolTask {
	ctx, cancel := context.WithCancel(parent)
	t := &poolTask{
		pool:     pool,
		protocol: protocol,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	t.state.Store(int32(StateDiscovered))
	return t
}

func (t *poolTask) State() TaskState {
	return TaskState(t.state.Load())
}

func (t *poolTask) setState(s TaskState) {
	t.state.Store(int32(s))
}

// stop cancels the task and waits for its goroutine to exit.
func (t *poolTask) stop() {
	t.cancel()
	<-t.done
}
