package aqs

import (
	"context"
	"sync/atomic"
	"time"
)

// Node wait statuses. Non-negative values other than 0 mean the node no
// longer needs a signal; negative values ask the predecessor for one.
const (
	statusInitial   int32 = 0
	statusCancelled int32 = 1
	statusSignal    int32 = -1
	statusPropagate int32 = -3
)

// spinForTimeoutThreshold is the remaining budget, in nanoseconds, below
// which a timed acquire spins rather than parks.
const spinForTimeoutThreshold = 1000

// node is a wait queue element. One goroutine owns a node; the queue links
// are shared and only mutated atomically.
type node struct {
	prev   atomic.Pointer[node]
	next   atomic.Pointer[node]
	status atomic.Int32

	// waiter is the park handle of the owning goroutine; nil once the node
	// is head or cancelled.
	waiter atomic.Pointer[parker]

	// shared is fixed at creation: true for shared-mode waiters.
	shared bool
}

// predecessor returns prev; every queued node other than head has one.
func (n *node) predecessor() *node {
	p := n.prev.Load()
	if p == nil {
		panic("aqs: queued node without predecessor")
	}
	return p
}

// parker is a one-permit park/unpark handle.
type parker struct {
	permit chan struct{}
}

func newParker() *parker {
	return &parker{permit: make(chan struct{}, 1)}
}

// unpark makes the permit available. It never blocks.
func (p *parker) unpark() {
	select {
	case p.permit <- struct{}{}:
	default:
	}
}

// park blocks until the permit is available and consumes it.
func (p *parker) park() {
	<-p.permit
}

// parkContext is park that also returns when ctx is done.
func (p *parker) parkContext(ctx context.Context) {
	select {
	case <-p.permit:
	case <-ctx.Done():
	}
}

// parkNanos is parkContext bounded by d.
func (p *parker) parkNanos(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-p.permit:
	case <-t.C:
	case <-ctx.Done():
	}
}
