package delayqueue

import (
	"container/list"
	"context"
	"time"

	"github.com/IvanBrykalov/qsync/lock"
)

// waiter is one blocked call on a cond. The pointer doubles as the identity
// of the leader.
type waiter struct {
	ch   chan struct{}
	elem *list.Element // nil once signalled or withdrawn
}

func newWaiter() *waiter {
	return &waiter{ch: make(chan struct{}, 1)}
}

// cond is a FIFO condition variable bound to the queue lock. All methods
// are called with the lock held.
type cond struct {
	waiters list.List
}

// wait releases mu, blocks until signalled, until timeout elapses (0 waits
// without a timeout) or until ctx is done, then reacquires mu.
// Only the ctx case returns an error.
func (c *cond) wait(ctx context.Context, mu *lock.Mutex, w *waiter, timeout time.Duration) error {
	w.elem = c.waiters.PushBack(w)
	mu.Unlock()

	var expired <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expired = t.C
	}

	var err error
	select {
	case <-w.ch:
	case <-expired:
	case <-ctx.Done():
		err = ctx.Err()
	}

	mu.Lock()
	if w.elem != nil {
		c.waiters.Remove(w.elem)
		w.elem = nil
	} else if err != nil {
		// signalled, but leaving anyway: pass the signal on
		c.signal()
	}
	return err
}

// signal wakes the longest-waiting waiter, if any.
func (c *cond) signal() {
	front := c.waiters.Front()
	if front == nil {
		return
	}
	w := c.waiters.Remove(front).(*waiter)
	w.elem = nil
	w.ch <- struct{}{}
}

// len returns the number of blocked waiters.
func (c *cond) len() int { return c.waiters.Len() }
