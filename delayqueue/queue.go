// Package delayqueue provides DelayQueue, an unbounded blocking priority
// queue whose elements can be taken only after their delay has elapsed.
//
// Elements are DelayedItems ordered by trigger time, ties broken by creation
// order. Take uses the leader-follower pattern: at most one blocked caller
// (the leader) sleeps until the head's trigger time, everyone else waits
// until signalled. Offering a new head, or the leader leaving, hands the
// role to the next waiter.
//
// The heap is guarded by a lock.Mutex; heap operations are O(log n),
// Remove is O(n).
package delayqueue

import (
	"container/heap"
	"context"
	"time"

	"github.com/IvanBrykalov/qsync/lock"
)

// DelayQueue is safe for concurrent use. Create one with New.
type DelayQueue[T comparable] struct {
	mu     *lock.Mutex
	h      itemHeap[T]
	leader *waiter // goroutine timed-waiting for the head, if any
	avail  cond    // signalled when a new head arrives or leadership frees up
}

// New returns an empty queue.
func New[T comparable]() *DelayQueue[T] {
	return &DelayQueue[T]{mu: lock.New()}
}

// Offer inserts it. It never blocks. If it becomes the head, the current
// leader is dismissed and one waiter is woken to re-evaluate.
func (q *DelayQueue[T]) Offer(it DelayedItem[T]) {
	q.mu.Lock()
	defer q.mu.Unlock()

	heap.Push(&q.h, it)
	if head := q.h[0]; head.seq == it.seq && head.trigger.Equal(it.trigger) {
		q.leader = nil
		q.avail.signal()
	}
}

// Put is Offer; the queue is unbounded so it never blocks.
func (q *DelayQueue[T]) Put(it DelayedItem[T]) { q.Offer(it) }

// Take removes and returns the head once its delay has elapsed, blocking as
// long as needed. When ctx ends first the returned error matches ctx.Err()
// under errors.Is.
func (q *DelayQueue[T]) Take(ctx context.Context) (T, error) {
	var zero T
	if err := q.mu.LockContext(ctx); err != nil {
		return zero, err
	}
	defer q.unlockAndHandOff()

	for {
		if len(q.h) == 0 {
			if err := q.avail.wait(ctx, q.mu, newWaiter(), 0); err != nil {
				return zero, err
			}
			continue
		}
		delay := q.h[0].Delay()
		if delay <= 0 {
			return heap.Pop(&q.h).(DelayedItem[T]).item, nil
		}
		if q.leader != nil {
			if err := q.avail.wait(ctx, q.mu, newWaiter(), 0); err != nil {
				return zero, err
			}
			continue
		}
		w := newWaiter()
		q.leader = w
		err := q.avail.wait(ctx, q.mu, w, delay)
		if q.leader == w {
			q.leader = nil
		}
		if err != nil {
			return zero, err
		}
	}
}

// TakeTimeout is Take bounded by d. It reports false when no element
// expired within d.
func (q *DelayQueue[T]) TakeTimeout(ctx context.Context, d time.Duration) (T, bool, error) {
	var zero T
	deadline := time.Now().Add(d)
	if err := q.mu.LockContext(ctx); err != nil {
		return zero, false, err
	}
	defer q.unlockAndHandOff()

	for {
		remaining := time.Until(deadline)
		if len(q.h) == 0 {
			if remaining <= 0 {
				return zero, false, nil
			}
			if err := q.avail.wait(ctx, q.mu, newWaiter(), remaining); err != nil {
				return zero, false, err
			}
			continue
		}
		delay := q.h[0].Delay()
		if delay <= 0 {
			return heap.Pop(&q.h).(DelayedItem[T]).item, true, nil
		}
		if remaining <= 0 {
			return zero, false, nil
		}
		if remaining < delay || q.leader != nil {
			if err := q.avail.wait(ctx, q.mu, newWaiter(), remaining); err != nil {
				return zero, false, err
			}
			continue
		}
		w := newWaiter()
		q.leader = w
		err := q.avail.wait(ctx, q.mu, w, delay)
		if q.leader == w {
			q.leader = nil
		}
		if err != nil {
			return zero, false, err
		}
	}
}

// unlockAndHandOff wakes a successor leader when items remain and nobody
// holds the role, then releases the lock.
func (q *DelayQueue[T]) unlockAndHandOff() {
	if q.leader == nil && len(q.h) > 0 {
		q.avail.signal()
	}
	q.mu.Unlock()
}

// Poll removes and returns the head only if it has already expired.
func (q *DelayQueue[T]) Poll() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.h) == 0 || q.h[0].Delay() > 0 {
		var zero T
		return zero, false
	}
	return heap.Pop(&q.h).(DelayedItem[T]).item, true
}

// Peek returns the head without removing it, expired or not.
func (q *DelayQueue[T]) Peek() (DelayedItem[T], bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.h) == 0 {
		return DelayedItem[T]{}, false
	}
	return q.h[0], true
}

// Remove deletes one queued element whose value equals v, the earliest
// scheduled one if several match. Reports whether anything was removed.
func (q *DelayQueue[T]) Remove(v T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	idx := -1
	for i := range q.h {
		if q.h[i].item == v && (idx < 0 || q.h[i].Less(q.h[idx])) {
			idx = i
		}
	}
	if idx < 0 {
		return false
	}
	heap.Remove(&q.h, idx)
	return true
}

// DrainExpired removes every expired element and returns them in order.
func (q *DelayQueue[T]) DrainExpired() []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	var out []T
	for len(q.h) > 0 && q.h[0].Delay() <= 0 {
		out = append(out, heap.Pop(&q.h).(DelayedItem[T]).item)
	}
	return out
}

// Len returns the number of queued elements, expired or not.
func (q *DelayQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.h)
}

// Waiting returns the number of callers blocked in Take or TakeTimeout,
// not counting one that is between wake-up and re-locking.
func (q *DelayQueue[T]) Waiting() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.avail.len()
}
