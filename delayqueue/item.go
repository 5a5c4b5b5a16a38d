package delayqueue

import (
	"sync/atomic"
	"time"
)

// sequencer breaks ties between items with equal trigger times in creation
// order. Shared by all queues.
var sequencer atomic.Uint64

// DelayedItem is a value scheduled for a monotonic trigger time.
// It is immutable; copies compare and order identically.
type DelayedItem[T any] struct {
	item    T
	trigger time.Time
	seq     uint64
}

// NewDelayed schedules item to become available after delay.
// A non-positive delay makes it available immediately.
func NewDelayed[T any](item T, delay time.Duration) DelayedItem[T] {
	return DelayedItem[T]{
		item:    item,
		trigger: time.Now().Add(delay),
		seq:     sequencer.Add(1),
	}
}

// Value returns the scheduled value.
func (d DelayedItem[T]) Value() T { return d.item }

// Trigger returns the instant the item becomes available.
func (d DelayedItem[T]) Trigger() time.Time { return d.trigger }

// Seq returns the tie-break sequence number.
func (d DelayedItem[T]) Seq() uint64 { return d.seq }

// Delay returns the remaining time until the trigger; <= 0 means expired.
func (d DelayedItem[T]) Delay() time.Duration { return time.Until(d.trigger) }

// Less orders by trigger time, then by sequence number.
func (d DelayedItem[T]) Less(o DelayedItem[T]) bool {
	if !d.trigger.Equal(o.trigger) {
		return d.trigger.Before(o.trigger)
	}
	return d.seq < o.seq
}
