package aqs

import (
	"fmt"
	"sync/atomic"

	"github.com/IvanBrykalov/qsync/internal/util"
)

// Hooks are the primitive-specific acquire/release decisions.
// They must not block; they run on the caller's goroutine, possibly many
// times per acquire. A panicking hook propagates to the caller after the
// caller's queue node (if any) has been cancelled.
type Hooks interface {
	// TryAcquire attempts an exclusive acquire and reports success.
	TryAcquire(arg int64) bool
	// TryRelease performs an exclusive release and reports whether waiters
	// may now be able to acquire.
	TryRelease(arg int64) bool
	// TryAcquireShared attempts a shared acquire: negative on failure, zero
	// on success with no room left for further shared acquirers, positive on
	// success where subsequent shared acquirers may also succeed.
	TryAcquireShared(arg int64) int
	// TryReleaseShared performs a shared release and reports whether waiters
	// may now be able to acquire.
	TryReleaseShared(arg int64) bool
}

// NoExclusive can be embedded by shared-only primitives.
type NoExclusive struct{}

// TryAcquire panics with ErrUnsupported.
func (NoExclusive) TryAcquire(int64) bool { panic(ErrUnsupported) }

// TryRelease panics with ErrUnsupported.
func (NoExclusive) TryRelease(int64) bool { panic(ErrUnsupported) }

// NoShared can be embedded by exclusive-only primitives.
type NoShared struct{}

// TryAcquireShared panics with ErrUnsupported.
func (NoShared) TryAcquireShared(int64) int { panic(ErrUnsupported) }

// TryReleaseShared panics with ErrUnsupported.
func (NoShared) TryReleaseShared(int64) bool { panic(ErrUnsupported) }

// Synchronizer is the acquire/release engine. Create one with New.
type Synchronizer struct {
	// Wait queue: head is a dummy or the last successful acquirer, tail the
	// most recently enqueued waiter. Both are nil until first contention.
	head atomic.Pointer[node]
	tail atomic.Pointer[node]

	_     util.CacheLinePad
	state util.PaddedAtomicInt64

	hooks Hooks
}

// New returns a Synchronizer with state 0 driven by h.
func New(h Hooks) *Synchronizer {
	if h == nil {
		panic("aqs: nil Hooks")
	}
	return &Synchronizer{hooks: h}
}

// State returns the current state.
func (s *Synchronizer) State() int64 { return s.state.Load() }

// SetState unconditionally stores the state.
func (s *Synchronizer) SetState(v int64) { s.state.Store(v) }

// CompareAndSetState atomically sets the state to update if it equals expect.
func (s *Synchronizer) CompareAndSetState(expect, update int64) bool {
	return s.state.CompareAndSwap(expect, update)
}

// Release performs an exclusive release. When TryRelease reports true the
// head's successor is woken. Returns the TryRelease result.
func (s *Synchronizer) Release(arg int64) bool {
	if !s.hooks.TryRelease(arg) {
		return false
	}
	if h := s.head.Load(); h != nil && h.status.Load() != statusInitial {
		s.unparkSuccessor(h)
	}
	return true
}

// ReleaseShared performs a shared release. When TryReleaseShared reports
// true, the head's successor is woken and the wake propagates through the
// run of shared waiters behind it.
func (s *Synchronizer) ReleaseShared(arg int64) bool {
	if !s.hooks.TryReleaseShared(arg) {
		return false
	}
	s.doReleaseShared()
	return true
}

// HasQueuedWaiters reports whether any goroutine may be waiting to acquire.
// Cancellations can make a true result stale.
func (s *Synchronizer) HasQueuedWaiters() bool {
	return s.head.Load() != s.tail.Load()
}

// HasContended reports whether any goroutine has ever had to queue.
func (s *Synchronizer) HasContended() bool {
	return s.head.Load() != nil
}

// QueueLength estimates the number of parked or parking waiters.
func (s *Synchronizer) QueueLength() int {
	n := 0
	for p := s.tail.Load(); p != nil; p = p.prev.Load() {
		if p.waiter.Load() != nil {
			n++
		}
	}
	return n
}

func (s *Synchronizer) String() string {
	q := "empty"
	if s.HasQueuedWaiters() {
		q = "nonempty"
	}
	return fmt.Sprintf("aqs.Synchronizer{state=%d, queue=%s}", s.State(), q)
}
