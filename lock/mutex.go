// Package lock provides a non-reentrant mutual exclusion lock built on the
// exclusive mode of aqs.Synchronizer. Unlike sync.Mutex it supports
// context-aware and timed acquisition.
package lock

import (
	"context"
	"time"

	"github.com/IvanBrykalov/qsync/aqs"
)

const (
	unlocked int64 = 0
	locked   int64 = 1
)

// syncer binds the lock's hooks to its synchronizer.
type syncer struct {
	aqs.NoShared
	*aqs.Synchronizer
}

func (s *syncer) TryAcquire(int64) bool {
	return s.CompareAndSetState(unlocked, locked)
}

// TryRelease reports false when the lock was not held.
func (s *syncer) TryRelease(int64) bool {
	return s.CompareAndSetState(locked, unlocked)
}

// Mutex is a non-reentrant lock. The zero value is not usable; call New.
// Goroutines blocked in Lock are served in FIFO order, although a goroutine
// arriving while the lock is free may barge ahead of queued waiters.
type Mutex struct {
	s *syncer
}

// New returns an unlocked Mutex.
func New() *Mutex {
	s := &syncer{}
	s.Synchronizer = aqs.New(s)
	return &Mutex{s: s}
}

// Lock blocks until the lock is acquired.
func (m *Mutex) Lock() { m.s.Acquire(1) }

// LockContext blocks until the lock is acquired or ctx is done.
// On error the lock is not held; the error matches aqs.ErrInterrupted.
func (m *Mutex) LockContext(ctx context.Context) error {
	return m.s.AcquireInterruptibly(ctx, 1)
}

// TryLock acquires the lock only if it is free right now.
func (m *Mutex) TryLock() bool { return m.s.TryAcquire(1) }

// TryLockTimeout waits at most d for the lock. It returns (false, nil) on
// timeout and an aqs.ErrInterrupted error if ctx ends first.
func (m *Mutex) TryLockTimeout(ctx context.Context, d time.Duration) (bool, error) {
	return m.s.TryAcquireNanos(ctx, 1, int64(d))
}

// Unlock releases the lock. Unlocking an unlocked Mutex is a no-op.
func (m *Mutex) Unlock() { m.s.Release(1) }

// Locked reports whether the lock is currently held.
func (m *Mutex) Locked() bool { return m.s.State() == locked }

// Waiters estimates the number of goroutines blocked on the lock.
func (m *Mutex) Waiters() int { return m.s.QueueLength() }
