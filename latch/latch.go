// Package latch provides CountDownLatch, a one-shot barrier built on the
// shared mode of aqs.Synchronizer.
package latch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/IvanBrykalov/qsync/aqs"
)

// ErrIllegalArgument is returned by New for a negative count.
var ErrIllegalArgument = errors.New("latch: illegal argument")

// syncer keeps the remaining count in the synchronizer state.
type syncer struct {
	aqs.NoExclusive
	*aqs.Synchronizer
}

// TryAcquireShared succeeds only once the count has reached zero.
func (s *syncer) TryAcquireShared(int64) int {
	if s.State() == 0 {
		return 1
	}
	return -1
}

// TryReleaseShared decrements the count and reports true only on the
// transition to zero. At zero it is a no-op.
func (s *syncer) TryReleaseShared(int64) bool {
	for {
		c := s.State()
		if c == 0 {
			return false
		}
		if s.CompareAndSetState(c, c-1) {
			return c-1 == 0
		}
	}
}

// CountDownLatch lets goroutines wait until a set of operations completes.
// The count is fixed at construction, only decreases, and never goes below
// zero; once it reaches zero every current and future Await returns
// immediately.
type CountDownLatch struct {
	s *syncer
}

// New returns a latch that opens after count calls to CountDown.
// A zero count yields an open latch.
func New(count int) (*CountDownLatch, error) {
	if count < 0 {
		return nil, fmt.Errorf("%w: count %d < 0", ErrIllegalArgument, count)
	}
	s := &syncer{}
	s.Synchronizer = aqs.New(s)
	s.SetState(int64(count))
	return &CountDownLatch{s: s}, nil
}

// Await blocks until the count reaches zero or ctx is done.
// The error matches aqs.ErrInterrupted and ctx.Err().
func (l *CountDownLatch) Await(ctx context.Context) error {
	return l.s.AcquireSharedInterruptibly(ctx, 1)
}

// AwaitTimeout waits at most d for the count to reach zero and reports
// whether it did. A done ctx yields an error instead.
func (l *CountDownLatch) AwaitTimeout(ctx context.Context, d time.Duration) (bool, error) {
	return l.s.TryAcquireSharedNanos(ctx, 1, int64(d))
}

// Wait blocks until the count reaches zero. It cannot be cancelled.
func (l *CountDownLatch) Wait() {
	l.s.AcquireShared(1)
}

// CountDown decrements the count, releasing all waiters when it reaches
// zero. Extra calls are no-ops.
func (l *CountDownLatch) CountDown() {
	l.s.ReleaseShared(1)
}

// Count returns the remaining count.
func (l *CountDownLatch) Count() int64 {
	return l.s.State()
}

func (l *CountDownLatch) String() string {
	return fmt.Sprintf("latch.CountDownLatch{count=%d}", l.Count())
}
