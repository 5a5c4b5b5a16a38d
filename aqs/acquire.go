package aqs

import (
	"context"
	"runtime"
	"time"
)

// ---- exclusive mode ----

// Acquire acquires in exclusive mode, blocking until TryAcquire succeeds.
// It cannot be cancelled; callers must not wait on a state that can never
// be satisfied.
func (s *Synchronizer) Acquire(arg int64) {
	if s.hooks.TryAcquire(arg) {
		return
	}
	n, pk := s.addWaiter(false)
	s.acquireQueued(n, pk, arg)
}

// acquireQueued runs the uninterruptible exclusive loop for an enqueued node.
func (s *Synchronizer) acquireQueued(n *node, pk *parker, arg int64) {
	failed := true
	defer func() {
		if failed {
			s.cancelAcquire(n)
		}
	}()
	for {
		p := n.predecessor()
		if p == s.head.Load() && s.hooks.TryAcquire(arg) {
			s.setHead(n)
			p.next.Store(nil)
			failed = false
			return
		}
		if s.shouldParkAfterFailedAcquire(p, n) {
			pk.park()
		}
	}
}

// AcquireInterruptibly is Acquire that gives up when ctx is done.
// The returned error wraps ErrInterrupted and ctx.Err().
func (s *Synchronizer) AcquireInterruptibly(ctx context.Context, arg int64) error {
	if err := interrupted(ctx); err != nil {
		return err
	}
	if s.hooks.TryAcquire(arg) {
		return nil
	}
	return s.doAcquireInterruptibly(ctx, arg)
}

func (s *Synchronizer) doAcquireInterruptibly(ctx context.Context, arg int64) error {
	n, pk := s.addWaiter(false)
	failed := true
	defer func() {
		if failed {
			s.cancelAcquire(n)
		}
	}()
	for {
		p := n.predecessor()
		if p == s.head.Load() && s.hooks.TryAcquire(arg) {
			s.setHead(n)
			p.next.Store(nil)
			failed = false
			return nil
		}
		if s.shouldParkAfterFailedAcquire(p, n) {
			pk.parkContext(ctx)
		}
		if err := interrupted(ctx); err != nil {
			return err
		}
	}
}

// TryAcquireNanos attempts an exclusive acquire for at most nanos
// nanoseconds. It returns (false, nil) on timeout and (false, err) when ctx
// ends first.
func (s *Synchronizer) TryAcquireNanos(ctx context.Context, arg int64, nanos int64) (bool, error) {
	if err := interrupted(ctx); err != nil {
		return false, err
	}
	if s.hooks.TryAcquire(arg) {
		return true, nil
	}
	return s.doAcquireNanos(ctx, arg, nanos)
}

func (s *Synchronizer) doAcquireNanos(ctx context.Context, arg int64, nanos int64) (bool, error) {
	if nanos <= 0 {
		return false, nil
	}
	deadline := time.Now().Add(time.Duration(nanos))
	n, pk := s.addWaiter(false)
	failed := true
	defer func() {
		if failed {
			s.cancelAcquire(n)
		}
	}()
	for {
		p := n.predecessor()
		if p == s.head.Load() && s.hooks.TryAcquire(arg) {
			s.setHead(n)
			p.next.Store(nil)
			failed = false
			return true, nil
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false, nil
		}
		if s.shouldParkAfterFailedAcquire(p, n) {
			waitRemaining(ctx, pk, remaining)
		}
		if err := interrupted(ctx); err != nil {
			return false, err
		}
	}
}

// waitRemaining parks for the remaining budget, or spins through the last
// sliver where timer granularity would overshoot.
func waitRemaining(ctx context.Context, pk *parker, remaining time.Duration) {
	if remaining > spinForTimeoutThreshold {
		pk.parkNanos(ctx, remaining)
		return
	}
	runtime.Gosched()
}

// ---- shared mode ----

// AcquireShared acquires in shared mode, blocking until TryAcquireShared
// returns a non-negative value. It cannot be cancelled.
func (s *Synchronizer) AcquireShared(arg int64) {
	if s.hooks.TryAcquireShared(arg) >= 0 {
		return
	}
	n, pk := s.addWaiter(true)
	failed := true
	defer func() {
		if failed {
			s.cancelAcquire(n)
		}
	}()
	for {
		p := n.predecessor()
		if p == s.head.Load() {
			if r := s.hooks.TryAcquireShared(arg); r >= 0 {
				s.setHeadAndPropagate(n, r)
				p.next.Store(nil)
				failed = false
				return
			}
		}
		if s.shouldParkAfterFailedAcquire(p, n) {
			pk.park()
		}
	}
}

// AcquireSharedInterruptibly is AcquireShared that gives up when ctx is
// done. The returned error wraps ErrInterrupted and ctx.Err().
func (s *Synchronizer) AcquireSharedInterruptibly(ctx context.Context, arg int64) error {
	if err := interrupted(ctx); err != nil {
		return err
	}
	if s.hooks.TryAcquireShared(arg) >= 0 {
		return nil
	}
	return s.doAcquireSharedInterruptibly(ctx, arg)
}

func (s *Synchronizer) doAcquireSharedInterruptibly(ctx context.Context, arg int64) error {
	n, pk := s.addWaiter(true)
	failed := true
	defer func() {
		if failed {
			s.cancelAcquire(n)
		}
	}()
	for {
		p := n.predecessor()
		if p == s.head.Load() {
			if r := s.hooks.TryAcquireShared(arg); r >= 0 {
				s.setHeadAndPropagate(n, r)
				p.next.Store(nil)
				failed = false
				return nil
			}
		}
		if s.shouldParkAfterFailedAcquire(p, n) {
			pk.parkContext(ctx)
		}
		if err := interrupted(ctx); err != nil {
			return err
		}
	}
}

// TryAcquireSharedNanos attempts a shared acquire for at most nanos
// nanoseconds. It returns (false, nil) on timeout and (false, err) when ctx
// ends first.
func (s *Synchronizer) TryAcquireSharedNanos(ctx context.Context, arg int64, nanos int64) (bool, error) {
	if err := interrupted(ctx); err != nil {
		return false, err
	}
	if s.hooks.TryAcquireShared(arg) >= 0 {
		return true, nil
	}
	return s.doAcquireSharedNanos(ctx, arg, nanos)
}

func (s *Synchronizer) doAcquireSharedNanos(ctx context.Context, arg int64, nanos int64) (bool, error) {
	if nanos <= 0 {
		return false, nil
	}
	deadline := time.Now().Add(time.Duration(nanos))
	n, pk := s.addWaiter(true)
	failed := true
	defer func() {
		if failed {
			s.cancelAcquire(n)
		}
	}()
	for {
		p := n.predecessor()
		if p == s.head.Load() {
			if r := s.hooks.TryAcquireShared(arg); r >= 0 {
				s.setHeadAndPropagate(n, r)
				p.next.Store(nil)
				failed = false
				return true, nil
			}
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false, nil
		}
		if s.shouldParkAfterFailedAcquire(p, n) {
			waitRemaining(ctx, pk, remaining)
		}
		if err := interrupted(ctx); err != nil {
			return false, err
		}
	}
}
