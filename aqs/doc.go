// Package aqs provides a queued synchronizer: a reusable engine for blocking
// primitives whose acquire/release decisions are expressed over a single
// atomically updated int64 state.
//
// Design
//
//   - State: one padded atomic int64. Primitives read and CAS it from their
//     Hooks; the synchronizer itself never interprets it.
//
//   - Modes: exclusive (one holder, mutex-like) and shared (many holders,
//     latch/semaphore-like). A primitive implements the hooks of the modes it
//     supports and embeds NoExclusive or NoShared for the rest.
//
//   - Queue: a CLH-style FIFO of waiter nodes linked through atomic pointers.
//     Enqueue is a CAS on the tail; the head is a dummy (or the most recent
//     successful acquirer). Nodes are never reused, so an unlinked node is
//     simply garbage collected.
//
//   - Parking: each node owns a one-slot permit channel. Unpark deposits the
//     permit; park consumes it. A permit delivered before the park is not lost.
//
//   - Shared propagation: a shared acquirer that becomes head wakes its shared
//     successor, so one ReleaseShared wakes the whole run of shared waiters.
//
//   - Interruption: Go has no thread interrupts. The ...Interruptibly and
//     ...Nanos variants take a context.Context, checked before the fast path
//     and after every wake. A cancelled wait unlinks its node and returns an
//     error matching both ErrInterrupted and ctx.Err() under errors.Is.
//
// Building a primitive
//
//	type gate struct {
//	    aqs.NoExclusive
//	    s *aqs.Synchronizer
//	}
//
//	func (g *gate) TryAcquireShared(int64) int {
//	    if g.s.State() != 0 {
//	        return 1
//	    }
//	    return -1
//	}
//
//	func (g *gate) TryReleaseShared(int64) bool {
//	    g.s.SetState(1)
//	    return true
//	}
//
//	g := &gate{}
//	g.s = aqs.New(g)
//
// All Synchronizer methods are safe for concurrent use.
package aqs
