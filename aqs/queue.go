package aqs

// enq inserts n at the tail, creating the dummy head on first use.
// Returns n's predecessor.
func (s *Synchronizer) enq(n *node) *node {
	for {
		t := s.tail.Load()
		if t == nil {
			h := &node{}
			if s.head.CompareAndSwap(nil, h) {
				s.tail.Store(h)
			}
			continue
		}
		n.prev.Store(t)
		if s.tail.CompareAndSwap(t, n) {
			t.next.Store(n)
			return t
		}
	}
}

// addWaiter enqueues a node for the calling goroutine and returns it with
// the goroutine's park handle.
func (s *Synchronizer) addWaiter(shared bool) (*node, *parker) {
	pk := newParker()
	n := &node{shared: shared}
	n.waiter.Store(pk)

	// fast path; enq handles initialization and CAS retries
	if pred := s.tail.Load(); pred != nil {
		n.prev.Store(pred)
		if s.tail.CompareAndSwap(pred, n) {
			pred.next.Store(n)
			return n, pk
		}
	}
	s.enq(n)
	return n, pk
}

// setHead makes n the head. Only the goroutine that owns n and has just
// acquired calls it.
func (s *Synchronizer) setHead(n *node) {
	s.head.Store(n)
	n.waiter.Store(nil)
	n.prev.Store(nil)
}

// unparkSuccessor wakes n's first non-cancelled successor, if any.
func (s *Synchronizer) unparkSuccessor(n *node) {
	if ws := n.status.Load(); ws < 0 {
		n.status.CompareAndSwap(ws, statusInitial)
	}

	// next may be unset or point at a cancelled node; walk back from the tail
	// to find the real successor.
	succ := n.next.Load()
	if succ == nil || succ.status.Load() > 0 {
		succ = nil
		for t := s.tail.Load(); t != nil && t != n; t = t.prev.Load() {
			if t.status.Load() <= 0 {
				succ = t
			}
		}
	}
	if succ != nil {
		if pk := succ.waiter.Load(); pk != nil {
			pk.unpark()
		}
	}
}

// doReleaseShared signals the head's successor and, when no signal is
// pending, marks the head PROPAGATE so the next shared acquirer keeps
// propagating. Loops while the head changes underneath it.
func (s *Synchronizer) doReleaseShared() {
	for {
		h := s.head.Load()
		if h != nil && h != s.tail.Load() {
			ws := h.status.Load()
			if ws == statusSignal {
				if !h.status.CompareAndSwap(statusSignal, statusInitial) {
					continue
				}
				s.unparkSuccessor(h)
			} else if ws == statusInitial && !h.status.CompareAndSwap(statusInitial, statusPropagate) {
				continue
			}
		}
		if h == s.head.Load() {
			return
		}
	}
}

// setHeadAndPropagate installs n as head after a successful shared acquire
// and continues the release cascade when the acquire result or either head's
// status says more shared acquirers may succeed.
func (s *Synchronizer) setHeadAndPropagate(n *node, propagate int) {
	old := s.head.Load()
	s.setHead(n)
	if propagate > 0 || old == nil || old.status.Load() < 0 || s.headWantsSignal() {
		if succ := n.next.Load(); succ == nil || succ.shared {
			s.doReleaseShared()
		}
	}
}

func (s *Synchronizer) headWantsSignal() bool {
	h := s.head.Load()
	return h == nil || h.status.Load() < 0
}

// shouldParkAfterFailedAcquire makes sure pred will signal n, skipping
// cancelled predecessors on the way. Returns true when n may park.
func (s *Synchronizer) shouldParkAfterFailedAcquire(pred, n *node) bool {
	ws := pred.status.Load()
	if ws == statusSignal {
		return true
	}
	if ws > 0 {
		for {
			pred = pred.prev.Load()
			n.prev.Store(pred)
			if pred.status.Load() <= 0 {
				break
			}
		}
		pred.next.Store(n)
	} else {
		// INITIAL or PROPAGATE: ask for a signal, then retry once more before
		// parking.
		pred.status.CompareAndSwap(ws, statusSignal)
	}
	return false
}

// cancelAcquire unlinks n after its owner gave up (timeout, ctx, or panic).
// Either pred is repaired to point past n, or n's successor is woken so it
// can repair the links itself.
func (s *Synchronizer) cancelAcquire(n *node) {
	if n == nil {
		return
	}
	n.waiter.Store(nil)

	pred := n.prev.Load()
	for pred.status.Load() > 0 {
		pred = pred.prev.Load()
		n.prev.Store(pred)
	}
	predNext := pred.next.Load()

	// After this store other goroutines skip n.
	n.status.Store(statusCancelled)

	if n == s.tail.Load() && s.tail.CompareAndSwap(n, pred) {
		pred.next.CompareAndSwap(predNext, nil)
		return
	}

	ws := pred.status.Load()
	if pred != s.head.Load() &&
		(ws == statusSignal || (ws <= 0 && pred.status.CompareAndSwap(ws, statusSignal))) &&
		pred.waiter.Load() != nil {
		if next := n.next.Load(); next != nil && next.status.Load() <= 0 {
			pred.next.CompareAndSwap(predNext, next)
		}
	} else {
		s.unparkSuccessor(n)
	}
	n.next.Store(n)
}
