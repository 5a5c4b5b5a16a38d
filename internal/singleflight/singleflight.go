// Package singleflight coalesces concurrent loads of the same key.
package singleflight

import (
	"context"
	"errors"
	"sync"

	"github.com/IvanBrykalov/qsync/latch"
)

// ErrLeaderPanicked is returned to followers whose leader's fn panicked.
var ErrLeaderPanicked = errors.New("singleflight: leader panicked")

// Group coalesces concurrent function calls for the same key K so that
// the supplied fn is executed at most once at a time. Other concurrent
// callers wait for the shared result.
//
// Concurrency notes:
//   - The first caller for a given key becomes the leader and runs fn.
//   - Followers await a one-count latch. The leader publishes (val, err)
//     before counting it down, so followers observe the final values.
//   - Cancelling ctx in a follower unblocks only that follower; it does
//     NOT cancel the leader's fn.
type Group[K comparable, V any] struct {
	mu sync.Mutex
	m  map[K]*call[V]
}

type call[V any] struct {
	done *latch.CountDownLatch // opens once val/err are published
	val  V
	err  error
}

// Do runs fn once for the given key. Concurrent calls with the same key
// wait for the shared result. If ctx ends in a follower, that follower
// returns an error matching ctx.Err() while the leader continues.
func (g *Group[K, V]) Do(ctx context.Context, key K, fn func() (V, error)) (V, error) {
	g.mu.Lock()
	if g.m == nil {
		g.m = make(map[K]*call[V])
	}
	if c, ok := g.m[key]; ok {
		g.mu.Unlock()
		if err := c.done.Await(ctx); err != nil {
			var zero V
			return zero, err
		}
		return c.val, c.err
	}

	done, _ := latch.New(1)
	c := &call[V]{done: done, err: ErrLeaderPanicked}
	g.m[key] = c
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		delete(g.m, key)
		g.mu.Unlock()
		c.done.CountDown()
	}()

	v, err := fn()
	c.val, c.err = v, err
	return v, err
}

// InFlight returns the number of keys with a running leader.
func (g *Group[K, V]) InFlight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.m)
}
