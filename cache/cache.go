package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/IvanBrykalov/qsync/delayqueue"
	"github.com/IvanBrykalov/qsync/internal/singleflight"
	"github.com/IvanBrykalov/qsync/internal/util"
)

var (
	// ErrNoLoader is returned by GetOrLoad when no Loader was configured in Options.
	ErrNoLoader = errors.New("cache: no Loader provided")

	// ErrClosed is returned by GetOrLoad after Close.
	ErrClosed = errors.New("cache: closed")
)

// ttlCache pairs a sharded map with a delay queue of pending expiries.
// The only invariant spanning both is kept by Put: the live (key, value)
// pair has at most one current expiry in the queue.
type ttlCache[K comparable, V comparable] struct {
	shards []*shard[K, V]
	queue  *delayqueue.DelayQueue[entry[K, V]]
	closed atomic.Bool

	opt Options[K, V]
	log zerolog.Logger

	// singleflight group for coalescing concurrent loads in GetOrLoad.
	sf singleflight.Group[K, V]

	_       util.CacheLinePad
	entries util.PaddedAtomicInt64
	expired util.PaddedAtomicUint64
	removed util.PaddedAtomicUint64
	faults  util.PaddedAtomicUint64

	// evictor lifecycle
	stop context.CancelFunc
	done chan struct{}
}

// New constructs a cache and starts its evictor goroutine.
// Call Close to stop it.
func New[K comparable, V comparable](opt Options[K, V]) Cache[K, V] {
	if opt.Metrics == nil {
		opt.Metrics = NoopMetrics{}
	}
	log := zerolog.Nop()
	if opt.Logger != nil {
		log = opt.Logger.With().Str("component", "ttlcache").Logger()
	}

	n := util.ShardCount(opt.Shards)
	hint := 0
	if opt.SizeHint > 0 {
		hint = (opt.SizeHint + n - 1) / n
	}
	shards := make([]*shard[K, V], n)
	for i := range shards {
		shards[i] = newShard[K, V](hint)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &ttlCache[K, V]{
		shards: shards,
		queue:  delayqueue.New[entry[K, V]](),
		opt:    opt,
		log:    log,
		stop:   cancel,
		done:   make(chan struct{}),
	}
	go c.evictLoop(ctx)
	return c
}

// ---- Cache[K,V] implementation ----

// Put inserts or replaces k→v. The replaced value's pending expiry is
// withdrawn before the new one is scheduled, so a short TTL from an earlier
// Put can never evict the refreshed value.
func (c *ttlCache[K, V]) Put(k K, v V, ttl time.Duration) {
	if c.closed.Load() {
		return
	}
	old, loaded := c.getShard(k).swap(k, v)
	if loaded {
		c.queue.Remove(entry[K, V]{key: k, val: old})
	} else {
		c.entries.Add(1)
	}
	if ttl > 0 {
		c.queue.Offer(delayqueue.NewDelayed(entry[K, V]{key: k, val: v}, ttl))
	}
	c.reportSize()
}

// Set inserts or replaces k→v using DefaultTTL.
func (c *ttlCache[K, V]) Set(k K, v V) {
	c.Put(k, v, c.opt.DefaultTTL)
}

// Add inserts k→v only if absent, using DefaultTTL.
func (c *ttlCache[K, V]) Add(k K, v V) bool {
	if c.closed.Load() {
		return false
	}
	if !c.getShard(k).addIfAbsent(k, v) {
		return false
	}
	c.entries.Add(1)
	if ttl := c.opt.DefaultTTL; ttl > 0 {
		c.queue.Offer(delayqueue.NewDelayed(entry[K, V]{key: k, val: v}, ttl))
	}
	c.reportSize()
	return true
}

// Get returns the value for k and a presence flag.
func (c *ttlCache[K, V]) Get(k K) (V, bool) {
	if c.closed.Load() {
		var zero V
		return zero, false
	}
	s := c.getShard(k)
	v, ok := s.load(k)
	if ok {
		s.hits.Add(1)
		c.opt.Metrics.Hit()
	} else {
		s.misses.Add(1)
		c.opt.Metrics.Miss()
	}
	return v, ok
}

// Remove deletes k and withdraws its pending expiry.
func (c *ttlCache[K, V]) Remove(k K) bool {
	if c.closed.Load() {
		return false
	}
	v, ok := c.getShard(k).remove(k)
	if !ok {
		return false
	}
	c.queue.Remove(entry[K, V]{key: k, val: v})
	c.entries.Add(-1)
	c.removed.Add(1)
	c.opt.Metrics.Evict(EvictRemoved)
	c.reportSize()
	c.notify(k, v, EvictRemoved)
	return true
}

// Len returns the total number of resident entries across all shards.
func (c *ttlCache[K, V]) Len() int {
	total := 0
	for _, s := range c.shards {
		total += s.len()
	}
	return total
}

// Stats sums the per-shard and cache-wide counters.
func (c *ttlCache[K, V]) Stats() Stats {
	st := Stats{
		Expired: c.expired.Load(),
		Removed: c.removed.Load(),
		Faults:  c.faults.Load(),
		Entries: c.Len(),
		Pending: c.queue.Len(),
	}
	for _, s := range c.shards {
		st.Hits += s.hits.Load()
		st.Misses += s.misses.Load()
	}
	return st
}

// Close stops the evictor and waits for it. Entries stay in memory until
// the cache is garbage collected.
func (c *ttlCache[K, V]) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.stop()
	<-c.done
	return nil
}

// GetOrLoad returns the value for k; on miss it loads via Options.Loader,
// coalescing concurrent loads for the same key (singleflight).
// If no Loader is configured, returns ErrNoLoader.
func (c *ttlCache[K, V]) GetOrLoad(ctx context.Context, k K) (V, error) {
	var zero V
	if c.closed.Load() {
		return zero, ErrClosed
	}
	// fast path
	if v, ok := c.Get(k); ok {
		return v, nil
	}
	if c.opt.Loader == nil {
		return zero, ErrNoLoader
	}

	// singleflight: exactly one real load for the key
	return c.sf.Do(ctx, k, func() (V, error) {
		// double-check after flight join, without counting another miss
		if v, ok := c.getShard(k).load(k); ok {
			return v, nil
		}
		v, err := c.opt.Loader(ctx, k)
		if err == nil {
			c.Set(k, v)
		}
		return v, err
	})
}

// ---- helpers ----

// getShard picks a shard by hashing the key and masking with len-1.
// len(c.shards) is guaranteed to be a power of two.
func (c *ttlCache[K, V]) getShard(k K) *shard[K, V] {
	return c.shards[util.ShardIndex(util.Hash(k), len(c.shards))]
}

func (c *ttlCache[K, V]) reportSize() {
	c.opt.Metrics.Size(int(c.entries.Load()), c.queue.Len())
}
