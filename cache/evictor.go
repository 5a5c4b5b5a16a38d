package cache

import (
	"context"
	"fmt"
)

// evictLoop is the cache's single evictor. It blocks on the delay queue and
// removes each expired pair only if the map still holds exactly that pair.
// A pair overwritten since it was scheduled is left alone; the overwriting
// Put scheduled its own expiry.
func (c *ttlCache[K, V]) evictLoop(ctx context.Context) {
	defer close(c.done)
	c.log.Debug().Int("shards", len(c.shards)).Msg("evictor started")

	for {
		e, err := c.queue.Take(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.log.Debug().Int("pending", c.queue.Len()).Msg("evictor stopped")
				return
			}
			c.log.Error().Err(err).Msg("evictor: take failed")
			continue
		}
		c.expire(e)
	}
}

// expire handles one expired pair. Failures are contained here so that one
// bad entry cannot stop eviction.
func (c *ttlCache[K, V]) expire(e entry[K, V]) {
	defer func() {
		if r := recover(); r != nil {
			c.faults.Add(1)
			c.opt.Metrics.Fault()
			c.log.Error().
				Str("key", fmt.Sprint(e.key)).
				Str("panic", fmt.Sprint(r)).
				Msg("evictor: failed to expire entry")
		}
	}()

	if !c.getShard(e.key).compareAndDelete(e.key, e.val) {
		return
	}
	c.entries.Add(-1)
	c.expired.Add(1)
	c.opt.Metrics.Evict(EvictTTL)
	c.reportSize()
	if cb := c.opt.OnEvict; cb != nil {
		cb(e.key, e.val, EvictTTL)
	}
}

// notify runs OnEvict for caller-side removals, isolating callback panics
// the same way the evictor does.
func (c *ttlCache[K, V]) notify(k K, v V, reason EvictReason) {
	cb := c.opt.OnEvict
	if cb == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			c.faults.Add(1)
			c.opt.Metrics.Fault()
			c.log.Error().
				Str("key", fmt.Sprint(k)).
				Stringer("reason", reason).
				Str("panic", fmt.Sprint(r)).
				Msg("OnEvict callback panicked")
		}
	}()
	cb(k, v, reason)
}
