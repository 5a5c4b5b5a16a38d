// Package cache provides a generic, sharded in-memory cache whose entries
// expire after a per-entry time-to-live.
//
// Design
//
//   - Storage: the key space is split into shards, each a map guarded by an
//     RWMutex. The shard count is a power of two (≈ 2*GOMAXPROCS by default)
//     and keys are routed by an xxhash-based hash. Get takes only a read lock.
//
//   - Expiry: every Put schedules the (key, value) pair in a delayqueue.
//     One evictor goroutine takes pairs as they come due and deletes the key
//     only if it still maps to the same value. Re-putting a key withdraws
//     the old pair from the queue, so an earlier short TTL never evicts the
//     refreshed value.
//
//   - Reads are not TTL-checked: an entry stays visible until the evictor
//     reaches it, which is normally within microseconds of its deadline.
//
//   - GetOrLoad: coalesces concurrent loads for the same key using
//     singleflight. If Loader is nil, GetOrLoad returns ErrNoLoader.
//
//   - Metrics: Options.Metrics receives Hit/Miss/Evict/Size/Fault signals.
//     By default NoopMetrics is used; plug metrics/prom to export them.
//
//   - Faults: a panic while expiring one entry (e.g. from OnEvict) is
//     recovered, logged through Options.Logger and counted. The evictor
//     keeps running.
//
// Basic usage
//
//	c := cache.New[string, string](cache.Options[string, string]{})
//	defer c.Close()
//	c.Put("session:42", "alice", 30*time.Second)
//	if v, ok := c.Get("session:42"); ok {
//	    _ = v
//	}
//
// With GetOrLoad (singleflight)
//
//	c := cache.New[string, string](cache.Options[string, string]{
//	    DefaultTTL: time.Minute,
//	    Loader: func(ctx context.Context, k string) (string, error) {
//	        return "v:" + k, nil
//	    },
//	})
//	v, err := c.GetOrLoad(ctx, "key")
//
// Exporting metrics
//
//	m := prom.New(nil, "qsync", "ttlcache", nil)
//	c := cache.New[string, []byte](cache.Options[string, []byte]{Metrics: m})
//
// Values must be comparable: the evictor matches a due pair against the
// live entry with ==. Use value types or stable pointers.
package cache
