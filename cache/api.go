package cache

import (
	"context"
	"time"
)

// Cache is a sharded in-memory key/value store whose entries expire after a
// per-entry time-to-live. All methods are safe for concurrent use.
//
// Expiry is enforced by one background evictor, not on reads: Get never
// blocks on it, and an entry may still be returned briefly after its TTL
// until the evictor processes it.
//
// V must have value semantics under ==: a scheduled expiry is matched
// against the live entry by comparing the (key, value) pair.
type Cache[K comparable, V comparable] interface {
	// Put inserts or replaces k→v and schedules its expiry after ttl,
	// cancelling the expiry scheduled for the replaced value.
	// A non-positive ttl stores the entry without expiry.
	Put(k K, v V, ttl time.Duration)

	// Set is Put with Options.DefaultTTL.
	Set(k K, v V)

	// Add inserts k→v with Options.DefaultTTL only if k is absent.
	// Returns false if the key already exists (no update is performed).
	Add(k K, v V) bool

	// Get returns the value for k and a presence flag.
	Get(k K) (V, bool)

	// Remove deletes k and its scheduled expiry. Returns true if k existed.
	Remove(k K) bool

	// Len returns the number of resident entries.
	Len() int

	// Stats returns a snapshot of the cache counters.
	Stats() Stats

	// GetOrLoad returns the value for k, loading it via Options.Loader on a
	// miss. Concurrent loads for the same key are coalesced.
	// Returns ErrNoLoader without a Loader and ErrClosed after Close.
	GetOrLoad(ctx context.Context, k K) (V, error)

	// Close stops the evictor and waits for it to exit. Afterwards writes
	// are ignored and reads miss. Close is idempotent.
	Close() error
}

// Stats is a point-in-time view of cache activity.
type Stats struct {
	Hits    int64
	Misses  int64
	Expired uint64 // entries removed by the evictor
	Removed uint64 // entries removed by Remove
	Faults  uint64 // evictor failures (e.g. a panicking OnEvict)
	Entries int    // resident entries
	Pending int    // scheduled expiries, including stale ones not yet drained
}
