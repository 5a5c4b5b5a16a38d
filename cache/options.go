package cache

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// EvictReason explains why an entry left the cache.
type EvictReason int

const (
	// EvictTTL: the entry's time-to-live elapsed and the evictor removed it.
	EvictTTL EvictReason = iota
	// EvictRemoved: the entry was deleted by Remove.
	EvictRemoved
)

func (r EvictReason) String() string {
	switch r {
	case EvictTTL:
		return "ttl"
	case EvictRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Metrics exposes cache-level observability hooks.
// A NoopMetrics implementation is provided and used by default.
type Metrics interface {
	Hit()
	Miss()
	Evict(reason EvictReason)
	// Size reports resident entries and scheduled expiries.
	Size(entries, pending int)
	// Fault counts an evictor failure.
	Fault()
}

// Options configures the cache. Zero values are safe; New applies:
//   - Shards <= 0  => auto (≈ 2*GOMAXPROCS, power of two)
//   - nil Metrics  => NoopMetrics
//   - nil Logger   => zerolog.Nop()
type Options[K comparable, V comparable] struct {
	// Shards is the number of map partitions, rounded up to a power of two.
	Shards int

	// SizeHint pre-sizes the shard maps (total across shards).
	SizeHint int

	// DefaultTTL applies to Set, Add and loaded values (0 = no expiry).
	DefaultTTL time.Duration

	// Loader fetches a value on cache miss. Used by GetOrLoad.
	Loader func(ctx context.Context, k K) (V, error)

	// OnEvict is called by the evictor goroutine after an entry expired,
	// and by Remove after an explicit delete. A panic in it is recovered,
	// logged and counted as a fault.
	OnEvict func(k K, v V, reason EvictReason)

	// Metrics receives hit/miss/evict/size signals.
	Metrics Metrics

	// Logger receives evictor lifecycle and fault logs.
	Logger *zerolog.Logger
}
