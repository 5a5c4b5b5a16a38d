package cache

import (
	"sync"

	"github.com/IvanBrykalov/qsync/internal/util"
)

// entry is the exact (key, value) pair an expiry was scheduled for.
// Comparing entries tells a stale expiry apart from the live mapping.
type entry[K comparable, V comparable] struct {
	key K
	val V
}

// shard is an independent partition of the key space with its own lock.
// Reads take only the read lock.
type shard[K comparable, V comparable] struct {
	mu sync.RWMutex
	m  map[K]V

	// hot counters on their own cache lines
	_      util.CacheLinePad
	hits   util.PaddedAtomicInt64
	misses util.PaddedAtomicInt64
}

func newShard[K comparable, V comparable](sizeHint int) *shard[K, V] {
	return &shard[K, V]{m: make(map[K]V, sizeHint)}
}

func (s *shard[K, V]) load(k K) (V, bool) {
	s.mu.RLock()
	v, ok := s.m[k]
	s.mu.RUnlock()
	return v, ok
}

// swap stores k→v and returns the previous value, if any.
func (s *shard[K, V]) swap(k K, v V) (old V, loaded bool) {
	s.mu.Lock()
	old, loaded = s.m[k]
	s.m[k] = v
	s.mu.Unlock()
	return old, loaded
}

// addIfAbsent stores k→v only when k is not present.
func (s *shard[K, V]) addIfAbsent(k K, v V) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.m[k]; exists {
		return false
	}
	s.m[k] = v
	return true
}

// compareAndDelete deletes k only while it still maps to v.
func (s *shard[K, V]) compareAndDelete(k K, v V) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.m[k]; !ok || cur != v {
		return false
	}
	delete(s.m, k)
	return true
}

// remove deletes k and returns the value it held.
func (s *shard[K, V]) remove(k K) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[k]
	if ok {
		delete(s.m, k)
	}
	return v, ok
}

func (s *shard[K, V]) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}
