// Package util contains internal helpers (key hashing, shard math, padding).
//revive:disable:var-naming  // allow 'util' as an internal helpers package name
package util

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Hash maps a key to 64 bits for shard selection.
// Strings and byte arrays go through xxhash; integer keys are run through a
// splitmix64 finalizer so that sequential ids spread across shards.
// Other comparable keys fall back to hashing their %v rendering, which is
// correct but slow; prefer string or integer keys on hot paths.
func Hash[K comparable](k K) uint64 {
	switch v := any(k).(type) {
	case string:
		return xxhash.Sum64String(v)
	case [16]byte:
		return xxhash.Sum64(v[:])
	case [32]byte:
		return xxhash.Sum64(v[:])

	case uint8:
		return mix64(uint64(v))
	case uint16:
		return mix64(uint64(v))
	case uint32:
		return mix64(uint64(v))
	case uint64:
		return mix64(v)
	case uint:
		return mix64(uint64(v))
	case uintptr:
		return mix64(uint64(v))
	case int8:
		return mix64(uint64(uint8(v)))
	case int16:
		return mix64(uint64(uint16(v)))
	case int32:
		return mix64(uint64(uint32(v)))
	case int64:
		return mix64(uint64(v))
	case int:
		return mix64(uint64(v))

	case fmt.Stringer:
		return xxhash.Sum64String(v.String())
	default:
		return xxhash.Sum64String(fmt.Sprintf("%T:%v", k, k))
	}
}

// mix64 is the splitmix64 finalizer.
func mix64(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
