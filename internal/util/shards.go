package util

import "runtime"

// maxShards caps the automatic shard count.
const maxShards = 256

// NextPow2 returns the smallest power of two >= x.
// x == 0 yields 1; a result that would overflow is clamped to 1<<63.
func NextPow2(x uint64) uint64 {
	if x <= 1 {
		return 1
	}
	x--
	x |= x >> 1
	x |= x >> 2
	x |= x >> 4
	x |= x >> 8
	x |= x >> 16
	x |= x >> 32
	x++
	if x == 0 {
		return 1 << 63
	}
	return x
}

// ShardCount normalizes a requested shard count to a power of two.
// Non-positive requests pick nextPow2(2*GOMAXPROCS); the result is clamped
// to [1..256].
func ShardCount(requested int) int {
	n := requested
	if n <= 0 {
		n = 2 * runtime.GOMAXPROCS(0)
	}
	n = int(NextPow2(uint64(n)))
	if n > maxShards {
		n = maxShards
	}
	return n
}

// ShardIndex maps a hash to a shard index. shards must be a power of two.
func ShardIndex(hash uint64, shards int) int {
	if shards <= 1 {
		return 0
	}
	return int(hash & uint64(shards-1))
}
