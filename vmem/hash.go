package vmem

import "math/bits"

// allocTableBuckets is the width of the AllocationTable, per SPEC_FULL.md
// §5.3: a fixed bucket count, chosen independent of arena size since the
// table only needs to keep per-bucket chains short, not size-proportional.
const allocTableBuckets = 64

// No murmur3 package is grounded anywhere in the retrieved example pack
// (checked across every _examples/ repo and other_examples/ file); the
// finalizer step alone (fmix32/fmix64) is a handful of well-known
// constants and is implemented directly here rather than pulled in as an
// unjustified new dependency. See DESIGN.md's vmem entry.

// fmix64 is Murmur3's 64-bit finalizer, used to spread uintptr base
// addresses (which are usually small multiples of a page or quantum size,
// and so collide badly in their low bits) across AllocationTable's
// buckets.
func fmix64(k uint64) uint64 {
	k ^= k >> 33
	k *= 0xff51afd7ed558ccd
	k ^= k >> 33
	k *= 0xc4ceb9fe1a85ec53
	k ^= k >> 33
	return k
}

// fmix32 is Murmur3's 32-bit finalizer, used on 32-bit hosts where
// uintptr is narrower than uint64.
func fmix32(k uint32) uint32 {
	k ^= k >> 16
	k *= 0x85ebca6b
	k ^= k >> 13
	k *= 0xc2b2ae35
	k ^= k >> 16
	return k
}

// hashBase mixes a base address to a bucket-distributing hash, sized to
// the host's native word width.
func hashBase(base uintptr) uint64 {
	if bits.UintSize == 32 {
		return uint64(fmix32(uint32(base)))
	}
	return fmix64(uint64(base))
}

func allocTableBucket(base uintptr) int {
	return int(hashBase(base) % allocTableBuckets)
}
