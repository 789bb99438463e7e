package vmem

import "math/bits"

// freelistBuckets matches the host word width (spec.md §3: "32 or 64
// buckets, matching host word width"): bucket k holds free tags whose
// quantum-normalized length lies in [2^k, 2^(k+1)).
const freelistBuckets = bits.UintSize

// Freelists is the power-of-two-bucketed array of SegmentQueues Arena.Alloc
// searches to satisfy a request, and Arena.Free/split return extents to.
type Freelists struct {
	buckets [freelistBuckets]SegmentQueue
}

// log2Floor returns floor(log2(n)) for n >= 1.
func log2Floor(n uintptr) int {
	if n == 0 {
		return 0
	}
	return bits.UintSize - 1 - bits.LeadingZeros(uint(n))
}

// log2Ceil returns ceil(log2(n)) for n >= 1.
func log2Ceil(n uintptr) int {
	if n <= 1 {
		return 0
	}
	return log2Floor(n-1) + 1
}

// bucketForLen returns the home bucket for a free tag of the given
// quantum-normalized length (i.e. already divided by the arena's quantum).
func bucketForLen(normLen uintptr) int {
	k := log2Floor(normLen)
	if k >= freelistBuckets {
		k = freelistBuckets - 1
	}
	return k
}

// startBucketForRequest returns the smallest bucket index k such that
// every tag homed in bucket k or higher is guaranteed to be at least
// normSize long — the InstantFit starting point.
func startBucketForRequest(normSize uintptr) int {
	k := log2Ceil(normSize)
	if k >= freelistBuckets {
		k = freelistBuckets - 1
	}
	return k
}

// Insert homes a Free tag in its bucket.
func (f *Freelists) Insert(t *BoundaryTag, quantum uintptr) {
	f.buckets[bucketForLen(t.Len/quantum)].PushBack(t)
}

// Remove forgets a Free tag previously inserted.
func (f *Freelists) Remove(t *BoundaryTag, quantum uintptr) {
	f.buckets[bucketForLen(t.Len/quantum)].Remove(t)
}

// InstantFit returns the first tag found starting from the smallest
// bucket guaranteed to satisfy normSize, scanning upward. Every tag
// returned this way is >= normSize without an explicit length check,
// since bucket k only ever holds tags >= 2^k.
func (f *Freelists) InstantFit(normSize uintptr) *BoundaryTag {
	for k := startBucketForRequest(normSize); k < freelistBuckets; k++ {
		if t := f.buckets[k].Front(); t != nil {
			return t
		}
	}
	return nil
}

// BestFit scans from one bucket below the InstantFit start — but only
// when normSize is not itself a power of two, per spec.md §4.3: a bucket
// k holds lengths in [2^k, 2^(k+1)), so when normSize is an exact power
// of two, startBucketForRequest(normSize) already equals bucketForLen of
// that exact length, and every tag in the bucket below it is too short to
// qualify — upward, tracking the smallest qualifying tag seen. size is
// the already quantum-rounded byte length being requested.
func (f *Freelists) BestFit(size, normSize uintptr) *BoundaryTag {
	start := startBucketForRequest(normSize)
	isPow2 := normSize != 0 && normSize&(normSize-1) == 0
	if start > 0 && !isPow2 {
		start--
	}
	var best *BoundaryTag
	for k := start; k < freelistBuckets; k++ {
		f.buckets[k].Each(func(t *BoundaryTag) {
			if t.Len >= size && (best == nil || t.Len < best.Len) {
				best = t
			}
		})
	}
	return best
}
