package vmem

// AllocationTable is a hash table of Used tags keyed by their base
// address, bucketed by allocTableBucket, so Arena.Free can find the tag
// for a caller-supplied address without scanning the whole segment list.
type AllocationTable struct {
	buckets [allocTableBuckets]SegmentQueue
}

// Insert records a Used tag.
func (a *AllocationTable) Insert(t *BoundaryTag) {
	a.buckets[allocTableBucket(t.Base)].PushBack(t)
}

// Remove forgets a Used tag previously inserted.
func (a *AllocationTable) Remove(t *BoundaryTag) {
	a.buckets[allocTableBucket(t.Base)].Remove(t)
}

// Get finds the Used tag whose Base equals base, if any.
func (a *AllocationTable) Get(base uintptr) (*BoundaryTag, bool) {
	var found *BoundaryTag
	a.buckets[allocTableBucket(base)].Each(func(t *BoundaryTag) {
		if found == nil && t.Base == base {
			found = t
		}
	})
	return found, found != nil
}
