package vmem

// SegmentQueue is an unordered doubly linked queue of tags, using
// BoundaryTag's sqPrev/sqNext links. Freelists and AllocationTable are
// both built out of arrays of SegmentQueue: one bucket queue per hash or
// size class.
type SegmentQueue struct {
	head, tail *BoundaryTag
}

// PushBack appends t to the queue. Only Free and Used tags may ever sit on
// a SegmentQueue — Span/ImportedSpan tags live on the SegmentList alone —
// mirroring the original segment_queue's add(), which panics on any other
// kind.
func (q *SegmentQueue) PushBack(t *BoundaryTag) {
	if t.Kind != KindFree && t.Kind != KindUsed {
		invariantf("segment queue: cannot enqueue a %s tag", t.Kind)
	}
	t.sqPrev = q.tail
	t.sqNext = nil
	if q.tail != nil {
		q.tail.sqNext = t
	} else {
		q.head = t
	}
	q.tail = t
}

// Remove unlinks t from whichever queue it currently sits in. The caller
// must pass the queue t actually belongs to.
func (q *SegmentQueue) Remove(t *BoundaryTag) {
	if t.Kind != KindFree && t.Kind != KindUsed {
		invariantf("segment queue: cannot dequeue a %s tag", t.Kind)
	}
	if t.sqPrev != nil {
		t.sqPrev.sqNext = t.sqNext
	} else {
		q.head = t.sqNext
	}
	if t.sqNext != nil {
		t.sqNext.sqPrev = t.sqPrev
	} else {
		q.tail = t.sqPrev
	}
	t.sqPrev, t.sqNext = nil, nil
}

// Front returns the first tag in the queue, or nil if empty.
func (q *SegmentQueue) Front() *BoundaryTag { return q.head }

// Empty reports whether the queue has no tags.
func (q *SegmentQueue) Empty() bool { return q.head == nil }

// Each calls fn for every tag in the queue, in order. fn must not mutate
// the queue it is iterating.
func (q *SegmentQueue) Each(fn func(*BoundaryTag)) {
	for t := q.head; t != nil; t = t.sqNext {
		fn(t)
	}
}
