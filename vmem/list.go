package vmem

// SegmentList is the single address-ordered doubly linked list threading
// every tag in an arena together (spec.md §3's "segment list"), using
// BoundaryTag's slPrev/slNext links so no separate node allocation is
// needed.
type SegmentList struct {
	head, tail *BoundaryTag
}

// Head returns the lowest-address tag, or nil if the list is empty.
func (l *SegmentList) Head() *BoundaryTag { return l.head }

// Next returns t's successor in address order, or nil at the tail.
func (l *SegmentList) Next(t *BoundaryTag) *BoundaryTag { return t.slNext }

// Prev returns t's predecessor in address order, or nil at the head.
func (l *SegmentList) Prev(t *BoundaryTag) *BoundaryTag { return t.slPrev }

// InsertAfter links newTag immediately after at.
func (l *SegmentList) InsertAfter(at, newTag *BoundaryTag) {
	newTag.slPrev = at
	newTag.slNext = at.slNext
	if at.slNext != nil {
		at.slNext.slPrev = newTag
	} else {
		l.tail = newTag
	}
	at.slNext = newTag
}

// InsertBefore links newTag immediately before at.
func (l *SegmentList) InsertBefore(at, newTag *BoundaryTag) {
	newTag.slNext = at
	newTag.slPrev = at.slPrev
	if at.slPrev != nil {
		at.slPrev.slNext = newTag
	} else {
		l.head = newTag
	}
	at.slPrev = newTag
}

// InsertSortedByBase inserts newTag in address order relative to every tag
// currently in the list, regardless of kind. Used for span markers (whose
// address ranges are disjoint from everything else by construction) and
// for parent-sourced Used tags (see arena.go), which are not required to
// tile inside any single span.
func (l *SegmentList) InsertSortedByBase(newTag *BoundaryTag) {
	if l.head == nil {
		l.head, l.tail = newTag, newTag
		newTag.slPrev, newTag.slNext = nil, nil
		return
	}
	for cur := l.head; cur != nil; cur = cur.slNext {
		if cur.Base > newTag.Base {
			l.InsertBefore(cur, newTag)
			return
		}
	}
	l.InsertAfter(l.tail, newTag)
}

// Remove unlinks t from the list. t's own links are left dangling;
// callers must not reuse t without calling reset first.
func (l *SegmentList) Remove(t *BoundaryTag) {
	if t.slPrev != nil {
		t.slPrev.slNext = t.slNext
	} else {
		l.head = t.slNext
	}
	if t.slNext != nil {
		t.slNext.slPrev = t.slPrev
	} else {
		l.tail = t.slPrev
	}
}
