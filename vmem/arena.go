package vmem

import (
	"context"

	"github.com/lylythechosenone/kraken/asyncmutex"
	"github.com/lylythechosenone/kraken/cpu"
	"github.com/lylythechosenone/kraken/heap"
	"github.com/lylythechosenone/kraken/slab"
)

// Policy selects how Arena.Alloc searches its freelists for a fit.
type Policy int

const (
	// InstantFit takes the first tag from the smallest freelist bucket
	// guaranteed to satisfy the request — O(1) in the common case, at the
	// cost of sometimes handing back more address space than strictly
	// needed.
	InstantFit Policy = iota
	// BestFit scans for the smallest qualifying tag across the buckets
	// that might hold one, minimizing fragmentation at the cost of a
	// linear scan.
	BestFit
	// NextFit resumes scanning the segment list from the last
	// satisfied allocation, approximating round-robin placement; it
	// falls back to InstantFit if nothing is found before the list ends.
	NextFit
)

// boundary-tag pool sizing: spec.md §3's own description of the Bt pool
// as "a Slab<Heap<Bt>, 16, 4>".
const (
	tagSharedCap = 16
	tagPerCPUCap = 4
)

// Arena is a boundary-tag virtual memory allocator, per SPEC_FULL.md §5.3.
// Arenas may be layered: a child arena configured with SetParent services
// its own misses by calling through to the parent (see
// allocFromParentLocked).
type Arena struct {
	mu      asyncmutex.Mutex
	quantum uintptr

	segs  SegmentList
	table AllocationTable
	free  Freelists
	tags  *slab.Slab[*BoundaryTag]

	parent *Arena
	last   *BoundaryTag
}

// NewArena constructs an arena with the given quantum (the minimum and
// granularity of every address and length it manages) and a Heap
// capability backing its own boundary-tag storage.
func NewArena(quantum uintptr, tagHeap heap.Allocator, cpus cpu.Context) *Arena {
	return &Arena{
		quantum: quantum,
		tags:    slab.New[*BoundaryTag](heapTagBacking{tagHeap}, cpus, tagSharedCap, tagPerCPUCap),
	}
}

// SetParent configures the arena this one imports address space from on
// local exhaustion. Intended to be called once during setup, before the
// arena is exposed to concurrent callers — it does not take the arena's
// own mutex. Assigning a parent twice is a programmer error, not a
// recoverable condition, so it panics.
func (a *Arena) SetParent(parent *Arena) {
	if a.parent != nil {
		invariantf("set_parent: arena already has a parent configured")
	}
	a.parent = parent
}

func alignUp(n, quantum uintptr) uintptr {
	if quantum == 0 {
		return n
	}
	rem := n % quantum
	if rem == 0 {
		return n
	}
	return n + (quantum - rem)
}

func (a *Arena) overlapsLocked(base, length uintptr) bool {
	end := base + length
	for t := a.segs.Head(); t != nil; t = a.segs.Next(t) {
		if t.Kind != KindSpan && t.Kind != KindImportedSpan {
			continue
		}
		if base < t.End() && t.Base < end {
			return true
		}
	}
	return false
}

// AddSpan introduces a span of address space this arena owns outright,
// immediately available as one whole Free tag. It fails (returning false)
// if boundary-tag storage is exhausted; it panics if base/length are not
// quantum-aligned or overlap an existing span, since either would
// corrupt the arena's own invariants rather than reflect an allocation
// failure a caller can recover from.
func (a *Arena) AddSpan(ctx context.Context, base, length uintptr) bool {
	release, err := a.mu.Lock(ctx)
	if err != nil {
		return false
	}
	defer release()

	if length == 0 || length%a.quantum != 0 || base%a.quantum != 0 {
		invariantf("add_span(%#x, %#x) is not quantum-aligned", base, length)
	}
	if a.overlapsLocked(base, length) {
		invariantf("add_span(%#x, %#x) overlaps an existing span", base, length)
	}

	spanTag, ok := a.tags.AllocOrRestock(ctx)
	if !ok {
		return false
	}
	freeTag, ok := a.tags.AllocOrRestock(ctx)
	if !ok {
		a.tags.Free(ctx, spanTag)
		return false
	}
	spanTag.reset(KindSpan, base, length)
	freeTag.reset(KindFree, base, length)

	a.segs.InsertSortedByBase(spanTag)
	a.segs.InsertAfter(spanTag, freeTag)
	a.free.Insert(freeTag, a.quantum)
	return true
}

// BorrowSpan introduces a span of address space this arena imports from
// its configured parent. Unlike AddSpan, no initial Free tag is created:
// the ImportedSpan tag is bookkeeping and overlap checking only. Alloc
// draws from the parent on every local miss whenever a parent is
// configured, whether or not a span was borrowed, and the parent's
// address need not lie inside the borrowed range (see
// allocFromParentLocked). Fails
// (returns false) only if boundary-tag storage is exhausted; it panics if
// no parent is configured, since that is a programmer error rather than a
// recoverable allocation failure.
func (a *Arena) BorrowSpan(ctx context.Context, base, length uintptr) bool {
	release, err := a.mu.Lock(ctx)
	if err != nil {
		return false
	}
	defer release()

	if a.parent == nil {
		invariantf("borrow_span(%#x, %#x): no parent configured", base, length)
	}
	if length == 0 || length%a.quantum != 0 || base%a.quantum != 0 {
		invariantf("borrow_span(%#x, %#x) is not quantum-aligned", base, length)
	}
	if a.overlapsLocked(base, length) {
		invariantf("borrow_span(%#x, %#x) overlaps an existing span", base, length)
	}

	tag, ok := a.tags.AllocOrRestock(ctx)
	if !ok {
		return false
	}
	tag.reset(KindImportedSpan, base, length)
	a.segs.InsertSortedByBase(tag)
	return true
}

// Alloc finds size bytes of free address space per policy, rounding size
// up to the arena's quantum first (SPEC_FULL.md's resolution of spec.md's
// quantum-rounding open question), and returns the base address of a new
// Used tag. ok is false if no fit exists locally and either no parent is
// configured or the parent itself is exhausted.
func (a *Arena) Alloc(ctx context.Context, policy Policy, size uintptr) (uintptr, bool) {
	size = alignUp(size, a.quantum)
	if size == 0 {
		return 0, false
	}

	release, err := a.mu.Lock(ctx)
	if err != nil {
		return 0, false
	}
	defer release()
	return a.allocLocked(ctx, policy, size)
}

func (a *Arena) allocLocked(ctx context.Context, policy Policy, size uintptr) (uintptr, bool) {
	normSize := size / a.quantum

	var free *BoundaryTag
	switch policy {
	case BestFit:
		free = a.free.BestFit(size, normSize)
	case NextFit:
		free = a.nextFitLocked(size)
	default:
		free = a.free.InstantFit(normSize)
	}

	if free == nil {
		return a.allocFromParentLocked(ctx, policy, size)
	}

	base := free.Base
	remaining := free.Len - size
	a.free.Remove(free, a.quantum)

	if remaining == 0 {
		free.Kind = KindUsed
		a.table.Insert(free)
		a.last = free
		return base, true
	}

	used, ok := a.tags.AllocOrRestock(ctx)
	if !ok {
		// Couldn't get bookkeeping for the split: put the tag back whole
		// and report failure rather than leaking the extent.
		free.Kind = KindFree
		a.free.Insert(free, a.quantum)
		return 0, false
	}
	used.reset(KindUsed, base, size)
	free.Base = base + size
	free.Len = remaining

	a.segs.InsertBefore(free, used)
	a.free.Insert(free, a.quantum)
	a.table.Insert(used)
	a.last = used
	return base, true
}

func (a *Arena) nextFitLocked(size uintptr) *BoundaryTag {
	var cur *BoundaryTag
	if a.last != nil {
		cur = a.segs.Next(a.last)
	} else {
		cur = a.segs.Head()
	}
	for cur != nil {
		if cur.Kind == KindFree && cur.Len >= size {
			return cur
		}
		cur = a.segs.Next(cur)
	}
	return a.free.InstantFit(size / a.quantum)
}

// allocFromParentLocked services a local miss by drawing size bytes
// straight from the parent arena. The resulting Used tag is tagged
// fromParent so Free routes it straight back to the parent instead of
// caching it locally — see SPEC_FULL.md's borrowed-span resolution.
func (a *Arena) allocFromParentLocked(ctx context.Context, policy Policy, size uintptr) (uintptr, bool) {
	if a.parent == nil {
		return 0, false
	}
	base, ok := a.parent.Alloc(ctx, policy, size)
	if !ok {
		return 0, false
	}
	used, ok := a.tags.AllocOrRestock(ctx)
	if !ok {
		a.parent.Free(ctx, base)
		return 0, false
	}
	used.reset(KindUsed, base, size)
	used.fromParent = true

	a.segs.InsertSortedByBase(used)
	a.table.Insert(used)
	a.last = used
	return base, true
}

// Free returns a previously allocated base address to the arena. It
// panics if base does not correspond to a currently outstanding
// allocation, per spec.md's invariant-violation policy.
func (a *Arena) Free(ctx context.Context, base uintptr) {
	release, err := a.mu.Lock(ctx)
	if err != nil {
		return
	}
	defer release()
	a.freeLocked(ctx, base)
}

func (a *Arena) freeLocked(ctx context.Context, base uintptr) {
	used, ok := a.table.Get(base)
	if !ok {
		invariantf("free of unknown base %#x", base)
	}
	a.table.Remove(used)

	if used.fromParent {
		a.segs.Remove(used)
		if a.last == used {
			a.last = nil
		}
		a.tags.Free(ctx, used)
		a.parent.Free(ctx, base)
		return
	}

	used.Kind = KindFree

	if prev := a.segs.Prev(used); prev != nil && prev.Kind == KindFree {
		a.free.Remove(prev, a.quantum)
		used.Base = prev.Base
		used.Len += prev.Len
		a.segs.Remove(prev)
		if a.last == prev {
			a.last = nil
		}
		a.tags.Free(ctx, prev)
	}
	if next := a.segs.Next(used); next != nil && next.Kind == KindFree {
		a.free.Remove(next, a.quantum)
		used.Len += next.Len
		a.segs.Remove(next)
		if a.last == next {
			a.last = nil
		}
		a.tags.Free(ctx, next)
	}

	a.free.Insert(used, a.quantum)
}

// Quantum returns the arena's address/length granularity.
func (a *Arena) Quantum() uintptr { return a.quantum }
