package heap

import "unsafe"

// segment is an in-place header, written at the start of every block in
// an Arena's managed region, directly modeled on the teacher's
// heapSegment (mazarin's heap.go): a doubly-linked list of
// allocated-or-free blocks tiling the region, coalesced on free.
type segment struct {
	next, prev *segment
	allocated  bool
	size       uintptr // total size of the block, including this header
}

const segmentHeaderSize = unsafe.Sizeof(segment{})

// Arena is a best-fit, coalescing heap over a single caller-supplied
// region of memory. It is the Go-idiom generalization of the teacher's
// single global KERNEL_HEAP_SIZE heap: same split/coalesce algorithm,
// parameterized over any region instead of one compile-time-sized block.
//
// Arena is not safe for concurrent use; callers needing concurrent access
// (the Slab backing role) serialize through their own lock.
type Arena struct {
	region []byte
	head   *segment
	align  uintptr
}

// NewArena initializes an Arena over region, which must be at least large
// enough to hold one segment header. align is the minimum alignment every
// returned pointer satisfies (rounded up to segmentHeaderSize's alignment
// if smaller).
func NewArena(region []byte, align uintptr) *Arena {
	if uintptr(len(region)) < segmentHeaderSize {
		panic("heap: region too small for a single segment header")
	}
	if align < unsafe.Alignof(segment{}) {
		align = unsafe.Alignof(segment{})
	}

	a := &Arena{region: region, align: align}
	a.head = (*segment)(unsafe.Pointer(&region[0]))
	*a.head = segment{size: uintptr(len(region))}
	return a
}

// Alloc reserves size bytes (plus header overhead, rounded up to a.align)
// from the best-fitting free segment, splitting it if the remainder can
// itself hold a header plus some data. Returns false if no segment is
// large enough.
func (a *Arena) Alloc(size, align uintptr) (unsafe.Pointer, bool) {
	if align > a.align {
		// The arena only guarantees its own alignment; a caller asking for
		// stricter alignment than the arena was built for cannot be
		// served without over-allocating, which this simple arena does
		// not attempt.
		return nil, false
	}

	total := alignUp(size+segmentHeaderSize, a.align)

	var best *segment
	var bestSlack uintptr = ^uintptr(0)
	for s := a.head; s != nil; s = s.next {
		if s.allocated || s.size < total {
			continue
		}
		slack := s.size - total
		if slack < bestSlack {
			best, bestSlack = s, slack
		}
	}
	if best == nil {
		return nil, false
	}

	minSplit := 2 * segmentHeaderSize
	if bestSlack >= minSplit {
		newAddr := uintptr(unsafe.Pointer(best)) + total
		newSeg := (*segment)(unsafe.Pointer(newAddr))
		*newSeg = segment{
			next: best.next,
			prev: best,
			size: best.size - total,
		}
		if newSeg.next != nil {
			newSeg.next.prev = newSeg
		}
		best.next = newSeg
		best.size = total
	}

	best.allocated = true
	dataPtr := unsafe.Add(unsafe.Pointer(best), segmentHeaderSize)
	return dataPtr, true
}

// Free releases a pointer previously returned by Alloc, coalescing it
// with any adjacent free neighbours.
func (a *Arena) Free(ptr unsafe.Pointer, _, _ uintptr) {
	if ptr == nil {
		return
	}
	seg := (*segment)(unsafe.Add(ptr, -int(segmentHeaderSize)))
	seg.allocated = false

	for seg.prev != nil && !seg.prev.allocated {
		prev := seg.prev
		prev.next = seg.next
		prev.size += seg.size
		if seg.next != nil {
			seg.next.prev = prev
		}
		seg = prev
	}
	for seg.next != nil && !seg.next.allocated {
		next := seg.next
		seg.size += next.size
		seg.next = next.next
		if next.next != nil {
			next.next.prev = seg
		}
	}
}

func alignUp(v, align uintptr) uintptr {
	return (v + align - 1) &^ (align - 1)
}
