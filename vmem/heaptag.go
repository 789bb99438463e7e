package vmem

import (
	"context"
	"unsafe"

	"github.com/lylythechosenone/kraken/heap"
)

var tagSize = unsafe.Sizeof(BoundaryTag{})
var tagAlign = unsafe.Alignof(BoundaryTag{})

// heapTagBacking adapts a heap.Allocator (SPEC_FULL.md §5.6's Heap
// capability) into a slab.Backing[*BoundaryTag], giving every Arena's
// boundary-tag pool a real allocator underneath it instead of a Go slice,
// matching spec.md §3's "Bt pool is itself a Slab<Heap<Bt>, 16, 4>".
type heapTagBacking struct {
	h heap.Allocator
}

func (b heapTagBacking) Alloc(context.Context) (*BoundaryTag, bool) {
	ptr, ok := b.h.Alloc(tagSize, tagAlign)
	if !ok {
		return nil, false
	}
	tag := (*BoundaryTag)(ptr)
	*tag = BoundaryTag{}
	return tag, true
}

func (b heapTagBacking) Free(_ context.Context, tag *BoundaryTag) {
	b.h.Free(unsafe.Pointer(tag), tagSize, tagAlign)
}
