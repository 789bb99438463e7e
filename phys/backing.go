package phys

import "context"

// backing adapts Allocator to the slab.Backing[Frame] shape (Alloc/Free
// taking a context.Context) without forcing PhysAlloc's own API, which
// SPEC_FULL.md §5.1 specifies as synchronous, to carry an unused context
// parameter. This is the Go realization of spec.md §2's "PhysAlloc is
// itself wrapped in a Slab of PhysPage items."
type backing struct{ a *Allocator }

// AsBacking adapts a to the shape slab.New expects as its backing
// capability.
func AsBacking(a *Allocator) interface {
	Alloc(context.Context) (Frame, bool)
	Free(context.Context, Frame)
} {
	return backing{a}
}

func (b backing) Alloc(context.Context) (Frame, bool) { return b.a.Alloc() }
func (b backing) Free(_ context.Context, f Frame)     { b.a.Free(f) }
