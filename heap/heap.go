// Package heap supplies the Heap capability spec.md §6 describes: the
// terminal backing allocator for the boundary-tag Slab, used whenever
// Vmem needs to grow its tag pool beyond what per-CPU and shared caches
// already hold.
package heap

import "unsafe"

// Allocator is the capability a Slab's backing store needs: raw,
// alignment-aware allocation and free over some region of memory this
// process owns.
type Allocator interface {
	Alloc(size, align uintptr) (unsafe.Pointer, bool)
	Free(ptr unsafe.Pointer, size, align uintptr)
}
