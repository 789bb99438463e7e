//go:build unix

package heap

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// MmapAllocator is a fixed-size arena backed by an anonymous mmap
// mapping, suballocated by the boundary-header Arena in segment.go
// (GoAllocator does not use that Arena). It gives the boundary-tag Slab's terminal
// backing a real OS memory mapping rather than memory already managed by
// Go's GC — the closest a hosted process gets to the kernel's own
// frame-granular physical RAM, and a natural backing store to hand to
// phys.NewAllocator for demos that want genuinely independent memory.
type MmapAllocator struct {
	region []byte
	arena  *Arena
}

// NewMmapAllocator reserves size bytes of anonymous, read-write memory
// and wraps it in a coalescing Arena aligned to align bytes.
func NewMmapAllocator(size int, align uintptr) (*MmapAllocator, error) {
	region, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("heap: mmap %d bytes: %w", size, err)
	}
	return &MmapAllocator{region: region, arena: NewArena(region, align)}, nil
}

// Region exposes the raw mapped bytes, e.g. for seeding a phys.Allocator.
func (m *MmapAllocator) Region() []byte { return m.region }

func (m *MmapAllocator) Alloc(size, align uintptr) (unsafe.Pointer, bool) {
	return m.arena.Alloc(size, align)
}

func (m *MmapAllocator) Free(ptr unsafe.Pointer, size, align uintptr) {
	m.arena.Free(ptr, size, align)
}

// Close unmaps the backing region. The allocator must not be used
// afterward.
func (m *MmapAllocator) Close() error {
	return unix.Munmap(m.region)
}
