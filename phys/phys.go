// Package phys implements the page-frame allocator: a 4 KiB-granular
// physical allocator organized as a clean/dirty intrusive free list, per
// SPEC_FULL.md §5.1. It is grounded on the teacher's go/mazarin/page.go
// (allocPage/freePage over a singly linked free list of in-place page
// headers) generalized with the clean/dirty split and HHDM indirection
// the teacher's single-list version doesn't need (mazarin zeroes
// unconditionally on every alloc; this allocator defers zeroing to
// CleanDirty so frees stay O(1)).
package phys

import (
	"unsafe"

	"github.com/lylythechosenone/kraken/internal/hhdm"
)

// Frame is a 4 KiB-aligned physical address.
type Frame uintptr

// NoFrame is the sentinel for "no frame", used to terminate both the
// free and dirty lists.
const NoFrame Frame = ^Frame(0)

// freelistNode is the one-machine-word header written in place at a
// frame's HHDM virtual address while that frame sits on the free or
// dirty list.
type freelistNode struct {
	next Frame
}

var headerSize = unsafe.Sizeof(freelistNode{})

// Allocator is a page-frame allocator over a single caller-supplied
// region of backing memory. It is not safe for concurrent use on its own:
// per SPEC_FULL.md §5, its state is owned by whatever Slab wraps it via
// AsBacking, and that Slab's shared mutex serializes all access.
type Allocator struct {
	region    []byte
	physBase  Frame
	hhdmBase  uintptr
	frameSize uintptr

	freeHead  Frame
	dirtyHead Frame
}

// NewAllocator seeds a free list over region, treating it as frameSize-
// aligned frames starting at physical address physBase. This is the
// Go-native equivalent of the boot-time free-list construction spec.md §1
// treats as an external collaborator ("fed a linked-list seed built from
// discovered memory regions").
func NewAllocator(region []byte, physBase uintptr, frameSize uintptr) *Allocator {
	if frameSize < headerSize {
		panic("phys: frameSize smaller than one machine word")
	}
	if uintptr(len(region))%frameSize != 0 {
		panic("phys: region length is not a multiple of frameSize")
	}

	a := &Allocator{
		region:    region,
		physBase:  Frame(physBase),
		frameSize: frameSize,
		freeHead:  NoFrame,
		dirtyHead: NoFrame,
	}
	if len(region) > 0 {
		a.hhdmBase = uintptr(unsafe.Pointer(&region[0])) - physBase
	}

	n := uintptr(len(region)) / frameSize
	for i := n; i > 0; i-- {
		f := Frame(physBase) + Frame((i-1)*frameSize)
		a.nodeAt(f).next = a.freeHead
		a.freeHead = f
	}
	return a
}

// HHDMBase returns the offset this allocator uses to translate physical
// addresses into pointers it can dereference.
func (a *Allocator) HHDMBase() uintptr { return a.hhdmBase }

// PublishHHDM registers this allocator's HHDM base with the process-wide
// singleton, for components that want to translate physical addresses
// without holding a reference to this specific Allocator. Optional: most
// callers use Alloc/Free/CleanDirty directly and never touch the global.
func (a *Allocator) PublishHHDM() { hhdm.Init(a.hhdmBase) }

func (a *Allocator) translate(f Frame) unsafe.Pointer {
	return unsafe.Pointer(uintptr(f) + a.hhdmBase)
}

func (a *Allocator) nodeAt(f Frame) *freelistNode {
	return (*freelistNode)(a.translate(f))
}

func (a *Allocator) zeroRange(f Frame, from, to uintptr) {
	base := a.translate(f)
	if to <= from {
		return
	}
	buf := unsafe.Slice((*byte)(unsafe.Add(base, from)), to-from)
	for i := range buf {
		buf[i] = 0
	}
}

// Alloc returns a frame, preferring the clean free list and falling back
// to recycling one dirty frame (zeroing its contents) before reporting
// exhaustion. The returned frame's entire contents are zero and it is
// linked into no list.
func (a *Allocator) Alloc() (Frame, bool) {
	if a.freeHead != NoFrame {
		f := a.freeHead
		a.freeHead = a.nodeAt(f).next
		a.zeroRange(f, 0, headerSize)
		return f, true
	}
	if a.dirtyHead != NoFrame {
		f := a.dirtyHead
		a.dirtyHead = a.nodeAt(f).next
		a.zeroRange(f, headerSize, a.frameSize)
		a.zeroRange(f, 0, headerSize)
		return f, true
	}
	return NoFrame, false
}

// Free pushes frame onto the dirty list in O(1): it writes a freelist
// header at the frame's HHDM address and does not touch the frame's body.
func (a *Allocator) Free(f Frame) {
	a.nodeAt(f).next = a.dirtyHead
	a.dirtyHead = f
}

// CleanDirty recycles one dirty frame into the free list, zeroing its
// body past the header. It returns false if there was nothing dirty to
// clean, and true (with more work possibly remaining) otherwise.
func (a *Allocator) CleanDirty() bool {
	if a.dirtyHead == NoFrame {
		return false
	}
	f := a.dirtyHead
	next := a.nodeAt(f).next
	a.zeroRange(f, headerSize, a.frameSize)
	a.nodeAt(f).next = a.freeHead
	a.freeHead = f
	a.dirtyHead = next
	return a.dirtyHead != NoFrame
}

// FrameSize returns the granularity frames are managed at.
func (a *Allocator) FrameSize() uintptr { return a.frameSize }

// Bytes returns a byte slice view over frame's storage, for tests and
// callers that want to inspect/populate frame contents directly.
func (a *Allocator) Bytes(f Frame) []byte {
	return unsafe.Slice((*byte)(a.translate(f)), a.frameSize)
}
