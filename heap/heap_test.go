package heap

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func TestArenaAllocFree(t *testing.T) {
	region := make([]byte, 4096)
	a := NewArena(region, 16)

	p1, ok := a.Alloc(64, 16)
	require.True(t, ok)
	require.NotNil(t, p1)

	p2, ok := a.Alloc(64, 16)
	require.True(t, ok)
	require.NotEqual(t, p1, p2)

	a.Free(p1, 64, 16)
	a.Free(p2, 64, 16)

	// After freeing everything, the arena should again satisfy a
	// near-full-region request (segments coalesced back to one).
	p3, ok := a.Alloc(4000, 16)
	require.True(t, ok)
	require.NotNil(t, p3)
}

func TestArenaOutOfSpace(t *testing.T) {
	region := make([]byte, 128)
	a := NewArena(region, 16)

	_, ok := a.Alloc(1<<20, 16)
	require.False(t, ok)
}

func TestArenaCoalescesOnFree(t *testing.T) {
	region := make([]byte, 4096)
	a := NewArena(region, 16)

	var ptrs []unsafe.Pointer
	for i := 0; i < 8; i++ {
		p, ok := a.Alloc(64, 16)
		require.True(t, ok)
		ptrs = append(ptrs, p)
	}
	for _, p := range ptrs {
		a.Free(p, 64, 16)
	}

	big, ok := a.Alloc(3000, 16)
	require.True(t, ok, "expected coalesced free space to satisfy a large request")
	_ = big
}

func TestGoAllocatorAlignment(t *testing.T) {
	var g GoAllocator
	p, ok := g.Alloc(100, 32)
	require.True(t, ok)
	require.Zero(t, uintptr(p)%32)
	g.Free(p, 100, 32)
}
