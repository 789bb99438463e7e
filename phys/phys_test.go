package phys

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

const frameSize = 4096

func newTestAllocator(t *testing.T, frames int) *Allocator {
	t.Helper()
	region := make([]byte, frames*frameSize)
	return NewAllocator(region, 0x1000_0000, frameSize)
}

func TestAllocReturnsZeroedFrame(t *testing.T) {
	a := newTestAllocator(t, 4)

	f, ok := a.Alloc()
	require.True(t, ok)

	for _, b := range a.Bytes(f) {
		require.Zero(t, b)
	}
}

func TestAllocExhaustion(t *testing.T) {
	a := newTestAllocator(t, 2)

	_, ok1 := a.Alloc()
	_, ok2 := a.Alloc()
	_, ok3 := a.Alloc()
	require.True(t, ok1)
	require.True(t, ok2)
	require.False(t, ok3)
}

// TestFreeThenAllocNoClean exercises spec.md §8 boundary scenario 5:
// after Free(F) then Alloc() with no intervening CleanDirty, the
// returned frame equals F and its body is zero.
func TestFreeThenAllocNoClean(t *testing.T) {
	a := newTestAllocator(t, 1)

	f, ok := a.Alloc()
	require.True(t, ok)

	// Dirty the frame to simulate prior use.
	bytes := a.Bytes(f)
	for i := range bytes {
		bytes[i] = 0xAA
	}

	a.Free(f)

	got, ok := a.Alloc()
	require.True(t, ok)
	require.Equal(t, f, got)

	body := a.Bytes(got)[headerSize:]
	for _, b := range body {
		require.Zero(t, b)
	}
}

func TestCleanDirtyMovesFrameToFreeList(t *testing.T) {
	a := newTestAllocator(t, 2)

	f1, _ := a.Alloc()
	f2, _ := a.Alloc()
	a.Free(f1)
	a.Free(f2)

	// Both frames are dirty; no clean frames remain.
	require.Equal(t, NoFrame, a.freeHead)

	more := a.CleanDirty()
	require.True(t, more, "one dirty frame should remain after cleaning the first")

	more = a.CleanDirty()
	require.False(t, more, "no dirty frames should remain")

	// Both frames are now on the free list and allocate without touching
	// the dirty path.
	got1, ok := a.Alloc()
	require.True(t, ok)
	got2, ok := a.Alloc()
	require.True(t, ok)
	require.ElementsMatch(t, []Frame{f1, f2}, []Frame{got1, got2})
}

func TestCleanDirtyOnEmptyReturnsFalse(t *testing.T) {
	a := newTestAllocator(t, 1)
	require.False(t, a.CleanDirty())
}

func TestStateMachine(t *testing.T) {
	a := newTestAllocator(t, 1)

	// Free -> (alloc) -> In-use
	f, ok := a.Alloc()
	require.True(t, ok)

	// In-use -> (free) -> Dirty
	a.Free(f)
	require.Equal(t, f, a.dirtyHead)

	// Dirty -> (alloc) -> In-use, recycled straight from dirty.
	f2, ok := a.Alloc()
	require.True(t, ok)
	require.Equal(t, f, f2)
}

func TestAsBackingRoundTrip(t *testing.T) {
	a := newTestAllocator(t, 1)
	b := AsBacking(a)

	f, ok := b.Alloc(context.Background())
	require.True(t, ok)
	b.Free(context.Background(), f)
	require.Equal(t, f, a.dirtyHead)
}
