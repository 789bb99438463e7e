package vmem

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSegmentListInsertSortedByBase(t *testing.T) {
	var l SegmentList
	a := &BoundaryTag{Base: 0x300}
	b := &BoundaryTag{Base: 0x100}
	c := &BoundaryTag{Base: 0x200}

	l.InsertSortedByBase(a)
	l.InsertSortedByBase(b)
	l.InsertSortedByBase(c)

	var order []uintptr
	for t := l.Head(); t != nil; t = l.Next(t) {
		order = append(order, t.Base)
	}
	require.Equal(t, []uintptr{0x100, 0x200, 0x300}, order)
}

func TestSegmentListInsertAfterAndRemove(t *testing.T) {
	var l SegmentList
	a := &BoundaryTag{Base: 0x100}
	l.InsertSortedByBase(a)

	b := &BoundaryTag{Base: 0x110}
	l.InsertAfter(a, b)
	require.Equal(t, b, l.Next(a))
	require.Equal(t, a, l.Prev(b))
	require.Equal(t, b, l.tail)

	l.Remove(a)
	require.Equal(t, b, l.Head())
	require.Nil(t, l.Prev(b))
}

func TestSegmentQueuePushFrontRemove(t *testing.T) {
	var q SegmentQueue
	a := &BoundaryTag{Base: 1}
	b := &BoundaryTag{Base: 2}
	q.PushBack(a)
	q.PushBack(b)

	require.Equal(t, a, q.Front())
	q.Remove(a)
	require.Equal(t, b, q.Front())
	require.True(t, func() bool { q.Remove(b); return q.Empty() }())
}
