// Package asyncmutex implements a single-owner mutex whose Lock suspends
// the caller (via context.Context, Go's stand-in for an async/await
// suspension point) instead of spinning or blocking an OS thread, and
// serves contenders in strict FIFO order.
//
// The design follows SPEC_FULL.md §5.4: a locked flag plus an intrusive
// FIFO list of pending waiters; a waiter whose context is cancelled
// removes itself, and if it had already been handed the lock it passes
// ownership on to the next waiter so no wakeup is lost. Both the flag and
// the list are protected by a plain sync.Mutex (short, uncontended
// critical sections only — it is never held across a suspension point),
// and each waker cell is a buffered channel of capacity 1 that is sent to
// at most once.
package asyncmutex

import (
	"context"
	"sync"
)

// waiter is one pending acquisition, intrusively linked into the Mutex's
// FIFO queue.
type waiter struct {
	prev, next *waiter
	woken      chan struct{}
}

// Mutex is a single-owner, FIFO-fair, context-cancellable mutex.
type Mutex struct {
	mu     sync.Mutex
	locked bool
	head   *waiter
	tail   *waiter
}

// Lock acquires the mutex, suspending the caller until it is the owner or
// ctx is done. On success it returns a release function that must be
// called exactly once to hand the mutex to the next waiter (or mark it
// free). On cancellation it returns a non-nil error and the caller owns
// nothing.
func (m *Mutex) Lock(ctx context.Context) (func(), error) {
	m.mu.Lock()
	if !m.locked {
		m.locked = true
		m.mu.Unlock()
		return m.release, nil
	}

	w := &waiter{woken: make(chan struct{}, 1)}
	m.pushBack(w)
	m.mu.Unlock()

	select {
	case <-w.woken:
		return m.release, nil
	case <-ctx.Done():
		return m.cancel(w), context.Cause(ctx)
	}
}

// TryLock attempts to acquire the mutex without suspending. It never
// queues: on contention it reports failure immediately, matching the
// "must not suspend" contract lockfree callers need from a resource that
// is otherwise async.
func (m *Mutex) TryLock() (func(), bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locked {
		return nil, false
	}
	m.locked = true
	return m.release, true
}

func (m *Mutex) release() {
	m.mu.Lock()
	next := m.popFront()
	if next == nil {
		m.locked = false
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()
	// locked stays true: ownership transfers directly to next.
	next.woken <- struct{}{}
}

// cancel handles a context cancellation race. If w is still queued, it is
// unlinked and the caller owns nothing. If w has already been popped by a
// concurrent release() (the "was already at the head and had been woken"
// case from §5), the wake is in flight or has landed; we must accept it
// and immediately pass ownership on to the next waiter rather than
// stranding the lock in a held-by-nobody state.
func (m *Mutex) cancel(w *waiter) func() {
	m.mu.Lock()
	if m.unlinkLocked(w) {
		m.mu.Unlock()
		return func() {}
	}
	m.mu.Unlock()

	// w was already dequeued and handed the token (or is about to be);
	// drain it, then immediately release on its behalf.
	<-w.woken
	m.release()
	return func() {}
}

func (m *Mutex) pushBack(w *waiter) {
	w.prev = m.tail
	if m.tail != nil {
		m.tail.next = w
	} else {
		m.head = w
	}
	m.tail = w
}

func (m *Mutex) popFront() *waiter {
	w := m.head
	if w == nil {
		return nil
	}
	m.head = w.next
	if m.head != nil {
		m.head.prev = nil
	} else {
		m.tail = nil
	}
	w.next, w.prev = nil, nil
	return w
}

// unlinkLocked removes w from the queue if it is still present, reporting
// whether it found it there. Must be called with m.mu held.
func (m *Mutex) unlinkLocked(w *waiter) bool {
	if w.prev == nil && w.next == nil && m.head != w {
		// Either never linked or already popped by release().
		return false
	}
	if w.prev != nil {
		w.prev.next = w.next
	} else if m.head == w {
		m.head = w.next
	} else {
		return false
	}
	if w.next != nil {
		w.next.prev = w.prev
	} else if m.tail == w {
		m.tail = w.prev
	}
	w.prev, w.next = nil, nil
	return true
}
