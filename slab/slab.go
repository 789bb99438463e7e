// Package slab implements a per-CPU caching allocator that amortizes
// access to a slower backing allocator via short lock-free per-CPU caches
// and a single shared reserve, per SPEC_FULL.md §5.2.
//
// The design mirrors the two-tier cache the Go runtime itself uses for
// small-object allocation (per-P mcache backed by a shared mcentral, see
// _examples/other_examples/...mcache.go.go and .../mcentral.go.go) and
// sync.Pool's per-P-list-plus-shared-pool shape
// (_examples/other_examples/64e55c0f_yaofei517-go__src-sync-pool.go.go),
// generalized to the spec's explicit N (shared capacity) and L (per-CPU
// capacity) limits and an async backing capability instead of GC-driven
// eviction.
package slab

import (
	"context"

	"github.com/lylythechosenone/kraken/asyncmutex"
	"github.com/lylythechosenone/kraken/cpu"
)

// Backing is the capability a Slab draws from once its own caches are
// exhausted: spec.md §4.2's "A" type parameter, realized as a Go
// interface rather than a generic type parameter because the Slab itself
// already needs to be generic over Item — Go does not support
// higher-kinded generics (a type parameterized by a generic interface
// parameterized by the same Item), so Backing is expressed directly in
// terms of Item instead of being its own independently-generic parameter.
type Backing[Item any] interface {
	Alloc(ctx context.Context) (Item, bool)
	Free(ctx context.Context, item Item)
}

// Slab is a per-CPU caching allocator over Item. N and L — spec.md's
// compile-time generic capacities — are constructor arguments here: Go
// has no const generics, and the teacher's own per-size-class tables are
// likewise sized by runtime constants rather than type parameters, so
// this is a direct idiom match rather than a deviation.
type Slab[Item any] struct {
	cpus    cpu.Context
	backing Backing[Item]

	mu        asyncmutex.Mutex
	shared    []Item
	sharedCap int
	perCPU    [][]Item
	perCPUCap int
}

// New constructs a Slab whose shared reserve holds at most sharedCap
// items and whose per-CPU caches hold at most perCPUCap items each, one
// cache per cpus.NumCPUs().
func New[Item any](backing Backing[Item], cpus cpu.Context, sharedCap, perCPUCap int) *Slab[Item] {
	return &Slab[Item]{
		cpus:      cpus,
		backing:   backing,
		shared:    make([]Item, 0, sharedCap),
		sharedCap: sharedCap,
		perCPU:    make([][]Item, cpus.NumCPUs()),
		perCPUCap: perCPUCap,
	}
}

// AllocLockfree pops from the caller's per-CPU cache. It never suspends
// and never touches shared state; ok is false if the caller's cache is
// empty. The caller must be pinned to a single logical CPU for the
// duration of this call (see package cpu's doc comment).
func (s *Slab[Item]) AllocLockfree(ctx context.Context) (item Item, ok bool) {
	id := s.cpus.CPUID(ctx)
	lst := s.perCPU[id]
	if len(lst) == 0 {
		return item, false
	}
	item = lst[len(lst)-1]
	s.perCPU[id] = lst[:len(lst)-1]
	return item, true
}

// FreeLockfree pushes item into the caller's per-CPU cache. It reports
// ok=false if the cache is already at capacity L, in which case it does
// not take ownership of item — the caller still holds it and is
// responsible for falling back to Free.
func (s *Slab[Item]) FreeLockfree(ctx context.Context, item Item) (ok bool) {
	id := s.cpus.CPUID(ctx)
	lst := s.perCPU[id]
	if len(lst) >= s.perCPUCap {
		return false
	}
	s.perCPU[id] = append(lst, item)
	return true
}

// Alloc tries the lock-free per-CPU path first; on a miss it acquires the
// shared mutex, pops from the shared reserve if non-empty, and otherwise
// calls through to the backing allocator.
func (s *Slab[Item]) Alloc(ctx context.Context) (item Item, ok bool) {
	if item, ok = s.AllocLockfree(ctx); ok {
		return item, true
	}

	release, err := s.mu.Lock(ctx)
	if err != nil {
		return item, false
	}
	defer release()

	if n := len(s.shared); n > 0 {
		item = s.shared[n-1]
		s.shared = s.shared[:n-1]
		return item, true
	}
	return s.backing.Alloc(ctx)
}

// Free tries the lock-free per-CPU path first; on overflow it acquires
// the shared mutex and pushes to the shared reserve if there is room,
// re-tries the per-CPU cache (capacity may have changed since the
// lock-free attempt — spec.md §4.2's free() explicitly re-checks it under
// the lock), and finally falls back to the backing allocator.
func (s *Slab[Item]) Free(ctx context.Context, item Item) {
	if s.FreeLockfree(ctx, item) {
		return
	}

	release, err := s.mu.Lock(ctx)
	if err != nil {
		// Nothing to clean up: item is an ordinary Go value still held by
		// the caller, who can retry once the context allows.
		return
	}
	defer release()

	if len(s.shared) < s.sharedCap {
		s.shared = append(s.shared, item)
		return
	}
	if s.FreeLockfree(ctx, item) {
		return
	}
	s.backing.Free(ctx, item)
}

// Restock fills the shared reserve toward its capacity by repeatedly
// calling the backing allocator, then refills the caller's per-CPU cache
// the same way. Each phase stops at the backing allocator's first
// failure; a failure in the shared phase does not prevent the per-CPU
// phase from being attempted.
func (s *Slab[Item]) Restock(ctx context.Context) error {
	release, err := s.mu.Lock(ctx)
	if err != nil {
		return err
	}
	defer release()

	for len(s.shared) < s.sharedCap {
		item, ok := s.backing.Alloc(ctx)
		if !ok {
			break
		}
		s.shared = append(s.shared, item)
	}

	id := s.cpus.CPUID(ctx)
	for len(s.perCPU[id]) < s.perCPUCap {
		item, ok := s.backing.Alloc(ctx)
		if !ok {
			break
		}
		s.perCPU[id] = append(s.perCPU[id], item)
	}
	return nil
}

// AllocOrRestock tries Alloc; on exhaustion it restocks both caches from
// the backing allocator and tries Alloc exactly once more.
func (s *Slab[Item]) AllocOrRestock(ctx context.Context) (Item, bool) {
	if item, ok := s.Alloc(ctx); ok {
		return item, true
	}
	_ = s.Restock(ctx)
	return s.Alloc(ctx)
}

// AllocShortcircuiting tries the lock-free per-CPU path, then calls the
// backing allocator directly under the shared lock, bypassing the shared
// reserve entirely. It is for callers that will replenish the reserve
// themselves later and want to avoid draining it on the way.
func (s *Slab[Item]) AllocShortcircuiting(ctx context.Context) (item Item, ok bool) {
	if item, ok = s.AllocLockfree(ctx); ok {
		return item, true
	}

	release, err := s.mu.Lock(ctx)
	if err != nil {
		return item, false
	}
	defer release()
	return s.backing.Alloc(ctx)
}
