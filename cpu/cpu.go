// Package cpu supplies the CpuContext capability the rest of the memory
// core consumes: how many logical CPUs exist, and which one the calling
// goroutine is currently pinned to.
//
// Go has no thread-local storage and no notion of "the current CPU" for a
// goroutine (the scheduler may migrate a goroutine between Ms/Ps between
// any two instructions), so the pinning the spec requires ("cpu_id must
// not cross-migrate within a single lockfree op") is modeled explicitly:
// callers that want per-CPU affinity for a lockfree section carry a
// context.Context that has been tagged with cpu.Pin, and are responsible
// for not yielding the goroutine to another OS thread mid-section (e.g. by
// calling runtime.LockOSThread, or simply by the fact that a single
// lockfree call never blocks).
package cpu

import (
	"context"
	"runtime"

	"go.uber.org/automaxprocs/maxprocs"
)

func init() {
	// Best-effort: clamp GOMAXPROCS to the container/cgroup CPU quota so
	// Runtime().NumCPUs() reflects what the scheduler will actually give
	// us rather than the host's full core count. Errors (e.g. running
	// outside a cgroup) are not fatal to a memory-management library.
	_, _ = maxprocs.Set()
}

// Context exposes the two primitives the slab cache needs: the number of
// per-CPU cache slots to keep, and which slot the current caller owns.
type Context interface {
	// NumCPUs returns the number of logical CPUs the caller may be pinned
	// to. Stable for the lifetime of any Slab constructed against it.
	NumCPUs() int
	// CPUID returns the logical CPU id the ctx is pinned to, in
	// [0, NumCPUs()).
	CPUID(ctx context.Context) int
}

type runtimeContext struct{}

// Runtime returns a Context backed by the Go scheduler's GOMAXPROCS, which
// this package's init (above) has already clamped to the host/container
// CPU quota via go.uber.org/automaxprocs's maxprocs.Set. CPUID reads
// the pin installed on ctx by Pin; a context with no pin is treated as
// CPU 0, matching a single-threaded caller.
func Runtime() Context { return runtimeContext{} }

func (runtimeContext) NumCPUs() int { return runtime.GOMAXPROCS(0) }

func (runtimeContext) CPUID(ctx context.Context) int {
	return pinned(ctx)
}

type pinKey struct{}

// Pin returns a derived context recording that the calling goroutine is
// to be treated as logical CPU id for the duration of any lockfree
// section driven from it. The caller must not let two goroutines race on
// lockfree operations using contexts pinned to the same id concurrently.
func Pin(ctx context.Context, id int) context.Context {
	return context.WithValue(ctx, pinKey{}, id)
}

func pinned(ctx context.Context) int {
	if id, ok := ctx.Value(pinKey{}).(int); ok {
		return id
	}
	return 0
}

// Static returns a fixed-size Context useful for tests: NumCPUs is fixed
// at construction and CPUID simply reads whatever Pin attached to ctx.
func Static(n int) Context { return staticContext{n: n} }

type staticContext struct{ n int }

func (s staticContext) NumCPUs() int                  { return s.n }
func (s staticContext) CPUID(ctx context.Context) int { return pinned(ctx) }
