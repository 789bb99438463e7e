package phys

import "github.com/KimMachineGun/automemlimit/memlimit"

// ContainerMemoryLimit reports the cgroup memory limit the process is
// running under, if any, as a byte count suitable for sizing the region
// passed to NewAllocator. This is automemlimit's own cgroup-detection
// logic (the same library go.uber.org/automaxprocs's cgroup-quota
// detection is paired with in the pack) applied to memory instead of CPU
// count — automaxprocs sizes cpu.Runtime()'s CPU count the same way this
// sizes a physical-frame backing region. ok is false outside a cgroup (or
// on a host with no enforced limit), in which case callers should fall
// back to a caller-supplied or hardcoded region size.
func ContainerMemoryLimit() (limit uintptr, ok bool) {
	bytes, err := memlimit.FromCgroup()
	if err != nil || bytes == 0 {
		return 0, false
	}
	return uintptr(bytes), true
}
