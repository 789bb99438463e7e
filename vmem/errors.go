package vmem

import "fmt"

// InvariantError reports a caller bug that would corrupt arena
// bookkeeping if allowed to proceed — spec.md's "invariant
// violation/caller bug: fatal" category. These are panics, not errors,
// because there is no sane recovery: the arena's internal structures
// would already be inconsistent by the time the condition is detected.
type InvariantError struct {
	Msg string
}

func (e *InvariantError) Error() string { return fmt.Sprintf("vmem: invariant violation: %s", e.Msg) }

func invariantf(format string, args ...any) {
	panic(&InvariantError{Msg: fmt.Sprintf(format, args...)})
}
