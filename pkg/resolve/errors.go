package resolve

import (
	"fmt"
	"strings"
)

// Chain is the path of artifact identities from a declared dependency
// down to the artifact an error is about.
type Chain []string

func (c Chain) String() string { return strings.Join(c, " -> ") }

// CycleError reports a dependency cycle. It carries the full chain,
// ending with the identity that closed the cycle.
type CycleError struct {
	Chain Chain
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle: %s", e.Chain)
}

// ResolutionError reports a dependency that cannot be resolved: no
// version satisfies the constraints on the chain that reached it, or
// its metadata could not be fetched. Cause is nil for pure constraint
// failures.
type ResolutionError struct {
	Coordinate string
	Chain      Chain
	Reason     string
	Cause      error
}

func (e *ResolutionError) Error() string {
	msg := fmt.Sprintf("cannot resolve %s: %s", e.Coordinate, e.Reason)
	if len(e.Chain) > 0 {
		msg += fmt.Sprintf(" (via %s)", e.Chain)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *ResolutionError) Unwrap() error { return e.Cause }
