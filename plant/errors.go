package plant

import (
	"fmt"

	"github.com/pthm-cable/arbor/components"
)

// ValidationError reports a malformed structural edit, such as a duplicate
// metamer identity or a reference to a parent that does not exist. It is
// always surfaced to the caller, never silently corrected.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid structural edit: " + e.Reason
}

// NotFoundError reports an operation referencing an unknown metamer identity.
type NotFoundError struct {
	ID components.MetamerID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("metamer %d not found", e.ID)
}

// StateError reports an operation invoked on a tree that cannot satisfy it,
// such as stepping a tree with no metamers at all.
type StateError struct {
	Reason string
}

func (e *StateError) Error() string {
	return "invalid tree state: " + e.Reason
}
