package conversation

import "github.com/pkg/errors"

// Reducer errors. They are informational: whenever Reduce returns one of
// them, the returned state is the unchanged input state.
var (
	// ErrNotFound is returned when an action references a node or message
	// that is not part of the tree.
	ErrNotFound = errors.New("not found")
	// ErrInvalidOperation is returned for structurally disallowed actions,
	// like deleting the root.
	ErrInvalidOperation = errors.New("invalid operation")
	// ErrCycleDetected is returned by ancestry walks over a malformed tree
	// whose parent links loop.
	ErrCycleDetected = errors.New("cycle detected")
	// ErrInvalidTree is returned by Validate.
	ErrInvalidTree = errors.New("invalid tree")
)
