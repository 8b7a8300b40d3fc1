package hierarchy

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	// ErrPermissionDenied indicates the attachment is incompatible with
	// the override mode enforced by an ancestor, or would flip the
	// override mode of an existing attachment in place.
	ErrPermissionDenied = errors.New("attach not permitted by override policy")

	// ErrAttachConflict indicates the node's existing attachment for this
	// type cannot coexist with the request (multi/non-multi mixing,
	// flag mismatch, or a duplicate program in a multi slot).
	ErrAttachConflict = errors.New("conflicting attachment at node")

	// ErrNothingToDetach indicates detach was called on an empty slot.
	ErrNothingToDetach = errors.New("nothing to detach")

	// ErrResourceExhausted indicates the recomputed effective chain would
	// exceed the configured program limit. The requested operation is
	// aborted; prior state remains in effect.
	ErrResourceExhausted = errors.New("effective chain program limit exceeded")

	// ErrInvalidAttachType indicates an out-of-range attach type.
	ErrInvalidAttachType = errors.New("invalid attach type")

	// ErrNodeNotFound indicates the referenced node does not exist.
	ErrNodeNotFound = errors.New("node not found")

	// ErrNodeExists indicates a node with the requested ID already exists.
	ErrNodeExists = errors.New("node already exists")

	// ErrDestroyRoot indicates an attempt to destroy the root node; the
	// root lives as long as the engine.
	ErrDestroyRoot = errors.New("cannot destroy root node")
)

// OpError decorates an engine failure with the operation, node and attach
// type it applies to.
type OpError struct {
	Op   string
	Node NodeID
	Type AttachType
	Err  error
}

// Error returns the error message.
func (e *OpError) Error() string {
	return fmt.Sprintf("%s %s/%s: %v", e.Op, e.Node, e.Type, e.Err)
}

// Unwrap returns the underlying cause.
func (e *OpError) Unwrap() error {
	return e.Err
}

// opError wraps err with operation context, passing nil through.
func opError(op string, node NodeID, at AttachType, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Op: op, Node: node, Type: at, Err: err}
}
