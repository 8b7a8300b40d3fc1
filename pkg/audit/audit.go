package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Operation is the kind of control-plane mutation an event records.
type Operation string

const (
	OpAttach      Operation = "attach"
	OpDetach      Operation = "detach"
	OpNodeCreate  Operation = "node_create"
	OpNodeDestroy Operation = "node_destroy"
)

// Event is one recorded control-plane operation.
type Event struct {
	// ID is a generated unique event identifier.
	ID string

	// Time is when the operation completed.
	Time time.Time

	// Op is the operation kind.
	Op Operation

	// Node is the target node ID.
	Node string

	// AttachType is the attach type for attach/detach operations, empty
	// for node lifecycle operations.
	AttachType string

	// Programs holds the program IDs involved, if any.
	Programs []string

	// Flags is the rendered attach flag set, if any.
	Flags string

	// Outcome is the low-cardinality result label ("ok",
	// "permission_denied", "conflict", ...).
	Outcome string

	// Detail carries the error message for failed operations.
	Detail string
}

// NewEvent creates an event with a generated ID and the current time.
func NewEvent(op Operation, node string) *Event {
	return &Event{
		ID:   uuid.NewString(),
		Time: time.Now().UTC(),
		Op:   op,
		Node: node,
	}
}

// Recorder persists audit events.
type Recorder interface {
	// Record stores one event.
	Record(ctx context.Context, ev *Event) error

	// Close releases the recorder's resources.
	Close() error
}

// QueryFilter narrows a Query call. Zero values mean "no constraint".
type QueryFilter struct {
	// Node restricts results to one node ID.
	Node string

	// Op restricts results to one operation kind.
	Op Operation

	// Since and Until bound the event time, inclusive since, exclusive
	// until.
	Since time.Time
	Until time.Time

	// Limit caps the number of returned events; zero applies the
	// recorder's default.
	Limit int
}

// Querier is implemented by recorders that support reading events back,
// newest first.
type Querier interface {
	Query(ctx context.Context, f QueryFilter) ([]*Event, error)
}
