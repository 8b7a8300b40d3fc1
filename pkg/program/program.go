package program

import "context"

// VerdictPass is the only verdict the filter layer treats as "allow".
// Any other value returned by a program, including error paths inside the
// runtime, is a deny.
const VerdictPass = 1

// Handle is an opaque reference to a loaded policy program.
//
// Handles are reference counted. The hierarchy core takes one reference per
// attachment and one per effective-chain entry, and releases them when the
// slot is detached or the chain drains its last reader. A handle must remain
// invocable until its last reference is released.
type Handle interface {
	// ID returns a stable identifier for the program, used in logs,
	// metrics labels and audit records.
	ID() string

	// Acquire takes an additional reference to the program.
	Acquire()

	// Release drops a reference. Once the count reaches zero the program
	// may be unloaded; the handle must not be invoked afterwards.
	Release()
}

// Runtime executes programs against filtering events.
//
// Invoke runs the program identified by h against the caller-supplied event
// and returns its integer verdict. The filter layer compares the result
// against VerdictPass and nothing else; runtimes that need to signal
// execution failure should return a non-pass verdict.
type Runtime interface {
	Invoke(ctx context.Context, h Handle, event any) int
}
