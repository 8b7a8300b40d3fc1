package program

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// VerdictFunc computes a verdict for a filtering event.
type VerdictFunc func(ctx context.Context, event any) int

// Func is a policy program backed by a Go function. It is the reference
// program implementation used by the daemon, tests and examples; production
// deployments may substitute any Handle/Runtime pair.
type Func struct {
	id     string
	fn     VerdictFunc
	refs   atomic.Int64
	onZero func()
}

// NewFunc creates a function-backed program with a single reference held by
// the caller.
func NewFunc(id string, fn VerdictFunc) *Func {
	f := &Func{id: id, fn: fn}
	f.refs.Store(1)
	return f
}

// NewStatic creates a program that always returns verdict.
func NewStatic(id string, verdict int) *Func {
	return NewFunc(id, func(context.Context, any) int { return verdict })
}

// ID returns the program identifier.
func (f *Func) ID() string { return f.id }

// Acquire takes an additional reference.
func (f *Func) Acquire() {
	f.refs.Add(1)
}

// Release drops a reference, running the zero-reference hook on the last one.
func (f *Func) Release() {
	n := f.refs.Add(-1)
	if n < 0 {
		slog.Error("program reference count went negative", "program_id", f.id, "refs", n)
		return
	}
	if n == 0 && f.onZero != nil {
		f.onZero()
	}
}

// Refs returns the current reference count. Intended for tests and
// introspection, not for synchronization.
func (f *Func) Refs() int64 {
	return f.refs.Load()
}

// FuncRuntime executes Func programs.
type FuncRuntime struct{}

// NewFuncRuntime creates the reference runtime.
func NewFuncRuntime() *FuncRuntime {
	return &FuncRuntime{}
}

// Invoke runs a Func program. Handles of any other type are denied; the
// filter layer does not distinguish execution errors from deny verdicts.
func (r *FuncRuntime) Invoke(ctx context.Context, h Handle, event any) int {
	f, ok := h.(*Func)
	if !ok {
		return 0
	}
	return f.fn(ctx, event)
}
