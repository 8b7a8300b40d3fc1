package filter

import (
	"context"
	"time"

	"mercator-hq/callisto/pkg/hierarchy"
	"mercator-hq/callisto/pkg/program"
	"mercator-hq/callisto/pkg/telemetry/metrics"
)

// Verdict is the outcome of running a node's effective chain.
type Verdict int

const (
	// Allow means every program passed, or no policy applies.
	Allow Verdict = iota

	// Deny means some program returned a non-pass verdict.
	Deny
)

// String returns the verdict label.
func (v Verdict) String() string {
	if v == Allow {
		return "allow"
	}
	return "deny"
}

// Invoker runs effective chains against filtering events.
type Invoker struct {
	engine  *hierarchy.Engine
	runtime program.Runtime
	metrics *metrics.FilterMetrics
}

// NewInvoker creates an invoker over the engine's tree. The metrics
// collaborator may be nil.
func NewInvoker(engine *hierarchy.Engine, runtime program.Runtime, fm *metrics.FilterMetrics) *Invoker {
	return &Invoker{
		engine:  engine,
		runtime: runtime,
		metrics: fm,
	}
}

// Run executes the node's effective chain for the given attach type against
// event and returns the verdict.
//
// Run is safe to call concurrently with attach and detach: it reads an
// immutable chain snapshot through the node's published pointer. A call
// racing a mutation sees either the old chain or the new one, complete in
// both cases. While no program is attached anywhere in the tree, Run
// returns Allow without touching the node at all.
func (i *Invoker) Run(ctx context.Context, node *hierarchy.Node, at hierarchy.AttachType, event any) Verdict {
	if i.engine.EnabledPrograms() == 0 {
		return Allow
	}

	start := time.Now()
	verdict, executed := i.run(ctx, node, at, event)
	if i.metrics != nil {
		i.metrics.RecordRun(at.String(), verdict.String(), executed, time.Since(start))
	}
	return verdict
}

func (i *Invoker) run(ctx context.Context, node *hierarchy.Node, at hierarchy.AttachType, event any) (Verdict, int) {
	chain := node.Effective(at)
	if chain == nil {
		return Allow, 0
	}
	defer chain.Release()

	executed := 0
	for _, h := range chain.Programs() {
		executed++
		if i.runtime.Invoke(ctx, h, event) != program.VerdictPass {
			return Deny, executed
		}
	}
	return Allow, executed
}
