package hierarchy

import (
	"sync/atomic"

	"mercator-hq/callisto/pkg/program"
)

// EffectiveChain is the immutable ordered sequence of programs that run for
// one (node, attach type). Chains are built once per recomputation, never
// mutated, and replaced wholesale; a chain holds one program reference per
// entry, dropped when the chain's own reference count drains to zero.
//
// The reference count covers every node slot the chain is published in plus
// every in-flight reader. The nil chain stands for "no policy" and is
// always a pass.
type EffectiveChain struct {
	programs []program.Handle
	refs     atomic.Int64
}

// newChain wraps progs, which must already carry one acquired reference per
// entry. The returned chain holds a single creator reference.
func newChain(progs []program.Handle) *EffectiveChain {
	c := &EffectiveChain{programs: progs}
	c.refs.Store(1)
	return c
}

// Programs returns the chain's programs in execution order. The slice is
// owned by the chain and must not be modified; it stays valid while the
// caller holds a reference.
func (c *EffectiveChain) Programs() []program.Handle {
	return c.programs
}

// Len returns the number of programs in the chain.
func (c *EffectiveChain) Len() int {
	return len(c.programs)
}

// acquire takes a reference. Writer-side only, while the chain is known
// live (under the engine mutex).
func (c *EffectiveChain) acquire() {
	c.refs.Add(1)
}

// tryAcquire takes a reference unless the count has already drained to
// zero. Readers must use this: a drained chain may have released its
// program references and must never be resurrected.
func (c *EffectiveChain) tryAcquire() bool {
	for {
		n := c.refs.Load()
		if n == 0 {
			return false
		}
		if c.refs.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// Release drops a reference. The last release returns the chain's program
// references to the runtime.
func (c *EffectiveChain) Release() {
	if c.refs.Add(-1) != 0 {
		return
	}
	for _, h := range c.programs {
		h.Release()
	}
}
