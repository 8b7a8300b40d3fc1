package hierarchy

import (
	"fmt"

	"mercator-hq/callisto/pkg/program"
)

// countEffective walks from node to the root and counts the programs that
// contribute to node's effective chain. A level contributes while nothing
// has contributed yet, or when it attached in multi mode; every level is
// visited regardless: a non-multi ancestor does not stop the walk, it just
// stops contributing once the count is non-zero.
func countEffective(node *Node, at AttachType) int {
	cnt := 0
	for p := node; p != nil; p = p.parent {
		if cnt == 0 || p.slots[at].flags.Has(AllowMulti) {
			cnt += len(p.slots[at].programs)
		}
	}
	return cnt
}

// buildChain computes the effective chain for (node, at): a counting pass
// sizes the array, a second identical traversal fills it. Programs are
// ordered root-to-leaf: contributing ancestors run before the node's own
// programs, so policies may rely on cumulative state set upstream.
//
// Returns nil for a zero-length chain (no policy, treated as pass) and
// ErrResourceExhausted when the chain would exceed maxPrograms. Must be
// called under the engine mutex; the slot state must not change between the
// two passes.
func buildChain(node *Node, at AttachType, maxPrograms int) (*EffectiveChain, error) {
	cnt := countEffective(node, at)
	if cnt == 0 {
		return nil, nil
	}
	if maxPrograms > 0 && cnt > maxPrograms {
		return nil, fmt.Errorf("%w: chain needs %d programs, limit %d",
			ErrResourceExhausted, cnt, maxPrograms)
	}

	// Fill leaf-to-root into the tail of the array so ancestors land
	// first, preserving local attach order within each level.
	progs := make([]program.Handle, cnt)
	i := cnt
	for p := node; p != nil; p = p.parent {
		if i == cnt || p.slots[at].flags.Has(AllowMulti) {
			local := p.slots[at].programs
			i -= copy(progs[i-len(local):i], local)
		}
	}
	if i != 0 {
		// The two passes disagreed; impossible without concurrent
		// slot mutation, which the engine mutex excludes.
		return nil, fmt.Errorf("%w: chain fill left %d slots unassigned",
			ErrResourceExhausted, i)
	}

	for _, h := range progs {
		h.Acquire()
	}
	return newChain(progs), nil
}
