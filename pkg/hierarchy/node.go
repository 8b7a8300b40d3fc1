package hierarchy

import (
	"slices"
	"sync/atomic"

	"mercator-hq/callisto/pkg/program"
)

// programSlot is one attach type's locally attached state at a node.
// A slot holds at most one program unless its flags carry AllowMulti.
type programSlot struct {
	programs []program.Handle
	flags    AttachFlags
}

// empty reports whether the slot has no attached program.
func (s *programSlot) empty() bool {
	return len(s.programs) == 0
}

// contains reports whether h is already attached in this slot.
func (s *programSlot) contains(h program.Handle) bool {
	return slices.Contains(s.programs, h)
}

// Node is a vertex in the scope tree. Nodes are created and destroyed only
// through the Engine; the tree structure and slot state are mutated only
// under the engine mutex, while the published effective chains are safe for
// concurrent lock-free reads.
type Node struct {
	id       NodeID
	parent   *Node
	children []*Node

	slots            [attachTypeCount]programSlot
	effective        [attachTypeCount]atomic.Pointer[EffectiveChain]
	disallowOverride [attachTypeCount]bool
}

// ID returns the node's identifier.
func (n *Node) ID() NodeID {
	return n.id
}

// Effective returns an acquired reference to the currently published chain
// for at, or nil when no policy applies. The caller must Release the chain
// when done. Effective never blocks and never takes the engine mutex; a
// concurrent attach or detach either leaves the caller on the old
// fully-formed chain or hands it the new one.
func (n *Node) Effective(at AttachType) *EffectiveChain {
	if !at.Valid() {
		return nil
	}
	for {
		c := n.effective[at].Load()
		if c == nil {
			return nil
		}
		if c.tryAcquire() {
			return c
		}
		// The chain drained between the load and the acquire; the
		// writer that drained it has already published a successor.
	}
}

// publish swaps the node's chain pointer for at, taking a reference on the
// new chain and dropping the store's reference on the old one. Writer-side
// only.
func (n *Node) publish(at AttachType, c *EffectiveChain) {
	if c != nil {
		c.acquire()
	}
	old := n.effective[at].Swap(c)
	if old != nil {
		old.Release()
	}
}

// removeChild unlinks child from n. Writer-side only.
func (n *Node) removeChild(child *Node) {
	for i, c := range n.children {
		if c == child {
			n.children = slices.Delete(n.children, i, i+1)
			return
		}
	}
}
