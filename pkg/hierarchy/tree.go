package hierarchy

import (
	"mercator-hq/callisto/pkg/audit"
)

// CreateNode creates a child scope under parentID. The new node inherits
// the parent's published effective chain and override mode for every attach
// type directly; the parent's state is already the correctly folded
// ancestor view, so no ancestor walk is needed.
func (e *Engine) CreateNode(id, parentID NodeID) (*Node, error) {
	e.mu.Lock()

	var node *Node
	err := func() error {
		if _, exists := e.nodes[id]; exists {
			return &OpError{Op: "create", Node: id, Err: ErrNodeExists}
		}
		parent, ok := e.nodes[parentID]
		if !ok {
			return &OpError{Op: "create", Node: parentID, Err: ErrNodeNotFound}
		}

		node = &Node{id: id, parent: parent}
		for _, at := range AttachTypes() {
			node.publish(at, parent.effective[at].Load())
			node.disallowOverride[at] = parent.disallowOverride[at]
		}
		parent.children = append(parent.children, node)
		e.nodes[id] = node
		return nil
	}()
	e.observeGauges()
	e.mu.Unlock()

	e.record(audit.OpNodeCreate, id, -1, nil, "", err)
	if err != nil {
		e.logger.Warn("node create failed", "node", id, "parent", parentID, "error", err)
		return nil, err
	}
	e.logger.Info("node created", "node", id, "parent", parentID)
	return node, nil
}

// DestroyNode removes a node and its entire subtree, releasing every
// attached program reference and every published chain reference held by
// the destroyed nodes. Readers holding chains acquired from a destroyed
// node keep a fully-formed chain until they release it. The root cannot be
// destroyed; use Close to tear down the engine.
func (e *Engine) DestroyNode(id NodeID) error {
	e.mu.Lock()

	err := func() error {
		node, ok := e.nodes[id]
		if !ok {
			return &OpError{Op: "destroy", Node: id, Err: ErrNodeNotFound}
		}
		if node == e.root {
			return &OpError{Op: "destroy", Node: id, Err: ErrDestroyRoot}
		}
		node.parent.removeChild(node)
		node.parent = nil
		e.releaseSubtree(node)
		return nil
	}()
	e.observeGauges()
	e.mu.Unlock()

	e.record(audit.OpNodeDestroy, id, -1, nil, "", err)
	if err != nil {
		e.logger.Warn("node destroy failed", "node", id, "error", err)
		return err
	}
	e.logger.Info("node destroyed", "node", id)
	return nil
}

// Close releases every attachment and published chain in the tree,
// including the root's. The engine must not be used afterwards.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.root != nil {
		e.releaseSubtree(e.root)
		e.root = nil
	}
	e.observeGauges()
	e.mu.Unlock()

	e.logger.Info("engine closed")
	return nil
}

// releaseSubtree tears down node and all descendants with an explicit
// stack: slot references are released (decrementing the enabled counter per
// program) and chain pointers cleared. Must hold the engine mutex.
func (e *Engine) releaseSubtree(node *Node) {
	stack := []*Node{node}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, at := range AttachTypes() {
			slot := &n.slots[at]
			for _, h := range slot.programs {
				e.enabled.Add(-1)
				h.Release()
			}
			slot.programs = nil
			slot.flags = 0
			n.publish(at, nil)
		}
		delete(e.nodes, n.id)
		stack = append(stack, n.children...)
		n.children = nil
	}
}
