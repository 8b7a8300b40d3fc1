package hierarchy

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"mercator-hq/callisto/pkg/audit"
	"mercator-hq/callisto/pkg/program"
	"mercator-hq/callisto/pkg/telemetry/metrics"
)

// EngineConfig contains configuration for the hierarchy engine.
type EngineConfig struct {
	// RootID is the identifier of the root node the engine creates at
	// startup.
	// Default: "root"
	RootID NodeID

	// MaxChainPrograms caps the number of programs in a single effective
	// chain. Attach operations that would exceed it fail with
	// ErrResourceExhausted. Zero disables the cap.
	// Default: 64
	MaxChainPrograms int
}

// DefaultEngineConfig returns the default engine configuration.
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		RootID:           "root",
		MaxChainPrograms: 64,
	}
}

// Engine owns the scope tree and every policy attachment in it.
//
// All mutations are serialized by one engine-wide mutex; the invariant
// checks walk ancestor chains and the propagation walks descendants, so
// concurrent writers are never safe. Readers go through Node.Effective and
// never take the mutex.
type Engine struct {
	mu    sync.Mutex
	nodes map[NodeID]*Node
	root  *Node

	// enabled counts programs attached anywhere in the tree; the filter
	// fast path skips chain lookups entirely while it is zero.
	enabled atomic.Int64

	cfg      *EngineConfig
	recorder audit.Recorder
	metrics  *metrics.HierarchyMetrics
	logger   *slog.Logger
}

// NewEngine creates an engine with a fresh root node. The recorder and
// metrics collaborators may be nil.
func NewEngine(cfg *EngineConfig, rec audit.Recorder, hm *metrics.HierarchyMetrics, logger *slog.Logger) *Engine {
	if cfg == nil {
		cfg = DefaultEngineConfig()
	}
	if cfg.RootID == "" {
		cfg.RootID = "root"
	}
	if logger == nil {
		logger = slog.Default()
	}

	root := &Node{id: cfg.RootID}
	e := &Engine{
		nodes:    map[NodeID]*Node{root.id: root},
		root:     root,
		cfg:      cfg,
		recorder: rec,
		metrics:  hm,
		logger:   logger.With("component", "hierarchy.engine"),
	}
	e.observeGauges()
	return e
}

// Root returns the root node.
func (e *Engine) Root() *Node {
	return e.root
}

// Node returns the node with the given ID.
func (e *Engine) Node(id NodeID) (*Node, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	n, ok := e.nodes[id]
	return n, ok
}

// NodeIDs returns the IDs of all live nodes.
func (e *Engine) NodeIDs() []NodeID {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]NodeID, 0, len(e.nodes))
	for id := range e.nodes {
		ids = append(ids, id)
	}
	return ids
}

// EnabledPrograms returns the number of programs attached anywhere in the
// tree. Zero means the filter path may skip all chain lookups.
func (e *Engine) EnabledPrograms() int64 {
	return e.enabled.Load()
}

// Attach attaches a program at a node for the given attach type.
//
// Validation happens before any mutation: the nearest non-multi ancestor
// with an attachment of this type must have allowed overrides, the node's
// existing slot must be compatible (no multi/non-multi mixing, no override
// mode flip in place, no duplicate program in a multi slot), and the
// recomputed chain must fit the configured program limit. On success the
// node's chain is rebuilt and propagated to every descendant that has no
// attachment of its own for this type.
//
// A non-multi attach over an existing same-mode attachment replaces it; the
// replaced program's reference is released only after propagation completes.
func (e *Engine) Attach(id NodeID, at AttachType, h program.Handle, flags AttachFlags) error {
	err := e.attach(id, at, h, flags)

	outcome := outcomeLabel(err)
	if e.metrics != nil {
		e.metrics.RecordAttach(at.String(), outcome)
	}
	e.record(audit.OpAttach, id, at, programIDs(h), flags.String(), err)
	if err != nil {
		e.logger.Warn("attach failed",
			"node", id, "attach_type", at.String(), "error", err)
		return err
	}
	e.logger.Info("program attached",
		"node", id, "attach_type", at.String(),
		"program_id", h.ID(), "flags", flags.String())
	return nil
}

func (e *Engine) attach(id NodeID, at AttachType, h program.Handle, flags AttachFlags) error {
	if !at.Valid() {
		return opError("attach", id, at, ErrInvalidAttachType)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	node, ok := e.nodes[id]
	if !ok {
		return opError("attach", id, at, ErrNodeNotFound)
	}

	overridable := flags.Has(AllowOverride)
	multi := flags.Has(AllowMulti)

	if err := hierarchyAllowsAttach(node, at); err != nil {
		return opError("attach", id, at, err)
	}

	slot := &node.slots[at]
	var replaced []program.Handle
	if !slot.empty() {
		if multi != slot.flags.Has(AllowMulti) {
			return opError("attach", id, at, ErrAttachConflict)
		}
		if multi {
			if flags != slot.flags {
				return opError("attach", id, at, ErrAttachConflict)
			}
			if slot.contains(h) {
				return opError("attach", id, at, ErrAttachConflict)
			}
		} else {
			// Flipping override mode over an existing attachment
			// is forbidden; callers must detach first.
			if node.disallowOverride[at] == overridable {
				return opError("attach", id, at, ErrPermissionDenied)
			}
			replaced = slot.programs
		}
	}

	// Commit the slot, then build. A build failure rolls the slot back
	// before anything is published, so no reader or descendant ever
	// observes the aborted attachment.
	prevPrograms, prevFlags := slot.programs, slot.flags
	prevDisallow := node.disallowOverride[at]

	h.Acquire()
	if multi {
		slot.programs = append(slot.programs[:len(slot.programs):len(slot.programs)], h)
	} else {
		slot.programs = []program.Handle{h}
	}
	slot.flags = flags
	node.disallowOverride[at] = !overridable

	chain, err := buildChain(node, at, e.cfg.MaxChainPrograms)
	if err != nil {
		slot.programs, slot.flags = prevPrograms, prevFlags
		node.disallowOverride[at] = prevDisallow
		h.Release()
		return opError("attach", id, at, err)
	}

	node.publish(at, chain)
	fanout := e.propagate(node, at, chain, !overridable)
	if chain != nil {
		chain.Release()
	}

	e.enabled.Add(1)
	for _, old := range replaced {
		e.enabled.Add(-1)
		old.Release()
	}

	if e.metrics != nil {
		e.metrics.ObservePropagation(fanout)
	}
	e.observeGauges()
	return nil
}

// Detach removes the node's attachment for the given attach type. The node
// then inherits its parent's effective chain and override mode (or the
// empty chain at the root), and the change propagates to descendants under
// the same subtree-skip rule as Attach. Detaching an empty slot fails with
// ErrNothingToDetach.
func (e *Engine) Detach(id NodeID, at AttachType) error {
	err := e.detach(id, at)

	outcome := outcomeLabel(err)
	if e.metrics != nil {
		e.metrics.RecordDetach(at.String(), outcome)
	}
	e.record(audit.OpDetach, id, at, nil, "", err)
	if err != nil {
		e.logger.Warn("detach failed",
			"node", id, "attach_type", at.String(), "error", err)
		return err
	}
	e.logger.Info("program detached", "node", id, "attach_type", at.String())
	return nil
}

func (e *Engine) detach(id NodeID, at AttachType) error {
	if !at.Valid() {
		return opError("detach", id, at, ErrInvalidAttachType)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	node, ok := e.nodes[id]
	if !ok {
		return opError("detach", id, at, ErrNodeNotFound)
	}

	slot := &node.slots[at]
	if slot.empty() {
		return opError("detach", id, at, ErrNothingToDetach)
	}

	removed := slot.programs
	slot.programs = nil
	slot.flags = 0

	// Inherit the parent's already-folded state; no ancestor walk needed.
	var chain *EffectiveChain
	disallow := false
	if node.parent != nil {
		chain = node.parent.effective[at].Load()
		disallow = node.parent.disallowOverride[at]
	}

	node.publish(at, chain)
	node.disallowOverride[at] = disallow
	fanout := e.propagate(node, at, chain, disallow)

	// Release only after propagation: chains still holding these
	// programs keep their own references, and in-flight readers keep
	// those chains alive.
	for _, h := range removed {
		e.enabled.Add(-1)
		h.Release()
	}

	if e.metrics != nil {
		e.metrics.ObservePropagation(fanout)
	}
	e.observeGauges()
	return nil
}

// propagate publishes chain and the disallow-override flag to every
// descendant of start whose own slot for at is empty. The walk is an
// iterative pre-order with an explicit stack; a descendant with its own
// attachment hides its whole subtree; that subtree manages itself.
// Publishing cannot fail, so a walk is never observed half-applied in an
// invalid state: every visited node is fully updated before the next.
func (e *Engine) propagate(start *Node, at AttachType, chain *EffectiveChain, disallow bool) int {
	stack := make([]*Node, 0, len(start.children))
	stack = append(stack, start.children...)

	visited := 0
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !n.slots[at].empty() {
			continue
		}
		n.publish(at, chain)
		n.disallowOverride[at] = disallow
		visited++
		stack = append(stack, n.children...)
	}
	return visited
}

// hierarchyAllowsAttach checks the override rule against ancestors: the
// nearest ancestor with a non-multi attachment of this type dictates
// whether descendants may attach at all, while a multi-mode ancestor
// permits anything below it.
func hierarchyAllowsAttach(node *Node, at AttachType) error {
	for p := node.parent; p != nil; p = p.parent {
		slot := &p.slots[at]
		if slot.flags.Has(AllowMulti) {
			return nil
		}
		if !slot.empty() {
			if slot.flags.Has(AllowOverride) {
				return nil
			}
			return ErrPermissionDenied
		}
	}
	return nil
}

// EffectiveProgramIDs returns the program IDs of the node's current
// effective chain in execution order. Introspection helper for the admin
// surface; it reads through the same lock-free path as the filter.
func (e *Engine) EffectiveProgramIDs(id NodeID, at AttachType) ([]string, error) {
	if !at.Valid() {
		return nil, opError("read", id, at, ErrInvalidAttachType)
	}
	node, ok := e.Node(id)
	if !ok {
		return nil, opError("read", id, at, ErrNodeNotFound)
	}

	chain := node.Effective(at)
	if chain == nil {
		return nil, nil
	}
	defer chain.Release()

	ids := make([]string, 0, chain.Len())
	for _, h := range chain.Programs() {
		ids = append(ids, h.ID())
	}
	return ids, nil
}

// record writes an audit event, best effort.
func (e *Engine) record(op audit.Operation, id NodeID, at AttachType, programs []string, flags string, opErr error) {
	if e.recorder == nil {
		return
	}
	ev := audit.NewEvent(op, string(id))
	if at.Valid() {
		ev.AttachType = at.String()
	}
	ev.Programs = programs
	ev.Flags = flags
	ev.Outcome = outcomeLabel(opErr)
	if opErr != nil {
		ev.Detail = opErr.Error()
	}
	if err := e.recorder.Record(context.Background(), ev); err != nil {
		e.logger.Error("audit record failed", "op", string(op), "error", err)
	}
}

// observeGauges refreshes the node and enabled-program gauges. Caller may
// or may not hold the engine mutex; both values are monotonic snapshots.
func (e *Engine) observeGauges() {
	if e.metrics == nil {
		return
	}
	e.metrics.SetEnabledPrograms(e.enabled.Load())
	e.metrics.SetNodes(len(e.nodes))
}

// outcomeLabel maps an operation result to a low-cardinality label shared
// by metrics and audit records.
func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, ErrAttachConflict):
		return "conflict"
	case errors.Is(err, ErrNothingToDetach):
		return "nothing_to_detach"
	case errors.Is(err, ErrResourceExhausted):
		return "resource_exhausted"
	case errors.Is(err, ErrNodeNotFound):
		return "node_not_found"
	case errors.Is(err, ErrNodeExists):
		return "node_exists"
	default:
		return "error"
	}
}

// programIDs collects handle IDs, tolerating nil handles.
func programIDs(handles ...program.Handle) []string {
	ids := make([]string, 0, len(handles))
	for _, h := range handles {
		if h != nil {
			ids = append(ids, h.ID())
		}
	}
	return ids
}
