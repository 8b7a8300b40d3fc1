package manifest

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"mercator-hq/callisto/pkg/hierarchy"
	"mercator-hq/callisto/pkg/program"
)

// attachmentKey identifies one slot the applier manages.
type attachmentKey struct {
	node hierarchy.NodeID
	at   hierarchy.AttachType
}

// attachmentState is the applier's view of what one slot should hold.
type attachmentState struct {
	program string
	flags   hierarchy.AttachFlags
}

// Applier reconciles the hierarchy engine against manifests. It tracks
// what it created so a later apply can remove nodes and attachments that
// disappeared from the manifest; nodes and attachments made outside the
// applier are never touched.
type Applier struct {
	engine   *hierarchy.Engine
	resolver program.Resolver
	logger   *slog.Logger

	mu         sync.Mutex
	ownedNodes map[hierarchy.NodeID]bool
	ownedSlots map[attachmentKey][]attachmentState
}

// NewApplier creates an applier over the given engine and program resolver.
func NewApplier(engine *hierarchy.Engine, resolver program.Resolver, logger *slog.Logger) *Applier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Applier{
		engine:     engine,
		resolver:   resolver,
		logger:     logger.With("component", "manifest.applier"),
		ownedNodes: make(map[hierarchy.NodeID]bool),
		ownedSlots: make(map[attachmentKey][]attachmentState),
	}
}

// Apply reconciles the engine against m. Nodes are created parents-first,
// nodes owned by the applier but absent from m are destroyed, and any slot
// whose desired attachment set changed is detached and re-attached in
// manifest order. The engine keeps every mutation atomic, so a failed
// apply leaves the tree in a valid (partially reconciled) state; the
// applier's ownership book only records what actually took effect.
func (ap *Applier) Apply(m *Manifest) error {
	ap.mu.Lock()
	defer ap.mu.Unlock()

	var errs []error

	desired, err := m.topoOrder()
	if err != nil {
		return err
	}
	root := ap.engine.Root().ID()

	// Create missing nodes.
	inManifest := make(map[hierarchy.NodeID]bool, len(desired))
	for _, n := range desired {
		id := hierarchy.NodeID(n.ID)
		inManifest[id] = true

		parent := root
		if n.Parent != "" {
			parent = hierarchy.NodeID(n.Parent)
		}
		if _, ok := ap.engine.Node(id); ok {
			continue
		}
		if _, err := ap.engine.CreateNode(id, parent); err != nil {
			errs = append(errs, fmt.Errorf("create %s: %w", id, err))
			continue
		}
		ap.ownedNodes[id] = true
	}

	// Destroy owned nodes that left the manifest. DestroyNode removes
	// whole subtrees, so destroying a parent disposes of its removed
	// children too.
	for id := range ap.ownedNodes {
		if inManifest[id] {
			continue
		}
		if err := ap.engine.DestroyNode(id); err != nil && !errors.Is(err, hierarchy.ErrNodeNotFound) {
			errs = append(errs, fmt.Errorf("destroy %s: %w", id, err))
			continue
		}
		delete(ap.ownedNodes, id)
		for key := range ap.ownedSlots {
			if key.node == id {
				delete(ap.ownedSlots, key)
			}
		}
	}

	// Group desired attachments per slot, in manifest order.
	want := make(map[attachmentKey][]attachmentState)
	specs := make(map[attachmentKey][]AttachmentSpec)
	for _, a := range m.Attachments {
		at, err := hierarchy.ParseAttachType(a.AttachType)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		node := root
		if a.Node != "" {
			node = hierarchy.NodeID(a.Node)
		}
		key := attachmentKey{node: node, at: at}
		want[key] = append(want[key], attachmentState{program: a.Program, flags: a.Flags()})
		specs[key] = append(specs[key], a)
	}

	// Detach slots the applier owns that are gone or changed.
	for key, have := range ap.ownedSlots {
		if slices.Equal(want[key], have) {
			continue
		}
		err := ap.engine.Detach(key.node, key.at)
		if err != nil && !errors.Is(err, hierarchy.ErrNothingToDetach) &&
			!errors.Is(err, hierarchy.ErrNodeNotFound) {
			errs = append(errs, fmt.Errorf("detach %s/%s: %w", key.node, key.at, err))
			continue
		}
		delete(ap.ownedSlots, key)
	}

	// Attach desired slots not already in place.
	for key, states := range want {
		if slices.Equal(ap.ownedSlots[key], states) {
			continue
		}
		var applied []attachmentState
		for i, st := range states {
			h, err := ap.resolver.Resolve(st.program)
			if err != nil {
				errs = append(errs, fmt.Errorf("attachment %s/%s: %w", key.node, key.at, err))
				continue
			}
			if err := ap.engine.Attach(key.node, key.at, h, st.flags); err != nil {
				errs = append(errs, fmt.Errorf("attach %s to %s/%s: %w",
					specs[key][i].Program, key.node, key.at, err))
				continue
			}
			applied = append(applied, st)
		}
		if len(applied) > 0 {
			ap.ownedSlots[key] = applied
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("manifest apply completed with %d errors: %w", len(errs), errors.Join(errs...))
	}
	ap.logger.Info("manifest applied",
		"nodes", len(desired), "attachments", len(m.Attachments))
	return nil
}

// RegisterPrograms registers the manifest's built-in static programs with
// the registry, skipping names already registered.
func RegisterPrograms(m *Manifest, reg *program.Registry) error {
	registered := make(map[string]bool)
	for _, name := range reg.Names() {
		registered[name] = true
	}
	for _, p := range m.Programs {
		if registered[p.Name] {
			continue
		}
		if _, err := reg.RegisterStatic(p.Name, p.Verdict); err != nil {
			return fmt.Errorf("register program %q: %w", p.Name, err)
		}
	}
	return nil
}

// ApplyFile loads path and applies it.
func (ap *Applier) ApplyFile(path string) error {
	m, err := Load(path)
	if err != nil {
		return err
	}
	return ap.Apply(m)
}
