// Package hierarchy implements the policy-attachment engine at the heart of
// Callisto: a strict tree of scope nodes, per-node program attachments keyed
// by attach type, and an "effective chain" per (node, attach type) computed
// by folding ancestor attachments under override and multi-attach semantics.
//
// # Model
//
// Each node carries, per attach type, a local program slot (the programs an
// administrator attached at that node) and a published effective chain (the
// ordered programs that actually run there). A node with an empty slot
// inherits its nearest ancestor's effective chain; a node with its own
// attachment replaces the ancestor's chain unless multi-attach stacks them.
// Attaching or detaching at a node recomputes its chain and propagates the
// result to every descendant that does not manage its own attachment for
// that type; subtrees with their own attachment are skipped wholesale.
//
// # Override semantics
//
// The nearest ancestor with a non-multi attachment dictates whether a
// descendant may attach at all: if that ancestor attached with AllowOverride
// the descendant may shadow it, otherwise the attach fails with
// ErrPermissionDenied. An ancestor in multi mode never constrains
// descendants. Flipping the override mode of an existing attachment in
// place is forbidden; detach first.
//
// # Concurrency
//
// All mutations (attach, detach, node creation and destruction) are
// serialized by a single engine-wide mutex. The hot read path never takes
// it: effective chains are immutable, reference counted, and published
// through atomic pointers. Readers acquire a chain with a CAS loop that can
// never resurrect a chain whose count has drained, so a reader either sees
// the old fully-formed chain or the new one, never a torn state. Program
// handles referenced by a chain are released only when the chain's last
// reference goes away.
package hierarchy
