// Package program defines the collaborator contracts between the hierarchy
// engine and the policy program runtime: an opaque, reference-counted program
// Handle and a Runtime that executes a handle against a filtering event.
//
// The hierarchy core never interprets program contents. It holds references
// (one per slot attachment, one per effective-chain entry) and releases them
// when the owning slot or chain is torn down. Any runtime that can produce
// an integer verdict from a handle and an event can back the engine.
//
// The package also ships a reference runtime sufficient for the daemon,
// tests and examples: Func programs (verdict computed by a Go function),
// Static programs (constant verdict), and a name-keyed Registry that the
// manifest applier resolves attachments through.
package program
