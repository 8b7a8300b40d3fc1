// Package manifest provides declarative management of the scope tree and
// its policy attachments from a YAML file.
//
// A manifest names the nodes to exist under the engine root and the
// attachments each should carry (attach type, program name, flags).
// Programs are resolved by name through a program.Resolver. The Applier
// reconciles the engine against a manifest: missing nodes are created,
// nodes the applier created that have disappeared from the manifest are
// destroyed, and attachment sets that changed are detached and re-attached.
// The Watcher re-applies the manifest when the file changes, with
// debouncing to absorb editor write storms.
package manifest
