// Package filter is the read side of the hierarchy engine: given a scope
// node, an attach type and a caller-supplied event, it fetches the node's
// published effective chain and runs each program in order through the
// runtime collaborator.
//
// The invoker never blocks on the engine's writer lock and never surfaces
// errors to the caller; the only outcomes are Allow and Deny. A program
// verdict other than the designated pass value denies the event and
// short-circuits the rest of the chain; runtime execution failures are
// indistinguishable from deny at this layer.
package filter
