// Callisto is a hierarchical policy-attachment and filtering engine.
//
// It manages a tree of workload scopes, attaches policy programs to scope
// nodes per hook point (ingress, egress, socket creation), and maintains
// for every node the effective ordered chain of programs that applies
// there, folding ancestor attachments under override and multi-attach
// semantics. The filtering hot path reads published chains lock-free.
//
// Usage:
//
//	# Start the daemon with default configuration
//	callisto run
//
//	# Start with a custom configuration file
//	callisto run --config /etc/callisto/config.yaml
//
//	# Validate an attachment manifest without applying it
//	callisto validate --manifest attachments.yaml
//
//	# Show version information
//	callisto version
package main

func main() {
	Execute()
}
