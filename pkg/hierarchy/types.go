package hierarchy

import (
	"fmt"
	"strings"
)

// NodeID identifies a node in the scope tree. IDs are stable for the life
// of the node and unique within an engine.
type NodeID string

// AttachType is the category of policy hook point a program attaches to.
type AttachType int

const (
	// AttachIngress filters inbound traffic for a scope.
	AttachIngress AttachType = iota

	// AttachEgress filters outbound traffic for a scope.
	AttachEgress

	// AttachSockCreate filters socket creation within a scope.
	AttachSockCreate

	// attachTypeCount bounds the per-node slot and chain arrays.
	attachTypeCount
)

// attachTypeNames maps attach types to their wire/config names.
var attachTypeNames = [attachTypeCount]string{
	AttachIngress:    "ingress",
	AttachEgress:     "egress",
	AttachSockCreate: "sock_create",
}

// String returns the attach type's config name, or a placeholder for
// out-of-range values.
func (t AttachType) String() string {
	if !t.Valid() {
		return fmt.Sprintf("attach_type(%d)", int(t))
	}
	return attachTypeNames[t]
}

// Valid reports whether t is a known attach type.
func (t AttachType) Valid() bool {
	return t >= 0 && t < attachTypeCount
}

// ParseAttachType parses a config name ("ingress", "egress", "sock_create")
// into an AttachType.
func ParseAttachType(s string) (AttachType, error) {
	for t, name := range attachTypeNames {
		if name == s {
			return AttachType(t), nil
		}
	}
	return 0, fmt.Errorf("unknown attach type: %q", s)
}

// AttachTypes returns all known attach types in declaration order.
func AttachTypes() []AttachType {
	types := make([]AttachType, attachTypeCount)
	for i := range types {
		types[i] = AttachType(i)
	}
	return types
}

// AttachFlags control override and stacking behavior of an attachment.
type AttachFlags uint32

const (
	// AllowOverride permits descendants to shadow this attachment with
	// their own program of the same type.
	AllowOverride AttachFlags = 1 << iota

	// AllowMulti stacks this node's programs with contributing ancestors
	// instead of replacing them, and permits multiple local programs.
	AllowMulti
)

// Has reports whether all bits in mask are set.
func (f AttachFlags) Has(mask AttachFlags) bool {
	return f&mask == mask
}

// String renders the flag set for logs and audit records.
func (f AttachFlags) String() string {
	var parts []string
	if f.Has(AllowOverride) {
		parts = append(parts, "allow_override")
	}
	if f.Has(AllowMulti) {
		parts = append(parts, "allow_multi")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}
