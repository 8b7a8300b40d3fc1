package manifest

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"mercator-hq/callisto/pkg/hierarchy"
)

// Manifest declares the desired scope tree and policy attachments.
type Manifest struct {
	// Programs lists built-in static-verdict programs to register before
	// attachments are resolved. Deployments embedding Callisto as a
	// library typically leave this empty and register real programs
	// through their own runtime.
	Programs []ProgramSpec `yaml:"programs"`

	// Nodes lists the scopes to exist under the engine root, in any
	// order; parents are resolved by ID.
	Nodes []NodeSpec `yaml:"nodes"`

	// Attachments lists the programs to attach.
	Attachments []AttachmentSpec `yaml:"attachments"`
}

// ProgramSpec declares one built-in static program.
type ProgramSpec struct {
	// Name is the program name attachments refer to.
	Name string `yaml:"name"`

	// Verdict is the constant verdict the program returns; 1 passes,
	// anything else denies.
	Verdict int `yaml:"verdict"`
}

// NodeSpec declares one scope node.
type NodeSpec struct {
	// ID is the node identifier, unique within the manifest.
	ID string `yaml:"id"`

	// Parent is the parent node's ID; empty means the engine root.
	Parent string `yaml:"parent"`
}

// AttachmentSpec declares one program attachment.
type AttachmentSpec struct {
	// Node is the target node's ID; empty means the engine root.
	Node string `yaml:"node"`

	// AttachType is the hook point ("ingress", "egress", "sock_create").
	AttachType string `yaml:"attach_type"`

	// Program is the registered program name to attach.
	Program string `yaml:"program"`

	// AllowOverride permits descendants to shadow this attachment.
	AllowOverride bool `yaml:"allow_override"`

	// AllowMulti stacks this attachment with ancestors instead of
	// replacing them.
	AllowMulti bool `yaml:"allow_multi"`
}

// Flags converts the attachment's booleans to engine attach flags.
func (a *AttachmentSpec) Flags() hierarchy.AttachFlags {
	var f hierarchy.AttachFlags
	if a.AllowOverride {
		f |= hierarchy.AllowOverride
	}
	if a.AllowMulti {
		f |= hierarchy.AllowMulti
	}
	return f
}

// Load reads and validates a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %q: %w", path, err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %q: %w", path, err)
	}

	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest %q: %w", path, err)
	}
	return &m, nil
}

// Validate checks the manifest structurally: unique node IDs, resolvable
// acyclic parents, known attach types and non-empty program names. It does
// not check override compatibility; that is the engine's job at apply
// time, against the live tree.
func (m *Manifest) Validate() error {
	programs := make(map[string]bool, len(m.Programs))
	for _, p := range m.Programs {
		if p.Name == "" {
			return fmt.Errorf("program with empty name")
		}
		if programs[p.Name] {
			return fmt.Errorf("duplicate program name %q", p.Name)
		}
		programs[p.Name] = true
	}

	declared := make(map[string]bool, len(m.Nodes))
	for _, n := range m.Nodes {
		if n.ID == "" {
			return fmt.Errorf("node with empty id")
		}
		if declared[n.ID] {
			return fmt.Errorf("duplicate node id %q", n.ID)
		}
		declared[n.ID] = true
	}

	for _, n := range m.Nodes {
		if n.Parent != "" && !declared[n.Parent] {
			return fmt.Errorf("node %q references undeclared parent %q", n.ID, n.Parent)
		}
	}
	if _, err := m.topoOrder(); err != nil {
		return err
	}

	for i, a := range m.Attachments {
		if a.Node != "" && !declared[a.Node] {
			return fmt.Errorf("attachment %d references undeclared node %q", i, a.Node)
		}
		if _, err := hierarchy.ParseAttachType(a.AttachType); err != nil {
			return fmt.Errorf("attachment %d: %w", i, err)
		}
		if a.Program == "" {
			return fmt.Errorf("attachment %d has empty program name", i)
		}
	}
	return nil
}

// topoOrder returns the nodes parents-first, failing on parent cycles.
func (m *Manifest) topoOrder() ([]NodeSpec, error) {
	placed := make(map[string]bool, len(m.Nodes))
	ordered := make([]NodeSpec, 0, len(m.Nodes))
	pending := append([]NodeSpec(nil), m.Nodes...)

	for len(pending) > 0 {
		progress := false
		remaining := pending[:0]
		for _, n := range pending {
			if n.Parent == "" || placed[n.Parent] {
				placed[n.ID] = true
				ordered = append(ordered, n)
				progress = true
			} else {
				remaining = append(remaining, n)
			}
		}
		if !progress {
			return nil, fmt.Errorf("node parent cycle involving %q", pending[0].ID)
		}
		pending = remaining
	}
	return ordered, nil
}
