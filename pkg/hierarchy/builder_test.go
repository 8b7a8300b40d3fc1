package hierarchy

import (
	"errors"
	"testing"

	"mercator-hq/callisto/pkg/program"
)

// lineage builds a detached parent chain (root first) with the given slot
// contents per level, wiring parent pointers. Slots are indexed by level.
func lineage(levels ...programSlot) *Node {
	var parent *Node
	var node *Node
	for _, slot := range levels {
		node = &Node{parent: parent}
		node.slots[AttachEgress] = slot
		parent = node
	}
	return node
}

func slot(flags AttachFlags, ids ...string) programSlot {
	s := programSlot{flags: flags}
	for _, id := range ids {
		s.programs = append(s.programs, program.NewStatic(id, program.VerdictPass))
	}
	return s
}

func TestBuildChainComposition(t *testing.T) {
	tests := []struct {
		name   string
		levels []programSlot
		want   []string
	}{
		{
			name:   "no attachments",
			levels: []programSlot{{}, {}},
			want:   nil,
		},
		{
			name:   "own programs only",
			levels: []programSlot{{}, slot(0, "p1")},
			want:   []string{"p1"},
		},
		{
			name:   "inherit from ancestor through empty levels",
			levels: []programSlot{slot(AllowOverride, "p1"), {}, {}},
			want:   []string{"p1"},
		},
		{
			name:   "own non-multi shadows non-multi ancestor",
			levels: []programSlot{slot(AllowOverride, "p1"), slot(AllowOverride, "p2")},
			want:   []string{"p2"},
		},
		{
			name:   "multi ancestor stacks before own programs",
			levels: []programSlot{slot(AllowMulti, "p1", "p2"), slot(AllowMulti, "p3")},
			want:   []string{"p1", "p2", "p3"},
		},
		{
			name: "multi ancestors contribute even above a non-multi level",
			levels: []programSlot{
				slot(AllowMulti, "p1"),
				slot(AllowOverride, "p2"),
				{},
			},
			want: []string{"p1", "p2"},
		},
		{
			name: "non-multi ancestor above multi levels does not contribute",
			levels: []programSlot{
				slot(AllowOverride, "p1"),
				slot(AllowMulti, "p2"),
				slot(AllowMulti, "p3"),
			},
			want: []string{"p2", "p3"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node := lineage(tt.levels...)

			if got := countEffective(node, AttachEgress); got != len(tt.want) {
				t.Fatalf("countEffective = %d, want %d", got, len(tt.want))
			}

			chain, err := buildChain(node, AttachEgress, 0)
			if err != nil {
				t.Fatalf("buildChain: %v", err)
			}
			if len(tt.want) == 0 {
				if chain != nil {
					t.Fatal("buildChain returned a chain for an empty lineage")
				}
				return
			}
			defer chain.Release()

			got := make([]string, 0, chain.Len())
			for _, h := range chain.Programs() {
				got = append(got, h.ID())
			}
			wantIDs(t, got, tt.want...)
		})
	}
}

func TestBuildChainLimit(t *testing.T) {
	node := lineage(slot(AllowMulti, "p1", "p2"), slot(AllowMulti, "p3"))

	if _, err := buildChain(node, AttachEgress, 3); err != nil {
		t.Fatalf("buildChain at limit: %v", err)
	}
	_, err := buildChain(node, AttachEgress, 2)
	if !errors.Is(err, ErrResourceExhausted) {
		t.Fatalf("buildChain over limit = %v, want ErrResourceExhausted", err)
	}
}

func TestBuildChainHoldsProgramReferences(t *testing.T) {
	p := program.NewStatic("p1", program.VerdictPass)
	node := &Node{}
	node.slots[AttachEgress] = programSlot{programs: []program.Handle{p}}

	chain, err := buildChain(node, AttachEgress, 0)
	if err != nil {
		t.Fatalf("buildChain: %v", err)
	}
	if got := p.Refs(); got != 2 {
		t.Errorf("refs after build = %d, want 2", got)
	}
	chain.Release()
	if got := p.Refs(); got != 1 {
		t.Errorf("refs after chain release = %d, want 1", got)
	}
}
