package filter

import (
	"context"
	"log/slog"
	"testing"

	"mercator-hq/callisto/pkg/hierarchy"
	"mercator-hq/callisto/pkg/program"
)

func newTestSetup(t *testing.T) (*hierarchy.Engine, *Invoker) {
	t.Helper()
	e := hierarchy.NewEngine(nil, nil, nil, slog.New(slog.DiscardHandler))
	t.Cleanup(func() { e.Close() })
	return e, NewInvoker(e, program.NewFuncRuntime(), nil)
}

func TestRunAllowsWithoutPolicy(t *testing.T) {
	e, inv := newTestSetup(t)

	// Nothing attached anywhere: the fast path short-circuits.
	if v := inv.Run(context.Background(), e.Root(), hierarchy.AttachEgress, nil); v != Allow {
		t.Fatalf("Run = %v, want Allow", v)
	}
}

func TestRunChainVerdicts(t *testing.T) {
	type attach struct {
		verdict int
		flags   hierarchy.AttachFlags
	}
	tests := []struct {
		name    string
		attachs []attach
		want    Verdict
	}{
		{
			name:    "single pass",
			attachs: []attach{{verdict: program.VerdictPass, flags: hierarchy.AllowOverride}},
			want:    Allow,
		},
		{
			name:    "single deny",
			attachs: []attach{{verdict: 0, flags: hierarchy.AllowOverride}},
			want:    Deny,
		},
		{
			name: "multi chain all pass",
			attachs: []attach{
				{verdict: program.VerdictPass, flags: hierarchy.AllowMulti},
				{verdict: program.VerdictPass, flags: hierarchy.AllowMulti},
			},
			want: Allow,
		},
		{
			name: "multi chain one deny",
			attachs: []attach{
				{verdict: program.VerdictPass, flags: hierarchy.AllowMulti},
				{verdict: 0, flags: hierarchy.AllowMulti},
			},
			want: Deny,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, inv := newTestSetup(t)
			for i, a := range tt.attachs {
				p := program.NewStatic("p"+string(rune('1'+i)), a.verdict)
				if err := e.Attach(e.Root().ID(), hierarchy.AttachIngress, p, a.flags); err != nil {
					t.Fatalf("Attach %d: %v", i, err)
				}
			}
			if v := inv.Run(context.Background(), e.Root(), hierarchy.AttachIngress, nil); v != tt.want {
				t.Fatalf("Run = %v, want %v", v, tt.want)
			}
		})
	}
}

func TestRunShortCircuitsOnDeny(t *testing.T) {
	e, inv := newTestSetup(t)

	var ranLater bool
	deny := program.NewStatic("deny", 0)
	later := program.NewFunc("later", func(context.Context, any) int {
		ranLater = true
		return program.VerdictPass
	})
	if err := e.Attach(e.Root().ID(), hierarchy.AttachEgress, deny, hierarchy.AllowMulti); err != nil {
		t.Fatalf("Attach(deny): %v", err)
	}
	if err := e.Attach(e.Root().ID(), hierarchy.AttachEgress, later, hierarchy.AllowMulti); err != nil {
		t.Fatalf("Attach(later): %v", err)
	}

	if v := inv.Run(context.Background(), e.Root(), hierarchy.AttachEgress, nil); v != Deny {
		t.Fatalf("Run = %v, want Deny", v)
	}
	if ranLater {
		t.Error("program after the denying one was executed")
	}
}

func TestRunUsesNodeEffectiveChain(t *testing.T) {
	e, inv := newTestSetup(t)
	child, err := e.CreateNode("child", e.Root().ID())
	if err != nil {
		t.Fatalf("CreateNode: %v", err)
	}

	// Deny at the root; the child inherits and denies too.
	deny := program.NewStatic("deny", 0)
	if err := e.Attach(e.Root().ID(), hierarchy.AttachEgress, deny, hierarchy.AllowOverride); err != nil {
		t.Fatalf("Attach(root): %v", err)
	}
	if v := inv.Run(context.Background(), child, hierarchy.AttachEgress, nil); v != Deny {
		t.Fatalf("inherited Run = %v, want Deny", v)
	}

	// The child overrides with a pass program.
	pass := program.NewStatic("pass", program.VerdictPass)
	if err := e.Attach("child", hierarchy.AttachEgress, pass, hierarchy.AllowOverride); err != nil {
		t.Fatalf("Attach(child): %v", err)
	}
	if v := inv.Run(context.Background(), child, hierarchy.AttachEgress, nil); v != Allow {
		t.Fatalf("overridden Run = %v, want Allow", v)
	}
	if v := inv.Run(context.Background(), e.Root(), hierarchy.AttachEgress, nil); v != Deny {
		t.Fatalf("root Run = %v, want Deny", v)
	}
}

func TestRunPassesEventToPrograms(t *testing.T) {
	e, inv := newTestSetup(t)

	type packet struct{ port int }
	blockSMTP := program.NewFunc("block-smtp", func(_ context.Context, event any) int {
		if p, ok := event.(packet); ok && p.port == 25 {
			return 0
		}
		return program.VerdictPass
	})
	if err := e.Attach(e.Root().ID(), hierarchy.AttachEgress, blockSMTP, 0); err != nil {
		t.Fatalf("Attach: %v", err)
	}

	if v := inv.Run(context.Background(), e.Root(), hierarchy.AttachEgress, packet{port: 25}); v != Deny {
		t.Fatalf("Run(port 25) = %v, want Deny", v)
	}
	if v := inv.Run(context.Background(), e.Root(), hierarchy.AttachEgress, packet{port: 443}); v != Allow {
		t.Fatalf("Run(port 443) = %v, want Allow", v)
	}
}
