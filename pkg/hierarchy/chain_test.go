package hierarchy

import (
	"sync"
	"testing"

	"mercator-hq/callisto/pkg/program"
)

func TestChainReferenceLifecycle(t *testing.T) {
	p := program.NewStatic("p1", program.VerdictPass)
	p.Acquire() // the chain takes ownership of this reference
	c := newChain([]program.Handle{p})

	if !c.tryAcquire() {
		t.Fatal("tryAcquire failed on a live chain")
	}
	c.Release()
	if got := p.Refs(); got != 2 {
		t.Fatalf("program refs = %d, want 2 while chain is live", got)
	}

	// Final release drains the chain and returns the program reference.
	c.Release()
	if got := p.Refs(); got != 1 {
		t.Fatalf("program refs = %d, want 1 after chain drained", got)
	}
	if c.tryAcquire() {
		t.Fatal("tryAcquire succeeded on a drained chain")
	}
}

// TestEffectiveReaderUnderChurn hammers the lock-free read path while a
// writer continuously replaces the published chains. Run with -race. Every
// acquired chain must stay fully formed until released, whatever the writer
// does in the meantime.
func TestEffectiveReaderUnderChurn(t *testing.T) {
	e := newTestEngine(t, 0)
	mkChain(t, e, "a", "b")
	node, _ := e.Node("b")

	base := program.NewStatic("base", program.VerdictPass)
	if err := e.Attach(e.Root().ID(), AttachEgress, base, AllowOverride); err != nil {
		t.Fatalf("Attach(base): %v", err)
	}

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				chain := node.Effective(AttachEgress)
				if chain == nil {
					continue
				}
				if chain.Len() == 0 {
					t.Error("acquired an empty chain")
				}
				for _, h := range chain.Programs() {
					if h.ID() == "" {
						t.Error("chain holds a program with no ID")
					}
				}
				chain.Release()
			}
		}()
	}

	// Writer: replace the override at "a", then detach it, repeatedly.
	// Readers at "b" flip between the base chain and the override chains.
	overrides := make([]*program.Func, 0, 200)
	for i := 0; i < 200; i++ {
		p := program.NewStatic("override", program.VerdictPass)
		overrides = append(overrides, p)
		if err := e.Attach("a", AttachEgress, p, AllowOverride); err != nil {
			t.Fatalf("Attach cycle %d: %v", i, err)
		}
		if err := e.Detach("a", AttachEgress); err != nil {
			t.Fatalf("Detach cycle %d: %v", i, err)
		}
	}
	close(stop)
	wg.Wait()

	// With no readers left, every detached program is down to its creator
	// reference: the chains that carried them have all drained.
	for i, p := range overrides {
		if got := p.Refs(); got != 1 {
			t.Fatalf("override %d refs = %d, want 1", i, got)
		}
	}
	wantIDs(t, effectiveIDs(t, e, "b", AttachEgress), "base")
}
