package audit

import (
	"context"
	"testing"
	"time"
)

func recordN(t *testing.T, rec Recorder, events ...*Event) {
	t.Helper()
	for _, ev := range events {
		if err := rec.Record(context.Background(), ev); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
}

func TestMemoryRecorderQuery(t *testing.T) {
	rec := NewMemoryRecorder()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	mk := func(op Operation, node string, offset time.Duration) *Event {
		ev := NewEvent(op, node)
		ev.Time = base.Add(offset)
		ev.Outcome = "ok"
		return ev
	}
	recordN(t, rec,
		mk(OpAttach, "a", 0),
		mk(OpDetach, "a", time.Minute),
		mk(OpAttach, "b", 2*time.Minute),
		mk(OpNodeCreate, "c", 3*time.Minute),
	)
	if rec.Len() != 4 {
		t.Fatalf("Len = %d, want 4", rec.Len())
	}

	tests := []struct {
		name      string
		filter    QueryFilter
		wantNodes []string
	}{
		{
			name:      "no filter returns newest first",
			filter:    QueryFilter{},
			wantNodes: []string{"c", "b", "a", "a"},
		},
		{
			name:      "by node",
			filter:    QueryFilter{Node: "a"},
			wantNodes: []string{"a", "a"},
		},
		{
			name:      "by op",
			filter:    QueryFilter{Op: OpAttach},
			wantNodes: []string{"b", "a"},
		},
		{
			name:      "by time window",
			filter:    QueryFilter{Since: base.Add(time.Minute), Until: base.Add(3 * time.Minute)},
			wantNodes: []string{"b", "a"},
		},
		{
			name:      "limit",
			filter:    QueryFilter{Limit: 2},
			wantNodes: []string{"c", "b"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := rec.Query(context.Background(), tt.filter)
			if err != nil {
				t.Fatalf("Query: %v", err)
			}
			if len(got) != len(tt.wantNodes) {
				t.Fatalf("Query returned %d events, want %d", len(got), len(tt.wantNodes))
			}
			for i, ev := range got {
				if ev.Node != tt.wantNodes[i] {
					t.Errorf("event %d node = %q, want %q", i, ev.Node, tt.wantNodes[i])
				}
			}
		})
	}
}

func TestNewEvent(t *testing.T) {
	ev := NewEvent(OpAttach, "n")
	if ev.ID == "" {
		t.Error("NewEvent left ID empty")
	}
	if ev.Time.IsZero() {
		t.Error("NewEvent left Time zero")
	}
	if ev.Op != OpAttach || ev.Node != "n" {
		t.Errorf("NewEvent = %+v, want op/node set", ev)
	}

	ev2 := NewEvent(OpAttach, "n")
	if ev2.ID == ev.ID {
		t.Error("NewEvent generated duplicate IDs")
	}
}
