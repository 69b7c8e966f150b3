package run

import "testing"

// TestEventBusAssignsSequences verifies ordering and incremental reads.
func TestEventBusAssignsSequences(t *testing.T) {
	bus := NewEventBus(10)

	first := bus.Publish(Event{RunID: "run-1", Type: EventTypeStatus, State: StateSessionCreated})
	second := bus.Publish(Event{RunID: "run-1", Type: EventTypeLog, Message: "agents joined"})

	if first.Seq != 1 || second.Seq != 2 {
		t.Fatalf("seqs = %d, %d, want 1, 2", first.Seq, second.Seq)
	}
	if first.Timestamp.IsZero() {
		t.Fatal("expected assigned timestamp")
	}

	since := bus.Since(1)
	if len(since) != 1 || since[0].Seq != 2 {
		t.Fatalf("Since(1) = %+v, want only seq 2", since)
	}
}

// TestEventBusBoundsHistory verifies old events are trimmed.
func TestEventBusBoundsHistory(t *testing.T) {
	bus := NewEventBus(2)
	for i := 0; i < 5; i++ {
		bus.Publish(Event{RunID: "run-1", Type: EventTypeLog})
	}

	events := bus.Since(0)
	if len(events) != 2 {
		t.Fatalf("history length = %d, want 2", len(events))
	}
	if events[0].Seq != 4 || events[1].Seq != 5 {
		t.Fatalf("kept seqs = %d, %d, want 4, 5", events[0].Seq, events[1].Seq)
	}
}
