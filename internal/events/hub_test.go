package events

import (
	"context"
	"testing"
	"time"
)

func TestHubSince(t *testing.T) {
	h := NewHub()
	h.Publish("donation", "d1", "created")
	h.Publish("request", "r1", "created")
	h.Publish("donation", "d1", "reserved")

	all, cursor := h.Since(0)
	if len(all) != 3 {
		t.Fatalf("got %d events, want 3", len(all))
	}
	if cursor != 3 {
		t.Errorf("cursor = %d, want 3", cursor)
	}
	if all[0].Kind != "donation" || all[0].Action != "created" {
		t.Errorf("first event = %+v", all[0])
	}

	tail, cursor := h.Since(2)
	if len(tail) != 1 || tail[0].Action != "reserved" {
		t.Errorf("events after cursor 2 = %+v, want the reserve", tail)
	}
	if cursor != 3 {
		t.Errorf("cursor = %d, want 3", cursor)
	}

	none, cursor := h.Since(cursor)
	if len(none) != 0 {
		t.Errorf("events at head = %+v, want none", none)
	}
	if cursor != 3 {
		t.Errorf("cursor = %d, want 3", cursor)
	}
}

func TestHubWaitReturnsImmediatelyWhenBehind(t *testing.T) {
	h := NewHub()
	h.Publish("donation", "d1", "created")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	events, cursor := h.Wait(ctx, 0)
	if len(events) != 1 || cursor != 1 {
		t.Errorf("events = %+v cursor = %d, want 1 event and cursor 1", events, cursor)
	}
}

func TestHubWaitWakesOnPublish(t *testing.T) {
	h := NewHub()

	done := make(chan struct{})
	var events []Event
	go func() {
		defer close(done)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		events, _ = h.Wait(ctx, 0)
	}()

	// Give the waiter a moment to park before publishing.
	time.Sleep(20 * time.Millisecond)
	h.Publish("request", "r1", "fulfilled")

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Wait did not wake on Publish")
	}
	if len(events) != 1 || events[0].Action != "fulfilled" {
		t.Errorf("events = %+v, want the fulfill", events)
	}
}

func TestHubWaitTimesOutEmpty(t *testing.T) {
	h := NewHub()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	events, cursor := h.Wait(ctx, 0)
	if len(events) != 0 {
		t.Errorf("events = %+v, want none", events)
	}
	if cursor != 0 {
		t.Errorf("cursor = %d, want 0", cursor)
	}
}

func TestHubBacklogTrim(t *testing.T) {
	h := NewHub()
	for i := 0; i < maxBacklog+10; i++ {
		h.Publish("donation", "d", "created")
	}

	events, cursor := h.Since(0)
	if len(events) != maxBacklog {
		t.Errorf("retained %d events, want %d", len(events), maxBacklog)
	}
	if cursor != maxBacklog+10 {
		t.Errorf("cursor = %d, want %d", cursor, maxBacklog+10)
	}
	// The oldest retained event follows the trimmed window.
	if events[0].Seq != 11 {
		t.Errorf("oldest retained seq = %d, want 11", events[0].Seq)
	}
}
