// Package events carries change notifications from mutations to
// long-polling clients, replacing the reactive query transport the
// frontend would otherwise get from a managed platform: clients hold a
// cursor, wait for anything newer, and re-run their queries.
package events

import (
	"context"
	"sync"
	"time"
)

// maxBacklog bounds the retained event window. A client whose cursor
// fell off the window simply receives everything still retained and
// refetches.
const maxBacklog = 1024

type Event struct {
	Seq    uint64    `json:"seq"`
	Kind   string    `json:"kind"`   // "donation" or "request"
	ID     string    `json:"id"`     // entity id
	Action string    `json:"action"` // "created", "reserved", "completed", "fulfilled"
	At     time.Time `json:"at"`
}

type Hub struct {
	mu      sync.Mutex
	seq     uint64
	backlog []Event
	waiters map[chan struct{}]struct{}
}

func NewHub() *Hub {
	return &Hub{
		waiters: make(map[chan struct{}]struct{}),
	}
}

// Publish records a committed mutation and wakes all waiters.
func (h *Hub) Publish(kind, id, action string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.seq++
	h.backlog = append(h.backlog, Event{
		Seq:    h.seq,
		Kind:   kind,
		ID:     id,
		Action: action,
		At:     time.Now().UTC(),
	})
	if len(h.backlog) > maxBacklog {
		h.backlog = h.backlog[len(h.backlog)-maxBacklog:]
	}

	for ch := range h.waiters {
		close(ch)
		delete(h.waiters, ch)
	}
}

// Since returns the events after cursor and the cursor to resume from.
func (h *Hub) Since(cursor uint64) ([]Event, uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sinceLocked(cursor)
}

func (h *Hub) sinceLocked(cursor uint64) ([]Event, uint64) {
	out := make([]Event, 0)
	for _, ev := range h.backlog {
		if ev.Seq > cursor {
			out = append(out, ev)
		}
	}
	return out, h.seq
}

// Wait blocks until at least one event newer than cursor exists or ctx
// is done, then returns whatever is available (possibly nothing).
func (h *Hub) Wait(ctx context.Context, cursor uint64) ([]Event, uint64) {
	for {
		h.mu.Lock()
		events, next := h.sinceLocked(cursor)
		if len(events) > 0 {
			h.mu.Unlock()
			return events, next
		}

		ch := make(chan struct{})
		h.waiters[ch] = struct{}{}
		h.mu.Unlock()

		select {
		case <-ctx.Done():
			h.mu.Lock()
			delete(h.waiters, ch)
			events, next := h.sinceLocked(cursor)
			h.mu.Unlock()
			return events, next
		case <-ch:
		}
	}
}
