// Package broadcast delivers queue events to live observers and to Kafka.
// Delivery runs off the request path and never reports back to the mutation
// that caused it.
package broadcast

import (
	"context"
	"fmt"
	"sync"

	"votebooth/internal/queue/models"
)

// Hub fans events out to in-process subscribers, typically websocket
// connections of queue displays. A subscriber whose buffer is full misses the
// event rather than stalling everyone else.
type Hub struct {
	mu   sync.RWMutex
	subs map[chan models.Event]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan models.Event]struct{})}
}

// Subscribe registers an observer with the given buffer size.
func (h *Hub) Subscribe(buffer int) chan models.Event {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan models.Event, buffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes ch. Unknown channels are ignored.
func (h *Hub) Unsubscribe(ch chan models.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
}

// Subscribers reports how many observers are connected.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) Name() string { return "hub" }

// Deliver hands the event to every subscriber without blocking.
func (h *Hub) Deliver(_ context.Context, event models.Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	dropped := 0
	for ch := range h.subs {
		select {
		case ch <- event:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		return fmt.Errorf("%d slow observers missed %s", dropped, event.Type)
	}
	return nil
}
