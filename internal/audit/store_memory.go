package audit

import (
	"context"
	"sync"
)

// DefaultCapacity bounds the in-memory trail.
const DefaultCapacity = 10000

// InMemoryStore keeps the most recent events in a bounded ring.
type InMemoryStore struct {
	mu       sync.RWMutex
	events   []Event
	next     int
	full     bool
	capacity int
}

func NewInMemoryStore(capacity int) *InMemoryStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &InMemoryStore{events: make([]Event, capacity), capacity: capacity}
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[s.next] = event
	s.next = (s.next + 1) % s.capacity
	if s.next == 0 {
		s.full = true
	}
	return nil
}

// Recent returns up to limit events, newest first. A non-positive limit returns all.
func (s *InMemoryStore) Recent(_ context.Context, limit int) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	size := s.next
	if s.full {
		size = s.capacity
	}
	if limit <= 0 || limit > size {
		limit = size
	}
	out := make([]Event, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (s.next - i + s.capacity) % s.capacity
		out = append(out, s.events[idx])
	}
	return out, nil
}
