// Package store provides in-memory and PostgreSQL feedback persistence.
package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"votebooth/internal/feedback/models"
)

// InMemory appends feedback to a slice guarded by a mutex.
type InMemory struct {
	mu    sync.RWMutex
	items []models.Feedback
}

func NewInMemory() *InMemory {
	return &InMemory{}
}

func (s *InMemory) Create(_ context.Context, f *models.Feedback) error {
	if f == nil {
		return fmt.Errorf("feedback is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, *f)
	return nil
}

func (s *InMemory) Recent(_ context.Context, limit int) ([]*models.Feedback, error) {
	s.mu.RLock()
	out := make([]*models.Feedback, 0, len(s.items))
	for i := range s.items {
		f := s.items[i]
		out = append(out, &f)
	}
	s.mu.RUnlock()

	slices.SortStableFunc(out, func(a, b *models.Feedback) int {
		return cmp.Compare(b.CreatedAt.UnixNano(), a.CreatedAt.UnixNano())
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
