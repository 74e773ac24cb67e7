// Package store holds one-time code entries.
package store

import (
	"context"
	"sync"
	"time"

	"votebooth/internal/otp"
	"votebooth/pkg/platform/sentinel"
)

// InMemory keeps codes in a process-local map. Expiry is judged by the
// service against the entry's ExpiresAt; this store only holds the data.
type InMemory struct {
	mu      sync.RWMutex
	entries map[string]otp.Entry
}

func NewInMemory() *InMemory {
	return &InMemory{entries: make(map[string]otp.Entry)}
}

func (s *InMemory) Put(_ context.Context, contact string, entry otp.Entry, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[contact] = entry
	return nil
}

func (s *InMemory) Get(_ context.Context, contact string) (*otp.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[contact]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &entry, nil
}

func (s *InMemory) Delete(_ context.Context, contact string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, contact)
	return nil
}

func (s *InMemory) DeleteIf(_ context.Context, contact string, entry otp.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.entries[contact]; ok && current.Same(entry) {
		delete(s.entries, contact)
	}
	return nil
}
