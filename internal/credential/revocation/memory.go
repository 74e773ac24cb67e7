// Package revocation stores identifiers of stage credentials retired before
// their natural expiry, such as a vote-eligible credential that already cast
// its vote.
package revocation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"votebooth/pkg/platform/sentinel"
)

// InMemory is a single-process revocation list.
type InMemory struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

// InMemoryOption configures an InMemory list.
type InMemoryOption func(*InMemory)

// WithClock overrides the time source.
func WithClock(now func() time.Time) InMemoryOption {
	return func(m *InMemory) {
		if now != nil {
			m.now = now
		}
	}
}

func NewInMemory(opts ...InMemoryOption) *InMemory {
	m := &InMemory{
		revoked: make(map[string]time.Time),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Revoke records jti until ttl elapses.
func (m *InMemory) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return nil
	}
	if err := validateTTL(ttl); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[jti] = m.now().Add(ttl)
	return nil
}

// IsRevoked reports whether jti is revoked, purging the entry once it lapses.
func (m *InMemory) IsRevoked(_ context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	until, ok := m.revoked[jti]
	if !ok {
		return false, nil
	}
	if !m.now().Before(until) {
		delete(m.revoked, jti)
		return false, nil
	}
	return true, nil
}

func validateTTL(ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive: %w", sentinel.ErrInvalidState)
	}
	return nil
}
