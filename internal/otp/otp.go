// Package otp issues and checks six-digit one-time codes bound to a contact
// address (the voter's registered phone).
package otp

import (
	"context"
	"time"
)

// CodeLength is the number of digits in a one-time code.
const CodeLength = 6

// DefaultTTL is how long a code stays valid after it is requested.
const DefaultTTL = 5 * time.Minute

// Entry is a stored code and the instant it stops being valid.
type Entry struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the entry is no longer valid at now.
func (e Entry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// Same reports whether two entries hold the same code and expiry.
func (e Entry) Same(other Entry) bool {
	return e.Code == other.Code && e.ExpiresAt.Equal(other.ExpiresAt)
}

// Store keeps at most one entry per contact with per-key expiry.
// Get returns sentinel.ErrNotFound for an unknown contact. DeleteIf removes the
// entry only while it is still the given one; an entry replaced in between is
// left alone.
type Store interface {
	Put(ctx context.Context, contact string, entry Entry, ttl time.Duration) error
	Get(ctx context.Context, contact string) (*Entry, error)
	Delete(ctx context.Context, contact string) error
	DeleteIf(ctx context.Context, contact string, entry Entry) error
}

// Sender delivers a code to its recipient.
type Sender interface {
	Send(ctx context.Context, contact, code string) error
}
