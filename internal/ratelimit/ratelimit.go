// Package ratelimit caps how often a client may hit the unauthenticated
// check-in endpoints. Each OTP request sends an SMS, so the limit is keyed by
// client IP and enforced before the handler runs.
package ratelimit

import (
	"context"
	"time"
)

// Result is the outcome of one limit check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
	// RetryAfter is in whole seconds and only set when the request is refused.
	RetryAfter int
}

// Store counts requests per key inside a rolling window.
type Store interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*Result, error)
}
