package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"votebooth/pkg/platform/httputil"
	"votebooth/pkg/platform/middleware/metadata"
	"votebooth/pkg/requestcontext"
)

// Middleware applies one limit to every request it wraps, keyed by scope and
// client IP.
type Middleware struct {
	store  Store
	scope  string
	limit  int
	window time.Duration
	logger *slog.Logger
}

func NewMiddleware(store Store, scope string, limit int, window time.Duration, logger *slog.Logger) *Middleware {
	return &Middleware{store: store, scope: scope, limit: limit, window: window, logger: logger}
}

// Handler refuses requests over the limit with 429. If the store fails the
// request is let through and the failure logged.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m == nil || m.store == nil || m.limit <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		ip := requestcontext.ClientIP(ctx)
		if ip == "" {
			ip = metadata.ClientIPFromRequest(r)
		}

		result, err := m.store.Allow(ctx, m.scope+":"+ip, m.limit, m.window)
		if err != nil {
			m.logger.ErrorContext(ctx, "rate limit check failed",
				"error", err,
				"scope", m.scope,
				"ip_prefix", metadata.AnonymizeIP(ip),
				"request_id", requestcontext.RequestID(ctx),
			)
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

		if !result.Allowed {
			m.logger.WarnContext(ctx, "rate limit exceeded",
				"scope", m.scope,
				"ip_prefix", metadata.AnonymizeIP(ip),
				"request_id", requestcontext.RequestID(ctx),
			)
			w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
			httputil.WriteJSON(w, http.StatusTooManyRequests, map[string]any{
				"error":       "rate_limit_exceeded",
				"message":     "too many requests, please try again later",
				"retry_after": result.RetryAfter,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
