// Package audit records pipeline and administrative events. Events are
// logged, kept in a bounded store for the admin trail, and optionally shipped
// to Kafka by a background worker. Emitting never fails the caller's action.
package audit

import (
	"context"
	"log/slog"
	"time"

	"votebooth/internal/platform/metrics"
	"votebooth/pkg/requestcontext"
)

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	Recent(ctx context.Context, limit int) ([]Event, error)
}

// Publisher captures structured audit events.
type Publisher struct {
	store   Store
	logger  *slog.Logger
	outbox  chan<- Event
	metrics *metrics.Metrics
	now     func() time.Time
}

type Option func(*Publisher)

// WithOutbox forwards every event to a channel drained by a Worker. A full
// outbox drops the event for that sink only.
func WithOutbox(outbox chan<- Event) Option {
	return func(p *Publisher) { p.outbox = outbox }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Publisher) { p.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(p *Publisher) {
		if now != nil {
			p.now = now
		}
	}
}

func NewPublisher(store Store, logger *slog.Logger, opts ...Option) *Publisher {
	p := &Publisher{store: store, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit records event. Failures are logged and returned for callers that care;
// pipeline services ignore them.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now()
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}

	p.logger.InfoContext(ctx, "audit",
		"action", string(event.Action),
		"voter_id", event.VoterID,
		"actor", event.Actor,
		"reason", event.Reason,
		"request_id", event.RequestID,
	)

	if p.outbox != nil {
		select {
		case p.outbox <- event:
		default:
			p.metrics.IncBroadcastFailure("audit_outbox")
			p.logger.WarnContext(ctx, "audit outbox full, dropping event for kafka", "action", string(event.Action))
		}
	}

	if err := p.store.Append(ctx, event); err != nil {
		p.logger.ErrorContext(ctx, "failed to store audit event", "error", err, "action", string(event.Action))
		return err
	}
	return nil
}

// Recent lists the newest events for the admin trail.
func (p *Publisher) Recent(ctx context.Context, limit int) ([]Event, error) {
	return p.store.Recent(ctx, limit)
}
