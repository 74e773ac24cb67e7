package broadcast

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"votebooth/internal/platform/metrics"
	"votebooth/internal/queue/models"
)

const defaultDeliveryTimeout = 5 * time.Second

// Sink is one destination for queue events.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, event models.Event) error
}

// Fanout delivers each event to every sink concurrently in the background.
// Sink failures are logged and counted; they never reach the publisher.
type Fanout struct {
	sinks   []Sink
	logger  *slog.Logger
	metrics *metrics.Metrics
	timeout time.Duration
	wg      sync.WaitGroup
}

type Option func(*Fanout)

func WithMetrics(m *metrics.Metrics) Option {
	return func(f *Fanout) { f.metrics = m }
}

func WithDeliveryTimeout(d time.Duration) Option {
	return func(f *Fanout) {
		if d > 0 {
			f.timeout = d
		}
	}
}

func NewFanout(logger *slog.Logger, sinks []Sink, opts ...Option) *Fanout {
	f := &Fanout{
		sinks:   sinks,
		logger:  logger,
		timeout: defaultDeliveryTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// Publish returns immediately. Delivery outlives the request context.
func (f *Fanout) Publish(ctx context.Context, event models.Event) {
	if len(f.sinks) == 0 {
		return
	}
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		f.deliver(context.WithoutCancel(ctx), event)
	}()
}

func (f *Fanout) deliver(ctx context.Context, event models.Event) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	var g errgroup.Group
	for _, sink := range f.sinks {
		g.Go(func() error {
			if err := sink.Deliver(ctx, event); err != nil {
				f.logger.WarnContext(ctx, "queue event delivery failed",
					"sink", sink.Name(),
					"event_type", string(event.Type),
					"error", err,
				)
				f.metrics.IncBroadcastFailure(sink.Name())
			}
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // sinks never return errors to the group
}

// Wait blocks until in-flight deliveries finish. Used on shutdown.
func (f *Fanout) Wait() {
	f.wg.Wait()
}
