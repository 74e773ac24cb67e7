package audit

import (
	"context"
	"encoding/json"
	"log/slog"

	"votebooth/internal/platform/kafka/producer"
	"votebooth/internal/platform/metrics"
)

// Producer is the Kafka seam used by the worker.
type Producer interface {
	Produce(ctx context.Context, msg *producer.Message) error
}

// Worker drains the publisher outbox into a Kafka topic. Delivery failures
// are logged and counted; the event stays in the local store either way.
type Worker struct {
	producer Producer
	topic    string
	inbox    <-chan Event
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func NewWorker(p Producer, topic string, inbox <-chan Event, logger *slog.Logger, m *metrics.Metrics) *Worker {
	return &Worker{producer: p, topic: topic, inbox: inbox, logger: logger, metrics: m}
}

// Run blocks until ctx is done or the inbox is closed.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.inbox:
			if !ok {
				return nil
			}
			w.ship(ctx, event)
		}
	}
}

func (w *Worker) ship(ctx context.Context, event Event) {
	value, err := json.Marshal(event)
	if err != nil {
		w.logger.ErrorContext(ctx, "failed to encode audit event", "error", err)
		return
	}
	msg := &producer.Message{
		Topic:   w.topic,
		Key:     []byte(event.VoterID),
		Value:   value,
		Headers: map[string]string{"action": string(event.Action)},
	}
	if err := w.producer.Produce(ctx, msg); err != nil {
		w.metrics.IncBroadcastFailure("audit_kafka")
		w.logger.WarnContext(ctx, "failed to publish audit event", "error", err, "action", string(event.Action))
	}
}
