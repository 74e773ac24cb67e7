package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"votebooth/internal/platform/kafka/producer"
	"votebooth/internal/queue/models"
)

// Producer is the subset of the Kafka producer the sink needs.
type Producer interface {
	Produce(ctx context.Context, msg *producer.Message) error
}

// KafkaSink publishes queue events so displays in other processes can follow
// the queue.
type KafkaSink struct {
	producer Producer
	topic    string
}

func NewKafkaSink(p Producer, topic string) *KafkaSink {
	return &KafkaSink{producer: p, topic: topic}
}

func (k *KafkaSink) Name() string { return "kafka" }

func (k *KafkaSink) Deliver(ctx context.Context, event models.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode queue event: %w", err)
	}
	key := string(event.Type)
	if event.Ticket != nil {
		key = strconv.FormatInt(event.Ticket.Number, 10)
	}
	return k.producer.Produce(ctx, &producer.Message{
		Topic:   k.topic,
		Key:     []byte(key),
		Value:   payload,
		Headers: map[string]string{"event_type": string(event.Type)},
	})
}
