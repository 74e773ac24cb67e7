//go:build integration

package producer_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	"votebooth/internal/platform/config"
	"votebooth/internal/platform/kafka/producer"
	"votebooth/pkg/testutil/containers"
)

type ProducerBrokerSuite struct {
	suite.Suite
	broker *containers.RedpandaContainer
}

func TestProducerBrokerSuite(t *testing.T) {
	suite.Run(t, new(ProducerBrokerSuite))
}

func (s *ProducerBrokerSuite) SetupSuite() {
	s.broker = containers.GetManager().GetKafka(s.T())
}

func (s *ProducerBrokerSuite) TestEnsureTopicsThenProduce() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	p, err := producer.New(config.KafkaConfig{
		Brokers:           s.broker.Brokers,
		Acks:              "all",
		Retries:           3,
		Partitions:        2,
		ReplicationFactor: 1,
	}, nil)
	s.Require().NoError(err)
	defer p.Close()

	s.Require().NoError(p.EnsureTopics(ctx, "votebooth.queue", "votebooth.audit"))
	s.Require().NoError(p.EnsureTopics(ctx, "votebooth.queue"), "second run must tolerate existing topics")
	s.Require().NoError(p.Healthy(ctx))

	s.Require().NoError(p.Produce(ctx, &producer.Message{
		Topic:   "votebooth.queue",
		Key:     []byte("ticket-1"),
		Value:   []byte(`{"type":"ticket_added"}`),
		Headers: map[string]string{"event_type": "ticket_added"},
	}))

	cl, err := kgo.NewClient(
		kgo.SeedBrokers(s.broker.Brokers),
		kgo.ConsumeTopics("votebooth.queue"),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer cl.Close()

	details, err := kadm.NewClient(cl).ListTopics(ctx, "votebooth.queue", "votebooth.audit")
	s.Require().NoError(err)
	s.Require().NoError(details.Error())
	s.Len(details["votebooth.queue"].Partitions, 2)

	fetches := cl.PollFetches(ctx)
	require.Empty(s.T(), fetches.Errors())
	records := fetches.Records()
	s.Require().Len(records, 1)
	s.Equal("ticket-1", string(records[0].Key))
	s.Equal("event_type", records[0].Headers[0].Key)
}
