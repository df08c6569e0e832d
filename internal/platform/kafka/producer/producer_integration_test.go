//go:build integration

package producer_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/TylerGelinas/socure/internal/platform/kafka"
	"github.com/TylerGelinas/socure/internal/platform/kafka/producer"
	"github.com/TylerGelinas/socure/pkg/testutil/containers"
)

type ProducerIntegrationSuite struct {
	suite.Suite
	kafka    *containers.KafkaContainer
	producer *producer.Producer
}

func TestProducerIntegrationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(ProducerIntegrationSuite))
}

func (s *ProducerIntegrationSuite) SetupSuite() {
	s.kafka = containers.GetManager().GetKafka(s.T())

	cfg := kafka.DefaultProducerConfig([]string{s.kafka.Brokers})
	cfg.DeliveryTimeout = 10 * time.Second
	prod, err := producer.New(cfg, nil)
	s.Require().NoError(err)
	s.producer = prod
}

func (s *ProducerIntegrationSuite) TearDownSuite() {
	if s.producer != nil {
		_ = s.producer.Close(context.Background())
	}
}

func (s *ProducerIntegrationSuite) TestPing() {
	s.Require().NoError(s.producer.Ping(context.Background()))
}

// EnsureTopic is idempotent: a second call on an existing topic succeeds.
func (s *ProducerIntegrationSuite) TestEnsureTopicIsIdempotent() {
	ctx := context.Background()
	s.Require().NoError(s.producer.EnsureTopic(ctx, "socure-ensure-topic", 2, 1))
	s.Require().NoError(s.producer.EnsureTopic(ctx, "socure-ensure-topic", 2, 1))
}

// ProduceSync only returns success after broker acknowledgement.
func (s *ProducerIntegrationSuite) TestProduceSyncDeliversRecord() {
	ctx := context.Background()
	topic := "socure-produce-sync"
	s.Require().NoError(s.producer.EnsureTopic(ctx, topic, 1, 1))

	results := s.producer.ProduceSync(ctx, &kgo.Record{
		Topic: topic,
		Key:   []byte("subject-hash"),
		Value: []byte(`{"action":"decision_made"}`),
	})
	s.Require().NoError(results.FirstErr())

	records, err := s.kafka.ReadRecords(ctx, topic, 1, 10*time.Second)
	s.Require().NoError(err)
	s.Equal("subject-hash", string(records[0].Key))
	s.JSONEq(`{"action":"decision_made"}`, string(records[0].Value))
}
