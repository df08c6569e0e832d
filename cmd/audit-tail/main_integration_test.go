//go:build integration

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TylerGelinas/socure/internal/platform/kafka"
	"github.com/TylerGelinas/socure/internal/platform/kafka/producer"
	audit "github.com/TylerGelinas/socure/pkg/platform/audit"
	kafkastore "github.com/TylerGelinas/socure/pkg/platform/audit/store/kafka"
	"github.com/TylerGelinas/socure/pkg/platform/privacy"
	"github.com/TylerGelinas/socure/pkg/testutil/containers"
)

func TestTailReadsEventsWrittenByKafkaStore(t *testing.T) {
	k := containers.GetManager().GetKafka(t)
	ctx := context.Background()
	topic := "socure-audit-tail"

	prod, err := producer.New(kafka.DefaultProducerConfig([]string{k.Brokers}), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = prod.Close(context.Background()) })
	require.NoError(t, prod.EnsureTopic(ctx, topic, 1, 1))

	store := kafkastore.New(prod, topic)
	for _, subject := range []string{"user-ada", "user-bob", "user-ada"} {
		require.NoError(t, store.Append(ctx, audit.Event{
			ID:       subject + "-" + time.Now().Format(time.RFC3339Nano),
			Action:   string(audit.EventDecisionMade),
			Subject:  privacy.HashIdentifier(subject),
			Decision: "proceed",
		}))
	}

	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()
	var out bytes.Buffer
	err = run(runCtx, options{
		brokers:   []string{k.Brokers},
		topic:     topic,
		subject:   "user-ada",
		fromStart: true,
		limit:     2,
	}, &out, slog.New(slog.NewJSONHandler(io.Discard, nil)))
	require.NoError(t, err)

	dec := json.NewDecoder(&out)
	for range 2 {
		var e audit.Event
		require.NoError(t, dec.Decode(&e))
		assert.Equal(t, privacy.HashIdentifier("user-ada"), e.Subject)
	}
}
