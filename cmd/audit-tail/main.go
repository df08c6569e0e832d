// Package main tails the decision audit topic and prints one JSON event per
// line, optionally filtered to a single subject.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/TylerGelinas/socure/internal/platform/config"
	"github.com/TylerGelinas/socure/internal/platform/logger"
	audit "github.com/TylerGelinas/socure/pkg/platform/audit"
	"github.com/TylerGelinas/socure/pkg/platform/privacy"
)

type options struct {
	brokers   []string
	topic     string
	subject   string
	fromStart bool
	limit     int
}

func main() {
	defaults := config.Default().Audit
	brokers := flag.String("brokers", os.Getenv(config.EnvPrefix+"KAFKA_BROKERS"), "comma-separated Kafka brokers")
	topic := flag.String("topic", envOr("AUDIT_TOPIC", defaults.Topic), "audit topic")
	subject := flag.String("subject", "", "only print events for this raw subject")
	fromStart := flag.Bool("from-start", false, "read from the beginning of the topic")
	limit := flag.Int("n", 0, "stop after n matching events (0 = follow)")
	flag.Parse()

	opts := options{
		brokers:   splitBrokers(*brokers),
		topic:     *topic,
		subject:   *subject,
		fromStart: *fromStart,
		limit:     *limit,
	}
	log := logger.New(os.Getenv(config.EnvPrefix + "LOG_LEVEL"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, os.Stdout, log); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "audit-tail:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, o options, out io.Writer, log *slog.Logger) error {
	if len(o.brokers) == 0 {
		return errors.New("no brokers: pass -brokers or set SOCURE_KAFKA_BROKERS")
	}
	offset := kgo.NewOffset().AtEnd()
	if o.fromStart {
		offset = kgo.NewOffset().AtStart()
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(o.brokers...),
		kgo.ConsumeTopics(o.topic),
		kgo.ConsumeResetOffset(offset),
	)
	if err != nil {
		return fmt.Errorf("create kafka consumer: %w", err)
	}
	defer client.Close()

	f := newFilter(o.subject)
	enc := json.NewEncoder(out)
	printed := 0
	for {
		fetches := client.PollFetches(ctx)
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, fe := range fetches.Errors() {
			log.WarnContext(ctx, "fetch error", "topic", fe.Topic, "partition", fe.Partition, "error", fe.Err)
		}

		var encErr error
		fetches.EachRecord(func(r *kgo.Record) {
			if encErr != nil || (o.limit > 0 && printed >= o.limit) {
				return
			}
			event, ok := f.match(r.Value)
			if !ok {
				return
			}
			if encErr = enc.Encode(event); encErr == nil {
				printed++
			}
		})
		if encErr != nil {
			return fmt.Errorf("write event: %w", encErr)
		}
		if o.limit > 0 && printed >= o.limit {
			return nil
		}
	}
}

// filter selects events by hashed subject; events are keyed by the hash and
// never carry the raw value.
type filter struct {
	subjectHash string
}

func newFilter(subject string) filter {
	if subject == "" {
		return filter{}
	}
	return filter{subjectHash: privacy.HashIdentifier(subject)}
}

func (f filter) match(value []byte) (audit.Event, bool) {
	var event audit.Event
	if err := json.Unmarshal(value, &event); err != nil {
		return audit.Event{}, false
	}
	if f.subjectHash != "" && event.Subject != f.subjectHash {
		return audit.Event{}, false
	}
	return event, true
}

func splitBrokers(s string) []string {
	var out []string
	for b := range strings.SplitSeq(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

func envOr(name, fallback string) string {
	if v := os.Getenv(config.EnvPrefix + name); v != "" {
		return v
	}
	return fallback
}
