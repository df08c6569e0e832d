package publisher

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "github.com/TylerGelinas/socure/pkg/domain-errors"
	audit "github.com/TylerGelinas/socure/pkg/platform/audit"
	"github.com/TylerGelinas/socure/pkg/platform/audit/metrics"
	"github.com/TylerGelinas/socure/pkg/platform/audit/store/memory"
)

type failingStore struct {
	err error
}

func (s *failingStore) Append(_ context.Context, _ audit.Event) error {
	return s.err
}

// blockingStore holds every Append until release is closed.
type blockingStore struct {
	release chan struct{}
	mu      sync.Mutex
	count   int
}

func (s *blockingStore) Append(_ context.Context, _ audit.Event) error {
	<-s.release
	s.mu.Lock()
	s.count++
	s.mu.Unlock()
	return nil
}

func TestPublisher_SyncEmitStampsAndStores(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)

	require.NoError(t, pub.Emit(context.Background(), audit.Event{
		Action:  string(audit.EventDecisionMade),
		Subject: "abc",
	}))

	events, err := store.ListBySubject(context.Background(), "abc")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.NotEmpty(t, events[0].ID)
	assert.False(t, events[0].Timestamp.IsZero())
}

func TestPublisher_SyncPropagatesStoreErrors(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	pub := NewPublisher(&failingStore{err: errors.New("disk full")}, WithMetrics(m))

	err := pub.Emit(context.Background(), audit.Event{Action: "x"})
	assert.EqualError(t, err, "disk full")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PersistFailures))
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(10))

	for range 5 {
		require.NoError(t, pub.Emit(context.Background(), audit.Event{Action: "x"}))
	}
	pub.Close()
	pub.Close()

	events, err := store.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, events, 5)
}

func TestPublisher_AsyncDropsWhenFull(t *testing.T) {
	store := &blockingStore{release: make(chan struct{})}
	m := metrics.New(prometheus.NewRegistry())
	pub := NewPublisher(store, WithAsyncBuffer(1), WithMetrics(m))

	var dropped int
	for range 5 {
		if err := pub.Emit(context.Background(), audit.Event{Action: "x"}); err != nil {
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
			dropped++
		}
	}
	close(store.release)
	pub.Close()

	assert.Positive(t, dropped)
	assert.Equal(t, float64(dropped), testutil.ToFloat64(m.EventsDropped))
	assert.Equal(t, 5, dropped+store.count)
}

func TestPublisher_EmitAfterCloseFails(t *testing.T) {
	store := memory.NewInMemoryStore()
	m := metrics.New(prometheus.NewRegistry())
	pub := NewPublisher(store, WithAsyncBuffer(4), WithMetrics(m))
	pub.Close()

	err := pub.Emit(context.Background(), audit.Event{Action: "x"})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsDropped))
	assert.Zero(t, store.Len())
}

func TestPublisher_ConcurrentEmitAndClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(64))

	var wg sync.WaitGroup
	var accepted, rejected atomic.Int32
	for range 32 {
		wg.Go(func() {
			if err := pub.Emit(context.Background(), audit.Event{Action: "x"}); err != nil {
				rejected.Add(1)
				return
			}
			accepted.Add(1)
		})
	}
	pub.Close()
	wg.Wait()

	assert.Equal(t, int32(32), accepted.Load()+rejected.Load())
	assert.Equal(t, int(accepted.Load()), store.Len())
}

func TestPublisher_RequiresStore(t *testing.T) {
	assert.Panics(t, func() { NewPublisher(nil) })
}
