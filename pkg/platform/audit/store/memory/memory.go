package memory

import (
	"context"
	"sync"

	audit "github.com/TylerGelinas/socure/pkg/platform/audit"
)

// DefaultCapacity bounds the store when no capacity is given.
const DefaultCapacity = 10_000

// InMemoryStore keeps the most recent audit events in process, evicting the
// oldest once full. Used in development and tests.
type InMemoryStore struct {
	mu       sync.RWMutex
	capacity int
	events   []audit.Event
	head     int // index of the oldest event once the ring has wrapped
}

type Option func(*InMemoryStore)

// WithCapacity sets how many events are retained. Values <= 0 are ignored.
func WithCapacity(n int) Option {
	return func(s *InMemoryStore) {
		if n > 0 {
			s.capacity = n
		}
	}
}

func NewInMemoryStore(opts ...Option) *InMemoryStore {
	s := &InMemoryStore{capacity: DefaultCapacity}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) < s.capacity {
		s.events = append(s.events, event)
		return nil
	}
	s.events[s.head] = event
	s.head = (s.head + 1) % s.capacity
	return nil
}

// Len reports how many events are currently retained.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// ListBySubject returns events for the hashed subject, oldest first.
func (s *InMemoryStore) ListBySubject(_ context.Context, subject string) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []audit.Event
	s.each(func(e audit.Event) {
		if e.Subject == subject {
			out = append(out, e)
		}
	})
	return out, nil
}

// ListAll returns a copy of every retained event, oldest first.
func (s *InMemoryStore) ListAll(_ context.Context) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]audit.Event, 0, len(s.events))
	s.each(func(e audit.Event) {
		out = append(out, e)
	})
	return out, nil
}

// each visits events oldest first. Callers hold mu.
func (s *InMemoryStore) each(fn func(audit.Event)) {
	for i := range s.events {
		fn(s.events[(s.head+i)%len(s.events)])
	}
}
