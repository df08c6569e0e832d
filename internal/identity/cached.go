package identity

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/TylerGelinas/socure/internal/identity/metrics"
	"github.com/TylerGelinas/socure/pkg/platform/privacy"
	"github.com/TylerGelinas/socure/pkg/platform/sentinel"
	"github.com/TylerGelinas/socure/pkg/requestcontext"
)

// Cache stores records by subject. Get returns sentinel.ErrCacheMiss when the
// subject is not cached.
type Cache interface {
	Name() string
	Get(ctx context.Context, subject string) (*Record, error)
	Set(ctx context.Context, subject string, record *Record) error
}

// CachedSource fronts a Source with a Cache. Cache failures never fail a
// lookup: reads fall through to the source and write errors are logged.
// Concurrent misses for the same subject share one source lookup, which is
// detached from any single caller's cancellation and bounded by lookupTimeout.
type CachedSource struct {
	source        Source
	cache         Cache
	group         singleflight.Group
	lookupTimeout time.Duration
	metrics       *metrics.Metrics
	logger        *slog.Logger
}

// DefaultLookupTimeout bounds a shared source lookup.
const DefaultLookupTimeout = 5 * time.Second

type CachedOption func(*CachedSource)

func WithCacheMetrics(m *metrics.Metrics) CachedOption {
	return func(c *CachedSource) { c.metrics = m }
}

// WithLookupTimeout overrides DefaultLookupTimeout. Non-positive values are ignored.
func WithLookupTimeout(d time.Duration) CachedOption {
	return func(c *CachedSource) {
		if d > 0 {
			c.lookupTimeout = d
		}
	}
}

func WithCacheLogger(l *slog.Logger) CachedOption {
	return func(c *CachedSource) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCachedSource panics if source or cache is nil.
func NewCachedSource(source Source, cache Cache, opts ...CachedOption) *CachedSource {
	if source == nil {
		panic("identity.NewCachedSource: source is required")
	}
	if cache == nil {
		panic("identity.NewCachedSource: cache is required")
	}
	c := &CachedSource{source: source, cache: cache, lookupTimeout: DefaultLookupTimeout, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *CachedSource) Lookup(ctx context.Context, subject string) (*Record, error) {
	rec, err := c.cache.Get(ctx, subject)
	switch {
	case err == nil:
		c.metrics.RecordCacheHit(c.cache.Name())
		return rec, nil
	case errors.Is(err, sentinel.ErrCacheMiss):
		c.metrics.RecordCacheMiss(c.cache.Name())
	default:
		c.metrics.RecordCacheError(c.cache.Name())
		c.logger.WarnContext(ctx, "identity cache read failed",
			"cache", c.cache.Name(),
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}

	ch := c.group.DoChan(subject, func() (any, error) {
		// Waiters for the same subject must not inherit this caller's cancellation.
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.lookupTimeout)
		defer cancel()

		start := time.Now()
		found, err := c.source.Lookup(lookupCtx, subject)
		c.metrics.ObserveLookup("source", time.Since(start))
		if err != nil {
			return nil, err
		}
		if setErr := c.cache.Set(lookupCtx, subject, found); setErr != nil {
			c.metrics.RecordCacheWriteError(c.cache.Name())
			c.logger.WarnContext(ctx, "identity cache write failed",
				"cache", c.cache.Name(),
				"subject_hash", privacy.HashIdentifier(subject),
				"error", setErr,
				"request_id", requestcontext.RequestID(ctx),
			)
		}
		return found, nil
	})

	var v any
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		v = res.Val
	}
	shared := v.(*Record)
	out := *shared
	return &out, nil
}
