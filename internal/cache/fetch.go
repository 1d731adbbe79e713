package cache

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/eugener/papertrail/internal/telemetry"
)

// Fetcher memoizes producer calls in a Store.
//
// By default concurrent misses on the same key each invoke their producer;
// WithCoalescing collapses them into one call. Failed producers are never
// cached in either mode.
type Fetcher struct {
	store   *Store
	tracer  trace.Tracer
	metrics *telemetry.Metrics  // nil = no metrics
	group   *singleflight.Group // nil = no coalescing
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithCoalescing shares one in-flight producer call among concurrent misses
// for the same key. The shared call ignores cancellation of the caller that
// started it; a caller whose context ends returns ctx.Err() without waiting.
func WithCoalescing() FetcherOption {
	return func(f *Fetcher) { f.group = &singleflight.Group{} }
}

// WithFetchMetrics counts producer failures.
func WithFetchMetrics(m *telemetry.Metrics) FetcherOption {
	return func(f *Fetcher) { f.metrics = m }
}

// NewFetcher returns a Fetcher backed by store.
func NewFetcher(store *Store, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		store:  store,
		tracer: telemetry.Tracer("github.com/eugener/papertrail/internal/cache"),
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Store returns the underlying store.
func (f *Fetcher) Store() *Store { return f.store }

// Fetch returns the value cached under key, or calls producer, caches its
// result for ttl (the store default when ttl <= 0) and returns it.
// A producer error is returned unchanged and nothing is written.
// A cached value of a different type than T counts as a miss.
func Fetch[T any](ctx context.Context, f *Fetcher, key string, producer func(context.Context) (T, error), ttl time.Duration) (T, error) {
	if v, ok := GetAs[T](f.store, key); ok {
		return v, nil
	}

	if f.group == nil {
		return produce(ctx, f, key, producer, ttl)
	}

	// The shared call outlives any single caller; each caller still stops
	// waiting when its own context ends.
	ch := f.group.DoChan(key, func() (any, error) {
		return produce(context.WithoutCancel(ctx), f, key, producer, ttl)
	})
	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		if v, ok := as[T](res.Val); ok {
			return v, nil
		}
		// Joined a call producing another type under the same key.
		return produce(ctx, f, key, producer, ttl)
	}
}

func produce[T any](ctx context.Context, f *Fetcher, key string, producer func(context.Context) (T, error), ttl time.Duration) (T, error) {
	prefix := KeyPrefix(key)
	ctx, span := f.tracer.Start(ctx, "cache.fetch", trace.WithAttributes(
		attribute.String("cache.key_prefix", prefix),
	))
	defer span.End()

	v, err := producer(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if f.metrics != nil {
			f.metrics.ProducerErrors.WithLabelValues(prefix).Inc()
		}
		return v, err
	}
	f.store.Set(key, v, ttl)
	return v, nil
}
