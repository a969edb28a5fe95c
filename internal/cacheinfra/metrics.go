package cacheinfra

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/goliatone/go-cache-subject"

// Metrics groups the instruments recorded by memos, subjects and stores.
// A nil *Metrics records nothing.
type Metrics struct {
	memoLoads     metric.Int64Counter
	memoHits      metric.Int64Counter
	deliveries    metric.Int64Counter
	storeFailures metric.Int64Counter
}

// NewMetrics creates the instruments on the given provider.
func NewMetrics(provider metric.MeterProvider) (*Metrics, error) {
	meter := provider.Meter(meterName)

	memoLoads, err := meter.Int64Counter("cache.memo.loads",
		metric.WithDescription("Loader invocations, by outcome"))
	if err != nil {
		return nil, err
	}

	memoHits, err := meter.Int64Counter("cache.memo.hits",
		metric.WithDescription("Lookups answered from a resolved key"))
	if err != nil {
		return nil, err
	}

	deliveries, err := meter.Int64Counter("cache.subject.deliveries",
		metric.WithDescription("Events handed to observers, by kind"))
	if err != nil {
		return nil, err
	}

	storeFailures, err := meter.Int64Counter("cache.store.failures",
		metric.WithDescription("Swallowed store failures, by backend and operation"))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		memoLoads:     memoLoads,
		memoHits:      memoHits,
		deliveries:    deliveries,
		storeFailures: storeFailures,
	}, nil
}

// DefaultMetrics records through the global meter provider.
func DefaultMetrics() *Metrics {
	m, err := NewMetrics(otel.GetMeterProvider())
	if err != nil {
		m, _ = NewMetrics(noop.NewMeterProvider())
	}
	return m
}

// MemoLoad counts a loader invocation. outcome is "ok" or "error".
func (m *Metrics) MemoLoad(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.memoLoads.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// MemoHit counts a lookup served without loading.
func (m *Metrics) MemoHit(ctx context.Context) {
	if m == nil {
		return
	}
	m.memoHits.Add(ctx, 1)
}

// Delivered counts events of one kind handed to n observers.
func (m *Metrics) Delivered(ctx context.Context, kind string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.deliveries.Add(ctx, int64(n), metric.WithAttributes(attribute.String("kind", kind)))
}

// StoreFailure counts a failure a store absorbed.
func (m *Metrics) StoreFailure(ctx context.Context, backend Backend, op string) {
	if m == nil {
		return
	}
	m.storeFailures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("backend", string(backend)),
		attribute.String("op", op),
	))
}
