package cache

import (
	"github.com/goliatone/go-cache-subject/internal/cacheinfra"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the OpenTelemetry instruments shared by memos, subjects and
// stores. A nil *Metrics records nothing.
type Metrics = cacheinfra.Metrics

// NewMetrics creates the instruments on provider.
func NewMetrics(provider metric.MeterProvider) (*Metrics, error) {
	return cacheinfra.NewMetrics(provider)
}

// DefaultMetrics records through the global meter provider.
func DefaultMetrics() *Metrics {
	return cacheinfra.DefaultMetrics()
}
