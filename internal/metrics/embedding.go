// Package metrics holds the Prometheus collectors used by the CLI's embedding
// provider and by the fake server's HTTP layer.
package metrics

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Embedding holds the embedding provider metrics.
type Embedding struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	TokensTotal     *prometheus.CounterVec
	ErrorsTotal     *prometheus.CounterVec
}

// NewEmbedding creates embedding metrics and registers them on reg.
// A nil reg leaves them unregistered; collectors already registered under
// the same name are reused.
func NewEmbedding(reg prometheus.Registerer) (*Embedding, error) {
	m := &Embedding{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pieskieo",
				Name:      "embedding_requests_total",
				Help:      "Total number of embedding requests",
			},
			[]string{"provider", "model", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "pieskieo",
				Name:      "embedding_request_duration_seconds",
				Help:      "Embedding request duration in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"provider", "model"},
		),
		TokensTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pieskieo",
				Name:      "embedding_tokens_total",
				Help:      "Total embedding tokens consumed",
			},
			[]string{"provider", "model", "type"},
		),
		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pieskieo",
				Name:      "embedding_errors_total",
				Help:      "Total embedding errors",
			},
			[]string{"provider", "model", "error_type"},
		),
	}
	if reg == nil {
		return m, nil
	}
	if err := register(reg, &m.RequestsTotal); err != nil {
		return nil, err
	}
	if err := register(reg, &m.RequestDuration); err != nil {
		return nil, err
	}
	if err := register(reg, &m.TokensTotal); err != nil {
		return nil, err
	}
	if err := register(reg, &m.ErrorsTotal); err != nil {
		return nil, err
	}
	return m, nil
}

// register registers c or swaps in the collector already registered under its name.
func register[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	err := reg.Register(*c)
	if err == nil {
		return nil
	}
	var are prometheus.AlreadyRegisteredError
	if !errors.As(err, &are) {
		return fmt.Errorf("register metric: %w", err)
	}
	existing, ok := are.ExistingCollector.(T)
	if !ok {
		return fmt.Errorf("metric already registered as %T", are.ExistingCollector)
	}
	*c = existing
	return nil
}
