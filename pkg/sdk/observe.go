package pieskieo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const instrumentationName = "github.com/pieskieo/pieskieo-go/pkg/sdk"

// sdkMetrics holds prometheus metrics registered for the SDK.
type sdkMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

func newSDKMetrics(reg prometheus.Registerer) (*sdkMetrics, error) {
	m := &sdkMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pieskieo",
			Subsystem: "sdk",
			Name:      "operations_total",
			Help:      "Total SDK operations by type and outcome.",
		}, []string{"operation", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pieskieo",
			Subsystem: "sdk",
			Name:      "operation_duration_seconds",
			Help:      "SDK operation duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	if err := registerOrReuse(reg, &m.operations); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.duration); err != nil {
		return nil, err
	}
	return m, nil
}

// registerOrReuse registers a collector or reuses an existing one.
func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	if err := reg.Register(*c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			existing, ok := are.ExistingCollector.(T)
			if !ok {
				return fmt.Errorf("pieskieo: metric already registered with incompatible type: %T", are.ExistingCollector)
			}
			*c = existing
			return nil
		}
		return fmt.Errorf("pieskieo: register metric: %w", err)
	}
	return nil
}

// observer provides logging, metrics and tracing for SDK operations.
type observer struct {
	logger  *slog.Logger
	metrics *sdkMetrics
	tracer  trace.Tracer
}

func newObserver(
	logger *slog.Logger, reg prometheus.Registerer, tp trace.TracerProvider,
) (*observer, error) {
	var m *sdkMetrics
	if reg != nil {
		var err error
		m, err = newSDKMetrics(reg)
		if err != nil {
			return nil, err
		}
	}
	var tracer trace.Tracer
	if tp != nil {
		tracer = tp.Tracer(instrumentationName)
	}
	return &observer{logger: logger, metrics: m, tracer: tracer}, nil
}

// begin opens a span for op (when tracing is on) and returns the function
// that closes it and records the outcome.
func (o *observer) begin(ctx context.Context, op string) (context.Context, func(error)) {
	start := time.Now()
	if o == nil || o.tracer == nil {
		return ctx, func(err error) { o.observe(op, start, err) }
	}
	ctx, span := o.tracer.Start(ctx, "pieskieo."+op, trace.WithSpanKind(trace.SpanKindClient))
	ctx = context.WithValue(ctx, opSpanKey{}, span)
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		o.observe(op, start, err)
	}
}

type opSpanKey struct{}

// opSpan returns the span begin opened for the current operation. Without a
// tracer it is a no-op span, so spans owned by the caller are never touched.
func opSpan(ctx context.Context) trace.Span {
	if span, ok := ctx.Value(opSpanKey{}).(trace.Span); ok {
		return span
	}
	return noop.Span{}
}

func (o *observer) observe(op string, start time.Time, err error) {
	if o == nil {
		return
	}
	dur := time.Since(start)
	result := outcome(err)

	if o.metrics != nil {
		o.metrics.operations.WithLabelValues(op, result).Inc()
		o.metrics.duration.WithLabelValues(op).Observe(dur.Seconds())
	}

	if o.logger == nil {
		return
	}
	if err == nil {
		o.logger.Debug("operation completed", "op", op, "duration", dur)
		return
	}
	attrs := []any{"op", op, "outcome", result, "duration", dur, "error", err}
	if code := StatusCode(err); code != 0 {
		attrs = append(attrs, "status", code)
	}
	o.logger.Warn("operation failed", attrs...)
}

// outcome classifies err for the status label of operations_total.
func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrNoEmbedder):
		return "invalid_input"
	case errors.Is(err, ErrDecode):
		return "decode"
	}
	switch code := StatusCode(err); {
	case code == http.StatusNotFound:
		return "not_found"
	case code >= http.StatusInternalServerError:
		return "server_error"
	case code != 0:
		return "client_error"
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		return "transport"
	}
	return "error"
}
