package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/trace"

	"intake-notifications/internal/common/logger"
)

type Observability struct {
	meterProvider    *metric.MeterProvider
	meter            otelmetric.Meter
	dispatchCounter  otelmetric.Int64Counter
	dispatchDuration otelmetric.Float64Histogram
	tracer           trace.Tracer
	shutdownTracing  func(context.Context) error
	logger           logger.Logger
}

// New wires the OTel meter through the Prometheus exporter and, when
// jaegerEndpoint is set, a Jaeger span exporter. Exporter failures are
// logged and leave that signal disabled.
func New(serviceName, jaegerEndpoint string, log logger.Logger) *Observability {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	log = log.WithFields(map[string]interface{}{"component": "observability"})
	o := &Observability{tracer: otel.Tracer(serviceName), logger: log}

	if jaegerEndpoint != "" {
		tracer, shutdown, err := newJaegerTracer(serviceName, jaegerEndpoint)
		if err != nil {
			log.Warn("tracing disabled", map[string]interface{}{
				"endpoint": jaegerEndpoint,
				"error":    err.Error(),
			})
		} else {
			o.tracer = tracer
			o.shutdownTracing = shutdown
		}
	}

	exporter, err := prometheus.New()
	if err != nil {
		log.Warn("dispatch metrics disabled", map[string]interface{}{"error": err.Error()})
		return o
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	dispatchCounter, _ := meter.Int64Counter(
		"notifications.dispatched",
		otelmetric.WithDescription("Number of notification batches dispatched"),
	)

	dispatchDuration, _ := meter.Float64Histogram(
		"notifications.dispatch.duration",
		otelmetric.WithDescription("Notification batch dispatch duration"),
		otelmetric.WithUnit("ms"),
	)

	o.meterProvider = provider
	o.meter = meter
	o.dispatchCounter = dispatchCounter
	o.dispatchDuration = dispatchDuration
	return o
}

// NewNoop returns an Observability that records nothing.
func NewNoop() *Observability {
	return &Observability{tracer: otel.Tracer("noop")}
}

// Tracer returns the tracer used for dispatch spans. It is never nil.
func (o *Observability) Tracer() trace.Tracer {
	if o == nil || o.tracer == nil {
		return otel.Tracer("intake-notifications")
	}
	return o.tracer
}

func (o *Observability) RecordDispatch(ctx context.Context, status string, attempted, delivered int) {
	if o == nil || o.dispatchCounter == nil {
		return
	}
	o.dispatchCounter.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("status", status),
		attribute.Int("attempted", attempted),
		attribute.Int("delivered", delivered),
	))
}

func (o *Observability) RecordDispatchDuration(ctx context.Context, duration time.Duration, status string) {
	if o == nil || o.dispatchDuration == nil {
		return
	}
	o.dispatchDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
		attribute.String("status", status),
	))
}

func (o *Observability) Shutdown() {
	if o == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if o.meterProvider != nil {
		if err := o.meterProvider.Shutdown(ctx); err != nil {
			o.logger.Warn("meter provider shutdown failed", map[string]interface{}{"error": err.Error()})
		}
	}
	if o.shutdownTracing != nil {
		if err := o.shutdownTracing(ctx); err != nil {
			o.logger.Warn("tracer provider shutdown failed", map[string]interface{}{"error": err.Error()})
		}
	}
}
