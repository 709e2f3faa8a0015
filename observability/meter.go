package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/mrstream/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	Endpoint       string
	Insecure       bool
	Interval       time.Duration
}

// InitMeter initializes the OpenTelemetry meter provider and installs it
// globally. The provider should be shut down on exit.
func InitMeter(ctx context.Context, config MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(newResource(config.ServiceName, config.ServiceVersion, config.Environment)),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the instruments recorded by stages and runners.
type Metrics struct {
	recordsIn     metric.Int64Counter
	recordsOut    metric.Int64Counter
	stageTotal    metric.Int64Counter
	stageDuration metric.Float64Histogram
	truncations   metric.Int64Counter
	errorTotal    metric.Int64Counter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	recordsIn, err := meter.Int64Counter("mrstream.records.in",
		metric.WithDescription("Records read by a stage"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating mrstream.records.in counter: %w", err)
	}

	recordsOut, err := meter.Int64Counter("mrstream.records.out",
		metric.WithDescription("Records written by a stage"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating mrstream.records.out counter: %w", err)
	}

	stageTotal, err := meter.Int64Counter("mrstream.stage.total",
		metric.WithDescription("Stage executions by phase and status"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating mrstream.stage.total counter: %w", err)
	}

	stageDuration, err := meter.Float64Histogram("mrstream.stage.duration",
		metric.WithDescription("Duration of stage executions in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating mrstream.stage.duration histogram: %w", err)
	}

	truncations, err := meter.Int64Counter("mrstream.input.truncated",
		metric.WithDescription("Local runs whose input hit a resource limit"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating mrstream.input.truncated counter: %w", err)
	}

	errorTotal, err := meter.Int64Counter("mrstream.error.total",
		metric.WithDescription("Errors by code and component"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating mrstream.error.total counter: %w", err)
	}

	return &Metrics{
		recordsIn:     recordsIn,
		recordsOut:    recordsOut,
		stageTotal:    stageTotal,
		stageDuration: stageDuration,
		truncations:   truncations,
		errorTotal:    errorTotal,
	}, nil
}

var (
	defaultMetricsOnce sync.Once
	defaultMetrics     *Metrics
)

// DefaultMetrics returns instruments on the global meter provider. They follow
// the provider installed by Init even when created before it.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		m, err := NewMetrics(Meter(instrumentationName))
		if err != nil {
			logger.Warn("metrics unavailable", logger.ErrorFields("new_metrics", err))
			m = &Metrics{}
		}
		defaultMetrics = m
	})
	return defaultMetrics
}

// RecordStage records one finished stage with its record counts.
func (m *Metrics) RecordStage(ctx context.Context, phase, status string, in, out int64, duration time.Duration) {
	if m.stageTotal == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("phase", phase))
	m.recordsIn.Add(ctx, in, attrs)
	m.recordsOut.Add(ctx, out, attrs)
	m.stageTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("phase", phase),
		attribute.String("status", status),
	))
	m.stageDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordTruncation records input dropped because of a resource limit.
func (m *Metrics) RecordTruncation(ctx context.Context, limit string) {
	if m.truncations == nil {
		return
	}
	m.truncations.Add(ctx, 1, metric.WithAttributes(attribute.String("limit", limit)))
}

// RecordError records an error by code and component.
func (m *Metrics) RecordError(ctx context.Context, code, component string) {
	if m.errorTotal == nil {
		return
	}
	m.errorTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("code", code),
		attribute.String("component", component),
	))
}
