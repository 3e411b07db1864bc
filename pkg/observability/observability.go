// Package observability provides OpenTelemetry metrics for the case
// workflow service: recompute outcomes, export volume, and request
// durations.
package observability

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Config configures the metrics provider.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	OTLPEndpoint   string // gRPC endpoint, e.g. "localhost:4317"
	Enabled        bool
}

// DefaultConfig returns dev defaults with export disabled.
func DefaultConfig() *Config {
	return &Config{
		ServiceName:    "autocomply-core",
		ServiceVersion: "1.0.0",
		Environment:    "dev",
		Enabled:        false,
	}
}

// Provider owns the meter provider and the domain instruments.
type Provider struct {
	config        *Config
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	logger        *slog.Logger

	recomputeCounter metric.Int64Counter
	exportCounter    metric.Int64Counter
	requestDuration  metric.Float64Histogram
}

// New creates the provider. With Enabled false (or no endpoint) the
// instruments are no-ops and nothing is exported.
func New(ctx context.Context, config *Config) (*Provider, error) {
	if config == nil {
		config = DefaultConfig()
	}
	p := &Provider{
		config: config,
		logger: slog.Default().With("component", "observability"),
	}

	if config.Enabled && config.OTLPEndpoint != "" {
		exporter, err := otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(config.OTLPEndpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return nil, fmt.Errorf("observability: metric exporter: %w", err)
		}
		res, err := resource.New(ctx,
			resource.WithAttributes(
				semconv.ServiceName(config.ServiceName),
				semconv.ServiceVersion(config.ServiceVersion),
				semconv.DeploymentEnvironment(config.Environment),
			),
		)
		if err != nil {
			return nil, fmt.Errorf("observability: resource: %w", err)
		}
		p.meterProvider = sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter,
				sdkmetric.WithInterval(30*time.Second))),
		)
		otel.SetMeterProvider(p.meterProvider)
	}

	p.meter = otel.Meter(config.ServiceName)

	var err error
	if p.recomputeCounter, err = p.meter.Int64Counter("autocomply.recomputes",
		metric.WithDescription("Auto-recompute invocations by outcome")); err != nil {
		return nil, err
	}
	if p.exportCounter, err = p.meter.Int64Counter("autocomply.exports",
		metric.WithDescription("Audit bundle exports by redaction mode")); err != nil {
		return nil, err
	}
	if p.requestDuration, err = p.meter.Float64Histogram("autocomply.request.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	return p, nil
}

// RecordRecompute counts one recompute with its outcome:
// run | throttled | failed.
func (p *Provider) RecordRecompute(ctx context.Context, outcome string, trigger string) {
	if p == nil {
		return
	}
	p.recomputeCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.String("trigger", trigger),
	))
}

// RecordExport counts one audit export.
func (p *Provider) RecordExport(ctx context.Context, mode string) {
	if p == nil {
		return
	}
	p.exportCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("mode", mode)))
}

// RecordRequest records one HTTP request observation.
func (p *Provider) RecordRequest(ctx context.Context, route string, status int, seconds float64) {
	if p == nil {
		return
	}
	p.requestDuration.Record(ctx, seconds, metric.WithAttributes(
		attribute.String("route", route),
		attribute.Int("status", status),
	))
}

// Shutdown flushes pending metrics.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.meterProvider == nil {
		return nil
	}
	return p.meterProvider.Shutdown(ctx)
}
