// Package observability installs the OpenTelemetry meter provider that
// exports the cache and store instruments.
package observability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// DefaultInterval is the export interval used when none is configured.
const DefaultInterval = 60 * time.Second

// ErrMissingServiceName is returned when metrics are enabled without a service name.
var ErrMissingServiceName = errors.New("observability: service name is required when metrics are enabled")

// Config selects the metrics exporter.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string

	// Stdout enables the stdout exporter. When false the provider is a no-op.
	Stdout   bool
	Interval time.Duration

	// Writer receives exported metrics (default: stdout).
	Writer io.Writer
}

// Provider manages the lifecycle of the meter provider.
type Provider interface {
	// MeterProvider returns the configured meter provider.
	MeterProvider() metric.MeterProvider

	// Shutdown flushes pending data and stops the exporter.
	Shutdown(ctx context.Context) error

	// ForceFlush immediately exports pending data.
	ForceFlush(ctx context.Context) error
}

type provider struct {
	meterProvider *sdkmetric.MeterProvider
	shutdownOnce  sync.Once
	shutdownErr   error
}

// NewProvider builds the provider described by cfg and installs it as the
// global meter provider. A disabled configuration yields a no-op provider and
// leaves the global untouched.
func NewProvider(cfg *Config) (Provider, error) {
	if cfg == nil || !cfg.Stdout {
		return newNoopProvider(), nil
	}
	if cfg.ServiceName == "" {
		return nil, ErrMissingServiceName
	}

	exporter, err := createMetricExporter(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(createResource(cfg)),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
	)
	otel.SetMeterProvider(mp)

	return &provider{meterProvider: mp}, nil
}

func createMetricExporter(cfg *Config) (sdkmetric.Exporter, error) {
	opts := []stdoutmetric.Option{stdoutmetric.WithPrettyPrint()}
	if cfg.Writer != nil {
		opts = append(opts, stdoutmetric.WithWriter(cfg.Writer))
	}
	return stdoutmetric.New(opts...)
}

func createResource(cfg *Config) *resource.Resource {
	attrs := []attribute.KeyValue{
		attribute.String("service.name", cfg.ServiceName),
	}
	if cfg.ServiceVersion != "" {
		attrs = append(attrs, attribute.String("service.version", cfg.ServiceVersion))
	}
	if cfg.Environment != "" {
		attrs = append(attrs, attribute.String("deployment.environment.name", cfg.Environment))
	}
	return resource.NewSchemaless(attrs...)
}

func (p *provider) MeterProvider() metric.MeterProvider {
	return p.meterProvider
}

func (p *provider) ForceFlush(ctx context.Context) error {
	return p.meterProvider.ForceFlush(ctx)
}

// Shutdown is idempotent; later calls return the first result.
func (p *provider) Shutdown(ctx context.Context) error {
	p.shutdownOnce.Do(func() {
		p.shutdownErr = p.meterProvider.Shutdown(ctx)
	})
	return p.shutdownErr
}
