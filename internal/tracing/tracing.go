// Package tracing provides OpenTelemetry setup for the scoutd agent.
package tracing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/dkiernan/scoutpost/internal/config"
)

const serviceName = "scoutd"

// Provider manages the OpenTelemetry tracer provider for the agent. A
// disabled provider is valid and hands out no-op tracers.
type Provider struct {
	tp      *sdktrace.TracerProvider
	enabled bool
}

// NewProvider builds a tracer provider from the agent configuration,
// installs it globally, and sets W3C trace context propagation. When
// tracing is disabled it returns a no-op provider.
func NewProvider(cfg *config.Config) (*Provider, error) {
	if !cfg.TracingEnabled {
		slog.Info("tracing disabled")
		return &Provider{}, nil
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			attribute.String("environment", cfg.Env),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := newExporter(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create exporter: %w", err)
	}

	var sampler sdktrace.Sampler
	switch {
	case cfg.TracingSampling >= 1.0:
		sampler = sdktrace.AlwaysSample()
	case cfg.TracingSampling <= 0.0:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(cfg.TracingSampling)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
		sdktrace.WithBatcher(exporter,
			sdktrace.WithBatchTimeout(5*time.Second),
		),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	slog.Info("tracing initialized",
		"exporter", cfg.TracingExporter,
		"endpoint", cfg.TracingEndpoint,
		"sampling", cfg.TracingSampling,
	)

	return &Provider{tp: tp, enabled: true}, nil
}

func newExporter(cfg *config.Config) (sdktrace.SpanExporter, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch cfg.TracingExporter {
	case "otlp-grpc":
		opts := []otlptracegrpc.Option{}
		if cfg.TracingEndpoint != "" {
			opts = append(opts, otlptracegrpc.WithEndpoint(cfg.TracingEndpoint))
		}
		if cfg.TracingInsecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		return otlptracegrpc.New(ctx, opts...)
	case "otlp-http", "":
		opts := []otlptracehttp.Option{}
		if cfg.TracingEndpoint != "" {
			opts = append(opts, otlptracehttp.WithEndpoint(cfg.TracingEndpoint))
		}
		if cfg.TracingInsecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		return otlptracehttp.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unsupported exporter type: %s", cfg.TracingExporter)
	}
}

// Tracer returns a tracer for the given name. On a disabled provider this
// delegates to the global (no-op) tracer provider.
func (p *Provider) Tracer(name string) trace.Tracer {
	if p.tp == nil {
		return otel.Tracer(name)
	}
	return p.tp.Tracer(name)
}

// IsEnabled reports whether spans are being exported.
func (p *Provider) IsEnabled() bool {
	return p.enabled
}

// Shutdown flushes pending spans and stops the provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tp == nil {
		return nil
	}

	slog.Info("shutting down tracer provider")
	if err := p.tp.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown tracer provider: %w", err)
	}
	return nil
}
