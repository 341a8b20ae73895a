package tracing

import (
	"context"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Config selects the OTLP/HTTP collector. An empty endpoint disables export.
type Config struct {
	Endpoint    string
	Insecure    bool
	ServiceName string
}

// Provider owns the process-wide tracer provider.
type Provider struct {
	tp *sdktrace.TracerProvider
}

// New installs a global tracer provider exporting to cfg.Endpoint. With no
// endpoint the otel no-op provider stays in place.
func New(cfg Config, logger *slog.Logger) (*Provider, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		logger.Info("tracing disabled, no otlp endpoint configured")
		return &Provider{}, nil
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(context.Background(), opts...)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", cfg.ServiceName),
		)),
	)
	otel.SetTracerProvider(tp)
	logger.Info("tracing enabled", "endpoint", endpoint)
	return &Provider{tp: tp}, nil
}

// Shutdown flushes pending spans.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.tp == nil {
		return nil
	}
	return p.tp.Shutdown(ctx)
}
