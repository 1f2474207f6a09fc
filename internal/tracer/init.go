package tracer

import (
	"context"
	"log"

	"club-membership-be/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

const serviceName = "club-membership-backend"

// InitTracer initializes OpenTelemetry with an OTLP HTTP exporter.
// Returns a shutdown function that should be called on application exit.
func InitTracer(cfg config.TracingConfig) func(context.Context) error {
	if !cfg.Enabled {
		log.Println("OpenTelemetry tracing is disabled (set OTEL_ENABLED=true to enable)")
		return func(context.Context) error { return nil }
	}

	exporter, err := otlptracehttp.New(context.Background(),
		otlptracehttp.WithEndpoint(cfg.Endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		log.Printf("Warning: Failed to create OTLP exporter: %v (tracing disabled)", err)
		return func(context.Context) error { return nil }
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(serviceName),
		)),
	)

	otel.SetTracerProvider(tp)
	log.Printf("OpenTelemetry tracer initialized (endpoint: %s)", cfg.Endpoint)

	return tp.Shutdown
}
