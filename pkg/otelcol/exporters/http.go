package exporters

import (
	"context"
	"time"

	"tsmarket/pkg/config"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
)

// ProvideHttp builds an OTLP/HTTP span exporter pointed at OTEL.ADDR.
func ProvideHttp(cfg *config.Config) (*otlptrace.Exporter, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	opts := []otlptracehttp.Option{
		otlptracehttp.WithInsecure(),
		otlptracehttp.WithCompression(otlptracehttp.GzipCompression),
	}
	if cfg.Otel.Addr != "" {
		opts = append(opts, otlptracehttp.WithEndpoint(cfg.Otel.Addr))
	}

	return otlptrace.New(ctx, otlptracehttp.NewClient(opts...))
}
