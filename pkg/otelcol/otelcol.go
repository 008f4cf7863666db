package otelcol

import (
	"context"

	"tsmarket/pkg/config"
	"tsmarket/pkg/otelcol/exporters"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module provides the process tracer provider. With OTEL.ENABLE off it
// hands out the global no-op provider.
var Module = fx.Module("otelcol",
	fx.Provide(NewTracerProvider),
)

func serviceResource(cfg *config.Config) *resource.Resource {
	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		attribute.String("service.name", cfg.AppName),
		attribute.String("service.version", cfg.AppVersion),
		attribute.String("deployment.environment", cfg.AppEnv),
	))
	if err != nil {
		return resource.Default()
	}
	return res
}

func ProvideTrace(exporter sdktrace.SpanExporter, opts ...sdktrace.TracerProviderOption) *sdktrace.TracerProvider {
	opts = append(opts, sdktrace.WithBatcher(exporter))
	return sdktrace.NewTracerProvider(opts...)
}

func NewTracerProvider(lc fx.Lifecycle, cfg *config.Config) (trace.TracerProvider, error) {
	if !cfg.Otel.Enable {
		return otel.GetTracerProvider(), nil
	}

	exporter, err := exporters.ProvideHttp(cfg)
	if err != nil {
		zap.L().Error("failed to create trace exporter", zap.Error(err))
		return nil, err
	}

	tp := ProvideTrace(exporter, sdktrace.WithResource(serviceResource(cfg)))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return tp.Shutdown(ctx)
		},
	})

	zap.L().Info("tracing enabled", zap.String("endpoint", cfg.Otel.Addr))
	return tp, nil
}
