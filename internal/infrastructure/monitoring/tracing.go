package monitoring

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/turtacn/tokenkit/internal/config"
	"github.com/turtacn/tokenkit/pkg/logger"
)

// TracingManager owns the process tracer provider. The library packages start their
// spans on the global provider, so installing one here is all that is needed.
type TracingManager struct {
	provider *sdktrace.TracerProvider
	logger   logger.Logger
}

// NewTracingManager installs a sampling tracer provider as the global one when tracing is
// enabled. Exporters are attached through opts, e.g. sdktrace.WithBatcher.
func NewTracingManager(cfg config.TracingConfig, log logger.Logger, opts ...sdktrace.TracerProviderOption) *TracingManager {
	if !cfg.Enabled {
		log.Debug(context.Background(), "tracing is disabled")
		return &TracingManager{logger: log}
	}

	res := resource.NewSchemaless(attribute.String("service.name", cfg.ServiceName))
	base := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SamplingRate))),
	}
	provider := sdktrace.NewTracerProvider(append(base, opts...)...)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	log.Info(context.Background(), "tracing initialized",
		logger.String("service", cfg.ServiceName),
		logger.Any("sampling_rate", cfg.SamplingRate),
	)
	return &TracingManager{provider: provider, logger: log}
}

// Enabled reports whether a provider was installed
func (tm *TracingManager) Enabled() bool { return tm.provider != nil }

// Shutdown flushes pending spans
func (tm *TracingManager) Shutdown(ctx context.Context) error {
	if tm.provider == nil {
		return nil
	}
	if err := tm.provider.Shutdown(ctx); err != nil {
		tm.logger.Error(ctx, "failed to shut down tracer provider", err)
		return err
	}
	return nil
}
