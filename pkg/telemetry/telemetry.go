package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// ShutdownFunc flushes and stops the installed meter provider.
type ShutdownFunc func(context.Context) error

type Config struct {
	Exporter     string        `split_words:"true" default:"none"`
	OTLPEndpoint string        `envconfig:"OTLP_ENDPOINT"`
	OTLPInsecure bool          `envconfig:"OTLP_INSECURE" default:"true"`
	Interval     time.Duration `split_words:"true" default:"1m"`
}

// Init installs a global meter provider for the configured exporter. The
// "none" exporter leaves otel's no-op provider in place.
func Init(ctx context.Context, serviceName string, cfg Config) (ShutdownFunc, error) {
	var exporter sdkmetric.Exporter
	switch cfg.Exporter {
	case "", "none":
		return func(context.Context) error { return nil }, nil
	case "stdout":
		exp, err := stdoutmetric.New()
		if err != nil {
			return nil, fmt.Errorf("create stdout metric exporter: %w", err)
		}
		exporter = exp
	case "otlp":
		if cfg.OTLPEndpoint == "" {
			return nil, fmt.Errorf("otlp endpoint is required")
		}
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint)}
		if cfg.OTLPInsecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		exp, err := otlpmetricgrpc.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("create otlp metric exporter: %w", err)
		}
		exporter = exp
	default:
		return nil, fmt.Errorf("unknown telemetry exporter: %s", cfg.Exporter)
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(serviceName)))
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	return mp.Shutdown, nil
}
