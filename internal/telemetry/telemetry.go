// Package telemetry installs the OpenTelemetry meter provider and exposes
// its instruments in the Prometheus text format.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	otelprometheus "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const serviceName = "commitguard"

// Bundle owns the meter provider and the registry backing /metrics.
type Bundle struct {
	provider *sdkmetric.MeterProvider
	registry *prometheus.Registry
	logger   *slog.Logger
}

type otelErrorHandler struct {
	logger *slog.Logger
}

func (h otelErrorHandler) Handle(err error) {
	if err != nil {
		h.logger.Warn("telemetry.exporter.error", "error", err)
	}
}

// Setup builds a meter provider that exports through a private Prometheus
// registry and installs it as the global provider.
func Setup(ctx context.Context, version string, logger *slog.Logger) (*Bundle, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	res, err := resource.New(ctx,
		resource.WithSchemaURL(semconv.SchemaURL),
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: build resource: %w", err)
	}

	registry := prometheus.NewRegistry()
	exporter, err := otelprometheus.New(otelprometheus.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("telemetry: start prometheus exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(provider)
	otel.SetErrorHandler(otelErrorHandler{logger: logger})

	return &Bundle{provider: provider, registry: registry, logger: logger}, nil
}

// MeterProvider returns the installed provider.
func (b *Bundle) MeterProvider() metric.MeterProvider {
	return b.provider
}

// Handler serves the registry in the Prometheus exposition format.
func (b *Bundle) Handler() http.Handler {
	return promhttp.HandlerFor(b.registry, promhttp.HandlerOpts{})
}

// NewMetricsServer returns a server exposing Handler at /metrics on addr.
func (b *Bundle) NewMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", b.Handler())
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// Shutdown flushes and stops the meter provider.
func (b *Bundle) Shutdown(ctx context.Context) error {
	if b == nil || b.provider == nil {
		return nil
	}
	if err := b.provider.Shutdown(ctx); err != nil && !errors.Is(err, sdkmetric.ErrReaderShutdown) {
		b.logger.Warn("telemetry.shutdown.metric_failure", "error", err)
		return fmt.Errorf("metric shutdown: %w", err)
	}
	b.logger.Info("telemetry.shutdown.complete")
	return nil
}
