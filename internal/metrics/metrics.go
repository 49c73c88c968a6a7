// Package metrics installs the global OpenTelemetry meter provider and
// serves the Prometheus scrape endpoint.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.10.0"

	"github.com/fd1az/xchain-pricer/internal/logger"
)

// DefaultPrometheusPort is used when telemetry.prometheus_port is unset.
const DefaultPrometheusPort = 9090

func newReader(ctx context.Context, e Exporter) (sdkmetric.Reader, error) {
	switch e.Kind {
	case Prometheus:
		exp, err := prometheus.New()
		if err != nil {
			return nil, fmt.Errorf("prometheus exporter: %w", err)
		}
		return exp, nil

	case OTLP:
		opts := []otlpmetricgrpc.Option{
			otlpmetricgrpc.WithEndpointURL(e.Endpoint),
			otlpmetricgrpc.WithHeaders(e.Headers),
		}
		if e.Insecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		exp, err := otlpmetricgrpc.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("otlp metric exporter: %w", err)
		}
		return sdkmetric.NewPeriodicReader(exp), nil
	}
	return nil, fmt.Errorf("unknown metrics exporter %q", e.Kind)
}

// Setup builds a meter provider with one reader per exporter and installs it
// globally. With no exporters, instruments record into a provider nobody
// reads. The service name falls back to OTEL_SERVICE_NAME.
func Setup(ctx context.Context, opts ...Option) (*sdkmetric.MeterProvider, error) {
	var s settings
	for _, opt := range opts {
		opt(&s)
	}
	if s.serviceName == "" {
		s.serviceName = os.Getenv("OTEL_SERVICE_NAME")
	}

	mpOpts := []sdkmetric.Option{
		sdkmetric.WithResource(resource.NewSchemaless(semconv.ServiceNameKey.String(s.serviceName))),
	}
	for _, e := range s.exporters {
		r, err := newReader(ctx, e)
		if err != nil {
			return nil, err
		}
		mpOpts = append(mpOpts, sdkmetric.WithReader(r))
	}

	mp := sdkmetric.NewMeterProvider(mpOpts...)
	otel.SetMeterProvider(mp)
	return mp, nil
}

// ServePrometheus serves /metrics on port in the background. Bind errors are
// returned; later serve errors are logged. Port 0 picks a free port.
func ServePrometheus(log logger.LoggerInterface, port int) (*http.Server, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("metrics listen: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	log.Info(context.Background(), "serving metrics", "addr", ln.Addr().String(), "path", "/metrics")
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(context.Background(), "metrics server stopped", "error", err)
		}
	}()
	return srv, nil
}
