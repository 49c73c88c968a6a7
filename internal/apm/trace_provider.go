package apm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/exporters/zipkin"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.10.0"

	"github.com/fd1az/xchain-pricer/internal/logger"
)

type Provider string

const (
	NewRelicProvider  Provider = "NEWRELIC_PROVIDER"
	ZipkinProvider    Provider = "ZIPKIN_PROVIDER"
	HoneycombProvider Provider = "HONEYCOMB_PROVIDER"
	ConsoleProvider   Provider = "CONSOLE_PROVIDER"
	EmptyProvider     Provider = "EMPTY_PROVIDER"
)

// ParseProvider maps the telemetry.trace_provider config value to a
// Provider. Unknown names resolve to EmptyProvider.
func ParseProvider(name string) Provider {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "zipkin":
		return ZipkinProvider
	case "console", "stdout":
		return ConsoleProvider
	case "newrelic":
		return NewRelicProvider
	case "honeycomb":
		return HoneycombProvider
	default:
		return EmptyProvider
	}
}

// ExporterConfig carries the collector endpoint and headers.
type ExporterConfig struct {
	ServiceName string
	Endpoint    string
	// Headers is a single key=value pair, as in OTEL_EXPORTER_OTLP_HEADERS.
	Headers  string
	Protocol string // grpc or http/protobuf
}

type TraceProvider interface {
	Stop() error
}

type traceProvider struct {
	tp *sdktrace.TracerProvider
}

type TracerOptions struct {
	exporter           sdktrace.SpanExporter
	tracerProviderName string
	useEmpty           bool
	err                error
}

type TracerOption func(*TracerOptions)

func WithProvider(provider Provider, cfg ExporterConfig, log logger.LoggerInterface) TracerOption {
	switch provider {
	case NewRelicProvider:
		return useNewRelic(cfg)
	case ZipkinProvider:
		return useZipkin(cfg)
	case ConsoleProvider:
		return useConsole()
	case HoneycombProvider:
		return useHoneycomb(cfg, log)
	case EmptyProvider:
		return useEmpty()
	}

	log.Warn(context.Background(), "TracerProvider not found, using EmptyProvider", "provider", string(provider))

	return useEmpty()
}

func useEmpty() TracerOption {
	return func(option *TracerOptions) {
		option.useEmpty = true
		option.tracerProviderName = string(EmptyProvider)
	}
}

func useConsole() TracerOption {
	return func(option *TracerOptions) {
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		option.exporter = exp
		option.err = err
		option.tracerProviderName = string(ConsoleProvider)
	}
}

func useZipkin(cfg ExporterConfig) TracerOption {
	return func(option *TracerOptions) {
		exp, err := zipkin.New(cfg.Endpoint)
		option.exporter = exp
		option.err = err
		option.tracerProviderName = string(ZipkinProvider)
	}
}

func useNewRelic(cfg ExporterConfig) TracerOption {
	return func(option *TracerOptions) {
		exp, err := otlptracegrpc.New(
			context.Background(),
			otlptracegrpc.WithEndpoint(cfg.Endpoint),
			otlptracegrpc.WithHeaders(map[string]string{"api-key": cfg.Headers}),
		)
		option.exporter = exp
		option.err = err
		option.tracerProviderName = string(NewRelicProvider)
	}
}

func useHoneycomb(cfg ExporterConfig, log logger.LoggerInterface) TracerOption {
	return func(option *TracerOptions) {
		option.tracerProviderName = string(HoneycombProvider)

		key, value, ok := strings.Cut(cfg.Headers, "=")
		if !ok {
			option.err = fmt.Errorf("invalid otlp headers %q, expected key=value", cfg.Headers)
			return
		}
		headers := map[string]string{key: value}

		if cfg.Protocol == "http/protobuf" {
			log.Info(context.Background(), "Initializing Honeycomb with HTTP/Protobuf exporter", "endpoint", cfg.Endpoint)
			option.exporter, option.err = otlptracehttp.New(
				context.Background(),
				otlptracehttp.WithEndpointURL(cfg.Endpoint),
				otlptracehttp.WithHeaders(headers),
			)
			return
		}

		log.Info(context.Background(), "Initializing Honeycomb with gRPC exporter", "endpoint", cfg.Endpoint)
		option.exporter, option.err = otlptracegrpc.New(
			context.Background(),
			otlptracegrpc.WithEndpointURL(cfg.Endpoint),
			otlptracegrpc.WithHeaders(headers),
		)
	}
}

// NewTraceProvider installs a global tracer provider built from the options.
// With no options, or an empty provider, tracing stays a no-op.
func NewTraceProvider(serviceName string, options ...TracerOption) (TraceProvider, error) {
	opts := &TracerOptions{}
	for _, opt := range options {
		opt(opts)
	}

	if len(options) == 0 || opts.useEmpty {
		return NewEmptyTraceProvider(), nil
	}
	if opts.err != nil {
		return nil, fmt.Errorf("%s exporter: %w", opts.tracerProviderName, opts.err)
	}

	rsrc, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(serviceName),
			attribute.String("otel.provider", opts.tracerProviderName),
		))
	if err != nil {
		rsrc = resource.Default()
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(opts.exporter),
		sdktrace.WithResource(rsrc),
	)

	// Set global trace provider
	otel.SetTracerProvider(tp)

	// Set trace propagator
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))

	return &traceProvider{
		tp,
	}, nil
}

func (o *traceProvider) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5) //nolint:gomnd
	defer cancel()

	return o.tp.Shutdown(ctx)
}
