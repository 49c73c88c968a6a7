package metrics

import (
	"fmt"
	"os"
	"strings"
)

// ExporterKind selects how metrics leave the process.
type ExporterKind string

const (
	// Prometheus exposes a pull endpoint served by ServePrometheus.
	Prometheus ExporterKind = "prometheus"
	// OTLP pushes to a collector over gRPC.
	OTLP ExporterKind = "otlp"
)

// Exporter describes one metric reader.
type Exporter struct {
	Kind     ExporterKind
	Endpoint string
	Headers  map[string]string
	Insecure bool
}

// ExporterFor maps the telemetry.metrics setting to an Exporter. Accepted
// names are "prometheus" (the default), "otlp" and "honeycomb". An OTLP
// endpoint with an http:// scheme is dialed without TLS.
func ExporterFor(name, endpoint, serviceName string) (Exporter, error) {
	switch strings.ToLower(name) {
	case "", string(Prometheus):
		return Exporter{Kind: Prometheus}, nil
	case string(OTLP):
		return Exporter{
			Kind:     OTLP,
			Endpoint: endpoint,
			Insecure: strings.HasPrefix(endpoint, "http://"),
		}, nil
	case "honeycomb":
		return honeycomb(endpoint, serviceName), nil
	}
	return Exporter{}, fmt.Errorf("unknown metrics exporter %q", name)
}

// honeycomb reads the team key from OTEL_EXPORTER_OTLP_HEADERS_KEY so it
// stays out of config files.
func honeycomb(endpoint, serviceName string) Exporter {
	return Exporter{
		Kind:     OTLP,
		Endpoint: endpoint,
		Headers: map[string]string{
			"x-honeycomb-team":    os.Getenv("OTEL_EXPORTER_OTLP_HEADERS_KEY"),
			"x-honeycomb-dataset": serviceName + "_metrics",
		},
	}
}

type settings struct {
	serviceName string
	exporters   []Exporter
}

// Option configures Setup.
type Option func(*settings)

func WithServiceName(name string) Option {
	return func(s *settings) { s.serviceName = name }
}

// WithExporter adds a reader. It may be given more than once.
func WithExporter(e Exporter) Option {
	return func(s *settings) { s.exporters = append(s.exporters, e) }
}
