package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/xchain-pricer/internal/logger"
)

func TestSetup_NoExporters(t *testing.T) {
	mp, err := Setup(context.Background(), WithServiceName("xchain-pricer"))
	require.NoError(t, err)

	counter, err := mp.Meter("test").Int64Counter("test_total")
	require.NoError(t, err)
	counter.Add(context.Background(), 1)

	assert.NoError(t, mp.Shutdown(context.Background()))
}

func TestSetup_UnknownExporter(t *testing.T) {
	_, err := Setup(context.Background(), WithExporter(Exporter{Kind: "statsd"}))
	assert.Error(t, err)
}

func TestSetup_Prometheus(t *testing.T) {
	mp, err := Setup(context.Background(), WithExporter(Exporter{Kind: Prometheus}))
	require.NoError(t, err)
	assert.NoError(t, mp.Shutdown(context.Background()))
}

func TestServePrometheus(t *testing.T) {
	srv, err := ServePrometheus(logger.NewNop(), 0)
	require.NoError(t, err)
	assert.NoError(t, srv.Shutdown(context.Background()))
}

func TestExporterFor(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		kind     ExporterKind
		insecure bool
	}{
		{"", "", Prometheus, false},
		{"prometheus", "", Prometheus, false},
		{"otlp", "http://collector:4317", OTLP, true},
		{"OTLP", "https://collector:4317", OTLP, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := ExporterFor(tt.name, tt.endpoint, "svc")
			require.NoError(t, err)
			assert.Equal(t, tt.kind, e.Kind)
			assert.Equal(t, tt.insecure, e.Insecure)
		})
	}

	_, err := ExporterFor("statsd", "", "svc")
	assert.Error(t, err)
}

func TestExporterFor_Honeycomb(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS_KEY", "team-key")

	e, err := ExporterFor("honeycomb", "https://api.honeycomb.io", "pricer")
	require.NoError(t, err)
	assert.Equal(t, OTLP, e.Kind)
	assert.Equal(t, "team-key", e.Headers["x-honeycomb-team"])
	assert.Equal(t, "pricer_metrics", e.Headers["x-honeycomb-dataset"])
}
