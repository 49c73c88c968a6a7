package httpclient

import (
	"context"
	"net"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/httptrace/otelhttptrace"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultRequestTimeout = 10 * time.Second

	meterName = "github.com/fd1az/xchain-pricer/internal/httpclient"
)

// Client builds instrumented requests.
type Client interface {
	NewRequest() Request
	NewRequestWithOptions(opts ...RequestOption) Request
}

type instruments struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

// InstrumentedClient is an http.Client whose transport is traced by otelhttp
// and whose requests are counted and timed per provider.
type InstrumentedClient struct {
	hc       *http.Client
	provider string
	baseURL  string
	headers  map[string]string
	tracer   trace.Tracer
	inst     instruments

	logRequest  bool
	logResponse bool
}

// pooledClient keeps a handful of connections per upstream warm between
// polls.
func pooledClient() *http.Client {
	return &http.Client{
		Timeout: defaultRequestTimeout,
		Transport: &http.Transport{
			DialContext:           (&net.Dialer{KeepAlive: 10 * time.Second}).DialContext,
			MaxConnsPerHost:       5,
			IdleConnTimeout:       2 * time.Minute,
			ExpectContinueTimeout: 100 * time.Millisecond,
		},
	}
}

func NewInstrumentedClient(opts ...ClientOption) (*InstrumentedClient, error) {
	o := clientOptions{providerName: "default"}
	for _, opt := range opts {
		opt(&o)
	}

	hc := o.client
	if hc == nil {
		hc = pooledClient()
	}
	if o.requestTimeout > 0 {
		hc.Timeout = o.requestTimeout
	}
	base := hc.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	hc.Transport = otelhttp.NewTransport(base,
		otelhttp.WithClientTrace(func(ctx context.Context) *httptrace.ClientTrace {
			return otelhttptrace.NewClientTrace(ctx)
		}),
	)

	inst, err := newInstruments(o.providerName)
	if err != nil {
		return nil, err
	}

	tracer := o.tracer
	if tracer == nil {
		tracer = otel.Tracer(meterName)
	}

	return &InstrumentedClient{
		hc:          hc,
		provider:    o.providerName,
		baseURL:     o.baseURL,
		headers:     o.headers,
		tracer:      tracer,
		inst:        inst,
		logRequest:  o.logRequest,
		logResponse: o.logResponse,
	}, nil
}

func newInstruments(provider string) (instruments, error) {
	meter := otel.GetMeterProvider().Meter(meterName,
		metric.WithInstrumentationAttributes(attribute.String("provider", provider)))

	var inst instruments
	var err error
	inst.requests, err = meter.Int64Counter("http_client_requests_total",
		metric.WithDescription("HTTP requests by outcome"))
	if err != nil {
		return inst, err
	}
	inst.duration, err = meter.Float64Histogram("http_client_request_duration_seconds",
		metric.WithDescription("HTTP request latency including the body read"),
		metric.WithUnit("s"))
	return inst, err
}

func (c *InstrumentedClient) NewRequest() Request {
	return c.NewRequestWithOptions()
}

func (c *InstrumentedClient) NewRequestWithOptions(opts ...RequestOption) Request {
	var o requestOptions
	for _, opt := range opts {
		opt(&o)
	}

	headers := make(map[string]string, len(c.headers))
	for k, v := range c.headers {
		headers[k] = v
	}

	return &requestBuilder{
		c:            c,
		headers:      headers,
		query:        url.Values{},
		errorHandler: o.responseErrorHandler,
		labels:       o.labels,
	}
}
