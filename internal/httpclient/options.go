// Package httpclient provides an HTTP client instrumented with OTEL tracing
// and a request counter.
package httpclient

import (
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// TraceOption specifies what is recorded as span events.
type TraceOption string

const (
	TraceRequest  TraceOption = "request"
	TraceResponse TraceOption = "response"
)

type clientOptions struct {
	client         *http.Client
	providerName   string
	requestTimeout time.Duration
	headers        map[string]string
	baseURL        string
	logRequest     bool
	logResponse    bool
	tracer         trace.Tracer
}

// ClientOption configures NewInstrumentedClient.
type ClientOption func(*clientOptions)

// WithProviderName names the upstream in metrics and spans.
func WithProviderName(name string) ClientOption {
	return func(o *clientOptions) { o.providerName = name }
}

// WithRequestTimeout bounds each request, body read included.
func WithRequestTimeout(timeout time.Duration) ClientOption {
	return func(o *clientOptions) { o.requestTimeout = timeout }
}

// WithHTTPClient uses c instead of a pooled client built from defaults.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(o *clientOptions) { o.client = c }
}

// WithHeaders sets headers sent on every request.
func WithHeaders(headers map[string]string) ClientOption {
	return func(o *clientOptions) { o.headers = headers }
}

// WithBaseURL is prefixed to every request path.
func WithBaseURL(url string) ClientOption {
	return func(o *clientOptions) { o.baseURL = url }
}

// WithTraceOptions sets the tracer and what it records.
func WithTraceOptions(tracer trace.Tracer, opts ...TraceOption) ClientOption {
	return func(o *clientOptions) {
		o.tracer = tracer
		for _, opt := range opts {
			switch opt {
			case TraceRequest:
				o.logRequest = true
			case TraceResponse:
				o.logResponse = true
			}
		}
	}
}

// ResponseErrorHandler maps a response to an error. A nil return lets the
// body decode into the result.
type ResponseErrorHandler func(statusCode int, body []byte) error

type requestOptions struct {
	responseErrorHandler ResponseErrorHandler
	labels               []attribute.KeyValue
}

// RequestOption configures a single request.
type RequestOption func(*requestOptions)

// WithResponseErrorHandler installs handler for this request.
func WithResponseErrorHandler(handler ResponseErrorHandler) RequestOption {
	return func(o *requestOptions) { o.responseErrorHandler = handler }
}

// WithLabels adds attributes to the request counter.
func WithLabels(labels ...attribute.KeyValue) RequestOption {
	return func(o *requestOptions) { o.labels = append(o.labels, labels...) }
}
