package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Request builds and executes one HTTP call.
type Request interface {
	Get(ctx context.Context, path string) (*Response, error)

	SetHeader(key, value string) Request
	SetQueryParam(key, value string) Request
	SetResult(result any) Request
}

// Response is an http.Response whose body has already been read and closed.
type Response struct {
	*http.Response
	body   []byte
	result any
}

func (r *Response) Body() []byte   { return r.body }
func (r *Response) String() string { return string(r.body) }

// IsError reports a status code >= 400.
func (r *Response) IsError() bool { return r.StatusCode >= http.StatusBadRequest }

// Result returns the decoded value, or nil when nothing was decoded.
func (r *Response) Result() any { return r.result }

type requestBuilder struct {
	c            *InstrumentedClient
	headers      map[string]string
	query        url.Values
	result       any
	errorHandler ResponseErrorHandler
	labels       []attribute.KeyValue
}

func (r *requestBuilder) SetHeader(key, value string) Request {
	r.headers[key] = value
	return r
}

// SetQueryParam sets a query parameter. Values are URL-encoded.
func (r *requestBuilder) SetQueryParam(key, value string) Request {
	r.query.Set(key, value)
	return r
}

// SetResult sets the value a successful JSON body is decoded into.
func (r *requestBuilder) SetResult(result any) Request {
	r.result = result
	return r
}

func (r *requestBuilder) Get(ctx context.Context, path string) (*Response, error) {
	return r.do(ctx, http.MethodGet, path)
}

func (r *requestBuilder) url(path string) string {
	u := path
	if base := r.c.baseURL; base != "" && !strings.HasPrefix(path, "http") {
		u = strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(path, "/")
	}
	if len(r.query) == 0 {
		return u
	}
	if strings.Contains(u, "?") {
		return u + "&" + r.query.Encode()
	}
	return u + "?" + r.query.Encode()
}

// do runs the request. Every exit path is counted exactly once through the
// deferred outcome.
func (r *requestBuilder) do(ctx context.Context, method, path string) (resp *Response, err error) {
	target := r.url(path)
	ctx, span := r.c.tracer.Start(ctx, "http.request",
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.url", target),
			attribute.String("provider", r.c.provider),
		),
	)
	start := time.Now()
	defer func() {
		ok := err == nil && resp != nil && !resp.IsError()
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
		}
		r.record(ctx, ok, time.Since(start))
		span.End()
	}()

	if r.c.logRequest {
		span.AddEvent("request.query", trace.WithAttributes(
			attribute.String("http.request_query", r.query.Encode())))
	}

	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	raw, err := r.c.hc.Do(req)
	if err != nil {
		annotateTransportError(span, err)
		return nil, err
	}
	body, err := io.ReadAll(raw.Body)
	raw.Body.Close()
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if r.c.logResponse {
		span.AddEvent("response.body", trace.WithAttributes(
			attribute.String("http.response_body", string(body))))
	}
	span.SetAttributes(attribute.Int("http.status_code", raw.StatusCode))
	resp = &Response{Response: raw, body: body}

	if r.errorHandler != nil {
		if err := r.errorHandler(raw.StatusCode, body); err != nil {
			return resp, err
		}
	}

	if r.result != nil && len(body) > 0 && !resp.IsError() {
		if err := json.Unmarshal(body, r.result); err != nil {
			span.RecordError(err)
			return resp, fmt.Errorf("failed to decode response: %w", err)
		}
		resp.result = r.result
	}
	return resp, nil
}

func annotateTransportError(span trace.Span, err error) {
	span.RecordError(err)
	if errors.Is(err, context.Canceled) {
		span.SetAttributes(attribute.Bool("context.cancelled", true))
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		span.SetAttributes(attribute.Bool("request.timeout", true))
	}
}

func (r *requestBuilder) record(ctx context.Context, success bool, elapsed time.Duration) {
	attrs := make([]attribute.KeyValue, 0, 2+len(r.labels))
	attrs = append(attrs,
		attribute.String("provider", r.c.provider),
		attribute.Bool("success", success),
	)
	attrs = append(attrs, r.labels...)
	set := metric.WithAttributes(attrs...)

	r.c.inst.requests.Add(ctx, 1, set)
	r.c.inst.duration.Record(ctx, elapsed.Seconds(), set)
}
