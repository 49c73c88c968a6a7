// Package apm wires OpenTelemetry tracing: exporters, the global provider and
// a small Tracer facade for application code.
package apm

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span is the subset of trace.Span the services use.
type Span interface {
	SetAttributes(values ...attribute.KeyValue)
	AddEvent(name string, options ...trace.EventOption)
	RecordError(err error, options ...trace.EventOption)
	// NoticeError records err and marks the span failed.
	NoticeError(err error)
	IsRecording() bool
	SpanContext() trace.SpanContext
	End(options ...trace.SpanEndOption)
}

type Tracer interface {
	StartSpanFromContext(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, Span)
	SpanFromContext(ctx context.Context) Span
}

type otelSpan struct {
	trace.Span
}

func (s otelSpan) NoticeError(err error) {
	s.Span.RecordError(err)
	s.Span.SetStatus(codes.Error, err.Error())
}

type openTracer struct {
	tracer trace.Tracer
}

// NewTracer returns a Tracer on the global provider. The provider is looked
// up per span, so tracers created before NewTraceProvider still export.
func NewTracer(name string) Tracer {
	return &openTracer{otel.Tracer(name)}
}

func (t *openTracer) StartSpanFromContext(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, Span) {
	ctx, span := t.tracer.Start(ctx, name, opts...)
	return ctx, otelSpan{span}
}

func (t *openTracer) SpanFromContext(ctx context.Context) Span {
	return otelSpan{trace.SpanFromContext(ctx)}
}
