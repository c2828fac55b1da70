// Package tracing records assistant turns and tool calls as spans.
//
// Callers depend on Sink. Noop discards everything; OTel forwards spans to an
// OpenTelemetry tracer.
package tracing

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Span is an operation in progress.
type Span interface {
	SetAttr(key, value string)
	// End finishes the span, marking it failed when err is non-nil.
	End(err error)
}

type Sink interface {
	Start(ctx context.Context, name string, attrs map[string]string) (context.Context, Span)
}

// Noop is a Sink that records nothing.
type Noop struct{}

func (Noop) Start(ctx context.Context, _ string, _ map[string]string) (context.Context, Span) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) SetAttr(string, string) {}
func (noopSpan) End(error)              {}

// OTel adapts an OpenTelemetry tracer to Sink.
type OTel struct {
	tracer trace.Tracer
}

func NewOTel(tp trace.TracerProvider, scope string) *OTel {
	return &OTel{tracer: tp.Tracer(scope)}
}

func (o *OTel) Start(ctx context.Context, name string, attrs map[string]string) (context.Context, Span) {
	kvs := make([]attribute.KeyValue, 0, len(attrs))
	for k, v := range attrs {
		kvs = append(kvs, attribute.String(k, v))
	}
	ctx, span := o.tracer.Start(ctx, name, trace.WithAttributes(kvs...))
	return ctx, otelSpan{span: span}
}

type otelSpan struct {
	span trace.Span
}

func (s otelSpan) SetAttr(key, value string) {
	s.span.SetAttributes(attribute.String(key, value))
}

func (s otelSpan) End(err error) {
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	}
	s.span.End()
}

// Setup returns a tracer provider exporting finished spans to the structured
// log, and a shutdown func that flushes it.
func Setup() (*sdktrace.TracerProvider, func(context.Context) error) {
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(logExporter{logger: slog.Default()}),
	)
	return tp, tp.Shutdown
}

// logExporter writes one log record per span.
type logExporter struct {
	logger *slog.Logger
}

func (e logExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, s := range spans {
		args := []any{
			"trace_id", s.SpanContext().TraceID().String(),
			"span_id", s.SpanContext().SpanID().String(),
			"duration", s.EndTime().Sub(s.StartTime()).Round(time.Millisecond),
		}
		for _, kv := range s.Attributes() {
			args = append(args, string(kv.Key), kv.Value.Emit())
		}
		if s.Status().Code == codes.Error {
			args = append(args, "error", s.Status().Description)
		}
		e.logger.InfoContext(ctx, "span "+s.Name(), args...)
	}
	return nil
}

func (logExporter) Shutdown(context.Context) error { return nil }
