package instrumentation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName names the tracer used by the helpers below.
const TracerName = "github.com/teemow/inboxshelf"

// Span attribute keys.
const (
	SpanAttrBackend   = "mail.backend"
	SpanAttrDryRun    = "sync.dry_run"
	SpanAttrProcessed = "sync.processed"
	SpanAttrSaved     = "sync.saved"
	SpanAttrSkipped   = "sync.skipped"
	SpanAttrFailed    = "sync.failed"
	SpanAttrRoute     = "http.route"
	SpanAttrMethod    = "http.request.method"
	SpanAttrStatus    = "http.response.status_code"
)

// StartSpan starts a span on the global tracer. The caller ends it.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.GetTracerProvider().Tracer(TracerName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// StartSyncSpan starts the span covering one sync run.
func StartSyncSpan(ctx context.Context, backend string, dryRun bool) (context.Context, trace.Span) {
	return otel.GetTracerProvider().Tracer(TracerName).Start(ctx, "sync."+backend,
		trace.WithAttributes(
			attribute.String(SpanAttrBackend, backend),
			attribute.Bool(SpanAttrDryRun, dryRun),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartHTTPSpan starts a server span for one request.
func StartHTTPSpan(ctx context.Context, method, route string) (context.Context, trace.Span) {
	return otel.GetTracerProvider().Tracer(TracerName).Start(ctx, method+" "+route,
		trace.WithAttributes(
			attribute.String(SpanAttrMethod, method),
			attribute.String(SpanAttrRoute, route),
		),
		trace.WithSpanKind(trace.SpanKindServer),
	)
}

// SetSpanError records err on the span and marks it failed.
func SetSpanError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanSuccess marks the span OK.
func SetSpanSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// GetTraceID returns the trace ID of the span in ctx, or "".
func GetTraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		return span.SpanContext().TraceID().String()
	}
	return ""
}

// GetSpanID returns the span ID of the span in ctx, or "".
func GetSpanID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		return span.SpanContext().SpanID().String()
	}
	return ""
}
