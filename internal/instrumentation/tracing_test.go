package instrumentation

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return sr
}

func TestStartSyncSpan(t *testing.T) {
	sr := recordSpans(t)

	ctx, span := StartSyncSpan(context.Background(), "imap", true)
	if GetTraceID(ctx) == "" || GetSpanID(ctx) == "" {
		t.Error("expected trace and span ids in context")
	}
	SetSpanError(span, errors.New("list failed"))
	span.End()

	ended := sr.Ended()
	if len(ended) != 1 {
		t.Fatalf("expected 1 span, got %d", len(ended))
	}
	s := ended[0]
	if s.Name() != "sync.imap" {
		t.Errorf("span name = %q", s.Name())
	}
	if s.Status().Code != codes.Error {
		t.Errorf("status = %v, want error", s.Status().Code)
	}
	var sawDryRun bool
	for _, kv := range s.Attributes() {
		if string(kv.Key) == SpanAttrDryRun && kv.Value.AsBool() {
			sawDryRun = true
		}
	}
	if !sawDryRun {
		t.Error("expected dry run attribute")
	}
}

func TestStartHTTPSpan(t *testing.T) {
	sr := recordSpans(t)

	_, span := StartHTTPSpan(context.Background(), "GET", "/api/posts")
	SetSpanSuccess(span)
	span.End()

	s := sr.Ended()[0]
	if s.Name() != "GET /api/posts" {
		t.Errorf("span name = %q", s.Name())
	}
	if s.SpanKind() != trace.SpanKindServer {
		t.Errorf("span kind = %v", s.SpanKind())
	}
	if s.Status().Code != codes.Ok {
		t.Errorf("status = %v, want ok", s.Status().Code)
	}
}

func TestStartSpan(t *testing.T) {
	sr := recordSpans(t)

	_, span := StartSpan(context.Background(), "catalog.rebuild")
	SetSpanError(span, nil)
	span.End()

	if got := sr.Ended()[0].Status().Code; got != codes.Unset {
		t.Errorf("nil error should leave status unset, got %v", got)
	}
}

func TestTraceIDs_NoSpan(t *testing.T) {
	if GetTraceID(context.Background()) != "" {
		t.Error("expected empty trace id")
	}
	if GetSpanID(context.Background()) != "" {
		t.Error("expected empty span id")
	}
}
