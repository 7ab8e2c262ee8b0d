package instrumentation

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestNewProvider_Disabled(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{ServiceName: "test-service", Enabled: false})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if provider.Enabled() {
		t.Error("expected provider to be disabled")
	}
	if provider.Metrics() == nil {
		t.Error("expected metrics to be non-nil even when disabled")
	}
	if provider.MetricsHandler() != nil {
		t.Error("expected no metrics handler when disabled")
	}
	if provider.Tracer("test") == nil {
		t.Error("expected a noop tracer")
	}
	if err := provider.Shutdown(context.Background()); err != nil {
		t.Errorf("expected no error on shutdown, got %v", err)
	}
}

func TestNewProvider_PrometheusExporter(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	provider, err := NewProvider(ctx, Config{
		ServiceName:     "test-service",
		ServiceVersion:  "1.0.0",
		Enabled:         true,
		MetricsExporter: ExporterPrometheus,
		TracingExporter: ExporterNone,
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	defer func() { _ = provider.Shutdown(ctx) }()

	if !provider.Enabled() {
		t.Error("expected provider to be enabled")
	}
	if provider.MetricsHandler() == nil {
		t.Error("expected a metrics handler for the prometheus exporter")
	}

	_, span := provider.Tracer("test").Start(ctx, "test-span")
	span.End()
}

func TestNewProvider_StdoutExporters(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	provider, err := NewProvider(ctx, Config{
		ServiceName:       "test-service",
		Enabled:           true,
		MetricsExporter:   ExporterStdout,
		TracingExporter:   ExporterStdout,
		TraceSamplingRate: 1,
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if provider.MetricsHandler() != nil {
		t.Error("stdout exporter has no scrape handler")
	}
	if err := provider.Shutdown(ctx); err != nil {
		t.Errorf("shutdown failed: %v", err)
	}
}

func TestNewProvider_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		want   string
	}{
		{"metrics exporter", Config{Enabled: true, MetricsExporter: "invalid"}, "invalid metrics exporter"},
		{"tracing exporter", Config{Enabled: true, TracingExporter: "invalid"}, "invalid tracing exporter"},
		{"otlp without endpoint", Config{Enabled: true, TracingExporter: ExporterOTLP}, "OTLP endpoint is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProvider(context.Background(), tt.config)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not contain %q", err, tt.want)
			}
		})
	}
}

func TestNewProvider_IndependentRegistries(t *testing.T) {
	ctx := context.Background()
	config := Config{ServiceName: "test-service", Enabled: true, MetricsExporter: ExporterPrometheus}

	first, err := NewProvider(ctx, config)
	if err != nil {
		t.Fatalf("first provider: %v", err)
	}
	defer func() { _ = first.Shutdown(ctx) }()

	second, err := NewProvider(ctx, config)
	if err != nil {
		t.Fatalf("second provider: %v", err)
	}
	defer func() { _ = second.Shutdown(ctx) }()

	first.Metrics().RecordSyncItem(ctx, "saved")

	if body := scrape(t, first); !strings.Contains(body, "sync_items_total") {
		t.Error("first provider should expose its own counter")
	}
	if body := scrape(t, second); strings.Contains(body, `result="saved"`) {
		t.Error("second provider should not see the first provider's samples")
	}
}
