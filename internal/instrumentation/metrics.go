package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	attrMethod    = "method"
	attrPath      = "path"
	attrStatus    = "status"
	attrBackend   = "backend"
	attrOperation = "operation"
	attrResult    = "result"
)

// Metrics records inboxshelf metrics. The zero value, and a nil *Metrics,
// record nothing.
type Metrics struct {
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	mailOperationsTotal   metric.Int64Counter
	mailOperationDuration metric.Float64Histogram

	syncItemsTotal metric.Int64Counter
	syncRunsTotal  metric.Int64Counter

	catalogPosts metric.Int64Gauge

	imageResolutionsTotal metric.Int64Counter

	oauthAuthTotal metric.Int64Counter
}

// NewMetrics creates every instrument on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.httpRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	m.httpRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	m.mailOperationsTotal, err = meter.Int64Counter(
		"mail_api_operations_total",
		metric.WithDescription("Total number of mailbox operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail_api_operations_total counter: %w", err)
	}

	m.mailOperationDuration, err = meter.Float64Histogram(
		"mail_api_operation_duration_seconds",
		metric.WithDescription("Mailbox operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail_api_operation_duration_seconds histogram: %w", err)
	}

	m.syncItemsTotal, err = meter.Int64Counter(
		"sync_items_total",
		metric.WithDescription("Total number of synced messages by result"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sync_items_total counter: %w", err)
	}

	m.syncRunsTotal, err = meter.Int64Counter(
		"sync_runs_total",
		metric.WithDescription("Total number of sync runs by status"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sync_runs_total counter: %w", err)
	}

	m.catalogPosts, err = meter.Int64Gauge(
		"catalog_posts",
		metric.WithDescription("Number of posts in the served catalog"),
		metric.WithUnit("{post}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog_posts gauge: %w", err)
	}

	m.imageResolutionsTotal, err = meter.Int64Counter(
		"image_resolutions_total",
		metric.WithDescription("Total number of post image resolutions by result"),
		metric.WithUnit("{resolution}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create image_resolutions_total counter: %w", err)
	}

	m.oauthAuthTotal, err = meter.Int64Counter(
		"oauth_auth_total",
		metric.WithDescription("Total number of OAuth authorization attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth_auth_total counter: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request. path should be a route
// pattern, not the raw URL, to keep cardinality bounded.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m == nil || m.httpRequestsTotal == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	)
	m.httpRequestsTotal.Add(ctx, 1, attrs)
	m.httpRequestDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordMailOperation records one mailbox call.
//
// Parameters:
//   - backend: "gmail" or "imap"
//   - operation: list, get, modify, label, connect
//   - status: "success" or "error"
func (m *Metrics) RecordMailOperation(ctx context.Context, backend, operation, status string, duration time.Duration) {
	if m == nil || m.mailOperationsTotal == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrBackend, backend),
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	)
	m.mailOperationsTotal.Add(ctx, 1, attrs)
	m.mailOperationDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordSyncItem counts one processed message by result (saved, skipped, failed).
func (m *Metrics) RecordSyncItem(ctx context.Context, result string) {
	if m == nil || m.syncItemsTotal == nil {
		return
	}
	m.syncItemsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}

// RecordSyncRun counts a finished sync run.
func (m *Metrics) RecordSyncRun(ctx context.Context, backend, status string) {
	if m == nil || m.syncRunsTotal == nil {
		return
	}
	m.syncRunsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrBackend, backend),
		attribute.String(attrStatus, status),
	))
}

// SetCatalogPosts records the size of the current catalog.
func (m *Metrics) SetCatalogPosts(ctx context.Context, n int) {
	if m == nil || m.catalogPosts == nil {
		return
	}
	m.catalogPosts.Record(ctx, int64(n))
}

// RecordImageResolution counts one image lookup by result
// (found, none, not_found, error).
func (m *Metrics) RecordImageResolution(ctx context.Context, result string) {
	if m == nil || m.imageResolutionsTotal == nil {
		return
	}
	m.imageResolutionsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}

// RecordOAuthAuth records an OAuth authorization attempt.
// Result should be one of: "success", "failure"
func (m *Metrics) RecordOAuthAuth(ctx context.Context, result string) {
	if m == nil || m.oauthAuthTotal == nil {
		return
	}
	m.oauthAuthTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}
