// Package instrumentation provides OpenTelemetry metrics, tracing and
// the sync audit log for inboxshelf.
//
// # Metrics
//
// HTTP (serve):
//   - http_requests_total: requests by method, route and status
//   - http_request_duration_seconds: request durations
//   - catalog_posts: number of posts in the served catalog
//   - image_resolutions_total: post image lookups by result
//
// Mail (sync):
//   - mail_api_operations_total: mailbox calls by backend, operation and status
//   - mail_api_operation_duration_seconds: mailbox call durations
//   - sync_items_total: processed messages by result
//   - sync_runs_total: finished runs by backend and status
//
// Auth:
//   - oauth_auth_total: OAuth authorization attempts by result
//
// # Configuration
//
// Environment variables:
//   - INSTRUMENTATION_ENABLED: enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: prometheus, otlp or stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout or none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: service name (default: inboxshelf)
//   - AUDIT_LOGGING_ENABLED, AUDIT_LOGGING_INCLUDE_PII: sync audit log
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	m := provider.Metrics()
//	m.RecordSyncItem(ctx, syncer.ResultSaved)
package instrumentation
