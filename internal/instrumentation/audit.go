package instrumentation

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/teemow/inboxshelf/internal/syncer"
)

// SyncRun is the audit record of one sync: which mailbox was read and
// what changed in the library.
//
// # Privacy
//
// Account may be an email address. LogAttrs reduces it to its domain
// unless PII logging is enabled.
type SyncRun struct {
	Backend string
	Account string
	DryRun  bool

	StartTime time.Time
	Duration  time.Duration
	Stats     syncer.Stats
	Error     string

	TraceID string
	SpanID  string
}

// NewSyncRun starts timing a sync run.
func NewSyncRun(backend, account string, dryRun bool) *SyncRun {
	return &SyncRun{
		Backend:   backend,
		Account:   account,
		DryRun:    dryRun,
		StartTime: time.Now(),
	}
}

// WithSpanContext copies trace identifiers from the span in ctx.
func (r *SyncRun) WithSpanContext(ctx context.Context) *SyncRun {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		r.TraceID = span.SpanContext().TraceID().String()
		r.SpanID = span.SpanContext().SpanID().String()
	}
	return r
}

// Complete stops the clock and stores the outcome.
func (r *SyncRun) Complete(stats syncer.Stats, err error) *SyncRun {
	r.Duration = time.Since(r.StartTime)
	r.Stats = stats
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

// Success reports whether the run finished without error or failed items.
func (r *SyncRun) Success() bool {
	return r.Error == "" && r.Stats.Success()
}

// Status returns "success" or "error".
func (r *SyncRun) Status() string {
	if r.Success() {
		return StatusSuccess
	}
	return StatusError
}

// LogAttrs returns the structured fields of the record. With includePII
// the full account is logged, otherwise only its domain.
func (r *SyncRun) LogAttrs(includePII bool) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("backend", r.Backend),
		slog.Bool("dry_run", r.DryRun),
		slog.Duration("duration", r.Duration),
		slog.Int("processed", r.Stats.Processed),
		slog.Int("saved", r.Stats.Saved),
		slog.Int("skipped", r.Stats.Skipped),
		slog.Int("failed", r.Stats.Failed),
	}

	if r.Account != "" {
		if includePII {
			attrs = append(attrs, slog.String("account", r.Account))
		} else {
			attrs = append(attrs, slog.String("account_domain", ExtractUserDomain(r.Account)))
		}
	}
	if r.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", r.TraceID))
	}
	if r.SpanID != "" {
		attrs = append(attrs, slog.String("span_id", r.SpanID))
	}
	if r.Error != "" {
		attrs = append(attrs, slog.String("error", r.Error))
	}
	return attrs
}

// AuditLogger writes sync run records.
type AuditLogger struct {
	logger     *slog.Logger
	includePII bool
	enabled    bool
}

// NewAuditLogger returns an AuditLogger writing to logger, or to the
// default logger when nil.
func NewAuditLogger(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:     logger,
		includePII: config.IncludePII,
		enabled:    config.Enabled,
	}
}

// LogSyncRun writes r at info level when it succeeded and warn otherwise.
func (al *AuditLogger) LogSyncRun(ctx context.Context, r *SyncRun) {
	if al == nil || !al.enabled {
		return
	}

	level := slog.LevelInfo
	msg := "sync_completed"
	if !r.Success() {
		level = slog.LevelWarn
		msg = "sync_failed"
	}
	al.logger.LogAttrs(ctx, level, msg, r.LogAttrs(al.includePII)...)
}
