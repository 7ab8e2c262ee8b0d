package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/teemow/inboxshelf/internal/instrumentation"
	"github.com/teemow/inboxshelf/internal/logging"
)

// HTTPRecorder observes served requests.
type HTTPRecorder interface {
	RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration)
}

const unmatchedRoute = "unmatched"

// instrument wraps each request in a server span, records it under its
// route pattern and logs it at debug level.
func instrument(rec HTTPRecorder, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx, span := instrumentation.StartHTTPSpan(r.Context(), r.Method, r.URL.Path)
			defer span.End()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := routePattern(r)
			duration := time.Since(start)

			span.SetName(r.Method + " " + route)
			span.SetAttributes(
				attribute.String(instrumentation.SpanAttrRoute, route),
				attribute.Int(instrumentation.SpanAttrStatus, status),
			)
			if status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(status))
			}
			if rec != nil {
				rec.RecordHTTPRequest(ctx, r.Method, route, status, duration)
			}
			logger.Debug("request served",
				slog.String("method", r.Method),
				logging.Path(r.URL.Path),
				slog.Int(logging.KeyStatus, status),
				slog.Duration(logging.KeyDuration, duration),
				slog.String("request_id", middleware.GetReqID(ctx)))
		})
	}
}

// routePattern returns the chi pattern matched for r, so metrics are
// labelled "/api/posts/{id}/image" rather than by raw path.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return unmatchedRoute
}
