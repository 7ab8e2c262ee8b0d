package images

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/teemow/inboxshelf/internal/logging"
)

// Resolution outcomes reported to a Recorder.
const (
	ResultFound    = "found"
	ResultNone     = "none"
	ResultNotFound = "not_found"
	ResultError    = "error"
)

// Recorder observes resolution outcomes.
type Recorder interface {
	RecordImageResolution(ctx context.Context, result string)
}

// Resolver fetches articles and extracts their lead image.
type Resolver struct {
	fetcher     Fetcher
	extractor   *Extractor
	logger      *slog.Logger
	recorder    Recorder
	concurrency int
	limiter     *rate.Limiter
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger for fetch failures.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) { r.logger = logger }
}

// WithRecorder reports each resolution outcome.
func WithRecorder(rec Recorder) Option {
	return func(r *Resolver) { r.recorder = rec }
}

// WithConcurrency bounds ResolveAll's parallel fetches.
func WithConcurrency(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithRateLimit limits fetches to perSecond with the given burst.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(r *Resolver) {
		if perSecond > 0 {
			r.limiter = rate.NewLimiter(rate.Limit(perSecond), max(burst, 1))
		}
	}
}

// NewResolver returns a Resolver. A nil extractor uses the built-in rules.
func NewResolver(fetcher Fetcher, extractor *Extractor, opts ...Option) *Resolver {
	if extractor == nil {
		extractor = defaultExtractor
	}
	r := &Resolver{
		fetcher:     fetcher,
		extractor:   extractor,
		logger:      slog.Default(),
		concurrency: 4,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the lead image of the article at locator, or "" when the
// fetch fails, the status is not 200, or no image qualifies.
func (r *Resolver) Resolve(ctx context.Context, locator string) string {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			r.record(ctx, ResultError)
			return ""
		}
	}

	status, body, err := r.fetcher.Fetch(ctx, locator)
	if err != nil {
		r.logger.Debug("article fetch failed",
			slog.String(logging.KeyLocator, locator),
			logging.Err(err))
		r.record(ctx, ResultError)
		return ""
	}
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		r.logger.Debug("article fetch returned non-2xx status",
			slog.String(logging.KeyLocator, locator),
			slog.Int(logging.KeyStatus, status))
		r.record(ctx, ResultNotFound)
		return ""
	}

	img := r.extractor.Extract(body)
	if img == "" {
		r.record(ctx, ResultNone)
		return ""
	}
	r.record(ctx, ResultFound)
	return img
}

// ResolveAll resolves every locator concurrently. The result maps each
// locator to its image, with "" for none.
func (r *Resolver) ResolveAll(ctx context.Context, locators []string) map[string]string {
	out := make(map[string]string, len(locators))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for _, loc := range locators {
		g.Go(func() error {
			img := r.Resolve(gctx, loc)
			mu.Lock()
			out[loc] = img
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (r *Resolver) record(ctx context.Context, result string) {
	if r.recorder != nil {
		r.recorder.RecordImageResolution(ctx, result)
	}
}
