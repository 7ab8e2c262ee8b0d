package server

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/teemow/inboxshelf/internal/instrumentation"
	"github.com/teemow/inboxshelf/internal/logging"
	"github.com/teemow/inboxshelf/internal/posts"
)

// Snapshot is one immutable build of the catalog.
type Snapshot struct {
	Posts      []posts.Post
	Categories []string
	BuiltAt    time.Time
}

// CatalogRecorder observes catalog rebuilds.
type CatalogRecorder interface {
	SetCatalogPosts(ctx context.Context, n int)
}

// Catalog holds the current Snapshot of a posts.Source.
type Catalog struct {
	src      posts.Source
	logger   *slog.Logger
	recorder CatalogRecorder
	current  atomic.Pointer[Snapshot]
}

// NewCatalog returns an empty catalog over src. Call Reload to build it.
func NewCatalog(src posts.Source, logger *slog.Logger, recorder CatalogRecorder) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{
		src:      src,
		logger:   logging.WithOperation(logger, "catalog"),
		recorder: recorder,
	}
}

// Reload rebuilds the catalog and swaps it in. On error the previous
// snapshot stays in place.
func (c *Catalog) Reload(ctx context.Context) error {
	ctx, span := instrumentation.StartSpan(ctx, "catalog.reload")
	defer span.End()

	start := time.Now()
	catalog, err := posts.LoadCatalog(ctx, c.src)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		c.logger.Error("catalog reload failed", logging.Err(err))
		return err
	}

	c.current.Store(&Snapshot{
		Posts:      catalog,
		Categories: posts.UniqueCategories(catalog),
		BuiltAt:    time.Now(),
	})
	if c.recorder != nil {
		c.recorder.SetCatalogPosts(ctx, len(catalog))
	}
	c.logger.Info("catalog loaded",
		logging.Count(len(catalog)),
		slog.Duration(logging.KeyDuration, time.Since(start)))
	return nil
}

// Snapshot returns the current snapshot, or an empty one before the first
// successful Reload.
func (c *Catalog) Snapshot() *Snapshot {
	if s := c.current.Load(); s != nil {
		return s
	}
	return &Snapshot{Posts: []posts.Post{}, Categories: []string{}}
}

// Loaded reports whether a Reload has succeeded.
func (c *Catalog) Loaded() bool {
	return c.current.Load() != nil
}
