package server

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/teemow/inboxshelf/internal/images"
	"github.com/teemow/inboxshelf/internal/instrumentation"
	"github.com/teemow/inboxshelf/internal/library"
	"github.com/teemow/inboxshelf/internal/logging"
	"github.com/teemow/inboxshelf/internal/posts"
)

//go:embed templates/*.html
var templateFS embed.FS

// Server timeouts.
const (
	DefaultAddr         = ":8080"
	DefaultReadTimeout  = 10 * time.Second
	DefaultWriteTimeout = 60 * time.Second
	DefaultIdleTimeout  = 120 * time.Second
	requestTimeout      = 30 * time.Second
)

// Options configures a Server.
type Options struct {
	Library *library.Library
	// ImageRules overrides the embedded image rules.
	ImageRules *images.Rules
	// Metrics may be nil.
	Metrics *instrumentation.Metrics
	Logger  *slog.Logger
	Version string
}

// Server serves the catalog of one library.
type Server struct {
	lib      *library.Library
	catalog  *Catalog
	resolver *images.Resolver
	health   *HealthChecker
	metrics  *instrumentation.Metrics
	logger   *slog.Logger
	tmpl     *template.Template
}

// New builds a Server. The catalog starts empty; call Catalog().Reload
// before serving traffic.
func New(opts Options) (*Server, error) {
	if opts.Library == nil {
		return nil, errors.New("library is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	rules := images.DefaultRules()
	if opts.ImageRules != nil {
		rules = *opts.ImageRules
	}

	tmpl, err := template.New("").Funcs(template.FuncMap{
		"formatDate": posts.FormatDate,
		"isoDate":    posts.FormatDateISO,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	catalog := NewCatalog(opts.Library, logger, opts.Metrics)
	fetcher := &images.FSFetcher{FS: opts.Library.FS(), Prefix: opts.Library.URLPrefix()}

	return &Server{
		lib:     opts.Library,
		catalog: catalog,
		resolver: images.NewResolver(fetcher, images.NewExtractor(rules),
			images.WithLogger(logger),
			images.WithRecorder(opts.Metrics)),
		health:  NewHealthChecker(catalog, opts.Version),
		metrics: opts.Metrics,
		logger:  logger,
		tmpl:    tmpl,
	}, nil
}

// Catalog returns the server's catalog.
func (s *Server) Catalog() *Catalog { return s.catalog }

// Health returns the server's health checker.
func (s *Server) Health() *HealthChecker { return s.health }

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(instrument(s.metrics, s.logger))
	r.Use(middleware.Recoverer)

	s.health.RegisterHealthEndpoints(r)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))
		r.Use(middleware.Compress(5))

		r.Get("/", s.handleIndex)
		r.Route("/api", func(r chi.Router) {
			r.Get("/posts", s.handlePosts)
			r.Get("/categories", s.handleCategories)
			r.Get("/posts/{id}/image", s.handlePostImage)
			r.Get("/image", s.handleImage)
		})

		prefix := s.lib.URLPrefix()
		files := http.StripPrefix(prefix, http.FileServer(http.FS(s.lib.FS())))
		r.Get(prefix+"/*", func(w http.ResponseWriter, r *http.Request) {
			// No directory listings and no dotfiles such as the sync lock.
			if strings.HasSuffix(r.URL.Path, "/") || hasDotSegment(r.URL.Path) {
				http.NotFound(w, r)
				return
			}
			files.ServeHTTP(w, r)
		})
	})

	return r
}

// WatchLibrary reloads the catalog whenever the library changes, until
// ctx is cancelled.
func (s *Server) WatchLibrary(ctx context.Context, debounce time.Duration) error {
	return s.lib.Watch(ctx, debounce, func() {
		if err := s.catalog.Reload(ctx); err != nil && ctx.Err() == nil {
			s.logger.Warn("keeping previous catalog", logging.Err(err))
		}
	})
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: DefaultReadTimeout,
		WriteTimeout:      DefaultWriteTimeout,
		IdleTimeout:       DefaultIdleTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("serving library", slog.String("addr", ln.Addr().String()), logging.Path(s.lib.Root()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.health.SetShuttingDown()
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), DefaultShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ListenAndServe listens on addr and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

func hasDotSegment(p string) bool {
	for seg := range strings.SplitSeq(p, "/") {
		if strings.HasPrefix(seg, ".") {
			return true
		}
	}
	return false
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.Error("template render failed", slog.String("template", name), logging.Err(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
