package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/teemow/inboxshelf/internal/config"
	"github.com/teemow/inboxshelf/internal/images"
	"github.com/teemow/inboxshelf/internal/library"
	"github.com/teemow/inboxshelf/internal/logging"
	"github.com/teemow/inboxshelf/internal/server"
)

type serveOptions struct {
	addr           string
	watch          bool
	metricsAddr    string
	metricsEnabled bool
}

func newServeCmd(opts *globalOptions) *cobra.Command {
	so := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the library as a browsable catalog",
		Long: `Serve the saved articles over HTTP.

Routes:
  /                          catalog page (?category=...&q=...)
  /api/posts                 catalog as JSON (?images=true adds preview images)
  /api/categories            categories as JSON
  /api/posts/{id}/image      preview image of the first post with an id
  /api/image?path=...        preview image of the post at a catalog path
  /blogs/...                 the saved article files
  /healthz, /readyz          liveness and readiness probes

Prometheus metrics are served on a separate listener (--metrics-addr).
With --watch the catalog is rebuilt when files in the library change.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return runServe(ctx, cfg, so, slog.Default())
		},
	}

	cmd.Flags().StringVar(&so.addr, "addr", server.DefaultAddr, "HTTP listen address")
	cmd.Flags().String("blogs", config.DefaultBlogsPath, "Library directory. Can also use BLOGS_BASE_PATH env var.")
	cmd.Flags().BoolVar(&so.watch, "watch", false, "Rebuild the catalog when the library changes")
	cmd.Flags().StringVar(&so.metricsAddr, "metrics-addr", server.DefaultMetricsAddr, "Metrics listen address")
	cmd.Flags().BoolVar(&so.metricsEnabled, "metrics-enabled", true, "Serve Prometheus metrics on --metrics-addr")
	return cmd
}

func runServe(ctx context.Context, cfg config.Config, so *serveOptions, logger *slog.Logger) error {
	provider, _, stopInstrumentation, err := startInstrumentation(ctx, logger)
	if err != nil {
		return err
	}
	defer stopInstrumentation()

	rules, err := images.LoadRules(cfg.ImageRulesFile)
	if err != nil {
		return err
	}

	lib := library.New(cfg.BlogsPath, library.WithLogger(logger))
	srv, err := server.New(server.Options{
		Library:    lib,
		ImageRules: &rules,
		Metrics:    provider.Metrics(),
		Logger:     logger,
		Version:    version,
	})
	if err != nil {
		return err
	}
	if err := srv.Catalog().Reload(ctx); err != nil {
		return fmt.Errorf("failed to build catalog: %w", err)
	}
	srv.Health().SetReady(true)

	var metricsServer *server.MetricsServer
	if so.metricsEnabled && provider.Enabled() && provider.MetricsHandler() != nil {
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    so.metricsAddr,
			InstrumentationProvider: provider,
		})
		if err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.ListenAndServe(gctx, so.addr)
	})

	if metricsServer != nil {
		g.Go(func() error {
			if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), server.DefaultShutdownTimeout)
			defer cancel()
			return metricsServer.Shutdown(shutdownCtx)
		})
	}

	if so.watch {
		g.Go(func() error {
			err := srv.WatchLibrary(gctx, library.DefaultDebounce)
			if err != nil && gctx.Err() == nil {
				logger.Warn("library watcher stopped", logging.Err(err))
			}
			return nil
		})
	}

	return g.Wait()
}
