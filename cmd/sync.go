package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teemow/inboxshelf/internal/config"
	"github.com/teemow/inboxshelf/internal/gmail"
	"github.com/teemow/inboxshelf/internal/google"
	"github.com/teemow/inboxshelf/internal/imapmail"
	"github.com/teemow/inboxshelf/internal/instrumentation"
	"github.com/teemow/inboxshelf/internal/library"
	"github.com/teemow/inboxshelf/internal/logging"
	"github.com/teemow/inboxshelf/internal/syncer"
)

// lockFile sits in the library root, outside any year directory.
const lockFile = ".inboxshelf-sync.lock"

func newSyncCmd(opts *globalOptions) *cobra.Command {
	var (
		dryRun  bool
		backend string
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Save new newsletter emails into the library",
		Long: `Fetch unprocessed newsletter emails from the configured mailbox, save each
HTML body as <blogs>/<year>/<YYMMDD Title>.html and mark the email processed.

Backends:
  gmail  GMAIL_CLIENT_ID, GMAIL_CLIENT_SECRET and GMAIL_REFRESH_TOKEN
         (run 'inboxshelf auth' to obtain the refresh token)
  imap   IMAP_ADDR, IMAP_USERNAME and IMAP_PASSWORD
         (or 'inboxshelf auth imap' to keep the password in the keyring)

The command exits non-zero when credentials are missing, the mailbox
cannot be listed, or any message failed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("dry-run") {
				cfg.DryRun = dryRun
			}
			if cmd.Flags().Changed("backend") {
				cfg.Backend = strings.ToLower(backend)
				if err := cfg.Validate(); err != nil {
					return err
				}
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return runSync(ctx, cfg, cmd.OutOrStdout(), slog.Default())
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Derive and validate articles without writing or marking. Can also use DRY_RUN env var.")
	cmd.Flags().StringVar(&backend, "backend", config.BackendGmail, "Mail backend: gmail or imap. Can also use MAIL_BACKEND env var.")
	cmd.Flags().String("blogs", config.DefaultBlogsPath, "Library directory. Can also use BLOGS_BASE_PATH env var.")
	return cmd
}

func runSync(ctx context.Context, cfg config.Config, out io.Writer, logger *slog.Logger) error {
	if cfg.Backend == config.BackendIMAP {
		cfg.ResolveIMAPPassword(imapmail.LookupPassword)
	}
	if err := cfg.ValidateCredentials(); err != nil {
		return err
	}

	provider, instrConfig, stopInstrumentation, err := startInstrumentation(ctx, logger)
	if err != nil {
		return err
	}
	defer stopInstrumentation()
	metrics := provider.Metrics()

	mailbox, account, closeMailbox, err := openMailbox(ctx, cfg, logger, metrics)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := closeMailbox(); closeErr != nil {
			logger.Debug("failed to close mailbox", logging.Err(closeErr))
		}
	}()

	if err := os.MkdirAll(cfg.BlogsPath, 0o755); err != nil {
		return fmt.Errorf("failed to create library directory: %w", err)
	}
	lib := library.New(cfg.BlogsPath, library.WithLogger(logger))
	s := syncer.New(mailbox, lib, syncer.Options{
		SubjectPrefix: cfg.SubjectPrefix,
		DryRun:        cfg.DryRun,
		LockPath:      filepath.Join(cfg.BlogsPath, lockFile),
		Logger:        logger,
		Recorder:      metrics,
	})

	ctx, span := instrumentation.StartSyncSpan(ctx, cfg.Backend, cfg.DryRun)
	defer span.End()
	audit := instrumentation.NewSyncRun(cfg.Backend, account, cfg.DryRun).WithSpanContext(ctx)

	stats, runErr := s.Run(ctx)

	audit.Complete(stats, runErr)
	metrics.RecordSyncRun(ctx, cfg.Backend, audit.Status())
	instrumentation.NewAuditLogger(logger, instrConfig.AuditLogging).LogSyncRun(ctx, audit)

	if runErr != nil {
		instrumentation.SetSpanError(span, runErr)
		if errors.Is(runErr, syncer.ErrLocked) {
			return fmt.Errorf("%w (lock file %s)", runErr, filepath.Join(cfg.BlogsPath, lockFile))
		}
		return runErr
	}

	printSyncSummary(ctx, out, lib, stats, cfg.DryRun)

	if !stats.Success() {
		err := fmt.Errorf("%d of %d messages failed", stats.Failed, stats.Processed)
		instrumentation.SetSpanError(span, err)
		return err
	}
	instrumentation.SetSpanSuccess(span)
	return nil
}

// openMailbox connects the configured backend. account names the mailbox
// owner for the audit log and may be empty.
func openMailbox(ctx context.Context, cfg config.Config, logger *slog.Logger, metrics *instrumentation.Metrics) (mb syncer.Mailbox, account string, closeFn func() error, err error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case config.BackendGmail:
		conf := google.Config(cfg.Gmail.ClientID, cfg.Gmail.ClientSecret, google.DefaultRedirectURL)
		ts, err := google.TokenSource(ctx, conf, cfg.Gmail.RefreshToken)
		if err != nil {
			return nil, "", noop, err
		}
		m, err := gmail.NewMailbox(ctx, google.HTTPClient(ctx, ts), gmail.MailboxOptions{
			Query:      cfg.Gmail.Query,
			Label:      cfg.Gmail.Label,
			MaxResults: int64(cfg.Gmail.MaxResults),
			Logger:     logger,
			Recorder:   metrics,
		})
		if err != nil {
			return nil, "", noop, fmt.Errorf("failed to create Gmail mailbox: %w", err)
		}
		return m, "", noop, nil

	case config.BackendIMAP:
		m, err := imapmail.New(imapmail.Options{
			Addr:       cfg.IMAP.Addr,
			Username:   cfg.IMAP.Username,
			Password:   cfg.IMAP.Password,
			Mailbox:    cfg.IMAP.Mailbox,
			Senders:    cfg.IMAP.Senders,
			MaxResults: cfg.IMAP.MaxResults,
			Insecure:   cfg.IMAP.Insecure,
			Logger:     logger,
			Recorder:   metrics,
		})
		if err != nil {
			return nil, "", noop, fmt.Errorf("failed to create IMAP mailbox: %w", err)
		}
		return m, cfg.IMAP.Username, m.Close, nil
	}
	return nil, "", noop, fmt.Errorf("invalid mail backend %q", cfg.Backend)
}

func printSyncSummary(ctx context.Context, out io.Writer, lib *library.Library, stats syncer.Stats, dryRun bool) {
	mode := ""
	if dryRun {
		mode = " (dry run)"
	}
	fmt.Fprintf(out, "Sync complete%s: %d processed, %d saved, %d skipped, %d failed\n",
		mode, stats.Processed, stats.Saved, stats.Skipped, stats.Failed)

	libStats, err := lib.Stats(ctx)
	if err != nil {
		slog.Warn("failed to read library stats", logging.Err(err))
		return
	}
	printLibraryStats(out, lib.Root(), libStats)
}

func printLibraryStats(out io.Writer, root string, stats library.Stats) {
	fmt.Fprintf(out, "Library %s: %d articles\n", root, stats.Total)
	for _, year := range stats.Years() {
		fmt.Fprintf(out, "  %s: %d\n", year, stats.ByYear[year])
	}
}
