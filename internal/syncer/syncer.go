package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofrs/flock"

	"github.com/teemow/inboxshelf/internal/library"
	"github.com/teemow/inboxshelf/internal/logging"
)

// ErrLocked is returned when another sync holds the run lock.
var ErrLocked = errors.New("another sync is already running")

// Item outcomes reported to a Recorder.
const (
	ResultSaved   = "saved"
	ResultSkipped = "skipped"
	ResultFailed  = "failed"
)

// Stats counts what a run did with each message.
type Stats struct {
	Processed int `json:"processed"`
	Saved     int `json:"saved"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// Success reports whether no message failed.
func (s Stats) Success() bool { return s.Failed == 0 }

// Recorder observes per-message outcomes.
type Recorder interface {
	RecordSyncItem(ctx context.Context, result string)
}

// Options configures a Syncer.
type Options struct {
	// SubjectPrefix is stripped from subjects when deriving titles.
	SubjectPrefix string
	// DryRun derives and validates articles without writing files or
	// marking messages.
	DryRun bool
	// LockPath, when set, is an exclusive lock file held for the run.
	LockPath string
	Logger   *slog.Logger
	Recorder Recorder
}

// Syncer moves messages from a Mailbox into a Store.
type Syncer struct {
	mailbox Mailbox
	store   Store
	parser  *Parser
	opts    Options
	logger  *slog.Logger
}

// New returns a Syncer.
func New(mailbox Mailbox, store Store, opts Options) *Syncer {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{
		mailbox: mailbox,
		store:   store,
		parser:  NewParser(opts.SubjectPrefix),
		opts:    opts,
		logger:  logging.WithOperation(logger, "sync.run"),
	}
}

// Run performs one sync. The returned error covers failures that stop the
// whole run (lock, listing, cancellation); per-message failures only show
// up in Stats.Failed.
func (s *Syncer) Run(ctx context.Context) (Stats, error) {
	var stats Stats

	if s.opts.LockPath != "" {
		lock := flock.New(s.opts.LockPath)
		locked, err := lock.TryLock()
		if err != nil {
			return stats, fmt.Errorf("failed to acquire sync lock %s: %w", s.opts.LockPath, err)
		}
		if !locked {
			return stats, ErrLocked
		}
		defer func() {
			if err := lock.Unlock(); err != nil {
				s.logger.Warn("failed to release sync lock", logging.Err(err))
			}
		}()
	}

	start := time.Now()
	s.logger.Info("sync started", slog.Bool("dry_run", s.opts.DryRun))

	msgs, err := s.mailbox.ListUnprocessed(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to list messages: %w", err)
	}
	s.logger.Info("found unprocessed messages", logging.Count(len(msgs)))

	for _, msg := range msgs {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.Processed++

		result := s.process(ctx, msg)
		switch result {
		case ResultSaved:
			stats.Saved++
		case ResultSkipped:
			stats.Skipped++
		default:
			stats.Failed++
		}
		if s.opts.Recorder != nil {
			s.opts.Recorder.RecordSyncItem(ctx, result)
		}
	}

	s.logger.Info("sync finished",
		slog.Int("processed", stats.Processed),
		slog.Int("saved", stats.Saved),
		slog.Int("skipped", stats.Skipped),
		slog.Int("failed", stats.Failed),
		slog.Duration(logging.KeyDuration, time.Since(start)))
	return stats, nil
}

// process handles one message and returns its outcome.
func (s *Syncer) process(ctx context.Context, msg Message) string {
	logger := s.logger.With(logging.MessageID(msg.ID))

	article := s.parser.Parse(msg)
	if err := article.Validate(); err != nil {
		logger.Warn("message rejected", slog.String("subject", msg.Subject), logging.Err(err))
		return ResultFailed
	}
	logger = logger.With(slog.String("title", article.Title), slog.Int("year", article.Year))

	exists, err := s.store.Exists(article.Year, article.Filename)
	if err != nil {
		logger.Error("failed to check library", logging.Err(err))
		return ResultFailed
	}
	if exists {
		logger.Info("article already in library")
		if s.opts.DryRun {
			return ResultSkipped
		}
		return s.mark(ctx, logger, msg.ID, ResultSkipped)
	}

	if s.opts.DryRun {
		logger.Info("dry run: would save article", logging.Path(article.Filename))
		return ResultSkipped
	}

	if err := s.store.Write(article.Year, article.Filename, article.HTML); err != nil {
		if errors.Is(err, library.ErrExists) {
			logger.Info("article appeared during sync")
			return s.mark(ctx, logger, msg.ID, ResultSkipped)
		}
		logger.Error("failed to save article", logging.Err(err))
		return ResultFailed
	}
	logger.Info("article saved", logging.Path(article.Filename))

	return s.mark(ctx, logger, msg.ID, ResultSaved)
}

// mark records msg as processed and returns result, or ResultFailed if
// marking fails.
func (s *Syncer) mark(ctx context.Context, logger *slog.Logger, id, result string) string {
	if err := s.mailbox.MarkProcessed(ctx, id); err != nil {
		logger.Error("failed to mark message processed", logging.Err(err))
		return ResultFailed
	}
	return result
}
