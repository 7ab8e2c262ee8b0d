package gmail

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/teemow/inboxshelf/internal/logging"
	"github.com/teemow/inboxshelf/internal/syncer"
)

const backendName = "gmail"

// Defaults for MailboxOptions.
const (
	DefaultQuery      = "from:bytebytego OR from:substack.com"
	DefaultLabel      = "ByteByteGo/Processed"
	DefaultMaxResults = 50
)

// Recorder observes Gmail API calls.
type Recorder interface {
	RecordMailOperation(ctx context.Context, backend, operation, status string, duration time.Duration)
}

// MailboxOptions configures a Mailbox.
type MailboxOptions struct {
	Query      string
	Label      string
	MaxResults int64
	Logger     *slog.Logger
	Recorder   Recorder
	// ClientOptions are passed to the Gmail service.
	ClientOptions []option.ClientOption
}

// Mailbox implements syncer.Mailbox on top of a Gmail account.
// Processed messages carry the configured label.
type Mailbox struct {
	client *Client
	opts   MailboxOptions
	logger *slog.Logger

	mu      sync.Mutex
	labelID string
}

var _ syncer.Mailbox = (*Mailbox)(nil)

// NewMailbox creates a Mailbox using an authenticated HTTP client.
func NewMailbox(ctx context.Context, httpClient *http.Client, opts MailboxOptions) (*Mailbox, error) {
	client, err := NewClient(ctx, httpClient, opts.ClientOptions...)
	if err != nil {
		return nil, err
	}
	return newMailbox(client, opts), nil
}

func newMailbox(client *Client, opts MailboxOptions) *Mailbox {
	if opts.Query == "" {
		opts.Query = DefaultQuery
	}
	if opts.Label == "" {
		opts.Label = DefaultLabel
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = DefaultMaxResults
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Mailbox{
		client: client,
		opts:   opts,
		logger: logging.WithBackend(logger, backendName),
	}
}

// ListUnprocessed searches for newsletter messages without the processed
// label. Labelled messages that still come back are dropped after the get.
func (m *Mailbox) ListUnprocessed(ctx context.Context) ([]syncer.Message, error) {
	labelID, err := m.processedLabel(ctx)
	if err != nil {
		return nil, err
	}

	query := searchQuery(m.opts.Query, m.opts.Label)
	var ids []string
	err = m.observe(ctx, "list", func() error {
		var listErr error
		ids, listErr = m.client.ListMessageIDs(ctx, query, m.opts.MaxResults)
		return listErr
	})
	if err != nil {
		return nil, err
	}
	m.logger.Info("found matching messages", slog.String("query", query), logging.Count(len(ids)))

	out := make([]syncer.Message, 0, len(ids))
	for _, id := range ids {
		var msg *gmail.Message
		err := m.observe(ctx, "get", func() error {
			var err error
			msg, err = m.client.GetMessage(ctx, id)
			return err
		})
		if err != nil {
			return nil, err
		}
		if HasLabel(msg, labelID) {
			m.logger.Debug("skipping processed message", logging.MessageID(id))
			continue
		}
		out = append(out, toSyncMessage(msg))
	}
	return out, nil
}

// searchQuery excludes label from query.
func searchQuery(query, label string) string {
	return "(" + query + `) -label:"` + strings.ReplaceAll(label, `"`, "") + `"`
}

// MarkProcessed applies the processed label.
func (m *Mailbox) MarkProcessed(ctx context.Context, id string) error {
	labelID, err := m.processedLabel(ctx)
	if err != nil {
		return err
	}
	return m.observe(ctx, "modify", func() error {
		return m.client.AddLabel(ctx, id, labelID)
	})
}

func (m *Mailbox) processedLabel(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.labelID != "" {
		return m.labelID, nil
	}

	var (
		id      string
		created bool
	)
	err := m.observe(ctx, "label", func() error {
		var err error
		id, created, err = m.client.GetOrCreateLabel(ctx, m.opts.Label)
		return err
	})
	if err != nil {
		return "", err
	}
	if created {
		m.logger.Info("created label", slog.String("label", m.opts.Label))
	}
	m.labelID = id
	return id, nil
}

func toSyncMessage(msg *gmail.Message) syncer.Message {
	return syncer.Message{
		ID:      msg.Id,
		Subject: HeaderValue(msg, "Subject"),
		From:    HeaderValue(msg, "From"),
		Date:    time.UnixMilli(msg.InternalDate),
		HTML:    HTMLBody(msg),
	}
}

func (m *Mailbox) observe(ctx context.Context, operation string, fn func() error) error {
	start := time.Now()
	err := fn()
	if m.opts.Recorder != nil {
		status := logging.StatusSuccess
		if err != nil {
			status = logging.StatusError
		}
		m.opts.Recorder.RecordMailOperation(ctx, backendName, operation, status, time.Since(start))
	}
	return err
}
