package imapmail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/teemow/inboxshelf/internal/logging"
	"github.com/teemow/inboxshelf/internal/syncer"
)

const backendName = "imap"

// Defaults for Options.
const (
	DefaultMailbox    = "INBOX"
	DefaultKeyword    = "$InboxshelfProcessed"
	DefaultMaxResults = 50
)

// Recorder observes IMAP commands.
type Recorder interface {
	RecordMailOperation(ctx context.Context, backend, operation, status string, duration time.Duration)
}

// Options configures a Mailbox.
type Options struct {
	Addr     string
	Username string
	Password string
	Mailbox  string
	// Senders restricts the search to messages whose From header contains
	// one of these strings. Empty means every message.
	Senders []string
	// Keyword is the flag stored on processed messages.
	Keyword    string
	MaxResults int
	TLSConfig  *tls.Config
	// Insecure dials without TLS.
	Insecure bool
	Logger   *slog.Logger
	Recorder Recorder
}

// Mailbox implements syncer.Mailbox over IMAP. It holds one connection,
// opened on first use; call Close when done.
type Mailbox struct {
	opts   Options
	logger *slog.Logger

	mu     sync.Mutex
	client *imapclient.Client
}

var _ syncer.Mailbox = (*Mailbox)(nil)

// New returns a Mailbox. No connection is made until the first call.
func New(opts Options) (*Mailbox, error) {
	if opts.Addr == "" {
		return nil, errors.New("imap addr is required")
	}
	if opts.Username == "" || opts.Password == "" {
		return nil, errors.New("imap username/password is required")
	}
	if opts.Mailbox == "" {
		opts.Mailbox = DefaultMailbox
	}
	if opts.Keyword == "" {
		opts.Keyword = DefaultKeyword
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = DefaultMaxResults
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Mailbox{
		opts:   opts,
		logger: logging.WithBackend(logger, backendName),
	}, nil
}

// ListUnprocessed returns up to MaxResults messages without the processed
// keyword, newest first.
func (m *Mailbox) ListUnprocessed(ctx context.Context) ([]syncer.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}

	var uids []imap.UID
	err = m.observe(ctx, "list", func() error {
		data, err := c.UIDSearch(m.searchCriteria(), nil).Wait()
		if err != nil {
			return fmt.Errorf("imap uid search: %w", err)
		}
		uids = data.AllUIDs()
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(uids) == 0 {
		return []syncer.Message{}, nil
	}

	slices.Reverse(uids)
	if len(uids) > m.opts.MaxResults {
		uids = uids[:m.opts.MaxResults]
	}

	bodyAll := &imap.FetchItemBodySection{Specifier: imap.PartSpecifierNone, Peek: true}
	var bufs []*imapclient.FetchMessageBuffer
	err = m.observe(ctx, "get", func() error {
		var err error
		bufs, err = c.Fetch(imap.UIDSetNum(uids...), &imap.FetchOptions{
			UID:          true,
			InternalDate: true,
			BodySection:  []*imap.FetchItemBodySection{bodyAll},
		}).Collect()
		if err != nil {
			return fmt.Errorf("imap fetch: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Fetch responses arrive in mailbox order; keep newest first.
	slices.SortFunc(bufs, func(a, b *imapclient.FetchMessageBuffer) int {
		return int(b.UID) - int(a.UID)
	})

	out := make([]syncer.Message, 0, len(bufs))
	for _, buf := range bufs {
		id := strconv.FormatUint(uint64(buf.UID), 10)
		parsed, err := ParseMessage(buf.FindBodySection(bodyAll))
		if err != nil {
			m.logger.Warn("failed to parse message", logging.MessageID(id), logging.Err(err))
		}
		date := buf.InternalDate
		if date.IsZero() {
			date = parsed.Date
		}
		out = append(out, syncer.Message{
			ID:      id,
			Subject: parsed.Subject,
			From:    parsed.From,
			Date:    date,
			HTML:    parsed.HTML,
		})
	}
	m.logger.Info("found unprocessed messages", logging.Count(len(out)))
	return out, nil
}

// MarkProcessed stores the processed keyword on the message.
func (m *Mailbox) MarkProcessed(ctx context.Context, id string) error {
	uid, err := strconv.ParseUint(id, 10, 32)
	if err != nil {
		return fmt.Errorf("invalid imap message id %q: %w", id, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	c, err := m.connect(ctx)
	if err != nil {
		return err
	}
	return m.observe(ctx, "modify", func() error {
		cmd := c.Store(imap.UIDSetNum(imap.UID(uid)), &imap.StoreFlags{
			Op:     imap.StoreFlagsAdd,
			Silent: true,
			Flags:  []imap.Flag{imap.Flag(m.opts.Keyword)},
		}, nil)
		if err := cmd.Close(); err != nil {
			return fmt.Errorf("imap store %s: %w", m.opts.Keyword, err)
		}
		return nil
	})
}

// Close logs out and closes the connection.
func (m *Mailbox) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.client == nil {
		return nil
	}
	c := m.client
	m.client = nil

	logoutErr := c.Logout().Wait()
	closeErr := c.Close()
	if logoutErr != nil {
		m.logger.Debug("imap logout failed", logging.Err(logoutErr))
	}
	return closeErr
}

func (m *Mailbox) searchCriteria() *imap.SearchCriteria {
	criteria := &imap.SearchCriteria{
		NotFlag: []imap.Flag{imap.Flag(m.opts.Keyword)},
	}
	if sender := fromAny(m.opts.Senders); sender != nil {
		criteria.Header = append(criteria.Header, sender.Header...)
		criteria.Or = append(criteria.Or, sender.Or...)
	}
	return criteria
}

// fromAny matches a From header containing any of senders.
func fromAny(senders []string) *imap.SearchCriteria {
	var out *imap.SearchCriteria
	for _, s := range senders {
		c := &imap.SearchCriteria{Header: []imap.SearchCriteriaHeaderField{{Key: "From", Value: s}}}
		if out == nil {
			out = c
			continue
		}
		out = &imap.SearchCriteria{Or: [][2]imap.SearchCriteria{{*out, *c}}}
	}
	return out
}

// connect returns the open connection, dialing and selecting the mailbox
// first if needed. Callers hold m.mu.
func (m *Mailbox) connect(ctx context.Context) (*imapclient.Client, error) {
	if m.client != nil {
		return m.client, nil
	}

	var c *imapclient.Client
	err := m.observe(ctx, "connect", func() error {
		var err error
		if m.opts.Insecure {
			c, err = imapclient.DialInsecure(m.opts.Addr, nil)
		} else {
			tlsCfg := m.opts.TLSConfig
			if tlsCfg == nil {
				tlsCfg = &tls.Config{MinVersion: tls.VersionTLS12}
			}
			c, err = imapclient.DialTLS(m.opts.Addr, &imapclient.Options{TLSConfig: tlsCfg})
		}
		if err != nil {
			return fmt.Errorf("imap dial: %w", err)
		}

		if err := c.Login(m.opts.Username, m.opts.Password).Wait(); err != nil {
			_ = c.Close()
			return fmt.Errorf("imap login: %w", err)
		}
		if _, err := c.Select(m.opts.Mailbox, nil).Wait(); err != nil {
			_ = c.Close()
			return fmt.Errorf("imap select %s: %w", m.opts.Mailbox, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("connected to mailbox",
		slog.String("addr", m.opts.Addr),
		slog.String("mailbox", m.opts.Mailbox),
		logging.UserHash(m.opts.Username))
	m.client = c
	return c, nil
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
