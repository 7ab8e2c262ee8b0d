package imapmail

import (
	"context"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-imap/v2/imapserver"
	"github.com/emersion/go-imap/v2/imapserver/imapmemserver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testUser     = "reader"
	testPassword = "secret"
)

func startServer(t *testing.T) string {
	t.Helper()

	mem := imapmemserver.New()
	user := imapmemserver.NewUser(testUser, testPassword)
	require.NoError(t, user.Create("INBOX", nil))
	mem.AddUser(user)

	srv := imapserver.New(&imapserver.Options{
		NewSession: func(*imapserver.Conn) (imapserver.Session, *imapserver.GreetingData, error) {
			return mem.NewSession(), nil, nil
		},
		Caps: imap.CapSet{
			imap.CapIMAP4rev1: {},
			imap.CapIMAP4rev2: {},
		},
		InsecureAuth: true,
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = srv.Close() })

	return ln.Addr().String()
}

func appendMessage(t *testing.T, addr, from, subject string, received time.Time) {
	t.Helper()

	c, err := imapclient.DialInsecure(addr, nil)
	require.NoError(t, err)
	defer c.Close()
	require.NoError(t, c.Login(testUser, testPassword).Wait())

	raw := crlf(fmt.Sprintf(`From: %s
Subject: %s
Content-Type: text/html; charset=utf-8

<p>%s</p>
`, from, subject, subject))

	cmd := c.Append("INBOX", int64(len(raw)), &imap.AppendOptions{Time: received})
	_, err = cmd.Write(raw)
	require.NoError(t, err)
	require.NoError(t, cmd.Close())
	_, err = cmd.Wait()
	require.NoError(t, err)
}

type opCounter struct {
	mu  sync.Mutex
	ops map[string]int
}

func (c *opCounter) RecordMailOperation(_ context.Context, backend, operation, status string, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ops == nil {
		c.ops = map[string]int{}
	}
	c.ops[backend+"/"+operation+"/"+status]++
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Options{Username: "u", Password: "p"})
	assert.Error(t, err)
	_, err = New(Options{Addr: "localhost:993", Username: "u"})
	assert.Error(t, err)

	mb, err := New(Options{Addr: "localhost:993", Username: "u", Password: "p"})
	require.NoError(t, err)
	assert.Equal(t, DefaultMailbox, mb.opts.Mailbox)
	assert.Equal(t, DefaultKeyword, mb.opts.Keyword)
	assert.Equal(t, DefaultMaxResults, mb.opts.MaxResults)
	assert.NoError(t, mb.Close())
}

func TestMailbox_ListAndMark(t *testing.T) {
	addr := startServer(t)
	day := time.Date(2024, time.August, 14, 9, 30, 0, 0, time.UTC)
	appendMessage(t, addr, "ByteByteGo <bytebytego@substack.com>", "Redis Explained", day)
	appendMessage(t, addr, "Someone <person@example.com>", "Lunch", day.Add(time.Hour))
	appendMessage(t, addr, "ByteByteGo <bytebytego@substack.com>", "Kafka Explained", day.Add(2*time.Hour))

	rec := &opCounter{}
	mb, err := New(Options{
		Addr:     addr,
		Username: testUser,
		Password: testPassword,
		Senders:  []string{"substack.com"},
		Insecure: true,
		Recorder: rec,
	})
	require.NoError(t, err)
	defer mb.Close()
	ctx := context.Background()

	msgs, err := mb.ListUnprocessed(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	assert.Equal(t, "Kafka Explained", msgs[0].Subject, "newest first")
	assert.Equal(t, "Redis Explained", msgs[1].Subject)
	assert.Contains(t, msgs[1].HTML, "<p>Redis Explained</p>")
	assert.Contains(t, msgs[1].From, "bytebytego@substack.com")
	assert.Equal(t, day.Unix(), msgs[1].Date.Unix())

	require.NoError(t, mb.MarkProcessed(ctx, msgs[0].ID))

	msgs, err = mb.ListUnprocessed(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "Redis Explained", msgs[0].Subject)

	assert.Equal(t, 1, rec.ops["imap/connect/success"], "connection is reused")
	assert.Equal(t, 2, rec.ops["imap/list/success"])
	assert.Equal(t, 1, rec.ops["imap/modify/success"])
}

func TestMailbox_MaxResults(t *testing.T) {
	addr := startServer(t)
	day := time.Date(2024, time.August, 14, 9, 30, 0, 0, time.UTC)
	for i := range 3 {
		appendMessage(t, addr, "news@example.com", fmt.Sprintf("Issue %d", i+1), day.AddDate(0, 0, i))
	}

	mb, err := New(Options{Addr: addr, Username: testUser, Password: testPassword, MaxResults: 2, Insecure: true})
	require.NoError(t, err)
	defer mb.Close()

	msgs, err := mb.ListUnprocessed(context.Background())
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "Issue 3", msgs[0].Subject)
	assert.Equal(t, "Issue 2", msgs[1].Subject)
}

func TestMailbox_LoginFailure(t *testing.T) {
	addr := startServer(t)
	rec := &opCounter{}

	mb, err := New(Options{Addr: addr, Username: testUser, Password: "wrong", Insecure: true, Recorder: rec})
	require.NoError(t, err)

	_, err = mb.ListUnprocessed(context.Background())
	assert.ErrorContains(t, err, "imap login")
	assert.Equal(t, 1, rec.ops["imap/connect/error"])
}

func TestMailbox_MarkProcessedInvalidID(t *testing.T) {
	mb, err := New(Options{Addr: "127.0.0.1:1", Username: "u", Password: "p", Insecure: true})
	require.NoError(t, err)
	assert.Error(t, mb.MarkProcessed(context.Background(), "not-a-uid"))
}
