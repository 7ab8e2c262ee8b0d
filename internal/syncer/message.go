package syncer

import (
	"context"
	"time"
)

// Message is a newsletter email as returned by a Mailbox.
type Message struct {
	ID      string
	Subject string
	From    string
	// Date is when the mailbox received the message. It becomes the
	// article's publication date.
	Date time.Time
	HTML string
}

// Mailbox is a source of newsletter emails.
type Mailbox interface {
	// ListUnprocessed returns the messages not yet marked as processed.
	ListUnprocessed(ctx context.Context) ([]Message, error)
	// MarkProcessed records that a message has been handled.
	MarkProcessed(ctx context.Context, id string) error
}

// Store is where articles are written.
type Store interface {
	Exists(year int, filename string) (bool, error)
	Write(year int, filename, html string) error
}
