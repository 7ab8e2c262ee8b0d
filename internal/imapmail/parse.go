package imapmail

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"
	"time"

	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
)

// maxPartSize caps how much of one MIME part is read.
const maxPartSize = 16 << 20

// Parsed holds the fields the sync needs from a raw RFC 5322 message.
type Parsed struct {
	Subject string
	From    string
	Date    time.Time
	HTML    string
}

// ParseMessage extracts the subject, sender, date and first text/html part
// of a raw message.
func ParseMessage(raw []byte) (Parsed, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return Parsed{}, fmt.Errorf("failed to read message: %w", err)
	}
	defer mr.Close()

	var p Parsed
	p.Subject, _ = mr.Header.Subject()
	if addrs, err := mr.Header.AddressList("From"); err == nil && len(addrs) > 0 {
		p.From = addrs[0].String()
	} else {
		p.From = mr.Header.Get("From")
	}
	p.Date, _ = mr.Header.Date()

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return p, fmt.Errorf("failed to read message part: %w", err)
		}

		h, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		if !isHTML(h) {
			continue
		}
		body, err := io.ReadAll(io.LimitReader(part.Body, maxPartSize))
		if err != nil {
			return p, fmt.Errorf("failed to read html part: %w", err)
		}
		p.HTML = string(body)
		break
	}
	return p, nil
}

func isHTML(h *mail.InlineHeader) bool {
	ct, _, err := h.ContentType()
	if err != nil {
		ct, _, err = mime.ParseMediaType(h.Get("Content-Type"))
		if err != nil {
			return false
		}
	}
	return strings.EqualFold(ct, "text/html")
}
