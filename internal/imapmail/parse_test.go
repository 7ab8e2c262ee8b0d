package imapmail

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func crlf(s string) []byte {
	return []byte(strings.ReplaceAll(s, "\n", "\r\n"))
}

const multipartMessage = `From: ByteByteGo <bytebytego@substack.com>
To: reader@example.com
Subject: =?utf-8?q?ByteByteGo=3A_Caf=C3=A9_Caching_-_Aug_14?=
Date: Wed, 14 Aug 2024 09:30:00 +0000
MIME-Version: 1.0
Content-Type: multipart/alternative; boundary="b1"

--b1
Content-Type: text/plain; charset=utf-8

plain body
--b1
Content-Type: text/html; charset=utf-8

<div dir="auto"><p>html body</p></div>
--b1--
`

func TestParseMessage_Multipart(t *testing.T) {
	p, err := ParseMessage(crlf(multipartMessage))
	require.NoError(t, err)

	assert.Equal(t, "ByteByteGo: Café Caching - Aug 14", p.Subject)
	assert.Contains(t, p.From, "bytebytego@substack.com")
	assert.True(t, time.Date(2024, time.August, 14, 9, 30, 0, 0, time.UTC).Equal(p.Date))
	assert.Equal(t, `<div dir="auto"><p>html body</p></div>`, strings.TrimSpace(p.HTML))
}

func TestParseMessage_SinglePartHTML(t *testing.T) {
	raw := crlf(`From: news@example.com
Subject: Tidying Code
Content-Type: text/html; charset=utf-8

<p>only html</p>
`)
	p, err := ParseMessage(raw)
	require.NoError(t, err)
	assert.Equal(t, "Tidying Code", p.Subject)
	assert.Equal(t, "<p>only html</p>", strings.TrimSpace(p.HTML))
}

func TestParseMessage_NoHTML(t *testing.T) {
	raw := crlf(`From: news@example.com
Subject: Plain
Content-Type: text/plain

just text
`)
	p, err := ParseMessage(raw)
	require.NoError(t, err)
	assert.Equal(t, "Plain", p.Subject)
	assert.Empty(t, p.HTML)
}
