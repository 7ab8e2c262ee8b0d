package gmail

import (
	"encoding/base64"
	"slices"
	"strings"

	gmail "google.golang.org/api/gmail/v1"
)

// HeaderValue extracts a header value from a Gmail message
func HeaderValue(m *gmail.Message, header string) string {
	mpart := m.Payload
	if mpart == nil {
		return ""
	}
	for _, mph := range mpart.Headers {
		if strings.EqualFold(mph.Name, header) {
			return mph.Value
		}
	}
	return ""
}

// HasLabel reports whether the message carries labelID.
func HasLabel(m *gmail.Message, labelID string) bool {
	return slices.Contains(m.LabelIds, labelID)
}

// HTMLBody returns the first text/html part of the message, decoded.
func HTMLBody(m *gmail.Message) string {
	var body string
	walkParts(m.Payload, func(part *gmail.MessagePart) bool {
		if part.MimeType != "text/html" || part.Body == nil || part.Body.Data == "" {
			return true
		}
		decoded, err := decodeBody(part.Body.Data)
		if err != nil {
			return true
		}
		body = decoded
		return false
	})
	return body
}

// walkParts walks message parts depth-first until fn returns false.
func walkParts(part *gmail.MessagePart, fn func(*gmail.MessagePart) bool) bool {
	if part == nil {
		return true
	}
	if !fn(part) {
		return false
	}
	for _, subpart := range part.Parts {
		if !walkParts(subpart, fn) {
			return false
		}
	}
	return true
}

// decodeBody decodes base64url body data (Gmail API uses RFC 4648 base64url
// encoding, with or without padding).
func decodeBody(data string) (string, error) {
	decoded, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		decoded, err = base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "="))
		if err != nil {
			return "", err
		}
	}
	return string(decoded), nil
}
