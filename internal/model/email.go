package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Email is a parsed RFC 5322 message.
type Email struct {
	MessageID string
	Subject   string
	From      string
	To        string
	Cc        string
	// Date is the raw Date header; parsing happens where it is used.
	Date      string
	Body      string
	Signature string
	// Headers keeps the first value of every header, canonical key case.
	Headers map[string]string
	// Source is the file path or upload name the message came from.
	Source string
}

// Header returns the header value for key, case-insensitively.
func (e *Email) Header(key string) (string, bool) {
	if e.Headers == nil {
		return "", false
	}
	if v, ok := e.Headers[key]; ok {
		return v, true
	}
	for k, v := range e.Headers {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return "", false
}

// Key identifies the message for dedup and upserts. It is the Message-ID
// when present, otherwise a hash of the identifying headers and body.
func (e *Email) Key() string {
	if id := strings.Trim(strings.TrimSpace(e.MessageID), "<>"); id != "" {
		return id
	}
	h := sha256.New()
	for _, part := range []string{e.From, e.To, e.Date, e.Subject, e.Body} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return "sha256:" + hex.EncodeToString(h.Sum(nil))
}
