package parser

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

const multipartMessage = "From: \"Jane Doe\" <jane@acme.co.uk>\r\n" +
	"To: bob@example.com\r\n" +
	"Subject: Quarterly report\r\n" +
	"Date: Tue, 10 Oct 2023 14:30:00 +0200\r\n" +
	"Message-ID: <abc123@acme.co.uk>\r\n" +
	"List-Unsubscribe: <mailto:unsub@acme.co.uk>\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/alternative; boundary=\"BOUNDARY\"\r\n" +
	"\r\n" +
	"--BOUNDARY\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Hello Bob,\r\n" +
	"\r\n" +
	"Please find attached the report.\r\n" +
	"\r\n" +
	"Best regards,\r\n" +
	"Jane Doe\r\n" +
	"--BOUNDARY\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<p>Hello Bob</p>\r\n" +
	"--BOUNDARY--\r\n"

const plainMessage = "From: alerts@no-reply.example.com\r\n" +
	"Subject: Ticket #42 updated\r\n" +
	"\r\n" +
	"This is an automated notification.\r\n"

func newTestParser() *Parser {
	return NewParser(zap.NewNop())
}

func TestParseBytesMultipart(t *testing.T) {
	email, err := newTestParser().ParseBytes([]byte(multipartMessage), "inline")
	if err != nil {
		t.Fatalf("ParseBytes() error = %v", err)
	}

	if email.Subject != "Quarterly report" {
		t.Errorf("subject = %q", email.Subject)
	}
	if !strings.Contains(email.From, "jane@acme.co.uk") {
		t.Errorf("from = %q", email.From)
	}
	if !strings.Contains(email.MessageID, "abc123@acme.co.uk") {
		t.Errorf("message id = %q", email.MessageID)
	}
	if !strings.Contains(email.Body, "Please find attached the report.") {
		t.Errorf("body = %q", email.Body)
	}
	if strings.Contains(email.Body, "<p>") {
		t.Errorf("body should come from the text/plain part, got %q", email.Body)
	}
	if strings.Contains(email.Body, "\r") {
		t.Error("body should have normalized newlines")
	}
	if !strings.HasPrefix(email.Signature, "Best regards,") {
		t.Errorf("signature = %q", email.Signature)
	}
	if _, ok := email.Header("list-unsubscribe"); !ok {
		t.Error("expected List-Unsubscribe header to be kept")
	}
	if email.Source != "inline" {
		t.Errorf("source = %q", email.Source)
	}
}

func TestParseBytesSinglePart(t *testing.T) {
	email, err := newTestParser().ParseBytes([]byte(plainMessage), "plain")
	if err != nil {
		t.Fatalf("ParseBytes() error = %v", err)
	}
	if !strings.Contains(email.Body, "automated notification") {
		t.Errorf("body = %q", email.Body)
	}
	if email.Signature != "" {
		t.Errorf("expected no signature, got %q", email.Signature)
	}
	if email.Date != "" {
		t.Errorf("expected empty date, got %q", email.Date)
	}
}

func TestParseBytesEmpty(t *testing.T) {
	_, err := newTestParser().ParseBytes([]byte("  \n"), "empty")
	if !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("expected ErrEmptyMessage, got %v", err)
	}
}

func TestParseDirectory(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"b.eml":     plainMessage,
		"a.eml":     multipartMessage,
		"empty.eml": "",
		"notes.txt": plainMessage,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	emails, err := newTestParser().ParseDirectory(dir)
	if err != nil {
		t.Fatalf("ParseDirectory() error = %v", err)
	}
	if len(emails) != 2 {
		t.Fatalf("expected 2 parsed emails, got %d", len(emails))
	}
	if filepath.Base(emails[0].Source) != "a.eml" || filepath.Base(emails[1].Source) != "b.eml" {
		t.Errorf("expected lexical order, got %s, %s", emails[0].Source, emails[1].Source)
	}
}

func TestParseDirectoryMissing(t *testing.T) {
	_, err := newTestParser().ParseDirectory(filepath.Join(t.TempDir(), "missing"))
	if err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestParseDirectoryNotADirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.eml")
	if err := os.WriteFile(path, []byte(plainMessage), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := newTestParser().ParseDirectory(path)
	if !errors.Is(err, ErrNotADirectory) {
		t.Errorf("expected ErrNotADirectory, got %v", err)
	}
}

func TestExtractSignature(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"no marker", "Hello\nSee you", ""},
		{"regards", "Hello\nKind Regards\nAnn", "Kind Regards\nAnn"},
		{"first marker wins", "Thanks for this\nmore\nSincerely\nBo", "Thanks for this\nmore\nSincerely\nBo"},
		{"case sensitive", "best regards\nBo", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractSignature(tt.body); got != tt.want {
				t.Errorf("ExtractSignature() = %q, want %q", got, tt.want)
			}
		})
	}
}
