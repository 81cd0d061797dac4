package parser

import (
	"bytes"
	"errors"
	"fmt"
	"net/textproto"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jhillyerd/enmime"
	"go.uber.org/zap"

	"emailanalyser/internal/model"
)

var (
	ErrEmptyMessage  = errors.New("empty message")
	ErrNotADirectory = errors.New("input path is not a directory")
	signatureMarkers = []string{"Best regards", "Regards", "Sincerely", "Thanks"}
	emlGlob          = "*.eml"
)

type Parser struct {
	logger *zap.Logger
}

func NewParser(logger *zap.Logger) *Parser {
	return &Parser{logger: logger}
}

// ParseBytes decodes a raw RFC 5322 message.
func (p *Parser) ParseBytes(raw []byte, source string) (*model.Email, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, ErrEmptyMessage
	}

	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to read message %s: %w", source, err)
	}

	headers := make(map[string]string)
	for _, key := range env.GetHeaderKeys() {
		canonical := textproto.CanonicalMIMEHeaderKey(key)
		if _, seen := headers[canonical]; seen {
			continue
		}
		headers[canonical] = env.GetHeader(key)
	}

	// enmime falls back to a text rendition of the HTML part when there is no text/plain part
	body := normalizeNewlines(env.Text)

	return &model.Email{
		MessageID: headers["Message-Id"],
		Subject:   headers["Subject"],
		From:      headers["From"],
		To:        headers["To"],
		Cc:        headers["Cc"],
		Date:      headers["Date"],
		Body:      body,
		Signature: ExtractSignature(body),
		Headers:   headers,
		Source:    source,
	}, nil
}

// ParseFile reads and parses a single .eml file.
func (p *Parser) ParseFile(path string) (*model.Email, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return p.ParseBytes(raw, path)
}

// ParseDirectory parses every *.eml file directly inside dir. Files that
// cannot be parsed are logged and skipped.
func (p *Parser) ParseDirectory(dir string) ([]*model.Email, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open input directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: %w", dir, ErrNotADirectory)
	}

	paths, err := filepath.Glob(filepath.Join(dir, emlGlob))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	sort.Strings(paths)

	emails := make([]*model.Email, 0, len(paths))
	for _, path := range paths {
		email, err := p.ParseFile(path)
		if err != nil {
			p.logger.Error("Error parsing email", zap.String("path", path), zap.Error(err))
			continue
		}
		emails = append(emails, email)
	}

	p.logger.Info("Parsed email directory",
		zap.String("directory", dir),
		zap.Int("files", len(paths)),
		zap.Int("parsed", len(emails)),
	)
	return emails, nil
}

// ExtractSignature returns the body from the first line carrying a
// closing marker onwards, or "" when there is none.
func ExtractSignature(body string) string {
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		for _, marker := range signatureMarkers {
			if strings.Contains(line, marker) {
				return strings.Join(lines[i:], "\n")
			}
		}
	}
	return ""
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
