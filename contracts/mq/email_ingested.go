package mq

import (
	"encoding/base64"
	"fmt"
	"time"
)

// EmailIngestedPayload 原始邮件上传事件的 payload，raw 为 base64 编码的 .eml
type EmailIngestedPayload struct {
	MessageID  string    `json:"message_id"`
	Source     string    `json:"source"`
	Raw        string    `json:"raw"`
	TraceID    string    `json:"trace_id,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}

func NewEmailIngestedPayload(messageID, source string, raw []byte, traceID string) EmailIngestedPayload {
	return EmailIngestedPayload{
		MessageID:  messageID,
		Source:     source,
		Raw:        base64.StdEncoding.EncodeToString(raw),
		TraceID:    traceID,
		ReceivedAt: time.Now().UTC(),
	}
}

// DecodeRaw 解码 base64 原始邮件
func (p EmailIngestedPayload) DecodeRaw() ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(p.Raw)
	if err != nil {
		return nil, fmt.Errorf("decode raw message: %w", err)
	}
	return raw, nil
}
