package mq

import "time"

// EmailAnalyzedPayload 分析完成事件，由 outbox 发布
type EmailAnalyzedPayload struct {
	RunID      string    `json:"run_id"`
	MessageKey string    `json:"message_key"`
	EmailID    string    `json:"email_id"`
	Subject    string    `json:"subject"`
	From       string    `json:"from"`
	EmailType  string    `json:"email_type"`
	Language   string    `json:"language"`
	Sentiment  float64   `json:"sentiment"`
	TraceID    string    `json:"trace_id,omitempty"`
	AnalyzedAt time.Time `json:"analyzed_at"`
}
