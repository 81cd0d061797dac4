package mqhandler

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	mqcontracts "emailanalyser/contracts/mq"
	"emailanalyser/internal/model"
	"emailanalyser/internal/service"
	"emailanalyser/pkg/logger"
	"emailanalyser/pkg/metrics"
	"emailanalyser/pkg/mq"
	"emailanalyser/pkg/trace"
	"emailanalyser/pkg/util"
)

const handlerName = "analyze"

// RawAnalyzer is implemented by service.Pipeline.
type RawAnalyzer interface {
	AnalyzeRaw(ctx context.Context, raw []byte, source string) (*model.AnalysisResult, error)
}

// DLQPublisher is implemented by mq.Publisher.
type DLQPublisher interface {
	PublishToDLQ(ctx context.Context, routingKey string, payload []byte, originalError, reason string) error
}

type EmailIngestedHandler struct {
	analyzer     RawAnalyzer
	dlq          DLQPublisher
	retryCounter *util.RetryCounter
	deduper      *util.Deduper
	maxRetries   int64
	logger       *zap.Logger
}

func NewEmailIngestedHandler(
	analyzer RawAnalyzer,
	dlq DLQPublisher,
	retryCounter *util.RetryCounter,
	deduper *util.Deduper,
	maxRetries int64,
	logger *zap.Logger,
) *EmailIngestedHandler {
	return &EmailIngestedHandler{
		analyzer:     analyzer,
		dlq:          dlq,
		retryCounter: retryCounter,
		deduper:      deduper,
		maxRetries:   maxRetries,
		logger:       logger,
	}
}

// Handle analyses one email.ingested event.
// nil 表示 ack（成功、重复或已进入 DLQ）；返回 error 时 consumer 会 nack 重新入队。
func (h *EmailIngestedHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	var p mqcontracts.EmailIngestedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		// JSON decode 错误 - 不可重试，发送到 DLQ
		return h.deadLetter(ctx, raw, err, "json_decode_error")
	}
	if p.TraceID != "" {
		ctx = trace.WithContext(ctx, p.TraceID)
	}
	log := logger.WithTrace(ctx, h.logger).With(zap.String("source", p.Source))

	email, err := p.DecodeRaw()
	if err != nil {
		return h.deadLetter(ctx, raw, err, "base64_decode_error")
	}

	key := messageKey(p.MessageID, email)
	log = log.With(zap.String("message_key", key))

	// Redis 去重：同一封邮件只分析一次
	if !h.deduper.AcquireOnce(ctx, handlerName, key) {
		metrics.IncrementEmailProcessed("duplicate")
		return nil
	}

	retryKey := util.FormatRetryKey(handlerName, key)
	retryCount, err := h.retryCounter.IncrementAndGet(ctx, retryKey)
	if err != nil {
		// Redis 错误不影响处理，计数退回进程内
		log.Warn("Redis retry count failed, using local count", zap.Error(err))
	}

	log.Info("Processing ingested email", zap.Int64("retry_count", retryCount))

	result, err := h.analyzer.AnalyzeRaw(ctx, email, p.Source)
	if err != nil {
		if errors.Is(err, service.ErrInvalidMessage) {
			err = util.Permanent(err)
		}
		isRetryable, errType := util.IsRetryableError(err)
		log.Error("Failed to analyze email",
			zap.String("error_type", errType),
			zap.Bool("retryable", isRetryable),
			zap.Int64("retry_count", retryCount),
			zap.Error(err),
		)

		if !util.ShouldRetry(retryCount, h.maxRetries, isRetryable) {
			h.resetRetries(ctx, retryKey)
			reason := errType
			if isRetryable {
				reason = "max_retries_exceeded"
			}
			if dlqErr := h.deadLetter(ctx, raw, err, reason); dlqErr != nil {
				h.deduper.Release(ctx, handlerName, key)
				return dlqErr
			}
			return nil
		}

		// 可重试：释放去重锁，让重投递的消息能再次处理
		h.deduper.Release(ctx, handlerName, key)
		return err
	}

	h.resetRetries(ctx, retryKey)
	log.Info("Ingested email analyzed",
		zap.String("run_id", result.RunID),
		zap.String("email_type", result.EmailType),
	)
	return nil
}

// deadLetter 发送到 DLQ；发送失败时返回 error 让消息重新入队
func (h *EmailIngestedHandler) deadLetter(ctx context.Context, raw []byte, cause error, reason string) error {
	log := logger.WithTrace(ctx, h.logger)
	if err := h.dlq.PublishToDLQ(ctx, mq.RoutingKeyEmailIngested, raw, cause.Error(), reason); err != nil {
		log.Error("Failed to publish to DLQ", zap.String("reason", reason), zap.Error(err))
		return fmt.Errorf("publish to DLQ: %w", err)
	}
	metrics.IncrementEmailProcessed("dlq")
	log.Warn("Message sent to DLQ", zap.String("reason", reason), zap.Error(cause))
	return nil
}

func (h *EmailIngestedHandler) resetRetries(ctx context.Context, key string) {
	if err := h.retryCounter.Reset(ctx, key); err != nil {
		h.logger.Debug("Failed to reset retry count", zap.String("key", key), zap.Error(err))
	}
}

// messageKey 优先使用 Message-ID，否则使用原始内容的哈希
func messageKey(messageID string, raw []byte) string {
	if id := strings.Trim(strings.TrimSpace(messageID), "<>"); id != "" {
		return id
	}
	sum := sha256.Sum256(raw)
	return "raw:" + hex.EncodeToString(sum[:])
}
