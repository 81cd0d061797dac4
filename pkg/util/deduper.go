package util

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Deduper 基于 Redis SetNX 的消息去重
type Deduper struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
	logger *zap.Logger
}

func NewDeduper(rdb *redis.Client, prefix string, ttl time.Duration, logger *zap.Logger) *Deduper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Deduper{
		rdb:    rdb,
		ttl:    ttl,
		prefix: prefix,
		logger: logger,
	}
}

// DedupKey formats the Redis key for a handler and message key.
func (d *Deduper) DedupKey(handler, messageKey string) string {
	return d.prefix + ":" + handler + ":" + messageKey
}

// AcquireOnce returns true the first time a handler sees messageKey and
// false for duplicates.
func (d *Deduper) AcquireOnce(ctx context.Context, handler, messageKey string) bool {
	if d.rdb == nil {
		return true
	}
	key := d.DedupKey(handler, messageKey)

	ok, err := d.rdb.SetNX(ctx, key, 1, d.ttl).Result()
	if err != nil {
		// Redis 不可用时不阻止处理
		d.logger.Warn("Redis dedup check failed, allowing processing",
			zap.String("handler", handler),
			zap.String("message_key", messageKey),
			zap.Error(err),
		)
		return true
	}

	if !ok {
		d.logger.Info("Skipped duplicated message",
			zap.String("handler", handler),
			zap.String("message_key", messageKey),
			zap.String("dedup_key", key),
		)
	}
	return ok
}

// Release drops the dedup key so a failed message can be processed again.
func (d *Deduper) Release(ctx context.Context, handler, messageKey string) {
	if d.rdb == nil {
		return
	}
	if err := d.rdb.Del(ctx, d.DedupKey(handler, messageKey)).Err(); err != nil {
		d.logger.Warn("Failed to release dedup key",
			zap.String("handler", handler),
			zap.String("message_key", messageKey),
			zap.Error(err),
		)
	}
}
