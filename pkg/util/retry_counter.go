package util

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

type localCount struct {
	n        int64
	expireAt time.Time
}

// RetryCounter counts delivery attempts per message. Without Redis it
// keeps the counts in process memory, which is enough for a single worker.
type RetryCounter struct {
	rdb *redis.Client
	ttl time.Duration

	mu    sync.Mutex
	local map[string]localCount
	now   func() time.Time
}

func NewRetryCounter(rdb *redis.Client, ttl time.Duration) *RetryCounter {
	return &RetryCounter{
		rdb:   rdb,
		ttl:   ttl,
		local: make(map[string]localCount),
		now:   time.Now,
	}
}

// IncrementAndGet increments the attempt count for key and returns it.
// When Redis fails the count comes from process memory and the Redis
// error is returned alongside it.
func (r *RetryCounter) IncrementAndGet(ctx context.Context, key string) (int64, error) {
	if r.rdb == nil {
		return r.incrLocal(key), nil
	}

	// INCR + EXPIRE NX 一次往返，首次计数时设置过期
	var incr *redis.IntCmd
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, r.ttl)
		return nil
	})
	if err != nil {
		return r.incrLocal(key), err
	}
	return incr.Val(), nil
}

func (r *RetryCounter) incrLocal(key string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	c := r.local[key]
	if !c.expireAt.IsZero() && now.After(c.expireAt) {
		c = localCount{}
	}
	if c.n == 0 {
		c.expireAt = now.Add(r.ttl)
	}
	c.n++
	r.local[key] = c
	return c.n
}

func (r *RetryCounter) Reset(ctx context.Context, key string) error {
	r.mu.Lock()
	delete(r.local, key)
	r.mu.Unlock()

	if r.rdb == nil {
		return nil
	}
	return r.rdb.Del(ctx, key).Err()
}

// FormatRetryKey formats a retry key for a handler and message key.
func FormatRetryKey(handler, messageKey string) string {
	return "retry:" + handler + ":" + messageKey
}
