package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"emailanalyser/pkg/circuitbreaker"
	"emailanalyser/pkg/metrics"
	"emailanalyser/pkg/trace"
)

const cacheKeyPrefix = "geo:"

// Client resolves IP addresses through an ip-api compatible endpoint
// (GET <endpoint><ip> returning {"status","country"}).
type Client struct {
	endpoint   string
	httpClient *http.Client
	cb         *circuitbreaker.CircuitBreaker // 熔断器
	rdb        *redis.Client
	cacheTTL   time.Duration
	logger     *zap.Logger

	// 同一 IP 的并发查询只发一次请求
	flight singleflight.Group
}

// NewClient creates the client. rdb may be nil, which disables caching.
func NewClient(endpoint string, timeout, cacheTTL time.Duration, rdb *redis.Client, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	cbConfig := circuitbreaker.Config{
		FailureThreshold:    3,                // 连续失败3次后打开
		SuccessThreshold:    2,                // 半开状态下成功2次后关闭
		Timeout:             30 * time.Second, // 打开状态持续30秒
		HalfOpenMaxRequests: 1,
		OnStateChange: func(from, to circuitbreaker.State) {
			metrics.SetCircuitBreakerState("geo", int(to))
			logger.Warn("Geo lookup circuit breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
		cb:         circuitbreaker.NewCircuitBreaker(cbConfig),
		rdb:        rdb,
		cacheTTL:   cacheTTL,
		logger:     logger,
	}
}

type lookupResponse struct {
	Status  string `json:"status"`
	Country string `json:"country"`
}

// Country returns the country of ip, or "" when the service does not know it.
func (c *Client) Country(ctx context.Context, ip string) (string, error) {
	start := time.Now()

	if country, ok := c.cached(ctx, ip); ok {
		metrics.RecordGeoLookupLatency("cached", time.Since(start))
		return country, nil
	}

	v, err, _ := c.flight.Do(ip, func() (any, error) {
		var country string
		err := c.cb.Execute(func() error {
			var lookupErr error
			country, lookupErr = c.lookup(ctx, ip)
			return lookupErr
		})
		return country, err
	})
	if err != nil {
		metrics.RecordGeoLookupLatency("error", time.Since(start))
		return "", fmt.Errorf("geo lookup %s: %w", ip, err)
	}

	country := v.(string)
	result := "hit"
	if country == "" {
		result = "miss"
	}
	metrics.RecordGeoLookupLatency(result, time.Since(start))

	c.store(ctx, ip, country)
	return country, nil
}

func (c *Client) lookup(ctx context.Context, ip string) (string, error) {
	u := c.endpoint + url.PathEscape(ip) + "?fields=status,country"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	// 传播 trace_id
	if traceID := trace.FromContext(ctx); traceID != "" {
		req.Header.Set(trace.HeaderName, traceID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return "", fmt.Errorf("geo service 5xx: %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("geo service error: %d", resp.StatusCode)
	}

	var body lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode geo response: %w", err)
	}
	if !strings.EqualFold(body.Status, "success") {
		return "", nil
	}
	return body.Country, nil
}

// cached 读取缓存；Redis 不可用时视为未命中
func (c *Client) cached(ctx context.Context, ip string) (string, bool) {
	if c.rdb == nil {
		return "", false
	}
	v, err := c.rdb.Get(ctx, cacheKeyPrefix+ip).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Debug("Geo cache read failed", zap.String("ip", ip), zap.Error(err))
		}
		return "", false
	}
	return v, true
}

func (c *Client) store(ctx context.Context, ip, country string) {
	if c.rdb == nil {
		return
	}
	if err := c.rdb.Set(ctx, cacheKeyPrefix+ip, country, c.cacheTTL).Err(); err != nil {
		c.logger.Debug("Geo cache write failed", zap.String("ip", ip), zap.Error(err))
	}
}
