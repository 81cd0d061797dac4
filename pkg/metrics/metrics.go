package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MQ 消费延迟（毫秒）
	MQConsumeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mq_consume_latency_ms",
			Help:    "MQ message consumption latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10), // 10ms to ~10s
		},
		[]string{"routing_key", "queue"},
	)

	// IP 地理位置查询延迟（毫秒）
	GeoLookupLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "geo_lookup_latency_ms",
			Help:    "IP geolocation lookup latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10),
		},
		[]string{"result"}, // result: hit, miss, error, cached
	)

	// 数据库查询延迟（秒）
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"operation", "table"},
	)

	// HTTP 请求延迟（秒）
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"method", "path", "status"},
	)

	// 单封邮件分析耗时（秒）
	EmailAnalysisDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "email_analysis_duration_seconds",
			Help:    "Time spent running all extractors on one email",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
	)

	// 邮件处理计数
	EmailProcessedCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "email_processed_count",
			Help: "Total number of emails processed",
		},
		[]string{"status"}, // status: success, failed, duplicate, dlq
	)

	// 分析批次计数
	AnalysisRunCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analysis_run_count",
			Help: "Total number of batch analysis runs",
		},
		[]string{"trigger", "status"}, // trigger: cli, http, cron
	)

	// Outbox 事件发布计数
	OutboxEventCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_event_count",
			Help: "Outbox events by publish outcome",
		},
		[]string{"routing_key", "status"}, // status: sent, failed, replayed
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0 closed, 1 open, 2 half open)",
		},
		[]string{"name"},
	)
)

// RecordMQConsumeLatency 记录 MQ 消费延迟
func RecordMQConsumeLatency(routingKey, queue string, duration time.Duration) {
	MQConsumeLatency.WithLabelValues(routingKey, queue).Observe(float64(duration.Milliseconds()))
}

func RecordGeoLookupLatency(result string, duration time.Duration) {
	GeoLookupLatency.WithLabelValues(result).Observe(float64(duration.Milliseconds()))
}

// RecordDBQueryDuration 记录数据库查询延迟
func RecordDBQueryDuration(operation, table string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// RecordHTTPRequestDuration 记录 HTTP 请求延迟
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

func RecordEmailAnalysis(duration time.Duration) {
	EmailAnalysisDuration.Observe(duration.Seconds())
}

// IncrementEmailProcessed 增加邮件处理计数
func IncrementEmailProcessed(status string) {
	EmailProcessedCount.WithLabelValues(status).Inc()
}

func IncrementAnalysisRun(trigger, status string) {
	AnalysisRunCount.WithLabelValues(trigger, status).Inc()
}

func IncrementOutboxEvent(routingKey, status string) {
	OutboxEventCount.WithLabelValues(routingKey, status).Inc()
}

func SetCircuitBreakerState(name string, state int) {
	CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}
