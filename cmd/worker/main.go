package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"emailanalyser/config"
	"emailanalyser/internal/app"
	"emailanalyser/internal/mqhandler"
	pkgconfig "emailanalyser/pkg/config"
	"emailanalyser/pkg/logger"
	"emailanalyser/pkg/mq"
	"emailanalyser/pkg/otel"
	"emailanalyser/pkg/outbox"
	"emailanalyser/pkg/util"
)

const (
	dedupTTL = 24 * time.Hour
	retryTTL = time.Hour
)

func main() {
	// Load config
	cfg, err := config.Load(pkgconfig.GetEnv("CONFIG_PATH", "config.yaml"))
	if err != nil {
		panic(err)
	}
	if !cfg.MQ.Enabled {
		panic("worker requires mq.enabled")
	}

	log, err := logger.NewLogger(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	log.Info("Starting email-analyser worker...", zap.String("version", app.Version))

	otelCfg := cfg.Otel
	otelCfg.ServiceName += "-worker"
	shutdownTracing, err := otel.Init(otelCfg, app.Version, log)
	if err != nil {
		log.Warn("OpenTelemetry init failed, tracing disabled", zap.Error(err))
		shutdownTracing = func() {}
	}
	defer shutdownTracing()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize", zap.Error(err))
	}
	defer a.Close()

	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("Failed to init MQ publisher", zap.Error(err))
	}
	defer publisher.Close()

	// Redis 不可用时去重与重试计数降级（每条消息视为首次）
	deduper := util.NewDeduper(a.Redis, "email-analyser", dedupTTL, log)
	retryCounter := util.NewRetryCounter(a.Redis, retryTTL)

	handler := mqhandler.NewEmailIngestedHandler(a.Pipeline, publisher, retryCounter, deduper, cfg.MQ.MaxRetries, log)

	log.Info("Initializing email.ingested consumer",
		zap.String("queue", mq.QueueEmailIngested),
		zap.String("routing_key", mq.RoutingKeyEmailIngested),
	)
	consumer, err := mq.NewConsumer(cfg.MQ.URL, mq.QueueEmailIngested, mq.RoutingKeyEmailIngested, log)
	if err != nil {
		log.Fatal("Failed to init consumer", zap.Error(err))
	}
	defer consumer.Close()
	consumer.SetHandler(handler.Handle)

	go func() {
		if err := consumer.StartConsuming(ctx); err != nil && ctx.Err() == nil {
			log.Fatal("email.ingested consumer failed", zap.Error(err))
		}
	}()

	// Outbox dispatcher：把 email.analyzed 事件发布到 MQ
	if a.DB != nil {
		dispatcher := outbox.NewDispatcher(outbox.NewRepository(a.DB), publisher, log)
		go dispatcher.Start(ctx)
		log.Info("Outbox dispatcher started")
	} else {
		log.Info("db.enabled is false, outbox dispatcher not started")
	}

	// HTTP Server (for health checks and metrics)
	srv := &http.Server{
		Addr:              pkgconfig.GetEnv("WORKER_HTTP_ADDR", ":8502"),
		Handler:           healthRouter(a),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("Worker health server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Worker health server failed", zap.Error(err))
		}
	}()

	log.Info("Worker is fully initialized and running")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down worker gracefully...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}

	log.Info("Worker shutdown complete")
}

func healthRouter(a *app.App) http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()
		if err := a.Ready(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db_not_ready", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}
