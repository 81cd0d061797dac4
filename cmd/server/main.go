package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"emailanalyser/config"
	"emailanalyser/internal/app"
	"emailanalyser/internal/httpserver"
	"emailanalyser/internal/service"
	pkgconfig "emailanalyser/pkg/config"
	"emailanalyser/pkg/logger"
	"emailanalyser/pkg/mq"
	"emailanalyser/pkg/otel"
	"emailanalyser/pkg/outbox"
)

func main() {
	// Load config
	cfg, err := config.Load(pkgconfig.GetEnv("CONFIG_PATH", "config.yaml"))
	if err != nil {
		panic(err)
	}

	log, err := logger.NewLogger(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	shutdownTracing, err := otel.Init(cfg.Otel, app.Version, log)
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

	handler := httpserver.NewHandler(a.Pipeline, a.Analyzer.Parser(), log)

	// MQ 开启时上传走 email.ingested，由 worker 分析
	if cfg.MQ.Enabled {
		publisher, err := mq.NewPublisher(cfg.MQ.URL)
		if err != nil {
			log.Fatal("Failed to init MQ publisher", zap.Error(err))
		}
		defer publisher.Close()
		if err := publisher.EnsureQueue(mq.QueueEmailIngested, mq.RoutingKeyEmailIngested); err != nil {
			log.Fatal("Failed to declare ingest queue", zap.Error(err))
		}
		handler.WithPublisher(publisher)

		if a.DB != nil {
			handler.WithReplayer(outbox.NewReplayService(outbox.NewRepository(a.DB), publisher, log))
		}
	}

	if cfg.Server.AnalyzeOnStart {
		runAnalysis(ctx, a.Pipeline, service.TriggerStartup, log)
	}

	// 定时重新分析输入目录
	var scheduler *cron.Cron
	if cfg.Server.Schedule != "" {
		scheduler = cron.New()
		if _, err := scheduler.AddFunc(cfg.Server.Schedule, func() {
			runAnalysis(ctx, a.Pipeline, service.TriggerCron, log)
		}); err != nil {
			log.Fatal("Invalid server.schedule", zap.String("schedule", cfg.Server.Schedule), zap.Error(err))
		}
		scheduler.Start()
		log.Info("Scheduled directory analysis", zap.String("schedule", cfg.Server.Schedule))
	}

	router := httpserver.NewRouter(handler, httpserver.Options{
		AuthEnabled: cfg.JWT.Enabled,
		JWTSecret:   cfg.JWT.Secret,
		Ready:       a.Ready,
	}, log)
	srv := router.Server(cfg.Server.Port)

	go func() {
		log.Info("Dashboard listening", zap.String("addr", cfg.Server.Port), zap.String("version", app.Version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down dashboard gracefully...")
	if !stopBackground(cancel, scheduler, 30*time.Second) {
		log.Warn("Scheduled analysis did not stop in time")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}
}

// stopBackground cancels in-flight analysis runs first, then waits for the
// scheduler to drain. It reports false when timeout elapses first.
func stopBackground(cancel context.CancelFunc, scheduler *cron.Cron, timeout time.Duration) bool {
	cancel()
	if scheduler == nil {
		return true
	}
	select {
	case <-scheduler.Stop().Done():
		return true
	case <-time.After(timeout):
		return false
	}
}

func runAnalysis(ctx context.Context, p *service.Pipeline, trigger string, log *zap.Logger) {
	batch, _, err := p.RunDirectory(ctx, trigger)
	switch {
	case errors.Is(err, service.ErrRunInProgress):
		log.Info("Skipping analysis, a run is already in progress", zap.String("trigger", trigger))
	case err != nil:
		log.Error("Directory analysis failed", zap.String("trigger", trigger), zap.Error(err))
	default:
		log.Info("Directory analysis completed",
			zap.String("trigger", trigger),
			zap.String("run_id", batch.RunID),
			zap.Int("analyzed", len(batch.Results)),
			zap.Int("failed", batch.Failed),
		)
	}
}
