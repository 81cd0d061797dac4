package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"emailanalyser/config"
	"emailanalyser/internal/extractor"
	"emailanalyser/internal/geo"
	"emailanalyser/internal/repository"
	"emailanalyser/internal/service"
	"emailanalyser/pkg/db"
	redisclient "emailanalyser/pkg/redis"
)

// Version is set at build time with -ldflags "-X emailanalyser/internal/app.Version=...".
var Version = "dev"

// App holds the shared dependencies of every binary.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	DB       *pgxpool.Pool
	Redis    *redis.Client
	Results  *repository.ResultRepository
	CSV      *repository.CSVStore
	Analyzer *service.Analyzer
	Pipeline *service.Pipeline
}

// New connects the optional backends and builds the analysis pipeline.
// Postgres failures are fatal when db.enabled; Redis failures only
// disable caching and dedup.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{
		Config: cfg,
		Logger: logger,
		CSV:    repository.NewCSVStore(cfg.Analysis.OutputFile),
	}

	if cfg.Redis.Enabled {
		rdb, err := redisclient.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			// 不可用的连接不保留，下游（重试计数、去重、geo 缓存）走本地路径
			logger.Warn("Redis unavailable, continuing without cache", zap.Error(err))
			_ = rdb.Close()
		} else {
			a.Redis = rdb
		}
	}

	var store repository.ResultStore
	if cfg.DB.Enabled {
		pool, err := db.NewConnection(ctx, cfg.DB, logger)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("db init: %w", err)
		}
		a.DB = pool
		a.Results = repository.NewResultRepository(pool)
		if err := a.Results.Migrate(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("db migrate: %w", err)
		}
		store = a.Results
	}

	var locator extractor.GeoLocator
	if cfg.Geo.Enabled {
		locator = geo.NewClient(
			cfg.Geo.Endpoint,
			time.Duration(cfg.Geo.TimeoutMS)*time.Millisecond,
			time.Duration(cfg.Geo.CacheTTLHours)*time.Hour,
			a.Redis,
			logger,
		)
	}

	analyzer, err := service.NewDefaultAnalyzer(cfg.Analysis.Languages, cfg.Analysis.Workers, locator, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("analyzer init: %w", err)
	}
	a.Analyzer = analyzer
	a.Pipeline = service.NewPipeline(analyzer, a.CSV, store, cfg.Analysis.InputDirectory, logger)

	return a, nil
}

// Ready reports whether the configured backends answer.
func (a *App) Ready(ctx context.Context) error {
	if a.Results == nil {
		return nil
	}
	return a.Results.Ping(ctx)
}

func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Warn("Failed to close redis", zap.Error(err))
		}
	}
}
