package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/odyssey-erp/invoiceguard/internal/app"
	"github.com/odyssey-erp/invoiceguard/internal/engine"
	"github.com/odyssey-erp/invoiceguard/internal/history"
	jobmetrics "github.com/odyssey-erp/invoiceguard/internal/jobs"
	"github.com/odyssey-erp/invoiceguard/internal/observability"
	"github.com/odyssey-erp/invoiceguard/internal/platform/cache"
	"github.com/odyssey-erp/invoiceguard/internal/platform/db"
	"github.com/odyssey-erp/invoiceguard/jobs"
)

// metricsAddr serves the worker's /metrics endpoint.
const metricsAddr = ":9091"

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Default().Warn("load .env", slog.Any("error", err))
	}

	os.Exit(execute())
}

// execute runs the worker and returns the exit code after cleanup.
func execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		return 1
	}
	logger := app.NewLogger(cfg)

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		return 1
	}
	return 0
}

func run(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	engineCfg, err := app.EngineConfig(cfg)
	if err != nil {
		return err
	}
	eng, err := engine.New(engineCfg)
	if err != nil {
		return err
	}

	redisClient, err := cache.New(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	var historySource engine.HistorySource
	if cfg.PGDSN != "" {
		pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
		if err != nil {
			return err
		}
		defer pool.Close()
		historySource = history.NewRepository(pool)
	}

	metrics := observability.NewMetrics()
	svc := engine.NewService(eng, cache.NewJSONCache(redisClient, "invoiceguard:analysis", cfg.CacheTTL), historySource, metrics, logger)
	store := jobs.NewStatusStore(cache.NewJSONCache(redisClient, "invoiceguard:jobs", cfg.JobStatusTTL), cfg.JobStatusTTL)
	batchJob := jobs.NewBatchAnalyzeJob(svc, store, logger, jobmetrics.NewMetrics(metrics.Registerer()))

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB},
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskBatchAnalyze, Handler: batchJob.Handle},
		},
	})
	if err != nil {
		return err
	}

	metricsServer := &http.Server{Addr: metricsAddr, Handler: metrics.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server", slog.Any("error", err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("starting worker", slog.Int("concurrency", cfg.WorkerConcurrency))
	return worker.Run(ctx)
}
