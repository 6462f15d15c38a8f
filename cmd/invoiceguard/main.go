package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/invoiceguard/cmd/invoiceguard/cli"
	"github.com/odyssey-erp/invoiceguard/internal/app"
	"github.com/odyssey-erp/invoiceguard/internal/engine"
	enginehttp "github.com/odyssey-erp/invoiceguard/internal/engine/http"
	"github.com/odyssey-erp/invoiceguard/internal/history"
	"github.com/odyssey-erp/invoiceguard/internal/observability"
	"github.com/odyssey-erp/invoiceguard/internal/platform/cache"
	"github.com/odyssey-erp/invoiceguard/internal/platform/db"
	"github.com/odyssey-erp/invoiceguard/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Default().Warn("load .env", slog.Any("error", err))
	}
	os.Exit(run(os.Args[1:]))
}

// run dispatches the subcommand and returns the process exit code once every
// deferred cleanup has run.
func run(argv []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		return 1
	}
	logger := app.NewLogger(cfg)

	cmd := "serve"
	var args []string
	if len(argv) > 0 {
		cmd, args = argv[0], argv[1:]
	}
	switch cmd {
	case "serve":
		return serve(ctx, cfg, logger)
	case "analyze":
		return analyze(ctx, cfg, args)
	case "queue":
		return queue(ctx, cfg)
	default:
		fmt.Fprintf(os.Stderr, "usage: invoiceguard [serve|analyze --file batch.json [--json]|queue]\n")
		return 2
	}
}

func analyze(ctx context.Context, cfg *app.Config, args []string) int {
	fset := flag.NewFlagSet("analyze", flag.ExitOnError)
	file := fset.String("file", "-", "batch request JSON file, - for stdin")
	asJSON := fset.Bool("json", false, "print the full result as JSON")
	_ = fset.Parse(args)

	engineCfg, err := app.EngineConfig(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "analyze: %v\n", err)
		return 1
	}
	eng, err := engine.New(engineCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "analyze: %v\n", err)
		return 1
	}
	// quiet logger: stdout carries the report
	quiet := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	svc := engine.NewService(eng, nil, nil, nil, quiet)
	return cli.AnalyzeCommand(ctx, svc, cli.AnalyzeOptions{Path: *file, JSONOutput: *asJSON})
}

func queue(ctx context.Context, cfg *app.Config) int {
	jobsCLI := cli.NewJobsCLI(redisOpts(cfg))
	defer func() { _ = jobsCLI.Close() }()
	stats, err := jobsCLI.InspectQueue(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "queue: %v\n", err)
		return 1
	}
	_ = json.NewEncoder(os.Stdout).Encode(stats)
	return 0
}

func redisOpts(cfg *app.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
}

func serve(ctx context.Context, cfg *app.Config, logger *slog.Logger) int {
	engineCfg, err := app.EngineConfig(cfg)
	if err != nil {
		logger.Error("engine config", slog.Any("error", err))
		return 1
	}
	eng, err := engine.New(engineCfg)
	if err != nil {
		logger.Error("init engine", slog.Any("error", err))
		return 1
	}

	var historySource engine.HistorySource
	if cfg.PGDSN != "" {
		pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
		if err != nil {
			logger.Error("connect postgres", slog.Any("error", err))
			return 1
		}
		defer pool.Close()
		historySource = history.NewRepository(pool)
	} else {
		logger.Info("PG_DSN not set, history store disabled")
	}

	var (
		resultCache engine.ResultCache
		batchJobs   enginehttp.BatchJobs
		inspector   jobs.QueueInspector
	)
	redisClient, err := cache.New(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Warn("redis unavailable, cache and batch jobs disabled", slog.Any("error", err))
	} else {
		defer closeRedis(logger, redisClient)
		resultCache = cache.NewJSONCache(redisClient, "invoiceguard:analysis", cfg.CacheTTL)

		store := jobs.NewStatusStore(cache.NewJSONCache(redisClient, "invoiceguard:jobs", cfg.JobStatusTTL), cfg.JobStatusTTL)
		client := jobs.NewClient(redisOpts(cfg))
		defer func() { _ = client.Close() }()
		batchJobs = jobs.NewBatchSubmitter(client, store)

		asynqInspector := asynq.NewInspector(redisOpts(cfg))
		defer func() {
			if err := asynqInspector.Close(); err != nil {
				logger.Warn("inspector close", slog.Any("error", err))
			}
		}()
		inspector = asynqInspector
	}

	metrics := observability.NewMetrics()
	svc := engine.NewService(eng, resultCache, historySource, metrics, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:        logger,
		Config:        cfg,
		EngineHandler: enginehttp.NewHandler(logger, svc, batchJobs),
		JobHandler:    jobs.NewHandler(inspector, logger),
		Metrics:       metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error("http server", slog.Any("error", err))
		return 1
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
		return 1
	}
	return 0
}

func closeRedis(logger *slog.Logger, client *redis.Client) {
	if err := client.Close(); err != nil {
		logger.Warn("redis close", slog.Any("error", err))
	}
}
