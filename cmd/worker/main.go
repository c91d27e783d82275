package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/decagraff/lc-service/internal/app"
	jobmetrics "github.com/decagraff/lc-service/internal/jobs"
	"github.com/decagraff/lc-service/internal/platform/cache"
	"github.com/decagraff/lc-service/internal/platform/db"
	"github.com/decagraff/lc-service/internal/quotations"
	"github.com/decagraff/lc-service/internal/reports"
	"github.com/decagraff/lc-service/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	// The sweep bumps the same report cache the HTTP service reads, so the
	// dashboards refresh after quotations expire.
	reportsCache := reports.NewCache(redisClient, cfg.ReportCacheTTL)
	reportsService := reports.NewService(reports.NewRepository(pool), reportsCache)

	quotationsService := quotations.NewService(quotations.NewRepository(pool), logger, reportsService, nil)

	var mailer jobs.Mailer
	if cfg.SMTPHost != "" {
		mailer = jobs.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeExpireSweep, Handler: jobs.NewExpireSweepHandler(quotationsService, logger)},
			{Type: jobs.TaskTypeSendEmail, Handler: jobs.NewSendEmailHandler(mailer, logger)},
		},
		Cron: []jobs.CronRegistration{
			// Nightly, after the Lima business day closes.
			{Spec: "0 5 * * *", Task: jobs.NewExpireSweepTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
		Metrics: jobmetrics.NewMetrics(nil),
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
