package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/decagraff/lc-service/internal/app"
	"github.com/decagraff/lc-service/internal/auth"
	"github.com/decagraff/lc-service/internal/cart"
	"github.com/decagraff/lc-service/internal/catalog/categories"
	"github.com/decagraff/lc-service/internal/catalog/equipment"
	"github.com/decagraff/lc-service/internal/observability"
	"github.com/decagraff/lc-service/internal/platform/cache"
	"github.com/decagraff/lc-service/internal/platform/db"
	"github.com/decagraff/lc-service/internal/quotations"
	"github.com/decagraff/lc-service/internal/rbac"
	"github.com/decagraff/lc-service/internal/reports"
	"github.com/decagraff/lc-service/internal/shared"
	"github.com/decagraff/lc-service/internal/users"
	"github.com/decagraff/lc-service/jobs"
	"github.com/decagraff/lc-service/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	// `lcservice jobs <trigger|stats> [name]` runs the ops helpers instead
	// of the HTTP server.
	if len(os.Args) > 1 && os.Args[1] == "jobs" {
		os.Exit(runJobsCommand(ctx, cfg, os.Args[2:]))
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	// Sessions live in Redis, so an unreachable Redis is fatal here.
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

	sessionManager := shared.NewSessionManager(redisClient, "lc_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	rbacMiddleware := rbac.Middleware{Logger: logger}

	authService := auth.NewService(auth.NewRepository(dbpool))
	authHandler := auth.NewHandler(logger, authService, sessionManager)

	usersService := users.NewService(users.NewRepository(dbpool))
	usersHandler := users.NewHandler(logger, usersService, rbacMiddleware)

	categoriesService := categories.NewService(categories.NewRepository(dbpool))
	categoriesHandler := categories.NewHandler(logger, categoriesService, rbacMiddleware)

	equipmentService := equipment.NewService(equipment.NewRepository(dbpool))
	equipmentHandler := equipment.NewHandler(logger, equipmentService, rbacMiddleware)

	cartService := cart.NewService(cart.NewRepository(dbpool), equipmentService)
	cartHandler := cart.NewHandler(logger, cartService, rbacMiddleware)

	reportsCache := reports.NewCache(redisClient, cfg.ReportCacheTTL)
	reportsService := reports.NewService(reports.NewRepository(dbpool), reportsCache)
	reportsHandler := reports.NewHandler(logger, reportsService, rbacMiddleware)
	if err := reportsCache.ListenForInvalidation(ctx); err != nil {
		logger.Warn("reports invalidation listener", slog.Any("error", err))
	}

	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()
	notifier := jobs.NewStatusNotifier(jobsClient)

	quotationsService := quotations.NewService(quotations.NewRepository(dbpool), logger, reportsService, notifier)
	pdfClient := report.NewClient(cfg.GotenbergURL)
	quotationsHandler := quotations.NewHandler(logger, quotationsService, rbacMiddleware, pdfClient)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	metrics := observability.NewMetrics()
	quotationsService.SetTransitionCounter(metrics)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		SessionManager:    sessionManager,
		AuthHandler:       authHandler,
		UsersHandler:      usersHandler,
		CategoriesHandler: categoriesHandler,
		EquipmentHandler:  equipmentHandler,
		CartHandler:       cartHandler,
		QuotationsHandler: quotationsHandler,
		ReportsHandler:    reportsHandler,
		JobHandler:        jobHandler,
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
