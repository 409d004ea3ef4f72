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

	"github.com/splitledger/splitledger/internal/app"
	"github.com/splitledger/splitledger/internal/auth"
	"github.com/splitledger/splitledger/internal/balance"
	"github.com/splitledger/splitledger/internal/expenses"
	"github.com/splitledger/splitledger/internal/groups"
	"github.com/splitledger/splitledger/internal/observability"
	"github.com/splitledger/splitledger/internal/platform/cache"
	"github.com/splitledger/splitledger/internal/platform/db"
	"github.com/splitledger/splitledger/internal/settlements"
	"github.com/splitledger/splitledger/jobs"
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

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
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

	metrics := observability.NewMetrics()

	tokenIssuer := auth.NewTokenIssuer([]byte(cfg.JWTSecret), cfg.JWTAccessTTL, cfg.JWTRefreshTTL)
	denylist := auth.NewRedisDenylist(redisClient)

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo, tokenIssuer, denylist, cfg.BcryptCost)
	authHandler := auth.NewHandler(logger, authService)

	groupsRepo := groups.NewRepository(pool)
	groupsService := groups.NewService(groupsRepo)
	groupsHandler := groups.NewHandler(logger, groupsService)

	expensesRepo := expenses.NewRepository(pool)
	expensesService := expenses.NewService(expensesRepo)
	expensesHandler := expenses.NewHandler(logger, expensesService)

	settlementsRepo := settlements.NewRepository(pool)
	settlementsService := settlements.NewService(settlementsRepo)
	settlementsHandler := settlements.NewHandler(logger, settlementsService)

	balanceRepo := balance.NewRepository(pool)
	balanceService := balance.NewService(balanceRepo)
	balanceHandler := balance.NewHandler(logger, balanceService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		Pool:               pool,
		AuthMiddleware:     auth.Middleware(tokenIssuer, denylist),
		AuthHandler:        authHandler,
		GroupsHandler:      groupsHandler,
		ExpensesHandler:    expensesHandler,
		SettlementsHandler: settlementsHandler,
		BalanceHandler:     balanceHandler,
		JobsHandler:        jobsHandler,
		Metrics:            metrics,
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
