// cmd/planner-api/main.go
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
	"go.uber.org/zap"

	"travel-planner/internal/api"
	"travel-planner/internal/app"
	"travel-planner/internal/common/config"
	"travel-planner/internal/common/database"
	"travel-planner/internal/common/logger"
	"travel-planner/internal/common/observability"
	"travel-planner/internal/quota"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("info", "console").Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.NewWithOptions(logger.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Output: cfg.Logging.Output})
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}

	obs, err := observability.New("planner-api")
	if err != nil {
		zapLog.Fatal("observability init failed", zap.Error(err))
	}
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	planner, err := app.NewPlanner(ctx, cfg, log, app.WithObservability(obs))
	if err != nil {
		zapLog.Fatal("planner init failed", zap.Error(err))
	}
	defer planner.Close()

	deps := api.Deps{
		Planner:        planner,
		Logger:         log.With(map[string]interface{}{"component": "api"}),
		RequestTimeout: config.GetDuration(cfg.Server.RequestTimeout),
		MinBudget:      cfg.Server.MinBudget,
	}

	if cfg.Quota.Enabled {
		rdb, err := database.ConnectRedis(ctx, cfg.Redis, 5, 2*time.Second, log)
		if err != nil {
			zapLog.Fatal("redis unavailable for quota", zap.Error(err))
		}
		defer rdb.Close()
		deps.Quota = quota.NewLimiter(rdb.Client, cfg.Quota)
		zapLog.Info("daily quota enabled", zap.Int("limit", cfg.Quota.DailyLimit))
	}

	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           api.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zapLog.Info("planner API listening", zap.String("addr", cfg.Server.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zapLog.Info("Shutdown signal received, draining requests...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("graceful shutdown failed", zap.Error(err))
	}
	zapLog.Info("planner API stopped")
}
