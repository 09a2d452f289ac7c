// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"travel-planner/internal/app"
	"travel-planner/internal/common/camunda"
	"travel-planner/internal/common/config"
	"travel-planner/internal/common/logger"
	"travel-planner/internal/common/observability"
	planitinerary "travel-planner/internal/workers/itinerary/plan-itinerary"
)

func main() {
	zapLog := logger.New(os.Getenv("LOG_LEVEL"), "console")
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}
	if err := config.ValidateForWorker(cfg); err != nil {
		zapLog.Fatal("worker config invalid", zap.Error(err))
	}
	if cfg.Logging.Level != "" {
		zapLog = logger.NewWithOptions(logger.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Output: cfg.Logging.Output})
		log = logger.NewZapAdapter(zapLog)
	}

	obs, err := observability.New("worker-manager")
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

	// --- Init Zeebe Client with retry ---
	zeebe, err := camunda.Connect(ctx, camunda.ClientConfigFrom(cfg.Camunda), log)
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully", zap.String("gateway", cfg.Camunda.BrokerAddress))

	// --- Register workers ---
	var workers []*camunda.Worker

	handler, err := planitinerary.NewHandler(planitinerary.HandlerOptions{
		AppConfig: cfg,
		Planner:   planner,
		Logger:    log,
	})
	if err != nil {
		zapLog.Fatal("failed to create plan-itinerary handler", zap.Error(err))
	}
	if w := startWorker(zeebe, planitinerary.TaskType, config.GetWorkerConfig(cfg, planitinerary.TaskType), handler, log); w != nil {
		workers = append(workers, w)
	}
	zapLog.Info("Workers registered", zap.Int("count", len(workers)))

	// --- Health & Metrics Server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "healthy")
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := zeebe.HealthCheck(r.Context()); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, "unavailable")
			return
		}
		writeStatus(w, http.StatusOK, "ready")
	})
	mux.Handle("/metrics", promhttp.Handler())

	healthAddr := os.Getenv("HEALTH_ADDR")
	if healthAddr == "" {
		healthAddr = ":8081"
	}
	healthSrv := &http.Server{Addr: healthAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("addr", healthAddr))
		if err := healthSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	<-ctx.Done()

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		w.Stop()
	}
	if err := healthSrv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping health server", zap.Error(err))
	}
	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

func startWorker(client *camunda.Client, taskType string, wcfg config.WorkerConfig, handler camunda.JobHandler, log logger.Logger) *camunda.Worker {
	if !wcfg.Enabled {
		log.Info("worker disabled", map[string]interface{}{"taskType": taskType})
		return nil
	}

	return camunda.StartWorker(client.GetClient(), camunda.WorkerOptions{
		TaskType:      taskType,
		MaxJobsActive: wcfg.MaxJobsActive,
		Timeout:       config.GetDuration(wcfg.Timeout),
	}, handler, log)
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status": status,
		"time":   time.Now().Format(time.RFC3339),
	})
}
