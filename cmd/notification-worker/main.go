// cmd/notification-worker/main.go
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

	"intake-notifications/internal/app"
	"intake-notifications/internal/common/camunda"
	"intake-notifications/internal/common/config"
	"intake-notifications/internal/common/logger"
	notifyadmins "intake-notifications/internal/workers/submission/notify-admins"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	zapLog.Info("starting notification worker",
		zap.String("environment", cfg.App.Environment),
		zap.String("version", cfg.App.Version),
		zap.String("relayProvider", cfg.Notifications.Relay.Provider),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, zapLog, app.Options{Telemetry: true, Audit: true})
	if err != nil {
		zapLog.Fatal("failed to wire notification pipeline", zap.Error(err))
	}
	defer a.Close()

	server := startHTTPServer(cfg.App.HTTPAddress, a, zapLog)

	// Jobs activated before the first resolution would complete as
	// unconfigured, so the worker opens after it or after a bounded wait.
	switch configured, finished := a.BootstrapWithin(ctx, bootstrapWait(cfg)); {
	case configured:
		zapLog.Info("notification service configured", zap.String("source", a.Service.GetConfig().Source))
	case finished:
		zapLog.Warn("notification service unconfigured; jobs will complete with status unconfigured")
	default:
		zapLog.Warn("notification config still resolving; opening worker anyway")
	}

	zeebe, err := camunda.Connect(ctx, &camunda.ClientConfig{
		GatewayAddress:         cfg.Camunda.BrokerAddress,
		UsePlaintextConnection: true,
		ConnectionTimeout:      config.GetDuration(cfg.Camunda.RequestTimeout),
	})
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("zeebe client connected", zap.String("gateway", cfg.Camunda.BrokerAddress))

	var jobWorker *camunda.CamundaWorker
	wcfg := notifyadmins.ConfigFromApp(cfg)
	if wcfg.Enabled {
		handler, err := notifyadmins.NewHandler(wcfg, a.Service, a.Directory, a.Logger)
		if err != nil {
			zapLog.Fatal("failed to create notify-admins handler", zap.Error(err))
		}
		jobWorker = camunda.NewWorker(zeebe.GetClient(), notifyadmins.TaskType, camunda.WorkerOptions{
			MaxJobsActive: wcfg.MaxJobsActive,
			Timeout:       wcfg.JobTimeout(),
		}, handler, zapLog)
	} else {
		zapLog.Info("worker disabled", zap.String("taskType", notifyadmins.TaskType))
	}

	<-ctx.Done()
	zapLog.Info("shutdown signal received, stopping worker")

	if jobWorker != nil {
		jobWorker.Stop()
	}
	if err := zeebe.Close(); err != nil {
		zapLog.Error("error closing zeebe client", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("http server shutdown failed", zap.Error(err))
	}

	zapLog.Info("notification worker stopped gracefully")
}

// bootstrapWait covers the status and full-config calls of the remote
// strategy plus a margin for the local lookups.
func bootstrapWait(cfg *config.Config) time.Duration {
	return 2*cfg.Notifications.RemoteTimeout() + 5*time.Second
}

func startHTTPServer(addr string, a *app.App, zapLog *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":     "healthy",
			"configured": a.Service.IsConfigured(),
			"timestamp":  time.Now().UTC().Format(time.RFC3339),
		})
	})

	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		report := a.Harness.CheckReadiness(r.Context())
		status := http.StatusOK
		if !report.Ready {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, report)
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		zapLog.Info("health/metrics server listening", zap.String("address", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("health/metrics server failed", zap.Error(err))
		}
	}()
	return server
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
