package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/clinicflow/intake-ai/internal/api/router"
	"github.com/clinicflow/intake-ai/internal/app/bootstrap"
	appconfig "github.com/clinicflow/intake-ai/internal/config"
	"github.com/clinicflow/intake-ai/internal/intake"
	"github.com/clinicflow/intake-ai/internal/observability/metrics"
	"github.com/clinicflow/intake-ai/internal/scheduling"
	"github.com/clinicflow/intake-ai/pkg/logging"
)

func main() {
	// Load .env file if present, then configuration
	_ = godotenv.Load()
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting intake-ai API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	// Initialize collaborators
	gateway, err := bootstrap.BuildGateway(ctx, cfg)
	if err != nil {
		logger.Error("failed to initialize document gateway", "error", err)
		os.Exit(1)
	}
	store := bootstrap.BuildSessionStore(ctx, cfg, logger)
	allocator := scheduling.NewAllocator(scheduling.DefaultProviders())
	intakeMetrics := metrics.NewIntakeMetrics(nil)

	machine := intake.NewMachine(store, gateway, allocator, logger,
		intake.WithMetrics(intakeMetrics),
		intake.WithGatewayTimeout(cfg.GatewayTimeout),
	)

	// Setup router
	r := router.New(&router.Config{
		Logger:         logger,
		IntakeHandler:  intake.NewHandler(machine, logger),
		MetricsHandler: promhttp.Handler(),
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
