package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/nekogravitycat/visitor-parking-backend/internal/app"
	"github.com/nekogravitycat/visitor-parking-backend/internal/config"
	"github.com/nekogravitycat/visitor-parking-backend/internal/db"
	"github.com/nekogravitycat/visitor-parking-backend/internal/db/migrations"
	"github.com/nekogravitycat/visitor-parking-backend/internal/logger"
	"github.com/nekogravitycat/visitor-parking-backend/internal/telemetry"
)

func main() {
	// For receiving Ctrl+C / SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zl, err := logger.New(cfg.IsProduction())
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()
	zl = zl.With(zap.String("instance_id", cfg.InstanceID))

	// Tracing
	shutdownTracing, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:       cfg.Tracing.Enabled,
		ServiceName:   cfg.Tracing.ServiceName,
		Environment:   cfg.AppEnv,
		InstanceID:    cfg.InstanceID,
		CollectorAddr: cfg.Tracing.CollectorAddr,
	})
	if err != nil {
		zl.Fatal("failed to init tracing", zap.Error(err))
	}

	// Connect DB
	pool, err := db.NewPool(ctx, cfg.DBDSN, db.PoolOptions{Tracing: cfg.Tracing.Enabled})
	if err != nil {
		zl.Fatal("failed to connect to db", zap.Error(err))
	}
	defer pool.Close()

	if cfg.AutoMigrate {
		if err := migrations.Apply(ctx, pool); err != nil {
			zl.Fatal("failed to apply migrations", zap.Error(err))
		}
	}

	// Init components
	container, err := app.NewContainer(ctx, cfg, pool, zl)
	if err != nil {
		zl.Fatal("failed to build container", zap.Error(err))
	}

	// Event bus broadcast loop. It outlives the signal so requests still in
	// flight during shutdown can publish.
	busCtx, stopBus := context.WithCancel(context.WithoutCancel(ctx))
	defer stopBus()
	busDone := make(chan struct{})
	go func() {
		defer close(busDone)
		if err := container.Bus.Run(busCtx); err != nil && !errors.Is(err, context.Canceled) {
			zl.Error("event bus stopped", zap.Error(err))
		}
	}()

	if err := container.ExpiryWorker.Start(ctx); err != nil {
		zl.Fatal("failed to start expiry worker", zap.Error(err))
	}

	// Use http.Server for graceful shutdown
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           container.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Run server in separate goroutine
	go func() {
		zl.Info("server running", zap.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server error", zap.Error(err))
		}
	}()

	// Wait for Ctrl+C
	<-ctx.Done()
	zl.Info("shutdown signal received")

	// Create a shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := server.Shutdown(shutdownCtx); err != nil {
		zl.Warn("server forced to shutdown", zap.Error(err))
	}

	container.ExpiryWorker.Stop()

	stopBus()
	select {
	case <-busDone:
	case <-shutdownCtx.Done():
		zl.Warn("event bus did not drain before shutdown deadline")
	}
	if err := container.Close(); err != nil {
		zl.Warn("failed to close transports", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		zl.Warn("failed to flush traces", zap.Error(err))
	}

	zl.Info("server exited gracefully")
}
