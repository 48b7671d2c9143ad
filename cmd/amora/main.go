package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ent0n29/amora/internal/app"
	"github.com/ent0n29/amora/internal/config"
	"github.com/ent0n29/amora/internal/logging"
	"github.com/ent0n29/amora/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "amora: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is normal in containers.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("logger init failed: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	shutdownTracing, err := telemetry.Init(ctx, cfg.OTELEndpoint, "amora", cfg.ServiceVersion, cfg.OTELInsecure)
	if err != nil {
		return err
	}

	built, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := built.Cleanup(); err != nil {
			logger.Warn("cleanup failed", zap.Error(err))
		}
	}()
	logger.Info("generation providers resolved", zap.String("providers", built.Providers))

	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           built.API.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	built.Sessions.StartJanitor(runCtx, 5*time.Second)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", cfg.BindAddr), zap.String("env", cfg.Environment))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("listen error: %w", err)
		}
	}

	runCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		_ = httpServer.Close()
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("tracing shutdown failed", zap.Error(err))
	}

	logger.Info("shutdown complete")
	return nil
}
