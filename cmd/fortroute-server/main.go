// Package main provides the HTTP server for fortroute.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/raphaelgruber/fortroute/internal/config"
	"github.com/raphaelgruber/fortroute/internal/server"
	"github.com/raphaelgruber/fortroute/internal/service"
)

func main() {
	// Parse flags
	reset := flag.Bool("reset", false, "clear all learned state on startup (testing only)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger, closeLog := config.SetupLogger(cfg.Log.File, cfg.LogLevel())
	defer closeLog()
	slog.SetDefault(logger)

	port := fmt.Sprintf("%d", cfg.Server.Port)
	slog.Info("starting fortroute-server", "port", port, "backend", cfg.Store.Backend)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	svc, err := service.Open(ctx, cfg, logger)
	cancel()
	if err != nil {
		slog.Error("failed to initialize service", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := svc.Close(context.Background()); err != nil {
			slog.Error("failed to close store", "error", err)
		}
	}()

	// Reset learned state if requested (via flag or env var)
	if *reset || os.Getenv("FORTROUTE_RESET_STORE") == "true" {
		svc.Reset(context.Background())
	}

	srv := server.New(svc, logger, server.Options{
		IngestRate:  cfg.Server.IngestRate,
		IngestBurst: cfg.Server.IngestBurst,
	})

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		slog.Info("API available", "url", fmt.Sprintf("http://localhost:%s/api/v1", port))
		slog.Info("metrics available", "url", fmt.Sprintf("http://localhost:%s/metrics", port))

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal or a listener failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		slog.Error("server error", "error", err)
		return
	}

	slog.Info("shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		return
	}

	slog.Info("server stopped")
}
