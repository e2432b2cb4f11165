package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/matemarket/pulse/internal/config"
	"github.com/matemarket/pulse/internal/container"
	"github.com/matemarket/pulse/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(cfg.Server.Environment, cfg.Server.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Error("service stopped with error", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	log.Info("starting service",
		zap.String("service", cfg.Server.ServiceName),
		zap.String("environment", cfg.Server.Environment),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("bus_backend", cfg.Bus.Backend),
	)

	srv, cleanup, err := container.InitializeServer(cfg, log)
	if err != nil {
		return fmt.Errorf("initialize service: %w", err)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go srv.Keeper.Run(ctx)

	grpcLis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.GRPCPort))
	if err != nil {
		return fmt.Errorf("listen on gRPC port: %w", err)
	}
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler: srv.HTTPHandler,
	}

	errs := make(chan error, 2)
	go func() {
		log.Info("starting gRPC server", zap.Int("port", cfg.Server.GRPCPort))
		if err := srv.GRPCServer.Serve(grpcLis); err != nil {
			errs <- fmt.Errorf("serve gRPC: %w", err)
		}
	}()
	go func() {
		log.Info("starting HTTP server", zap.Int("port", cfg.Server.HTTPPort))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- fmt.Errorf("serve HTTP: %w", err)
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info("shutting down service")
	case serveErr = <-errs:
		log.Error("server failed, shutting down", zap.Error(serveErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTime)
	defer cancel()

	// Streams never finish on their own; end them so both servers can drain.
	srv.Registry.CloseAll()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shutdown HTTP server", zap.Error(err))
	}

	stopped := make(chan struct{})
	go func() {
		srv.GRPCServer.GracefulStop()
		close(stopped)
	}()
	select {
	case <-shutdownCtx.Done():
		log.Warn("shutdown timeout exceeded, forcing stop")
		srv.GRPCServer.Stop()
	case <-stopped:
		log.Info("gRPC server stopped gracefully")
	}

	log.Info("service shutdown complete")
	return serveErr
}
