package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tripcatalog/internal/app"
	"tripcatalog/internal/config"
	"tripcatalog/internal/logging"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	// --- Assemble the server ---
	server, err := app.New(context.Background(), cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to initialize application")
	}
	defer func() {
		if err := server.Close(); err != nil {
			logger.WithError(err).Error("error closing resources")
		}
	}()

	// --- Destination event consumer ---
	if err := server.StartEventConsumer(); err != nil {
		logger.WithError(err).Error("failed to start RabbitMQ consumer")
	}

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.Listen(cfg.AppPort); err != nil {
			logger.WithError(err).Error("server stopped")
			quit <- syscall.SIGTERM
		}
	}()

	<-quit
	logger.Info("shutting down server...")
	if err := server.Shutdown(shutdownTimeout); err != nil {
		logger.WithError(err).Error("error during Fiber shutdown")
	}
	logger.Info("server gracefully stopped")
}
