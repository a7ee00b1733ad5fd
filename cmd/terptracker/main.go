package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"terptracker/internal/amqp"
	"terptracker/internal/auth"
	"terptracker/internal/config"
	"terptracker/internal/dynamo"
	apphttp "terptracker/internal/http"
	"terptracker/internal/log"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, err := dynamo.NewClient(ctx, *cfg)
	if err != nil {
		logger.Error("Failed to initialize DynamoDB client", log.FieldError, err, "mode", cfg.DBMode)
		os.Exit(1)
	}

	store := dynamo.NewStore(client, *cfg, logger)
	if err := store.EnsureTables(ctx); err != nil {
		logger.Error("Table provisioning failed", log.FieldError, err)
		os.Exit(1)
	}

	// Export publishing is optional; the app runs without a broker.
	var publisher apphttp.ExportPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("AMQP unavailable, expense export disabled", log.FieldError, err)
		} else {
			defer amqpClient.Close()
			publisher = amqpClient
		}
	}

	sessions := auth.NewSessions(cfg.SessionSecret, cfg.SessionTTL)

	srv, err := apphttp.NewServer(*cfg, store, store, publisher, sessions, logger)
	if err != nil {
		logger.Error("Failed to build server", log.FieldError, err)
		os.Exit(1)
	}
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received",
			log.FieldOperation, log.OpShutdown,
			"signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		cancel()
	}()

	logger.Info("Starting terptracker server",
		log.FieldOperation, log.OpStartup,
		"port", cfg.Port,
		"mode", cfg.DBMode)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
