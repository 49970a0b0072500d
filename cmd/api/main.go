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

	"shoplink/internal/api"
	"shoplink/internal/config"
	"shoplink/internal/database"
	"shoplink/internal/events"
	"shoplink/internal/logger"
	"shoplink/internal/platforms"
	"shoplink/internal/security"
	"shoplink/internal/services/oauth"

	"github.com/redis/go-redis/v9"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}

	// Initialize logger
	logger := logger.New(cfg.LogLevel)

	// Initialize database
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to connect to database: %v", err)
	}

	vault, err := security.NewVault(cfg.EncryptionKey)
	if err != nil {
		logger.Fatal("Failed to initialize token vault: %v", err)
	}

	catalog, err := platforms.Load(cfg.PlatformsFile)
	if err != nil {
		logger.Fatal("Failed to load platform catalog: %v", err)
	}

	states := newStateStore(cfg, db, logger)
	exchanger := newExchanger(cfg, catalog, logger)
	publisher := events.New(cfg.KafkaBrokers, logger)
	defer publisher.Close()

	// Initialize API server
	server := api.New(cfg, logger, db, vault, catalog, states, exchanger, publisher)

	// Start server
	go func() {
		logger.Info("Starting API server on port " + cfg.APIPort)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		logger.Error("Server shutdown failed: %v", err)
	}
	db.Close()
}

func newStateStore(cfg *config.Config, db *database.Database, log *logger.Logger) oauth.StateStore {
	ttl := time.Duration(cfg.StateTTLMinutes) * time.Minute
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatal("Invalid REDIS_URL: %v", err)
		}
		log.Info("Using Redis state store")
		return oauth.NewRedisStateStore(redis.NewClient(opts), ttl)
	}
	return oauth.NewDBStateStore(db.DB, ttl)
}

func newExchanger(cfg *config.Config, catalog *platforms.Catalog, log *logger.Logger) oauth.Exchanger {
	if cfg.TokenExchangeMode == "stub" {
		log.Info("Token exchange running in stub mode")
		return oauth.NewStubExchanger()
	}
	return oauth.NewHTTPExchanger(catalog, cfg, log)
}
