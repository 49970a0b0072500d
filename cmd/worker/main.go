package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shoplink/internal/config"
	"shoplink/internal/database"
	"shoplink/internal/logger"
	"shoplink/internal/platforms"
	"shoplink/internal/security"
	"shoplink/internal/services/enrich"
	"shoplink/internal/services/integrations"
	"shoplink/internal/services/oauth"
	"shoplink/internal/worker"
	"shoplink/internal/worker/processors"

	"github.com/redis/go-redis/v9"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}
	if cfg.KafkaBrokers == "" {
		log.Fatal("KAFKA_BROKERS must be set for the worker")
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

	manager := integrations.NewManager(db.DB, vault, logger)
	states := newStateStore(cfg, db, logger)
	exchanger := newExchanger(cfg, catalog, logger)
	enricher := enrich.New(db.DB, cfg, logger)
	processor := processors.NewEventProcessor(db.DB, manager, states, exchanger, enricher, logger)

	// Initialize worker
	w := worker.New(cfg, logger, processor)

	// Start worker
	logger.Info("Starting worker...")
	go w.Start()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down worker...")
	w.Stop()
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
