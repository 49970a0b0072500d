package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"shoplink/internal/api/handlers"
	"shoplink/internal/api/middleware"
	"shoplink/internal/config"
	"shoplink/internal/database"
	"shoplink/internal/events"
	"shoplink/internal/logger"
	"shoplink/internal/platforms"
	"shoplink/internal/security"
	"shoplink/internal/services/enrich"
	"shoplink/internal/services/integrations"
	"shoplink/internal/services/listings"
	"shoplink/internal/services/oauth"

	"github.com/gin-gonic/gin"
)

type Server struct {
	config *config.Config
	logger *logger.Logger
	db     *database.Database
	router *gin.Engine
	server *http.Server
}

// New assembles the service graph and routes. The state store, exchanger,
// and event publisher are passed in so deployments can swap them by
// configuration.
func New(
	cfg *config.Config,
	log *logger.Logger,
	db *database.Database,
	vault *security.Vault,
	catalog *platforms.Catalog,
	states oauth.StateStore,
	exchanger oauth.Exchanger,
	publisher events.Publisher,
) *Server {
	// Set Gin mode
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS(cfg.CORSOrigins))

	// Services
	manager := integrations.NewManager(db.DB, vault, log)
	flow := oauth.NewService(catalog, states, exchanger, manager, publisher, cfg, log)
	listingSvc := listings.NewService(db.DB, manager, catalog, publisher, cfg, log)
	enricher := enrich.New(db.DB, cfg, log)

	// Initialize handlers
	connectHandler := handlers.NewConnectHandler(flow, cfg, log)
	shopsHandler := handlers.NewShopsHandler(manager, flow, log)
	productHandler := handlers.NewProductHandler(db.DB, publisher, log)
	listingsHandler := handlers.NewListingsHandler(listingSvc, log)
	enrichHandler := handlers.NewEnrichHandler(enricher, log)
	settingsHandler := handlers.NewSettingsHandler(db.DB, log)
	platformsHandler := handlers.NewPlatformsHandler(catalog, cfg)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Routes
	v1 := router.Group("/api/v1")
	v1.Use(middleware.MerchantID())
	{
		v1.GET("/platforms", platformsHandler.List)

		// Connect flow
		connect := v1.Group("/connect")
		{
			connect.POST("/:platform", connectHandler.Start)
			connect.GET("/:platform/callback", connectHandler.Callback)
		}

		// Connected shops
		shops := v1.Group("/shops")
		{
			shops.GET("", shopsHandler.List)
			shops.GET("/:id", shopsHandler.Get)
			shops.GET("/:id/status", shopsHandler.Status)
			shops.DELETE("/:id", shopsHandler.Disconnect)
		}

		// Products
		products := v1.Group("/products")
		{
			products.GET("", productHandler.List)
			products.GET("/:id", productHandler.Get)
			products.POST("", productHandler.Create)
			products.PUT("/:id", productHandler.Update)
			products.DELETE("/:id", productHandler.Delete)
			products.POST("/:id/enrich", enrichHandler.Enrich)
			products.GET("/:id/enrichments", enrichHandler.History)
			products.POST("/:id/publish", listingsHandler.Publish)
		}

		// Listings
		listingRoutes := v1.Group("/listings")
		{
			listingRoutes.GET("", listingsHandler.List)
		}

		// Settings
		settings := v1.Group("/settings")
		{
			settings.GET("", settingsHandler.Get)
			settings.PUT("", settingsHandler.Update)
		}
	}

	return &Server{
		config: cfg,
		logger: log,
		db:     db,
		router: router,
	}
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%s", s.config.APIHost, s.config.APIPort)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Starting server on " + addr)
	return s.server.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	return s.server.Shutdown(ctx)
}

// GetRouter returns the Gin router for Vercel
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}
