package handler

import (
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
)

// Read-only serverless surface for the dashboard. The full API with the
// connect flow and publishing lives in cmd/api; this handler only serves
// queries that are safe without the service stack.

var (
	db      *sql.DB
	dbMutex sync.Mutex
)

// initDB initializes the database connection
func initDB() error {
	dbMutex.Lock()
	defer dbMutex.Unlock()

	if db != nil {
		return nil // Already initialized
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return fmt.Errorf("DATABASE_URL not set")
	}

	var err error
	db, err = sql.Open("postgres", databaseURL)
	if err != nil {
		return err
	}

	// Test the connection
	if err = db.Ping(); err != nil {
		return err
	}

	return nil
}

func merchantID(c *gin.Context) string {
	id := c.GetHeader("X-Merchant-ID")
	if id == "" {
		id = "00000000-0000-0000-0000-000000000000"
	}
	return id
}

// Handler is the main entry point for Vercel
func Handler(w http.ResponseWriter, r *http.Request) {
	// Initialize database connection
	if err := initDB(); err != nil {
		http.Error(w, fmt.Sprintf("Database initialization failed: %v", err), http.StatusInternalServerError)
		return
	}

	// Set Gin to release mode for production
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Add CORS middleware
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Merchant-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Health check endpoint
	router.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "ShopLink API is running",
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	api := router.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			if err := db.Ping(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": "database unreachable"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// Platform availability for the connect screen
		api.GET("/platforms", func(c *gin.Context) {
			platforms := []gin.H{
				{
					"id":         "shopify",
					"name":       "Shopify",
					"mocked":     false,
					"configured": os.Getenv("SHOPIFY_CLIENT_ID") != "" && os.Getenv("SHOPIFY_CLIENT_SECRET") != "",
				},
				{
					"id":         "shopee",
					"name":       "Shopee",
					"mocked":     true,
					"configured": os.Getenv("SHOPEE_PARTNER_ID") != "" && os.Getenv("SHOPEE_PARTNER_KEY") != "",
				},
				{
					"id":         "tiktok_shop",
					"name":       "TikTok Shop",
					"mocked":     true,
					"configured": os.Getenv("TIKTOK_APP_KEY") != "" && os.Getenv("TIKTOK_APP_SECRET") != "",
				},
			}
			c.JSON(http.StatusOK, gin.H{"data": platforms})
		})

		// Connected shops, tokens never included
		api.GET("/shops", func(c *gin.Context) {
			owner := merchantID(c)
			platform := c.Query("platform")

			query := `
				SELECT id, platform, external_shop_id, shop_name, shop_region, status, connected_at, last_synced_at
				FROM shop_integrations
				WHERE owner_id = $1`
			args := []interface{}{owner}
			if platform != "" {
				query += " AND platform = $2"
				args = append(args, platform)
			}
			query += " ORDER BY connected_at DESC"

			rows, err := db.Query(query, args...)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query shops"})
				return
			}
			defer rows.Close()

			shops := []gin.H{}
			for rows.Next() {
				var id, shopPlatform, externalShopID, status string
				var shopName, shopRegion sql.NullString
				var connectedAt time.Time
				var lastSyncedAt sql.NullTime

				err := rows.Scan(&id, &shopPlatform, &externalShopID, &shopName, &shopRegion, &status, &connectedAt, &lastSyncedAt)
				if err != nil {
					c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan shop"})
					return
				}

				shop := gin.H{
					"id":               id,
					"platform":         shopPlatform,
					"external_shop_id": externalShopID,
					"status":           status,
					"connected_at":     connectedAt,
				}
				if shopName.Valid {
					shop["shop_name"] = shopName.String
				}
				if shopRegion.Valid {
					shop["shop_region"] = shopRegion.String
				}
				if lastSyncedAt.Valid {
					shop["last_synced_at"] = lastSyncedAt.Time
				}
				shops = append(shops, shop)
			}

			c.JSON(http.StatusOK, gin.H{"data": shops})
		})

		// Listings, scoped through product ownership
		api.GET("/listings", func(c *gin.Context) {
			owner := merchantID(c)
			productID := c.Query("product_id")

			query := `
				SELECT l.id, l.product_id, l.integration_id, l.platform, l.external_product_id,
					   l.external_listing_url, l.publish_status, l.publish_error, l.published_at, l.created_at
				FROM product_listings l
				JOIN products p ON p.id = l.product_id
				WHERE p.owner_id = $1`
			args := []interface{}{owner}
			if productID != "" {
				query += " AND l.product_id = $2"
				args = append(args, productID)
			}
			query += " ORDER BY l.created_at DESC"

			rows, err := db.Query(query, args...)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query listings"})
				return
			}
			defer rows.Close()

			listings := []gin.H{}
			for rows.Next() {
				var id, pid, integrationID, platform, publishStatus string
				var externalProductID, externalListingURL, publishError sql.NullString
				var publishedAt sql.NullTime
				var createdAt time.Time

				err := rows.Scan(&id, &pid, &integrationID, &platform, &externalProductID,
					&externalListingURL, &publishStatus, &publishError, &publishedAt, &createdAt)
				if err != nil {
					c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan listing"})
					return
				}

				listing := gin.H{
					"id":             id,
					"product_id":     pid,
					"integration_id": integrationID,
					"platform":       platform,
					"publish_status": publishStatus,
					"created_at":     createdAt,
				}
				if externalProductID.Valid {
					listing["external_product_id"] = externalProductID.String
				}
				if externalListingURL.Valid {
					listing["external_listing_url"] = externalListingURL.String
				}
				if publishError.Valid {
					listing["publish_error"] = publishError.String
				}
				if publishedAt.Valid {
					listing["published_at"] = publishedAt.Time
				}
				listings = append(listings, listing)
			}

			c.JSON(http.StatusOK, gin.H{"data": listings})
		})
	}

	router.ServeHTTP(w, r)
}
