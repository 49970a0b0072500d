package database

import (
	"fmt"
	"strings"

	"shoplink/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Database struct {
	DB *gorm.DB
}

func New(databaseURL string) (*Database, error) {
	var db *gorm.DB
	var err error

	gormConfig := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	}

	if strings.HasPrefix(databaseURL, "sqlite://") {
		// SQLite for development
		dbPath := strings.TrimPrefix(databaseURL, "sqlite://")
		db, err = gorm.Open(sqlite.Open(dbPath), gormConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		// SQLite cannot evaluate the Postgres defaults in the bootstrap SQL
		if err := db.AutoMigrate(
			&models.OAuthState{},
			&models.ShopIntegration{},
			&models.Product{},
			&models.ProductListing{},
			&models.EnrichmentLog{},
			&models.MerchantSettings{},
		); err != nil {
			return nil, fmt.Errorf("failed to migrate tables: %w", err)
		}
		return &Database{DB: db}, nil
	}

	// PostgreSQL for production
	db, err = gorm.Open(postgres.Open(databaseURL), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Create tables manually with raw SQL
	createTablesSQL := `
	CREATE TABLE IF NOT EXISTS oauth_states (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		owner_id TEXT NOT NULL,
		token TEXT UNIQUE NOT NULL,
		platform TEXT NOT NULL,
		shop_domain TEXT,
		created_at TIMESTAMPTZ DEFAULT NOW(),
		expires_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_oauth_states_owner ON oauth_states (owner_id);
	CREATE INDEX IF NOT EXISTS idx_oauth_states_expires ON oauth_states (expires_at);

	CREATE TABLE IF NOT EXISTS shop_integrations (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		owner_id TEXT NOT NULL,
		platform TEXT NOT NULL,
		external_shop_id TEXT NOT NULL,
		shop_name TEXT,
		shop_region TEXT,
		access_token TEXT NOT NULL,
		refresh_token TEXT,
		token_expires_at TIMESTAMPTZ,
		scopes TEXT,
		status TEXT DEFAULT 'active',
		connected_at TIMESTAMPTZ DEFAULT NOW(),
		last_synced_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ DEFAULT NOW(),
		updated_at TIMESTAMPTZ DEFAULT NOW(),
		CONSTRAINT idx_owner_platform_shop UNIQUE (owner_id, platform, external_shop_id)
	);

	CREATE TABLE IF NOT EXISTS products (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		owner_id TEXT NOT NULL,
		name TEXT NOT NULL,
		description TEXT,
		price DECIMAL(12,2),
		currency TEXT DEFAULT 'USD',
		stock_quantity INTEGER DEFAULT 0,
		sku TEXT,
		condition TEXT DEFAULT 'new',
		category TEXT,
		images JSONB,
		ai_enriched BOOLEAN DEFAULT false,
		ai_enriched_at TIMESTAMPTZ,
		ai_model_used TEXT,
		status TEXT DEFAULT 'draft',
		created_at TIMESTAMPTZ DEFAULT NOW(),
		updated_at TIMESTAMPTZ DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_products_owner ON products (owner_id);

	CREATE TABLE IF NOT EXISTS product_listings (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		product_id UUID NOT NULL,
		integration_id UUID NOT NULL,
		platform TEXT NOT NULL,
		external_product_id TEXT,
		external_listing_url TEXT,
		platform_data JSONB,
		publish_status TEXT DEFAULT 'pending',
		publish_error TEXT,
		published_at TIMESTAMPTZ,
		last_synced_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ DEFAULT NOW(),
		updated_at TIMESTAMPTZ DEFAULT NOW(),
		CONSTRAINT idx_product_integration UNIQUE (product_id, integration_id)
	);

	CREATE TABLE IF NOT EXISTS enrichment_logs (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		owner_id TEXT NOT NULL,
		product_id UUID NOT NULL,
		kind TEXT NOT NULL,
		model TEXT,
		input JSONB,
		output JSONB,
		duration_ms BIGINT,
		status TEXT DEFAULT 'success',
		error_message TEXT,
		created_at TIMESTAMPTZ DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_enrichment_logs_owner ON enrichment_logs (owner_id);

	CREATE TABLE IF NOT EXISTS merchant_settings (
		owner_id TEXT PRIMARY KEY,
		ai_tone TEXT DEFAULT 'professional',
		ai_model_preference TEXT DEFAULT 'gpt-4',
		auto_enrich BOOLEAN DEFAULT false,
		default_currency TEXT DEFAULT 'USD',
		default_stock_quantity INTEGER DEFAULT 100,
		created_at TIMESTAMPTZ DEFAULT NOW(),
		updated_at TIMESTAMPTZ DEFAULT NOW()
	);
	`

	err = db.Exec(createTablesSQL).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &Database{DB: db}, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
