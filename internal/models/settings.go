package models

import (
	"time"
)

// MerchantSettings holds per-merchant defaults for enrichment and publishing.
type MerchantSettings struct {
	OwnerID              string    `json:"owner_id" gorm:"primary_key"`
	AITone               string    `json:"ai_tone" gorm:"default:professional"`
	AIModelPreference    string    `json:"ai_model_preference" gorm:"default:gpt-4"`
	AutoEnrich           bool      `json:"auto_enrich" gorm:"default:false"`
	DefaultCurrency      string    `json:"default_currency" gorm:"default:USD"`
	DefaultStockQuantity int       `json:"default_stock_quantity" gorm:"default:100"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}
