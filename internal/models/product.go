package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Product is the merchant's canonical product record, the simple input that
// enrichment and publishing work from.
type Product struct {
	ID            string           `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	OwnerID       string           `json:"owner_id" gorm:"not null;index"`
	Name          string           `json:"name" gorm:"not null"`
	Description   *string          `json:"description"`
	Price         float64          `json:"price" gorm:"type:decimal(12,2)"`
	Currency      string           `json:"currency" gorm:"default:USD"`
	StockQuantity int              `json:"stock_quantity" gorm:"default:0"`
	SKU           *string          `json:"sku"`
	Condition     ProductCondition `json:"condition" gorm:"default:new"`
	Category      *string          `json:"category"`
	Images        StringList       `json:"images" gorm:"type:jsonb"`

	// AI enrichment state
	AIEnriched   bool       `json:"ai_enriched" gorm:"default:false"`
	AIEnrichedAt *time.Time `json:"ai_enriched_at"`
	AIModelUsed  *string    `json:"ai_model_used"`

	Status    ProductStatus `json:"status" gorm:"default:draft"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

type ProductStatus string

const (
	ProductStatusDraft     ProductStatus = "draft"
	ProductStatusReady     ProductStatus = "ready"
	ProductStatusPublished ProductStatus = "published"
	ProductStatusArchived  ProductStatus = "archived"
)

type ProductCondition string

const (
	ProductConditionNew  ProductCondition = "new"
	ProductConditionUsed ProductCondition = "used"
)

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}
