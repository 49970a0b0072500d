package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductListing is the per-platform publish record for a product. One row
// per (product_id, integration_id); re-publishing refreshes the row.
type ProductListing struct {
	ID            string   `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ProductID     string   `json:"product_id" gorm:"type:uuid;not null;uniqueIndex:idx_product_integration"`
	IntegrationID string   `json:"integration_id" gorm:"type:uuid;not null;uniqueIndex:idx_product_integration"`
	Platform      Platform `json:"platform" gorm:"not null"`

	// External identifiers, set after a successful publish
	ExternalProductID  *string `json:"external_product_id"`
	ExternalListingURL *string `json:"external_listing_url"`

	PlatformData  JSONB         `json:"platform_data" gorm:"type:jsonb"`
	PublishStatus PublishStatus `json:"publish_status" gorm:"default:pending"`
	PublishError  *string       `json:"publish_error"`

	PublishedAt  *time.Time `json:"published_at"`
	LastSyncedAt *time.Time `json:"last_synced_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type PublishStatus string

const (
	PublishStatusPending    PublishStatus = "pending"
	PublishStatusPublishing PublishStatus = "publishing"
	PublishStatusPublished  PublishStatus = "published"
	PublishStatusFailed     PublishStatus = "failed"
	PublishStatusUpdated    PublishStatus = "updated"
)

func (l *ProductListing) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	return nil
}
