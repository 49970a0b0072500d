package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ShopIntegration links a merchant to one shop on one marketplace and holds
// the credential material obtained from the OAuth flow. At most one row may
// exist per (owner_id, platform, external_shop_id).
type ShopIntegration struct {
	ID             string   `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	OwnerID        string   `json:"owner_id" gorm:"not null;index;uniqueIndex:idx_owner_platform_shop"`
	Platform       Platform `json:"platform" gorm:"not null;uniqueIndex:idx_owner_platform_shop"`
	ExternalShopID string   `json:"external_shop_id" gorm:"not null;uniqueIndex:idx_owner_platform_shop"`
	ShopName       *string  `json:"shop_name"`
	ShopRegion     *string  `json:"shop_region"`

	// Credential material, encrypted at rest. Never serialized.
	AccessToken    string     `json:"-" gorm:"not null"`
	RefreshToken   *string    `json:"-"`
	TokenExpiresAt *time.Time `json:"token_expires_at"`
	Scopes         string     `json:"scopes"`

	Status       IntegrationStatus `json:"status" gorm:"default:active"`
	ConnectedAt  time.Time         `json:"connected_at"`
	LastSyncedAt *time.Time        `json:"last_synced_at"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

type Platform string

const (
	PlatformShopify    Platform = "shopify"
	PlatformShopee     Platform = "shopee"
	PlatformTikTokShop Platform = "tiktok_shop"
)

type IntegrationStatus string

const (
	IntegrationStatusActive  IntegrationStatus = "active"
	IntegrationStatusExpired IntegrationStatus = "expired"
	IntegrationStatusRevoked IntegrationStatus = "revoked"
)

func (s *ShopIntegration) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}
