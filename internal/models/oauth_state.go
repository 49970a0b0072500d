package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OAuthState is a single-use CSRF token binding an authorization request to
// its callback. Rows are deleted on consumption; expired leftovers are
// purged lazily.
type OAuthState struct {
	ID         string    `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	OwnerID    string    `json:"owner_id" gorm:"not null;index"`
	Token      string    `json:"token" gorm:"unique;not null"`
	Platform   Platform  `json:"platform" gorm:"not null"`
	ShopDomain string    `json:"shop_domain"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at" gorm:"not null;index"`
}

func (s *OAuthState) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}
