package integrations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shoplink/internal/logger"
	"shoplink/internal/models"
	"shoplink/internal/security"

	"gorm.io/gorm"
)

var (
	// ErrNotFound means no integration exists under the given id.
	ErrNotFound = errors.New("integrations: not found")
	// ErrForbidden means the integration belongs to another merchant.
	ErrForbidden = errors.New("integrations: forbidden")
	// ErrConflict means a concurrent upsert race could not be resolved
	// even after the internal retry.
	ErrConflict = errors.New("integrations: conflicting concurrent update")
)

// Manager owns the ShopIntegration table: atomic upserts keyed by
// (owner_id, platform, external_shop_id), owner-checked reads and deletes,
// and token encryption on the way in and out.
type Manager struct {
	db     *gorm.DB
	vault  *security.Vault
	logger *logger.Logger
}

func NewManager(db *gorm.DB, vault *security.Vault, log *logger.Logger) *Manager {
	return &Manager{
		db:     db,
		vault:  vault,
		logger: log,
	}
}

// UpsertInput carries everything a successful token exchange produced.
type UpsertInput struct {
	OwnerID        string
	Platform       models.Platform
	ExternalShopID string
	ShopName       *string
	ShopRegion     *string
	AccessToken    string
	RefreshToken   string
	TokenExpiresAt *time.Time
	Scopes         string
}

// Upsert creates or refreshes the integration row in one transaction. A
// duplicate-key failure from a concurrent create is retried once; the
// second attempt takes the update path.
func (m *Manager) Upsert(ctx context.Context, in UpsertInput) (*models.ShopIntegration, error) {
	integ, err := m.upsertOnce(ctx, in)
	if err == nil {
		return integ, nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		m.logger.Warn("upsert race on %s/%s/%s, retrying", in.OwnerID, in.Platform, in.ExternalShopID)
		integ, err = m.upsertOnce(ctx, in)
		if err == nil {
			return integ, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return nil, err
}

func (m *Manager) upsertOnce(ctx context.Context, in UpsertInput) (*models.ShopIntegration, error) {
	accessToken, err := m.vault.Encrypt(in.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt access token: %w", err)
	}
	var refreshToken *string
	if in.RefreshToken != "" {
		enc, err := m.vault.Encrypt(in.RefreshToken)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt refresh token: %w", err)
		}
		refreshToken = &enc
	}

	now := time.Now().UTC()
	var out models.ShopIntegration
	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.ShopIntegration
		err := tx.Where("owner_id = ? AND platform = ? AND external_shop_id = ?",
			in.OwnerID, in.Platform, in.ExternalShopID).First(&existing).Error
		if err == nil {
			existing.AccessToken = accessToken
			existing.RefreshToken = refreshToken
			existing.TokenExpiresAt = in.TokenExpiresAt
			existing.Scopes = in.Scopes
			existing.Status = models.IntegrationStatusActive
			existing.ConnectedAt = now
			if in.ShopName != nil {
				existing.ShopName = in.ShopName
			}
			if in.ShopRegion != nil {
				existing.ShopRegion = in.ShopRegion
			}
			if err := tx.Save(&existing).Error; err != nil {
				return err
			}
			out = existing
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		integ := models.ShopIntegration{
			OwnerID:        in.OwnerID,
			Platform:       in.Platform,
			ExternalShopID: in.ExternalShopID,
			ShopName:       in.ShopName,
			ShopRegion:     in.ShopRegion,
			AccessToken:    accessToken,
			RefreshToken:   refreshToken,
			TokenExpiresAt: in.TokenExpiresAt,
			Scopes:         in.Scopes,
			Status:         models.IntegrationStatusActive,
			ConnectedAt:    now,
		}
		if err := tx.Create(&integ).Error; err != nil {
			return err
		}
		out = integ
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Disconnect deletes the integration only when it belongs to ownerID.
// Dependent listings go with it.
func (m *Manager) Disconnect(ctx context.Context, id, ownerID string) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var integ models.ShopIntegration
		if err := tx.First(&integ, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if integ.OwnerID != ownerID {
			return ErrForbidden
		}
		if err := tx.Delete(&models.ProductListing{}, "integration_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&integ).Error
	})
}

// List returns the merchant's integrations, optionally filtered by platform.
func (m *Manager) List(ctx context.Context, ownerID string, platform string) ([]models.ShopIntegration, error) {
	query := m.db.WithContext(ctx).Where("owner_id = ?", ownerID)
	if platform != "" {
		query = query.Where("platform = ?", platform)
	}
	var integrations []models.ShopIntegration
	if err := query.Order("connected_at DESC").Find(&integrations).Error; err != nil {
		return nil, err
	}
	return integrations, nil
}

// Get returns one integration after the owner check.
func (m *Manager) Get(ctx context.Context, id, ownerID string) (*models.ShopIntegration, error) {
	var integ models.ShopIntegration
	if err := m.db.WithContext(ctx).First(&integ, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if integ.OwnerID != ownerID {
		return nil, ErrForbidden
	}
	return &integ, nil
}

// Status returns the integration and flips active rows to expired once
// their token lifetime has passed.
func (m *Manager) Status(ctx context.Context, id, ownerID string) (*models.ShopIntegration, error) {
	integ, err := m.Get(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	if integ.Status == models.IntegrationStatusActive &&
		integ.TokenExpiresAt != nil && integ.TokenExpiresAt.Before(time.Now().UTC()) {
		integ.Status = models.IntegrationStatusExpired
		if err := m.db.WithContext(ctx).Model(integ).Update("status", integ.Status).Error; err != nil {
			return nil, err
		}
	}
	return integ, nil
}

// AccessToken decrypts the stored access token for platform calls.
func (m *Manager) AccessToken(integ *models.ShopIntegration) (string, error) {
	return m.vault.Decrypt(integ.AccessToken)
}

// UpdateMetadata backfills shop name and region, marking the sync time.
func (m *Manager) UpdateMetadata(ctx context.Context, id string, shopName, shopRegion *string) error {
	updates := map[string]interface{}{
		"last_synced_at": time.Now().UTC(),
	}
	if shopName != nil && *shopName != "" {
		updates["shop_name"] = *shopName
	}
	if shopRegion != nil && *shopRegion != "" {
		updates["shop_region"] = *shopRegion
	}
	res := m.db.WithContext(ctx).Model(&models.ShopIntegration{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
