package listings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shoplink/internal/config"
	"shoplink/internal/events"
	"shoplink/internal/logger"
	"shoplink/internal/marketplace"
	"shoplink/internal/models"
	"shoplink/internal/platforms"
	"shoplink/internal/services/integrations"

	"gorm.io/gorm"
)

var (
	// ErrNotFound means the product does not exist.
	ErrNotFound = errors.New("listings: product not found")
	// ErrForbidden means the product belongs to another merchant.
	ErrForbidden = errors.New("listings: forbidden")
	// ErrNotReady means the product fails the publish preconditions.
	ErrNotReady = errors.New("listings: product not ready to publish")
	// ErrIntegrationInactive means the target shop connection is expired
	// or revoked.
	ErrIntegrationInactive = errors.New("listings: integration is not active")
	// ErrPublishFailed wraps a platform-side publish error.
	ErrPublishFailed = errors.New("listings: platform publish failed")
)

// Service publishes products onto connected shops and tracks the resulting
// listings.
type Service struct {
	db           *gorm.DB
	integrations *integrations.Manager
	catalog      *platforms.Catalog
	events       events.Publisher
	config       *config.Config
	logger       *logger.Logger
}

func NewService(
	db *gorm.DB,
	manager *integrations.Manager,
	catalog *platforms.Catalog,
	publisher events.Publisher,
	cfg *config.Config,
	log *logger.Logger,
) *Service {
	return &Service{
		db:           db,
		integrations: manager,
		catalog:      catalog,
		events:       publisher,
		config:       cfg,
		logger:       log,
	}
}

// Publish pushes the product to the integration's marketplace. The listing
// row is keyed by (product_id, integration_id); publishing again refreshes
// it instead of creating a second one. Integration lookups surface the
// integrations package errors unchanged.
func (s *Service) Publish(ctx context.Context, ownerID, productID, integrationID string) (*models.ProductListing, error) {
	var product models.Product
	if err := s.db.WithContext(ctx).First(&product, "id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if product.OwnerID != ownerID {
		return nil, ErrForbidden
	}

	integ, err := s.integrations.Get(ctx, integrationID, ownerID)
	if err != nil {
		return nil, err
	}
	if integ.Status != models.IntegrationStatusActive {
		return nil, fmt.Errorf("%w: %s", ErrIntegrationInactive, integ.Status)
	}

	if err := s.checkReady(&product, integ.Platform); err != nil {
		return nil, err
	}

	listing, err := s.prepareListing(ctx, &product, integ)
	if err != nil {
		return nil, err
	}

	token, err := s.integrations.AccessToken(integ)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt access token: %w", err)
	}
	adapter, err := marketplace.ForPlatform(integ.Platform, s.config, s.logger)
	if err != nil {
		return nil, err
	}

	result, err := adapter.Publish(ctx, integ, token, &product, listing.ExternalProductID)
	if err != nil {
		return s.recordFailure(ctx, listing, &product, err)
	}
	return s.recordSuccess(ctx, listing, &product, result)
}

func (s *Service) checkReady(product *models.Product, platform models.Platform) error {
	if product.Status == models.ProductStatusArchived {
		return fmt.Errorf("%w: product is archived", ErrNotReady)
	}
	if product.Name == "" {
		return fmt.Errorf("%w: missing name", ErrNotReady)
	}
	if product.Price <= 0 {
		return fmt.Errorf("%w: price must be positive", ErrNotReady)
	}
	def, ok := s.catalog.Lookup(string(platform))
	if ok && !def.Mocked && len(product.Images) == 0 {
		return fmt.Errorf("%w: at least one image is required for %s", ErrNotReady, platform)
	}
	return nil
}

// prepareListing finds or creates the listing row and marks it publishing.
func (s *Service) prepareListing(ctx context.Context, product *models.Product, integ *models.ShopIntegration) (*models.ProductListing, error) {
	var listing models.ProductListing
	err := s.db.WithContext(ctx).
		Where("product_id = ? AND integration_id = ?", product.ID, integ.ID).
		First(&listing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		listing = models.ProductListing{
			ProductID:     product.ID,
			IntegrationID: integ.ID,
			Platform:      integ.Platform,
			PublishStatus: models.PublishStatusPending,
		}
		if err := s.db.WithContext(ctx).Create(&listing).Error; err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	listing.PublishStatus = models.PublishStatusPublishing
	listing.PublishError = nil
	if err := s.db.WithContext(ctx).Save(&listing).Error; err != nil {
		return nil, err
	}
	return &listing, nil
}

func (s *Service) recordFailure(ctx context.Context, listing *models.ProductListing, product *models.Product, cause error) (*models.ProductListing, error) {
	s.logger.Error("publish of product %s to %s failed: %v", product.ID, listing.Platform, cause)

	// The request context may already be done when the platform call
	// failed; the failure row is written regardless.
	ctx = context.WithoutCancel(ctx)

	msg := cause.Error()
	listing.PublishStatus = models.PublishStatusFailed
	listing.PublishError = &msg
	if err := s.db.WithContext(ctx).Save(listing).Error; err != nil {
		s.logger.Error("failed to record listing failure: %v", err)
	}

	if err := s.events.Publish(ctx, events.Event{
		Type:          events.TypeListingFailed,
		OwnerID:       product.OwnerID,
		IntegrationID: listing.IntegrationID,
		ProductID:     product.ID,
		Data:          map[string]interface{}{"error": msg},
		Timestamp:     time.Now().UTC(),
	}); err != nil {
		s.logger.Warn("failed to publish %s event: %v", events.TypeListingFailed, err)
	}

	return listing, fmt.Errorf("%w: %v", ErrPublishFailed, cause)
}

func (s *Service) recordSuccess(ctx context.Context, listing *models.ProductListing, product *models.Product, result marketplace.PublishResult) (*models.ProductListing, error) {
	now := time.Now().UTC()

	status := models.PublishStatusPublished
	if listing.PublishedAt != nil {
		status = models.PublishStatusUpdated
	}
	listing.PublishStatus = status
	listing.ExternalProductID = &result.ExternalProductID
	listing.ExternalListingURL = &result.ExternalURL
	listing.PlatformData = result.PlatformData
	listing.PublishedAt = &now
	listing.PublishError = nil
	if err := s.db.WithContext(ctx).Save(listing).Error; err != nil {
		return nil, err
	}

	if product.Status != models.ProductStatusPublished {
		err := s.db.WithContext(ctx).Model(product).
			Update("status", models.ProductStatusPublished).Error
		if err != nil {
			s.logger.Warn("failed to mark product %s published: %v", product.ID, err)
		}
	}

	s.logger.Info("published product %s to %s as %s", product.ID, listing.Platform, result.ExternalProductID)

	if err := s.events.Publish(ctx, events.Event{
		Type:          events.TypeListingPublished,
		OwnerID:       product.OwnerID,
		IntegrationID: listing.IntegrationID,
		ProductID:     product.ID,
		Data: map[string]interface{}{
			"platform":            string(listing.Platform),
			"external_product_id": result.ExternalProductID,
		},
		Timestamp: now,
	}); err != nil {
		s.logger.Warn("failed to publish %s event: %v", events.TypeListingPublished, err)
	}

	return listing, nil
}

// List returns the merchant's listings, optionally for one product. The
// owner scope comes from the product join since listings carry no owner
// column of their own.
func (s *Service) List(ctx context.Context, ownerID, productID string) ([]models.ProductListing, error) {
	query := s.db.WithContext(ctx).
		Joins("JOIN products ON products.id = product_listings.product_id").
		Where("products.owner_id = ?", ownerID)
	if productID != "" {
		query = query.Where("product_listings.product_id = ?", productID)
	}
	var out []models.ProductListing
	if err := query.Order("product_listings.created_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
