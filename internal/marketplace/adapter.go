package marketplace

import (
	"context"
	"errors"
	"fmt"

	"shoplink/internal/config"
	"shoplink/internal/logger"
	"shoplink/internal/models"
)

// ErrUnsupportedPlatform means no adapter exists for the platform id.
var ErrUnsupportedPlatform = errors.New("marketplace: unsupported platform")

// PublishResult is what a platform reports back for a created listing.
type PublishResult struct {
	ExternalProductID string
	ExternalURL       string
	PlatformData      map[string]interface{}
}

// Publisher pushes one product onto one connected shop. currentID is the
// platform's id from an earlier publish of the same pair, nil the first time;
// adapters use it to refresh the existing remote listing instead of creating
// a duplicate.
type Publisher interface {
	Publish(ctx context.Context, integ *models.ShopIntegration, accessToken string, product *models.Product, currentID *string) (PublishResult, error)
}

// ForPlatform returns the adapter for a platform. Shopify gets the real
// Admin API client; the rest run against mock adapters until their seller
// APIs are wired up.
func ForPlatform(platform models.Platform, cfg *config.Config, log *logger.Logger) (Publisher, error) {
	switch platform {
	case models.PlatformShopify:
		return NewShopifyPublisher(log), nil
	case models.PlatformShopee:
		return NewShopeePublisher(cfg, log), nil
	case models.PlatformTikTokShop:
		return NewTikTokPublisher(cfg, log), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, platform)
	}
}
