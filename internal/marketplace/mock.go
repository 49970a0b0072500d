package marketplace

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"shoplink/internal/config"
	"shoplink/internal/logger"
	"shoplink/internal/models"
)

// MockPublisher stands in for marketplaces without a usable sandbox. The
// listing id is derived from the platform, shop, and product, so publishing
// the same pair twice yields the same id.
type MockPublisher struct {
	platform models.Platform
	prefix   string
	host     string
	delay    time.Duration
	logger   *logger.Logger
}

func NewShopeePublisher(cfg *config.Config, log *logger.Logger) *MockPublisher {
	return &MockPublisher{
		platform: models.PlatformShopee,
		prefix:   "SHOPEE",
		host:     "shopee.example.com",
		delay:    mockDelay(cfg),
		logger:   log,
	}
}

func NewTikTokPublisher(cfg *config.Config, log *logger.Logger) *MockPublisher {
	return &MockPublisher{
		platform: models.PlatformTikTokShop,
		prefix:   "TIKTOK",
		host:     "shop.tiktok.example.com",
		delay:    mockDelay(cfg),
		logger:   log,
	}
}

func mockDelay(cfg *config.Config) time.Duration {
	if cfg.MockPublishDelayMs <= 0 {
		return 0
	}
	return time.Duration(cfg.MockPublishDelayMs) * time.Millisecond
}

// Publish ignores currentID: the derived listing id is already stable across
// republishes of the same pair.
func (p *MockPublisher) Publish(ctx context.Context, integ *models.ShopIntegration, accessToken string, product *models.Product, currentID *string) (PublishResult, error) {
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return PublishResult{}, ctx.Err()
		}
	}

	sum := sha256.Sum256([]byte(string(p.platform) + "|" + integ.ExternalShopID + "|" + product.ID))
	externalID := fmt.Sprintf("%s-%s", p.prefix, strings.ToUpper(hex.EncodeToString(sum[:4])))
	p.logger.Info("mock %s publish of product %s as %s", p.platform, product.ID, externalID)

	return PublishResult{
		ExternalProductID: externalID,
		ExternalURL:       fmt.Sprintf("https://%s/listing/%s", p.host, externalID),
		PlatformData: map[string]interface{}{
			"mock":     true,
			"shop_id":  integ.ExternalShopID,
			"currency": product.Currency,
		},
	}, nil
}
