package marketplace

import (
	"context"
	"strings"
	"testing"

	"shoplink/internal/config"
	"shoplink/internal/logger"
	"shoplink/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mockFixture() (*models.ShopIntegration, *models.Product) {
	integ := &models.ShopIntegration{
		ID:             "11111111-1111-1111-1111-111111111111",
		OwnerID:        "owner-1",
		Platform:       models.PlatformShopee,
		ExternalShopID: "776655",
	}
	product := &models.Product{
		ID:       "22222222-2222-2222-2222-222222222222",
		OwnerID:  "owner-1",
		Name:     "Desk Lamp",
		Price:    25,
		Currency: "USD",
	}
	return integ, product
}

func TestForPlatform(t *testing.T) {
	cfg := &config.Config{}
	log := logger.New("error")

	p, err := ForPlatform(models.PlatformShopify, cfg, log)
	require.NoError(t, err)
	_, ok := p.(*ShopifyPublisher)
	assert.True(t, ok)

	p, err = ForPlatform(models.PlatformShopee, cfg, log)
	require.NoError(t, err)
	_, ok = p.(*MockPublisher)
	assert.True(t, ok)

	p, err = ForPlatform(models.PlatformTikTokShop, cfg, log)
	require.NoError(t, err)
	_, ok = p.(*MockPublisher)
	assert.True(t, ok)

	_, err = ForPlatform(models.Platform("amazon"), cfg, log)
	require.ErrorIs(t, err, ErrUnsupportedPlatform)
}

func TestMockPublisherDeterministicID(t *testing.T) {
	ctx := context.Background()
	pub := NewShopeePublisher(&config.Config{}, logger.New("error"))
	integ, product := mockFixture()

	first, err := pub.Publish(ctx, integ, "token", product, nil)
	require.NoError(t, err)
	second, err := pub.Publish(ctx, integ, "token", product, &first.ExternalProductID)
	require.NoError(t, err)

	assert.Equal(t, first.ExternalProductID, second.ExternalProductID)
	assert.True(t, strings.HasPrefix(first.ExternalProductID, "SHOPEE-"))
	assert.Contains(t, first.ExternalURL, "shopee.example.com/listing/"+first.ExternalProductID)
	assert.Equal(t, true, first.PlatformData["mock"])
	assert.Equal(t, "776655", first.PlatformData["shop_id"])
	assert.Equal(t, "USD", first.PlatformData["currency"])
}

func TestMockPublisherDistinctProducts(t *testing.T) {
	ctx := context.Background()
	pub := NewTikTokPublisher(&config.Config{}, logger.New("error"))
	integ, product := mockFixture()

	a, err := pub.Publish(ctx, integ, "token", product, nil)
	require.NoError(t, err)

	other := *product
	other.ID = "33333333-3333-3333-3333-333333333333"
	b, err := pub.Publish(ctx, integ, "token", &other, nil)
	require.NoError(t, err)

	assert.NotEqual(t, a.ExternalProductID, b.ExternalProductID)
	assert.True(t, strings.HasPrefix(a.ExternalProductID, "TIKTOK-"))
}

func TestMockPublisherHonorsContext(t *testing.T) {
	cfg := &config.Config{MockPublishDelayMs: 5000}
	pub := NewShopeePublisher(cfg, logger.New("error"))
	integ, product := mockFixture()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := pub.Publish(ctx, integ, "token", product, nil)
	require.ErrorIs(t, err, context.Canceled)
}
