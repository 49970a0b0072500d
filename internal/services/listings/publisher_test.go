package listings

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"shoplink/internal/config"
	"shoplink/internal/events"
	"shoplink/internal/logger"
	"shoplink/internal/models"
	"shoplink/internal/platforms"
	"shoplink/internal/security"
	"shoplink/internal/services/integrations"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingPublisher) Publish(ctx context.Context, event events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingPublisher) Close() error { return nil }

func (r *recordingPublisher) byType(eventType string) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, e := range r.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.ShopIntegration{},
		&models.Product{},
		&models.ProductListing{},
	))
	return db
}

type publishFixture struct {
	db       *gorm.DB
	cfg      *config.Config
	manager  *integrations.Manager
	recorder *recordingPublisher
	svc      *Service
}

func newPublishFixture(t *testing.T) *publishFixture {
	t.Helper()
	db := newTestDB(t)
	cfg := &config.Config{}
	vault, err := security.NewVault("")
	require.NoError(t, err)
	log := logger.New("error")
	manager := integrations.NewManager(db, vault, log)
	catalog, err := platforms.Load("")
	require.NoError(t, err)
	recorder := &recordingPublisher{}
	return &publishFixture{
		db:       db,
		cfg:      cfg,
		manager:  manager,
		recorder: recorder,
		svc:      NewService(db, manager, catalog, recorder, cfg, log),
	}
}

func (f *publishFixture) connectShop(t *testing.T, owner string, platform models.Platform, shop string) *models.ShopIntegration {
	t.Helper()
	integ, err := f.manager.Upsert(context.Background(), integrations.UpsertInput{
		OwnerID:        owner,
		Platform:       platform,
		ExternalShopID: shop,
		AccessToken:    "mock-token",
	})
	require.NoError(t, err)
	return integ
}

func (f *publishFixture) createProduct(t *testing.T, owner, name string, price float64) *models.Product {
	t.Helper()
	product := models.Product{
		OwnerID:  owner,
		Name:     name,
		Price:    price,
		Currency: "USD",
	}
	require.NoError(t, f.db.Create(&product).Error)
	return &product
}

func TestPublishToMockMarketplace(t *testing.T) {
	ctx := context.Background()
	f := newPublishFixture(t)
	integ := f.connectShop(t, "owner-1", models.PlatformShopee, "776655")
	product := f.createProduct(t, "owner-1", "Desk Lamp", 25)

	listing, err := f.svc.Publish(ctx, "owner-1", product.ID, integ.ID)
	require.NoError(t, err)

	assert.Equal(t, models.PublishStatusPublished, listing.PublishStatus)
	require.NotNil(t, listing.ExternalProductID)
	assert.True(t, strings.HasPrefix(*listing.ExternalProductID, "SHOPEE-"))
	require.NotNil(t, listing.ExternalListingURL)
	require.NotNil(t, listing.PublishedAt)
	assert.Nil(t, listing.PublishError)

	var stored models.Product
	require.NoError(t, f.db.First(&stored, "id = ?", product.ID).Error)
	assert.Equal(t, models.ProductStatusPublished, stored.Status)

	published := f.recorder.byType(events.TypeListingPublished)
	require.Len(t, published, 1)
	assert.Equal(t, product.ID, published[0].ProductID)
	assert.Equal(t, *listing.ExternalProductID, published[0].Data["external_product_id"])
}

func TestRepublishRefreshesSameListing(t *testing.T) {
	ctx := context.Background()
	f := newPublishFixture(t)
	integ := f.connectShop(t, "owner-1", models.PlatformShopee, "776655")
	product := f.createProduct(t, "owner-1", "Desk Lamp", 25)

	first, err := f.svc.Publish(ctx, "owner-1", product.ID, integ.ID)
	require.NoError(t, err)
	second, err := f.svc.Publish(ctx, "owner-1", product.ID, integ.ID)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, models.PublishStatusUpdated, second.PublishStatus)

	var count int64
	require.NoError(t, f.db.Model(&models.ProductListing{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestPublishRejectsUnreadyProducts(t *testing.T) {
	ctx := context.Background()
	f := newPublishFixture(t)
	integ := f.connectShop(t, "owner-1", models.PlatformShopee, "776655")

	free := f.createProduct(t, "owner-1", "Freebie", 0)
	_, err := f.svc.Publish(ctx, "owner-1", free.ID, integ.ID)
	require.ErrorIs(t, err, ErrNotReady)

	archived := f.createProduct(t, "owner-1", "Old Stock", 10)
	require.NoError(t, f.db.Model(archived).Update("status", models.ProductStatusArchived).Error)
	_, err = f.svc.Publish(ctx, "owner-1", archived.ID, integ.ID)
	require.ErrorIs(t, err, ErrNotReady)
}

func TestPublishRequiresImagesForLiveMarketplaces(t *testing.T) {
	ctx := context.Background()
	f := newPublishFixture(t)
	integ := f.connectShop(t, "owner-1", models.PlatformShopify, "demo.myshopify.com")
	product := f.createProduct(t, "owner-1", "Desk Lamp", 25)

	_, err := f.svc.Publish(ctx, "owner-1", product.ID, integ.ID)
	require.ErrorIs(t, err, ErrNotReady)
	assert.Contains(t, err.Error(), "image")
}

func TestPublishRejectsInactiveIntegration(t *testing.T) {
	ctx := context.Background()
	f := newPublishFixture(t)
	integ := f.connectShop(t, "owner-1", models.PlatformShopee, "776655")
	require.NoError(t, f.db.Model(&models.ShopIntegration{}).
		Where("id = ?", integ.ID).
		Update("status", models.IntegrationStatusExpired).Error)
	product := f.createProduct(t, "owner-1", "Desk Lamp", 25)

	_, err := f.svc.Publish(ctx, "owner-1", product.ID, integ.ID)
	require.ErrorIs(t, err, ErrIntegrationInactive)
}

func TestPublishOwnerChecks(t *testing.T) {
	ctx := context.Background()
	f := newPublishFixture(t)
	integ := f.connectShop(t, "owner-1", models.PlatformShopee, "776655")
	product := f.createProduct(t, "owner-1", "Desk Lamp", 25)

	_, err := f.svc.Publish(ctx, "owner-2", product.ID, integ.ID)
	require.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.Publish(ctx, "owner-1", "00000000-0000-0000-0000-00000000dead", integ.ID)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.Publish(ctx, "owner-1", product.ID, "00000000-0000-0000-0000-00000000dead")
	require.ErrorIs(t, err, integrations.ErrNotFound)

	other := f.createProduct(t, "owner-2", "Other Lamp", 30)
	otherInteg := f.connectShop(t, "owner-2", models.PlatformShopee, "998877")
	_, err = f.svc.Publish(ctx, "owner-1", other.ID, otherInteg.ID)
	require.ErrorIs(t, err, ErrForbidden)
}

func TestPublishFailureIsRecorded(t *testing.T) {
	f := newPublishFixture(t)
	f.cfg.MockPublishDelayMs = 2000
	integ := f.connectShop(t, "owner-1", models.PlatformShopee, "776655")
	product := f.createProduct(t, "owner-1", "Desk Lamp", 25)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	listing, err := f.svc.Publish(ctx, "owner-1", product.ID, integ.ID)
	require.ErrorIs(t, err, ErrPublishFailed)
	require.NotNil(t, listing)
	assert.Equal(t, models.PublishStatusFailed, listing.PublishStatus)
	require.NotNil(t, listing.PublishError)

	// The failure outlives the request context
	var stored models.ProductListing
	require.NoError(t, f.db.First(&stored, "id = ?", listing.ID).Error)
	assert.Equal(t, models.PublishStatusFailed, stored.PublishStatus)
	require.NotNil(t, stored.PublishError)
	assert.Contains(t, *stored.PublishError, "context deadline exceeded")

	failed := f.recorder.byType(events.TypeListingFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, product.ID, failed[0].ProductID)
}

func TestPublishAfterFailureRecovers(t *testing.T) {
	ctx := context.Background()
	f := newPublishFixture(t)
	integ := f.connectShop(t, "owner-1", models.PlatformShopee, "776655")
	product := f.createProduct(t, "owner-1", "Desk Lamp", 25)

	f.cfg.MockPublishDelayMs = 2000
	failCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	failed, err := f.svc.Publish(failCtx, "owner-1", product.ID, integ.ID)
	cancel()
	require.ErrorIs(t, err, ErrPublishFailed)

	f.cfg.MockPublishDelayMs = 0
	recovered, err := f.svc.Publish(ctx, "owner-1", product.ID, integ.ID)
	require.NoError(t, err)
	assert.Equal(t, failed.ID, recovered.ID)
	assert.Equal(t, models.PublishStatusPublished, recovered.PublishStatus)
	assert.Nil(t, recovered.PublishError)
}

func TestListScopedToOwner(t *testing.T) {
	ctx := context.Background()
	f := newPublishFixture(t)
	integ := f.connectShop(t, "owner-1", models.PlatformShopee, "776655")
	lamp := f.createProduct(t, "owner-1", "Desk Lamp", 25)
	mug := f.createProduct(t, "owner-1", "Coffee Mug", 8)

	_, err := f.svc.Publish(ctx, "owner-1", lamp.ID, integ.ID)
	require.NoError(t, err)
	_, err = f.svc.Publish(ctx, "owner-1", mug.ID, integ.ID)
	require.NoError(t, err)

	all, err := f.svc.List(ctx, "owner-1", "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	onlyLamp, err := f.svc.List(ctx, "owner-1", lamp.ID)
	require.NoError(t, err)
	require.Len(t, onlyLamp, 1)
	assert.Equal(t, lamp.ID, onlyLamp[0].ProductID)

	nothing, err := f.svc.List(ctx, "owner-2", "")
	require.NoError(t, err)
	assert.Empty(t, nothing)
}
