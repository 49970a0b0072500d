package integrations

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"testing"
	"time"

	"shoplink/internal/logger"
	"shoplink/internal/models"
	"shoplink/internal/security"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

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

func newTestManager(t *testing.T) (*Manager, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	vault, err := security.NewVault("")
	require.NoError(t, err)
	return NewManager(db, vault, logger.New("error")), db
}

func upsertInput(owner, shop string) UpsertInput {
	return UpsertInput{
		OwnerID:        owner,
		Platform:       models.PlatformShopify,
		ExternalShopID: shop,
		AccessToken:    "shpat_" + shop,
		Scopes:         "read_products",
	}
}

func TestUpsertCreatesThenRefreshes(t *testing.T) {
	ctx := context.Background()
	m, db := newTestManager(t)

	first, err := m.Upsert(ctx, upsertInput("owner-1", "demo.myshopify.com"))
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)
	assert.Equal(t, models.IntegrationStatusActive, first.Status)

	in := upsertInput("owner-1", "demo.myshopify.com")
	in.AccessToken = "shpat_rotated"
	second, err := m.Upsert(ctx, in)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "shpat_rotated", second.AccessToken)

	var count int64
	require.NoError(t, db.Model(&models.ShopIntegration{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestUpsertSeparateShopsSeparateRows(t *testing.T) {
	ctx := context.Background()
	m, db := newTestManager(t)

	_, err := m.Upsert(ctx, upsertInput("owner-1", "a.myshopify.com"))
	require.NoError(t, err)
	_, err = m.Upsert(ctx, upsertInput("owner-1", "b.myshopify.com"))
	require.NoError(t, err)
	_, err = m.Upsert(ctx, upsertInput("owner-2", "a.myshopify.com"))
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&models.ShopIntegration{}).Count(&count).Error)
	assert.Equal(t, int64(3), count)
}

func TestUpsertKeepsMetadataWhenAbsent(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	name := "Demo Shop"
	region := "US"
	in := upsertInput("owner-1", "demo.myshopify.com")
	in.ShopName = &name
	in.ShopRegion = &region
	_, err := m.Upsert(ctx, in)
	require.NoError(t, err)

	// A reconnect without metadata must not erase what we know.
	refreshed, err := m.Upsert(ctx, upsertInput("owner-1", "demo.myshopify.com"))
	require.NoError(t, err)
	require.NotNil(t, refreshed.ShopName)
	assert.Equal(t, "Demo Shop", *refreshed.ShopName)
	require.NotNil(t, refreshed.ShopRegion)
	assert.Equal(t, "US", *refreshed.ShopRegion)
}

func TestTokensEncryptedAtRest(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i + 1)
	}
	vault, err := security.NewVault(base64.StdEncoding.EncodeToString(key))
	require.NoError(t, err)
	m := NewManager(db, vault, logger.New("error"))

	in := upsertInput("owner-1", "demo.myshopify.com")
	in.AccessToken = "shpat_plaintext"
	in.RefreshToken = "refresh_plaintext"
	integ, err := m.Upsert(ctx, in)
	require.NoError(t, err)

	var raw models.ShopIntegration
	require.NoError(t, db.First(&raw, "id = ?", integ.ID).Error)
	assert.NotEqual(t, "shpat_plaintext", raw.AccessToken)
	require.NotNil(t, raw.RefreshToken)
	assert.NotEqual(t, "refresh_plaintext", *raw.RefreshToken)

	token, err := m.AccessToken(&raw)
	require.NoError(t, err)
	assert.Equal(t, "shpat_plaintext", token)
}

func TestDisconnectCascadesListings(t *testing.T) {
	ctx := context.Background()
	m, db := newTestManager(t)

	integ, err := m.Upsert(ctx, upsertInput("owner-1", "demo.myshopify.com"))
	require.NoError(t, err)

	product := models.Product{OwnerID: "owner-1", Name: "Desk Lamp", Price: 25}
	require.NoError(t, db.Create(&product).Error)
	listing := models.ProductListing{
		ProductID:     product.ID,
		IntegrationID: integ.ID,
		Platform:      integ.Platform,
	}
	require.NoError(t, db.Create(&listing).Error)

	require.NoError(t, m.Disconnect(ctx, integ.ID, "owner-1"))

	var listings int64
	require.NoError(t, db.Model(&models.ProductListing{}).Where("integration_id = ?", integ.ID).Count(&listings).Error)
	assert.Equal(t, int64(0), listings)

	_, err = m.Get(ctx, integ.ID, "owner-1")
	require.ErrorIs(t, err, ErrNotFound)

	// The product itself survives the disconnect
	require.NoError(t, db.First(&models.Product{}, "id = ?", product.ID).Error)
}

func TestDisconnectOwnerChecks(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	integ, err := m.Upsert(ctx, upsertInput("owner-1", "demo.myshopify.com"))
	require.NoError(t, err)

	require.ErrorIs(t, m.Disconnect(ctx, integ.ID, "owner-2"), ErrForbidden)
	require.ErrorIs(t, m.Disconnect(ctx, "00000000-0000-0000-0000-00000000dead", "owner-1"), ErrNotFound)

	// The forbidden attempt left the row in place
	_, err = m.Get(ctx, integ.ID, "owner-1")
	require.NoError(t, err)
}

func TestGetOwnerChecks(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	integ, err := m.Upsert(ctx, upsertInput("owner-1", "demo.myshopify.com"))
	require.NoError(t, err)

	_, err = m.Get(ctx, integ.ID, "owner-2")
	require.ErrorIs(t, err, ErrForbidden)
	_, err = m.Get(ctx, "00000000-0000-0000-0000-00000000dead", "owner-1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStatusFlipsExpiredToken(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	past := time.Now().UTC().Add(-time.Hour)
	in := upsertInput("owner-1", "demo.myshopify.com")
	in.TokenExpiresAt = &past
	integ, err := m.Upsert(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, models.IntegrationStatusActive, integ.Status)

	checked, err := m.Status(ctx, integ.ID, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, models.IntegrationStatusExpired, checked.Status)

	// The flip is persisted
	stored, err := m.Get(ctx, integ.ID, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, models.IntegrationStatusExpired, stored.Status)
}

func TestStatusLeavesUnexpiredAlone(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	future := time.Now().UTC().Add(time.Hour)
	in := upsertInput("owner-1", "demo.myshopify.com")
	in.TokenExpiresAt = &future
	integ, err := m.Upsert(ctx, in)
	require.NoError(t, err)

	checked, err := m.Status(ctx, integ.ID, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, models.IntegrationStatusActive, checked.Status)
}

func TestUpdateMetadata(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	integ, err := m.Upsert(ctx, upsertInput("owner-1", "demo.myshopify.com"))
	require.NoError(t, err)
	require.Nil(t, integ.LastSyncedAt)

	name := "Demo Shop"
	region := "SG"
	require.NoError(t, m.UpdateMetadata(ctx, integ.ID, &name, &region))

	updated, err := m.Get(ctx, integ.ID, "owner-1")
	require.NoError(t, err)
	require.NotNil(t, updated.ShopName)
	assert.Equal(t, "Demo Shop", *updated.ShopName)
	require.NotNil(t, updated.ShopRegion)
	assert.Equal(t, "SG", *updated.ShopRegion)
	require.NotNil(t, updated.LastSyncedAt)

	require.ErrorIs(t, m.UpdateMetadata(ctx, "00000000-0000-0000-0000-00000000dead", &name, nil), ErrNotFound)
}

func TestListFiltersByPlatform(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	_, err := m.Upsert(ctx, upsertInput("owner-1", "a.myshopify.com"))
	require.NoError(t, err)
	shopee := upsertInput("owner-1", "12345")
	shopee.Platform = models.PlatformShopee
	_, err = m.Upsert(ctx, shopee)
	require.NoError(t, err)
	_, err = m.Upsert(ctx, upsertInput("owner-2", "b.myshopify.com"))
	require.NoError(t, err)

	all, err := m.List(ctx, "owner-1", "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	onlyShopee, err := m.List(ctx, "owner-1", "shopee")
	require.NoError(t, err)
	require.Len(t, onlyShopee, 1)
	assert.Equal(t, models.PlatformShopee, onlyShopee[0].Platform)
}
