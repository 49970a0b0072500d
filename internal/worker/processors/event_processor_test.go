package processors

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"shoplink/internal/config"
	"shoplink/internal/events"
	"shoplink/internal/logger"
	"shoplink/internal/models"
	"shoplink/internal/security"
	"shoplink/internal/services/enrich"
	"shoplink/internal/services/integrations"
	"shoplink/internal/services/oauth"

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
		&models.OAuthState{},
		&models.ShopIntegration{},
		&models.Product{},
		&models.ProductListing{},
		&models.EnrichmentLog{},
		&models.MerchantSettings{},
	))
	return db
}

type processorFixture struct {
	db        *gorm.DB
	manager   *integrations.Manager
	states    oauth.StateStore
	processor *EventProcessor
}

func newProcessorFixture(t *testing.T) *processorFixture {
	t.Helper()
	db := newTestDB(t)
	vault, err := security.NewVault("")
	require.NoError(t, err)
	log := logger.New("error")
	manager := integrations.NewManager(db, vault, log)
	states := oauth.NewDBStateStore(db, 10*time.Minute)
	enricher := enrich.New(db, &config.Config{}, log)
	return &processorFixture{
		db:        db,
		manager:   manager,
		states:    states,
		processor: NewEventProcessor(db, manager, states, oauth.NewStubExchanger(), enricher, log),
	}
}

func TestProcessShopConnectedSyncsMetadata(t *testing.T) {
	ctx := context.Background()
	f := newProcessorFixture(t)

	integ, err := f.manager.Upsert(ctx, integrations.UpsertInput{
		OwnerID:        "owner-1",
		Platform:       models.PlatformShopify,
		ExternalShopID: "demo.myshopify.com",
		AccessToken:    "shpat_token",
	})
	require.NoError(t, err)
	require.Nil(t, integ.LastSyncedAt)

	err = f.processor.Process(ctx, events.Event{
		Type:          events.TypeShopConnected,
		OwnerID:       "owner-1",
		IntegrationID: integ.ID,
	})
	require.NoError(t, err)

	synced, err := f.manager.Get(ctx, integ.ID, "owner-1")
	require.NoError(t, err)
	require.NotNil(t, synced.LastSyncedAt)
	require.NotNil(t, synced.ShopName)
	assert.Equal(t, "demo", *synced.ShopName)
}

func TestProcessShopConnectedGoneIntegration(t *testing.T) {
	f := newProcessorFixture(t)

	err := f.processor.Process(context.Background(), events.Event{
		Type:          events.TypeShopConnected,
		OwnerID:       "owner-1",
		IntegrationID: "00000000-0000-0000-0000-00000000dead",
	})
	require.NoError(t, err)
}

func TestProcessShopDisconnectedPurgesStates(t *testing.T) {
	ctx := context.Background()
	f := newProcessorFixture(t)

	short := oauth.NewDBStateStore(f.db, time.Millisecond)
	_, err := short.Issue(ctx, "owner-1", models.PlatformShopify, "a.myshopify.com")
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)

	err = f.processor.Process(ctx, events.Event{
		Type:    events.TypeShopDisconnected,
		OwnerID: "owner-1",
	})
	require.NoError(t, err)

	var remaining int64
	require.NoError(t, f.db.Model(&models.OAuthState{}).Count(&remaining).Error)
	assert.Equal(t, int64(0), remaining)
}

func TestProcessProductCreatedAutoEnriches(t *testing.T) {
	ctx := context.Background()
	f := newProcessorFixture(t)

	require.NoError(t, f.db.Create(&models.MerchantSettings{
		OwnerID:    "owner-1",
		AutoEnrich: true,
	}).Error)
	product := models.Product{
		OwnerID:   "owner-1",
		Name:      "Desk Lamp",
		Price:     25,
		Currency:  "USD",
		Condition: models.ProductConditionNew,
		Status:    models.ProductStatusDraft,
	}
	require.NoError(t, f.db.Create(&product).Error)

	err := f.processor.Process(ctx, events.Event{
		Type:      events.TypeProductCreated,
		OwnerID:   "owner-1",
		ProductID: product.ID,
	})
	require.NoError(t, err)

	var enriched models.Product
	require.NoError(t, f.db.First(&enriched, "id = ?", product.ID).Error)
	assert.True(t, enriched.AIEnriched)
	assert.Equal(t, models.ProductStatusReady, enriched.Status)
	require.NotNil(t, enriched.Description)
}

func TestProcessProductCreatedRespectsOptOut(t *testing.T) {
	ctx := context.Background()
	f := newProcessorFixture(t)

	require.NoError(t, f.db.Create(&models.MerchantSettings{
		OwnerID:    "owner-1",
		AutoEnrich: false,
	}).Error)
	product := models.Product{
		OwnerID:  "owner-1",
		Name:     "Desk Lamp",
		Price:    25,
		Currency: "USD",
	}
	require.NoError(t, f.db.Create(&product).Error)

	err := f.processor.Process(ctx, events.Event{
		Type:      events.TypeProductCreated,
		OwnerID:   "owner-1",
		ProductID: product.ID,
	})
	require.NoError(t, err)

	var stored models.Product
	require.NoError(t, f.db.First(&stored, "id = ?", product.ID).Error)
	assert.False(t, stored.AIEnriched)
}

func TestProcessProductCreatedWithoutSettings(t *testing.T) {
	f := newProcessorFixture(t)

	err := f.processor.Process(context.Background(), events.Event{
		Type:      events.TypeProductCreated,
		OwnerID:   "owner-1",
		ProductID: "00000000-0000-0000-0000-00000000dead",
	})
	require.NoError(t, err)
}

func TestProcessIgnoresUnknownEventTypes(t *testing.T) {
	f := newProcessorFixture(t)

	err := f.processor.Process(context.Background(), events.Event{
		Type:    "something.else",
		OwnerID: "owner-1",
	})
	require.NoError(t, err)
}
