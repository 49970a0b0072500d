package oauth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"shoplink/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newTestDB opens a private in-memory database for one test. A single pooled
// connection keeps SQLite happy under concurrent access.
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

func TestDBStateStoreIssueAndConsume(t *testing.T) {
	ctx := context.Background()
	store := NewDBStateStore(newTestDB(t), 10*time.Minute)

	token, err := store.Issue(ctx, "owner-1", models.PlatformShopify, "demo.myshopify.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Len(t, token, 43) // 32 bytes, base64url without padding

	data, err := store.Consume(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "owner-1", data.OwnerID)
	assert.Equal(t, models.PlatformShopify, data.Platform)
	assert.Equal(t, "demo.myshopify.com", data.ShopDomain)

	// Consumed tokens are gone
	_, err = store.Consume(ctx, token)
	require.ErrorIs(t, err, ErrStateNotFound)
}

func TestDBStateStoreUnknownToken(t *testing.T) {
	store := NewDBStateStore(newTestDB(t), 10*time.Minute)

	_, err := store.Consume(context.Background(), "never-issued")
	require.ErrorIs(t, err, ErrStateNotFound)
}

func TestDBStateStoreExpiredToken(t *testing.T) {
	ctx := context.Background()
	store := NewDBStateStore(newTestDB(t), time.Millisecond)

	token, err := store.Issue(ctx, "owner-1", models.PlatformShopify, "demo.myshopify.com")
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	_, err = store.Consume(ctx, token)
	require.ErrorIs(t, err, ErrStateExpired)

	// Expiry consumed the token too
	_, err = store.Consume(ctx, token)
	require.ErrorIs(t, err, ErrStateNotFound)
}

func TestDBStateStoreConcurrentConsumeSingleWinner(t *testing.T) {
	ctx := context.Background()
	store := NewDBStateStore(newTestDB(t), 10*time.Minute)

	token, err := store.Issue(ctx, "owner-1", models.PlatformShopify, "demo.myshopify.com")
	require.NoError(t, err)

	const attempts = 8
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Consume(ctx, token)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	winners := 0
	for err := range results {
		if err == nil {
			winners++
		} else {
			require.ErrorIs(t, err, ErrStateNotFound)
		}
	}
	assert.Equal(t, 1, winners)
}

func TestDBStateStorePurgeExpired(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	short := NewDBStateStore(db, time.Millisecond)
	long := NewDBStateStore(db, 10*time.Minute)

	_, err := short.Issue(ctx, "owner-1", models.PlatformShopify, "a.myshopify.com")
	require.NoError(t, err)
	_, err = short.Issue(ctx, "owner-1", models.PlatformShopee, "")
	require.NoError(t, err)
	live, err := long.Issue(ctx, "owner-2", models.PlatformShopify, "b.myshopify.com")
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	purged, err := long.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), purged)

	// The live token survives the purge
	_, err = long.Consume(ctx, live)
	require.NoError(t, err)
}

func TestStateTokensAreUnique(t *testing.T) {
	ctx := context.Background()
	store := NewDBStateStore(newTestDB(t), 10*time.Minute)

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		token, err := store.Issue(ctx, "owner-1", models.PlatformShopify, "demo.myshopify.com")
		require.NoError(t, err)
		require.False(t, seen[token])
		seen[token] = true
	}
}
