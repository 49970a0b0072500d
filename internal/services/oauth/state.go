package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"shoplink/internal/models"

	"gorm.io/gorm"
)

// StateData is what a consumed state token proves: which merchant started a
// connect flow, for which platform and shop.
type StateData struct {
	OwnerID    string
	Platform   models.Platform
	ShopDomain string
}

// StateStore issues and consumes single-use OAuth state tokens.
type StateStore interface {
	Issue(ctx context.Context, ownerID string, platform models.Platform, shopDomain string) (string, error)
	Consume(ctx context.Context, token string) (StateData, error)
	PurgeExpired(ctx context.Context) (int64, error)
}

// DBStateStore keeps state tokens in the relational database. Consume is a
// single DELETE ... RETURNING, so concurrent callers presenting the same
// token resolve to exactly one winner.
type DBStateStore struct {
	db  *gorm.DB
	ttl time.Duration
}

var _ StateStore = (*DBStateStore)(nil)

func NewDBStateStore(db *gorm.DB, ttl time.Duration) *DBStateStore {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &DBStateStore{db: db, ttl: ttl}
}

func (s *DBStateStore) Issue(ctx context.Context, ownerID string, platform models.Platform, shopDomain string) (string, error) {
	token, err := newStateToken()
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	state := models.OAuthState{
		OwnerID:    ownerID,
		Token:      token,
		Platform:   platform,
		ShopDomain: shopDomain,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.ttl),
	}
	if err := s.db.WithContext(ctx).Create(&state).Error; err != nil {
		return "", fmt.Errorf("failed to persist state: %w", err)
	}
	return token, nil
}

func (s *DBStateStore) Consume(ctx context.Context, token string) (StateData, error) {
	var row models.OAuthState
	res := s.db.WithContext(ctx).Raw(
		"DELETE FROM oauth_states WHERE token = ? RETURNING owner_id, platform, shop_domain, expires_at",
		token,
	).Scan(&row)
	if res.Error != nil {
		return StateData{}, fmt.Errorf("failed to consume state: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return StateData{}, ErrStateNotFound
	}
	if time.Now().After(row.ExpiresAt) {
		return StateData{}, ErrStateExpired
	}
	return StateData{OwnerID: row.OwnerID, Platform: row.Platform, ShopDomain: row.ShopDomain}, nil
}

func (s *DBStateStore) PurgeExpired(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires_at < ?", time.Now().UTC()).Delete(&models.OAuthState{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to purge expired states: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// newStateToken returns 32 random bytes as base64url, 256 bits of entropy.
func newStateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate state token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
