package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"shoplink/internal/models"

	"github.com/redis/go-redis/v9"
)

const statePrefix = "oauth:state:"

// RedisStateStore keeps state tokens in Redis with a TTL. Consume uses
// GETDEL, so the read-and-delete is one atomic command. Expired keys vanish
// on their own, which means an expired token is reported as not found; both
// end the flow the same way.
type RedisStateStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

var _ StateStore = (*RedisStateStore)(nil)

func NewRedisStateStore(client redis.UniversalClient, ttl time.Duration) *RedisStateStore {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisStateStore{client: client, ttl: ttl}
}

type redisStatePayload struct {
	OwnerID    string          `json:"owner_id"`
	Platform   models.Platform `json:"platform"`
	ShopDomain string          `json:"shop_domain"`
}

func (s *RedisStateStore) Issue(ctx context.Context, ownerID string, platform models.Platform, shopDomain string) (string, error) {
	token, err := newStateToken()
	if err != nil {
		return "", err
	}

	payload, err := json.Marshal(redisStatePayload{
		OwnerID:    ownerID,
		Platform:   platform,
		ShopDomain: shopDomain,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal state: %w", err)
	}
	if err := s.client.Set(ctx, statePrefix+token, payload, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to persist state: %w", err)
	}
	return token, nil
}

func (s *RedisStateStore) Consume(ctx context.Context, token string) (StateData, error) {
	bytes, err := s.client.GetDel(ctx, statePrefix+token).Bytes()
	if err != nil {
		if err == redis.Nil {
			return StateData{}, ErrStateNotFound
		}
		return StateData{}, fmt.Errorf("failed to consume state: %w", err)
	}

	var payload redisStatePayload
	if err := json.Unmarshal(bytes, &payload); err != nil {
		return StateData{}, fmt.Errorf("failed to decode state: %w", err)
	}
	return StateData{OwnerID: payload.OwnerID, Platform: payload.Platform, ShopDomain: payload.ShopDomain}, nil
}

// PurgeExpired is a no-op: Redis expires keys by TTL.
func (s *RedisStateStore) PurgeExpired(ctx context.Context) (int64, error) {
	return 0, nil
}
