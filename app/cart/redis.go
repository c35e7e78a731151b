package cart

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Store clears a buyer's session cart after a successful synchronous payment.
// Carts are owned by the storefront; this service only ever deletes them.
type Store interface {
	Clear(ctx context.Context, sessionID string) error
}

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func NewRedisClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

func (s *RedisStore) Clear(ctx context.Context, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil
	}
	return s.client.Del(ctx, cartKey(sessionID)).Err()
}

func cartKey(sessionID string) string {
	return "cart:" + sessionID
}
