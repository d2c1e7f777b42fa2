package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/facilityops/facility-system/internal/core/domain"
)

const refreshKeyPrefix = "refresh:"

// RefreshStore keeps refresh-token hashes in Redis so revocation and expiry
// are handled by key TTLs. The value is the owning user id.
type RefreshStore struct {
	client *redis.Client
}

func NewRefreshStore(client *redis.Client) *RefreshStore {
	return &RefreshStore{client: client}
}

func (s *RefreshStore) Save(ctx context.Context, hash, userID string, ttlSeconds int) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	ttl := time.Duration(ttlSeconds) * time.Second
	if err := s.client.Set(ctx, refreshKeyPrefix+hash, userID, ttl).Err(); err != nil {
		return fmt.Errorf("save refresh token: %w", err)
	}
	return nil
}

func (s *RefreshStore) Lookup(ctx context.Context, hash string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	userID, err := s.client.Get(ctx, refreshKeyPrefix+hash).Result()
	if errors.Is(err, redis.Nil) {
		return "", domain.ErrInvalidRefreshToken
	}
	if err != nil {
		return "", fmt.Errorf("lookup refresh token: %w", err)
	}
	return userID, nil
}

func (s *RefreshStore) Delete(ctx context.Context, hash string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := s.client.Del(ctx, refreshKeyPrefix+hash).Err(); err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	return nil
}
