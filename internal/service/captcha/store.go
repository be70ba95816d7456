package captcha

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Store keeps the hashed answer of a pending challenge until it is taken.
type Store interface {
	Save(ctx context.Context, id uuid.UUID, hash []byte, ttl time.Duration) error
	// Take returns the stored hash and removes it in one step.
	Take(ctx context.Context, id uuid.UUID) ([]byte, bool, error)
}

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func storeKey(id uuid.UUID) string {
	return "captcha:" + id.String()
}

func (s *RedisStore) Save(ctx context.Context, id uuid.UUID, hash []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, storeKey(id), hash, ttl).Err(); err != nil {
		return fmt.Errorf("save captcha: %w", err)
	}
	return nil
}

func (s *RedisStore) Take(ctx context.Context, id uuid.UUID) ([]byte, bool, error) {
	hash, err := s.client.GetDel(ctx, storeKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("take captcha: %w", err)
	}
	return hash, true, nil
}
