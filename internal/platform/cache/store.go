package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("platform/cache: miss")

// Store is a byte-oriented key/value store backed by Redis. Expiry is
// enforced by Redis itself.
type Store struct {
	client redis.Cmdable
}

// NewStore wraps a Redis client.
func NewStore(client redis.Cmdable) *Store {
	return &Store{client: client}
}

// Get returns the raw value stored under key, or ErrMiss.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	payload, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("platform/cache: get %s: %w", key, err)
	}
	return payload, nil
}

// Set stores value under key with the given time-to-live.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("platform/cache: set %s: %w", key, err)
	}
	return nil
}

// Del removes key. Deleting an absent key is not an error.
func (s *Store) Del(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("platform/cache: del %s: %w", key, err)
	}
	return nil
}
