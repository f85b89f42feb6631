package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/utafrali/storefront-checkout/pkg/errors"
)

const defaultKeyPrefix = "checkout:wizard:"

// Store keeps wizard state in Redis. Every write refreshes the TTL so an
// abandoned wizard eventually disappears.
type Store struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

// New returns a Redis store. A zero ttl keeps keys forever; an empty prefix
// uses "checkout:wizard:".
func New(client redis.Cmdable, prefix string, ttl time.Duration) *Store {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &Store{client: client, prefix: prefix, ttl: ttl}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.NotFound("wizard state", key)
		}
		return nil, fmt.Errorf("redis get wizard state: %w", err)
	}
	return data, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, s.prefix+key, value, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set wizard state: %w", err)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del wizard state: %w", err)
	}
	return nil
}
