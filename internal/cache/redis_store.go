package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vnmchuo/pricing-service/internal/pricing"
)

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// NewRedisClient builds a client with short timeouts and a single retry so a
// slow cache degrades to a miss instead of holding the request.
func NewRedisClient(addr, password string, timeout time.Duration) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DialTimeout:  2 * timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
		MaxRetries:   1,
	})
}

func (s *RedisStore) Get(ctx context.Context, key string) (*pricing.Quote, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	} else if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}

	var q pricing.Quote
	if err := q.UnmarshalBinary(data); err != nil {
		// Corrupt payload; drop it so the next request recomputes.
		s.client.Del(ctx, key)
		return nil, fmt.Errorf("decode cached quote %s: %w", key, err)
	}
	return &q, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, quote *pricing.Quote, ttl time.Duration) error {
	stored := *quote
	stored.Cached = false
	if err := s.client.Set(ctx, key, &stored, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
