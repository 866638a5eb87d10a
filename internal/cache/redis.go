package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps page text in Redis so several processes can share it.
type RedisStore struct {
	Client *redis.Client
	// TTL expires entries. Zero keeps them until evicted by Redis.
	TTL time.Duration
	// Prefix namespaces keys; defaults to "deepfetch:page:".
	Prefix string
}

// NewRedisStore connects to addr with conservative timeouts.
func NewRedisStore(addr string, ttl time.Duration) *RedisStore {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	return &RedisStore{Client: rdb, TTL: ttl}
}

func (s *RedisStore) key(url string) string {
	p := s.Prefix
	if p == "" {
		p = "deepfetch:page:"
	}
	return p + KeyFrom(url)
}

// Ping tests the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, url string) (string, bool, error) {
	v, err := s.Client.Get(ctx, s.key(url)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *RedisStore) Set(ctx context.Context, url string, text string) error {
	return s.Client.Set(ctx, s.key(url), text, s.TTL).Err()
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	if s.Client != nil {
		return s.Client.Close()
	}
	return nil
}
