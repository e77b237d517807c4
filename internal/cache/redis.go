package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Lernia/authgate/internal/config"
	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on top of a redis client
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a redis-backed Store and verifies connectivity.
// It performs a Ping with a 5-second timeout and returns an error if the
// initial connectivity test fails.
func NewRedisStore(cfg *config.RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	slog.Info("Redis connected successfully", "address", cfg.Address())
	return &RedisStore{client: client}, nil
}

// Get retrieves a value, returning ErrCacheMiss when the key is absent
func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCacheMiss
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// Set stores a value with the given TTL
func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

// Delete removes a key; missing keys are not an error
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

// Close closes the underlying redis client
func (s *RedisStore) Close() error {
	return s.client.Close()
}
