package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds the connection settings for RedisStore
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	Timeout  time.Duration
}

// RedisStore implements Store on top of a Redis server. Keys are namespaced
// with Prefix so several clients can share one database.
type RedisStore struct {
	client  *redis.Client
	prefix  string
	timeout time.Duration
}

// NewRedisStore connects to Redis and verifies the connection with PING
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.Timeout,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	return newRedisStore(client, cfg.Prefix, cfg.Timeout), nil
}

func newRedisStore(client *redis.Client, prefix string, timeout time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, timeout: timeout}
}

func (s *RedisStore) key(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + ":" + key
}

func (s *RedisStore) Get(key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return data, err
}

func (s *RedisStore) Put(key string, data []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.client.Set(ctx, s.key(key), data, 0).Err()
}

func (s *RedisStore) Delete(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.client.Del(ctx, s.key(key)).Err()
}

// Close closes the underlying connection pool
func (s *RedisStore) Close() error {
	return s.client.Close()
}
