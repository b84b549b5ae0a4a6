package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on top of go-redis
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a Redis client from a URL and verifies the connection.
// URL format: redis://[:password@]host:port[/db] or rediss:// for TLS
func NewRedisStore(ctx context.Context, redisURL, prefix string, dialTimeout time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	if dialTimeout > 0 {
		opts.DialTimeout = dialTimeout
	}

	return NewRedisStoreWithClient(ctx, redis.NewClient(opts), prefix)
}

// NewRedisStoreWithClient wraps an existing client. The client is closed if the ping fails.
func NewRedisStoreWithClient(ctx context.Context, client *redis.Client, prefix string) (*RedisStore, error) {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return &RedisStore{client: client, prefix: prefix}, nil
}

func (r *RedisStore) key(k string) string {
	return r.prefix + k
}

// Get retrieves a value from Redis
func (r *RedisStore) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return val, err
}

// Set stores a value in Redis without expiry
func (r *RedisStore) Set(ctx context.Context, key, value string) error {
	return r.client.Set(ctx, r.key(key), value, 0).Err()
}

// Delete deletes a key from Redis
func (r *RedisStore) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.key(key)).Err()
}

// Ping tests the Redis connection
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (r *RedisStore) Close() error {
	return r.client.Close()
}
