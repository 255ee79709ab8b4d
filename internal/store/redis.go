package store

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"

	"github.com/go-redis/redis/v8"

	"github.com/plugboard/plugboard/internal/errors"
	"github.com/plugboard/plugboard/pkg/extension"
)

func init() {
	extension.Default.MustContribute(ProvidersPoint, extension.Extension{
		Source: "internal/store",
		Attributes: map[string]string{
			extension.AliasAttribute: "redis",
			"description":            "Redis store",
		},
		Factory: func() interface{} { return RedisProvider{} },
	})
}

// RedisProvider opens Redis-backed stores. The DSN is a redis:// URL.
type RedisProvider struct{}

// Open connects to the Redis instance named by dsn and verifies it answers.
func (RedisProvider) Open(ctx context.Context, dsn string) (Store, error) {
	opts, err := redis.ParseURL(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// RedisStore stores entries as plain Redis keys.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Get returns the value stored under key.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, key).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return nil, errors.NotFound("key", key)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get %s: %w", key, err)
	}
	return value, nil
}

// Put stores value under key without expiry.
func (s *RedisStore) Put(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("store: put %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting an absent key is a no-op.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("store: delete %s: %w", key, err)
	}
	return nil
}

// List returns all keys with the given prefix, sorted.
func (s *RedisStore) List(ctx context.Context, prefix string) ([]string, error) {
	keys := []string{}
	iter := s.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("store: list %s: %w", prefix, err)
	}
	sort.Strings(keys)
	return keys, nil
}

// Health pings the server.
func (s *RedisStore) Health(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("store: ping: %w", err)
	}
	return nil
}

// Close releases the client.
func (s *RedisStore) Close(_ context.Context) error {
	return s.client.Close()
}
