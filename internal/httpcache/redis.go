package httpcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisStorage struct {
	client *redis.Client
	prefix string
}

func NewRedisStorage(client *redis.Client, prefix string) *RedisStorage {
	return &RedisStorage{client: client, prefix: prefix}
}

// NewRedisStorageFromURL parses a redis:// URL and connects lazily.
func NewRedisStorageFromURL(u string) (*RedisStorage, error) {
	opts, err := redis.ParseURL(u)
	if err != nil {
		return nil, fmt.Errorf("httpcache.NewRedisStorageFromURL: %w", err)
	}

	return NewRedisStorage(redis.NewClient(opts), "httpcache:"), nil
}

func (s *RedisStorage) Close() error { return s.client.Close() }

func (s *RedisStorage) Fetch(ctx context.Context, key string) (*Entry, error) {
	d, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}

		return nil, fmt.Errorf("httpcache.RedisStorage.Fetch: %w", err)
	}

	e, err := decodeEntry(d)
	if err != nil {
		return nil, fmt.Errorf("httpcache.RedisStorage.Fetch: could not decode entry: %w", err)
	}

	return e, nil
}

// Save stores the entry with maxAge as its expiry, so redis evicts stale
// entries on its own.
func (s *RedisStorage) Save(ctx context.Context, key string, e *Entry, maxAge time.Duration) error {
	d, err := e.encode()
	if err != nil {
		return fmt.Errorf("httpcache.RedisStorage.Save: could not encode entry: %w", err)
	}

	if err := s.client.Set(ctx, s.prefix+key, d, maxAge).Err(); err != nil {
		return fmt.Errorf("httpcache.RedisStorage.Save: %w", err)
	}

	return nil
}
