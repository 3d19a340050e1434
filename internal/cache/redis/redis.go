// Package redis shares cached responses between instances through Redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/JakeFAU/embedscraper/internal/cache"
)

// DefaultPrefix namespaces every key written by the Store.
const DefaultPrefix = "embed:"

// Store is a Redis-backed cache.Cache.
type Store struct {
	client *goredis.Client
	prefix string
}

// New connects to the Redis instance at rawURL (redis://host:port/db).
func New(rawURL string) (*Store, error) {
	opts, err := goredis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewFromClient(goredis.NewClient(opts)), nil
}

// NewFromClient wraps an existing client.
func NewFromClient(client *goredis.Client) *Store {
	return &Store{client: client, prefix: DefaultPrefix}
}

// Get implements cache.Cache.
func (s *Store) Get(ctx context.Context, key string) (*cache.Entry, bool, error) {
	raw, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	e, err := cache.Decode(raw)
	if err != nil {
		return nil, false, err
	}
	return e, true, nil
}

// Set implements cache.Cache.
func (s *Store) Set(ctx context.Context, key string, e *cache.Entry, ttl time.Duration) error {
	raw, err := cache.Encode(e)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.prefix+key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Ping implements cache.Cache.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Name implements cache.Cache.
func (s *Store) Name() string { return "redis" }

// Close implements cache.Cache.
func (s *Store) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("close redis: %w", err)
	}
	return nil
}
