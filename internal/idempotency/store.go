// Package idempotency lets a ledger append be retried safely. The first
// request with a given key reserves it; once it succeeds the key maps to the
// created entry, and later requests with the same key are answered with that
// entry instead of appending a duplicate.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix     = "brokerage:idem:ledger:"
	pendingMarker = "pending"
)

// ErrInFlight is returned when another request holding the same key has not finished yet.
var ErrInFlight = errors.New("idempotency key is in flight")

// NewClient connects to Redis at url. It returns nil, nil when url is empty,
// which disables idempotent replay.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// Store is a Redis-backed idempotency key registry. A nil *Store is valid
// and treats every request as new.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore returns a Store, or nil when client is nil.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	if client == nil {
		return nil
	}
	return &Store{client: client, ttl: ttl}
}

func redisKey(scope, key string) string {
	return keyPrefix + scope + ":" + key
}

// Reserve claims key within scope. It returns the ID recorded by a previous
// successful request, or "" when the caller now owns the key and must call
// Complete or Release. ErrInFlight means an earlier request still owns it.
func (s *Store) Reserve(ctx context.Context, scope, key string) (string, error) {
	if s == nil || key == "" {
		return "", nil
	}

	rk := redisKey(scope, key)
	ok, err := s.client.SetNX(ctx, rk, pendingMarker, s.ttl).Result()
	if err != nil {
		return "", fmt.Errorf("reserve idempotency key: %w", err)
	}
	if ok {
		return "", nil
	}

	existing, err := s.client.Get(ctx, rk).Result()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET; try once more
		ok, err = s.client.SetNX(ctx, rk, pendingMarker, s.ttl).Result()
		if err != nil {
			return "", fmt.Errorf("reserve idempotency key: %w", err)
		}
		if ok {
			return "", nil
		}
		return "", ErrInFlight
	}
	if err != nil {
		return "", fmt.Errorf("read idempotency key: %w", err)
	}
	if existing == pendingMarker {
		return "", ErrInFlight
	}
	return existing, nil
}

// Complete records id as the result for key.
func (s *Store) Complete(ctx context.Context, scope, key, id string) error {
	if s == nil || key == "" {
		return nil
	}
	if err := s.client.Set(ctx, redisKey(scope, key), id, s.ttl).Err(); err != nil {
		return fmt.Errorf("complete idempotency key: %w", err)
	}
	return nil
}

// Release frees key so that a failed request can be retried.
func (s *Store) Release(ctx context.Context, scope, key string) error {
	if s == nil || key == "" {
		return nil
	}
	if err := s.client.Del(ctx, redisKey(scope, key)).Err(); err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}
