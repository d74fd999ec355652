package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// oneTimeStore keeps short-lived JSON values in Redis that can be read exactly once
// It backs OAuth state and the one-time codes handed to the site after a callback
type oneTimeStore struct {
	rdb    *redis.Client
	prefix string
}

// NewOneTimeStore creates a store whose keys start with prefix
func NewOneTimeStore(rdb *redis.Client, prefix string) *oneTimeStore {
	return &oneTimeStore{rdb: rdb, prefix: prefix}
}

// Put stores value under key until ttl elapses
func (s *oneTimeStore) Put(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s value: %w", s.prefix, err)
	}
	if err := s.rdb.Set(ctx, s.prefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store %s value: %w", s.prefix, err)
	}
	return nil
}

// Take reads and deletes the value under key into dest
// ErrNotFound is returned for unknown, expired or already taken keys
func (s *oneTimeStore) Take(ctx context.Context, key string, dest any) error {
	data, err := s.rdb.GetDel(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to take %s value: %w", s.prefix, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to decode %s value: %w", s.prefix, err)
	}
	return nil
}
