package repositories

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const otpKeyPrefix = "otp:"

// otpStore keeps phone one-time passwords in Redis
// Each phone has one hash {code, attempts} that expires with the code
type otpStore struct {
	rdb *redis.Client
}

// NewOTPStore creates a new OTP store
func NewOTPStore(rdb *redis.Client) *otpStore {
	return &otpStore{rdb: rdb}
}

// Save replaces the pending code of a phone and resets its attempt counter
func (s *otpStore) Save(ctx context.Context, phone, code string, ttl time.Duration) error {
	key := otpKeyPrefix + phone
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, "code", code, "attempts", 0)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save otp: %w", err)
	}
	return nil
}

// Verify checks a code against the pending one.
// A match consumes the code; after maxAttempts mismatches the code is discarded.
func (s *otpStore) Verify(ctx context.Context, phone, code string, maxAttempts int) (bool, error) {
	key := otpKeyPrefix + phone
	stored, err := s.rdb.HGet(ctx, key, "code").Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read otp: %w", err)
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(code)) == 1 {
		if err := s.rdb.Del(ctx, key).Err(); err != nil {
			return false, fmt.Errorf("failed to consume otp: %w", err)
		}
		return true, nil
	}

	attempts, err := s.rdb.HIncrBy(ctx, key, "attempts", 1).Result()
	if err != nil {
		return false, fmt.Errorf("failed to count otp attempt: %w", err)
	}
	if attempts >= int64(maxAttempts) {
		if err := s.rdb.Del(ctx, key).Err(); err != nil {
			return false, fmt.Errorf("failed to discard otp: %w", err)
		}
	}
	return false, nil
}
