package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/authkit"
)

const resetKeyPrefix = "authkit:reset:"

// ResetStore is a Redis-backed [authkit.ResetStore]. Grants live under a
// single string key whose TTL matches the grant expiry, so Redis garbage
// collects abandoned resets on its own. Consumption is a GETDEL: Redis
// serializes the command, which makes the first caller the only winner.
type ResetStore struct {
	client *redis.Client
}

// NewResetStore wraps an existing Redis client.
func NewResetStore(client *redis.Client) *ResetStore {
	return &ResetStore{client: client}
}

func resetKey(tokenHash string) string { return resetKeyPrefix + tokenHash }

// SaveReset stores the grant with a TTL ending at its expiry.
func (s *ResetStore) SaveReset(ctx context.Context, rec *authkit.ResetRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	err = s.client.Set(ctx, resetKey(rec.TokenHash), data, 0).Err()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	err = s.client.ExpireAt(ctx, resetKey(rec.TokenHash), rec.ExpiresAt).Err()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// ConsumeReset removes and returns the grant atomically.
func (s *ResetStore) ConsumeReset(ctx context.Context, tokenHash string) (*authkit.ResetRecord, error) {
	data, err := s.client.GetDel(ctx, resetKey(tokenHash)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, authkit.ErrResetNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	var rec authkit.ResetRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("reset record corrupt: %w", err)
	}
	return &rec, nil
}
