package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/authkit/token"
)

// ErrRedisUnavailable wraps transport-level Redis failures so callers can
// distinguish backend outages from domain errors.
var ErrRedisUnavailable = errors.New("redis unavailable")

const (
	refreshKeyPrefix  = "authkit:rt:"
	identityKeyPrefix = "authkit:rt:ident:"
	sessionKeyPrefix  = "authkit:rt:sess:"
	revokedKeyPrefix  = "authkit:revoked:"
)

const (
	consumeStatusNotFound int64 = 0
	consumeStatusRevoked  int64 = 1
	consumeStatusConsumed int64 = 2
)

// consumeRefreshScript marks the record revoked and returns the blob as it
// was before the mark. Exactly one concurrent caller gets status 2.
const consumeRefreshScript = `
local revoked = redis.call("HGET", KEYS[1], "revoked")
if revoked == false then
  return {0}
end
if revoked == "1" then
  return {1}
end
redis.call("HSET", KEYS[1], "revoked", "1")
return {2, redis.call("HGET", KEYS[1], "data")}
`

var consumeRefreshLua = redis.NewScript(consumeRefreshScript)

// revokeSetScript revokes every refresh token listed in the index set.
const revokeSetScript = `
local ids = redis.call("SMEMBERS", KEYS[1])
for _, id in ipairs(ids) do
  redis.call("HSET", ARGV[1] .. id, "revoked", "1")
end
redis.call("DEL", KEYS[1])
return #ids
`

var revokeSetLua = redis.NewScript(revokeSetScript)

// TokenStore is a Redis-backed [token.Store]. Refresh records live in
// hashes keyed by token id with per-identity and per-session index sets
// for bulk revocation; access token revocations are plain keys expiring
// at the token's own deadline.
type TokenStore struct {
	client *redis.Client
}

// NewTokenStore wraps an existing Redis client. The store does not own
// the client's lifecycle.
func NewTokenStore(client *redis.Client) *TokenStore {
	return &TokenStore{client: client}
}

func refreshKey(tokenID string) string { return refreshKeyPrefix + tokenID }
func identityKey(id string) string     { return identityKeyPrefix + id }
func sessionKey(id string) string      { return sessionKeyPrefix + id }
func revokedJTIKey(jti string) string  { return revokedKeyPrefix + jti }

func (s *TokenStore) SaveRefreshToken(ctx context.Context, rec *token.RefreshTokenRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: %v", token.ErrRecordCorrupt, err)
	}

	revoked := "0"
	if rec.Revoked {
		revoked = "1"
	}

	key := refreshKey(rec.TokenID)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, "data", data, "revoked", revoked)
	pipe.ExpireAt(ctx, key, rec.ExpiresAt)
	pipe.SAdd(ctx, identityKey(rec.IdentityID), rec.TokenID)
	pipe.ExpireAt(ctx, identityKey(rec.IdentityID), rec.ExpiresAt)
	if rec.SessionID != "" {
		pipe.SAdd(ctx, sessionKey(rec.SessionID), rec.TokenID)
		pipe.ExpireAt(ctx, sessionKey(rec.SessionID), rec.ExpiresAt)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (s *TokenStore) GetRefreshToken(ctx context.Context, tokenID string) (*token.RefreshTokenRecord, error) {
	vals, err := s.client.HMGet(ctx, refreshKey(tokenID), "data", "revoked").Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if vals[0] == nil {
		return nil, token.ErrRefreshNotFound
	}
	rec, err := decodeRefreshRecord(vals[0])
	if err != nil {
		return nil, err
	}
	rec.Revoked = vals[1] == "1"
	return rec, nil
}

func (s *TokenStore) ConsumeRefreshToken(ctx context.Context, tokenID string) (*token.RefreshTokenRecord, error) {
	res, err := consumeRefreshLua.Run(ctx, s.client, []string{refreshKey(tokenID)}).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	reply, ok := res.([]interface{})
	if !ok || len(reply) == 0 {
		return nil, fmt.Errorf("%w: unexpected script reply", token.ErrRecordCorrupt)
	}
	status, _ := reply[0].(int64)
	switch status {
	case consumeStatusNotFound:
		return nil, token.ErrRefreshNotFound
	case consumeStatusRevoked:
		return nil, token.ErrRefreshRevoked
	case consumeStatusConsumed:
		if len(reply) < 2 {
			return nil, fmt.Errorf("%w: missing record payload", token.ErrRecordCorrupt)
		}
		return decodeRefreshRecord(reply[1])
	default:
		return nil, fmt.Errorf("%w: unknown consume status %d", token.ErrRecordCorrupt, status)
	}
}

func (s *TokenStore) RevokeRefreshToken(ctx context.Context, tokenID string) error {
	// HSET on a missing key would resurrect it as a bare hash; only mark
	// records that exist.
	const script = `
if redis.call("EXISTS", KEYS[1]) == 1 then
  redis.call("HSET", KEYS[1], "revoked", "1")
end
return 1
`
	if err := s.client.Eval(ctx, script, []string{refreshKey(tokenID)}).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (s *TokenStore) RevokeTokensByIdentity(ctx context.Context, identityID string) error {
	return s.revokeIndexed(ctx, identityKey(identityID))
}

func (s *TokenStore) RevokeTokensBySession(ctx context.Context, sessionID string) error {
	return s.revokeIndexed(ctx, sessionKey(sessionID))
}

func (s *TokenStore) revokeIndexed(ctx context.Context, indexKey string) error {
	if err := revokeSetLua.Run(ctx, s.client, []string{indexKey}, refreshKeyPrefix).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (s *TokenStore) RevokeJTI(ctx context.Context, jti string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		// The token is already past its expiry; nothing to block.
		return nil
	}
	if err := s.client.Set(ctx, revokedJTIKey(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (s *TokenStore) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := s.client.Exists(ctx, revokedJTIKey(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n > 0, nil
}

func decodeRefreshRecord(raw interface{}) (*token.RefreshTokenRecord, error) {
	var data []byte
	switch v := raw.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return nil, fmt.Errorf("%w: unexpected payload type %T", token.ErrRecordCorrupt, raw)
	}
	var rec token.RefreshTokenRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", token.ErrRecordCorrupt, err)
	}
	return &rec, nil
}
