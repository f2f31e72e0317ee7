package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	authkit "github.com/MrEthical07/authkit"
)

const (
	clientKeyPrefix   = "authkit:client:"
	codeKeyPrefix     = "authkit:code:"
	deviceKeyPrefix   = "authkit:device:"
	userCodeKeyPrefix = "authkit:device:user:"
)

// expiredGrantGrace keeps a grant's key alive past its deadline so an
// expired grant still answers "expired" rather than "not found" for a
// short window.
const expiredGrantGrace = 5 * time.Minute

/* ==== Clients ==== */

// ClientStore is a Redis-backed OAuth2 client registry.
type ClientStore struct {
	client *redis.Client
}

func NewClientStore(client *redis.Client) *ClientStore {
	return &ClientStore{client: client}
}

// Register persists or overwrites a client registration.
func (s *ClientStore) Register(ctx context.Context, client *authkit.OAuthClient) error {
	data, err := json.Marshal(client)
	if err != nil {
		return fmt.Errorf("client encode: %w", err)
	}
	if err := s.client.Set(ctx, clientKeyPrefix+client.ID, data, 0).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (s *ClientStore) GetClient(ctx context.Context, clientID string) (*authkit.OAuthClient, error) {
	data, err := s.client.Get(ctx, clientKeyPrefix+clientID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, authkit.ErrClientInvalid
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	var client authkit.OAuthClient
	if err := json.Unmarshal(data, &client); err != nil {
		return nil, fmt.Errorf("client decode: %w", err)
	}
	return &client, nil
}

/* ==== Authorization codes ==== */

// consumeCodeScript transitions an authorized code to redeemed. Status 0
// is not found, 1 is wrong state, 2 carries the record.
const consumeCodeScript = `
local state = redis.call("HGET", KEYS[1], "state")
if state == false then
  return {0}
end
if state ~= ARGV[1] then
  return {1}
end
redis.call("HSET", KEYS[1], "state", ARGV[2])
return {2, redis.call("HGET", KEYS[1], "data")}
`

var consumeCodeLua = redis.NewScript(consumeCodeScript)

// CodeStore is a Redis-backed [authkit.AuthorizationCodeStore].
type CodeStore struct {
	client *redis.Client
}

func NewCodeStore(client *redis.Client) *CodeStore {
	return &CodeStore{client: client}
}

func (s *CodeStore) SaveCode(ctx context.Context, rec *authkit.AuthorizationCodeRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("code encode: %w", err)
	}
	key := codeKeyPrefix + rec.Code
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, "data", data, "state", stateField(rec.State))
	pipe.ExpireAt(ctx, key, rec.ExpiresAt.Add(expiredGrantGrace))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (s *CodeStore) GetCode(ctx context.Context, code string) (*authkit.AuthorizationCodeRecord, error) {
	vals, err := s.client.HMGet(ctx, codeKeyPrefix+code, "data", "state").Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if vals[0] == nil {
		return nil, authkit.ErrCodeNotFound
	}
	var rec authkit.AuthorizationCodeRecord
	if err := decodeJSONField(vals[0], &rec); err != nil {
		return nil, fmt.Errorf("code decode: %w", err)
	}
	rec.State = parseStateField(vals[1], rec.State)
	return &rec, nil
}

func (s *CodeStore) ConsumeCode(ctx context.Context, code string) (*authkit.AuthorizationCodeRecord, error) {
	res, err := consumeCodeLua.Run(
		ctx,
		s.client,
		[]string{codeKeyPrefix + code},
		stateField(authkit.CodeAuthorized),
		stateField(authkit.CodeRedeemed),
	).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	reply, ok := res.([]interface{})
	if !ok || len(reply) == 0 {
		return nil, errors.New("code consume: unexpected script reply")
	}
	status, _ := reply[0].(int64)
	switch status {
	case 0:
		return nil, authkit.ErrCodeNotFound
	case 1:
		return nil, authkit.ErrCodeConsumed
	case 2:
		if len(reply) < 2 {
			return nil, errors.New("code consume: missing record payload")
		}
		var rec authkit.AuthorizationCodeRecord
		if err := decodeJSONField(reply[1], &rec); err != nil {
			return nil, fmt.Errorf("code decode: %w", err)
		}
		return &rec, nil
	default:
		return nil, fmt.Errorf("code consume: unknown status %d", status)
	}
}

/* ==== Device codes ==== */

// authorizeDeviceScript binds an identity to a requested grant.
const authorizeDeviceScript = `
local state = redis.call("HGET", KEYS[1], "state")
if state == false then
  return 0
end
if state ~= ARGV[1] then
  return 1
end
redis.call("HSET", KEYS[1], "state", ARGV[2], "identity", ARGV[3])
return 2
`

var authorizeDeviceLua = redis.NewScript(authorizeDeviceScript)

// consumeDeviceScript is consumeCodeScript plus the bound identity in the
// reply.
const consumeDeviceScript = `
local state = redis.call("HGET", KEYS[1], "state")
if state == false then
  return {0}
end
if state ~= ARGV[1] then
  return {1}
end
redis.call("HSET", KEYS[1], "state", ARGV[2])
return {2, redis.call("HGET", KEYS[1], "data"), redis.call("HGET", KEYS[1], "identity") or ""}
`

var consumeDeviceLua = redis.NewScript(consumeDeviceScript)

// touchPollScript swaps the last poll timestamp and returns the previous
// one, empty on the first poll.
const touchPollScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return false
end
local prev = redis.call("HGET", KEYS[1], "last_poll")
redis.call("HSET", KEYS[1], "last_poll", ARGV[1])
if prev == false then
  return ""
end
return prev
`

var touchPollLua = redis.NewScript(touchPollScript)

// DeviceStore is a Redis-backed [authkit.DeviceCodeStore]. The user code
// resolves through a secondary index key sharing the grant's TTL.
type DeviceStore struct {
	client *redis.Client
}

func NewDeviceStore(client *redis.Client) *DeviceStore {
	return &DeviceStore{client: client}
}

func deviceKey(deviceCode string) string { return deviceKeyPrefix + deviceCode }

func (s *DeviceStore) SaveDeviceCode(ctx context.Context, rec *authkit.DeviceCodeRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("device code encode: %w", err)
	}
	deadline := rec.ExpiresAt.Add(expiredGrantGrace)
	key := deviceKey(rec.DeviceCode)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, "data", data, "state", stateField(rec.State), "identity", rec.IdentityID)
	pipe.ExpireAt(ctx, key, deadline)
	pipe.Set(ctx, userCodeKeyPrefix+rec.UserCode, rec.DeviceCode, 0)
	pipe.ExpireAt(ctx, userCodeKeyPrefix+rec.UserCode, deadline)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (s *DeviceStore) GetDeviceCode(ctx context.Context, deviceCode string) (*authkit.DeviceCodeRecord, error) {
	vals, err := s.client.HMGet(ctx, deviceKey(deviceCode), "data", "state", "identity", "last_poll").Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if vals[0] == nil {
		return nil, authkit.ErrCodeNotFound
	}
	var rec authkit.DeviceCodeRecord
	if err := decodeJSONField(vals[0], &rec); err != nil {
		return nil, fmt.Errorf("device code decode: %w", err)
	}
	rec.State = parseStateField(vals[1], rec.State)
	if id, ok := vals[2].(string); ok && id != "" {
		rec.IdentityID = id
	}
	if ts, ok := vals[3].(string); ok && ts != "" {
		rec.LastPolledAt = parsePollTime(ts)
	}
	return &rec, nil
}

func (s *DeviceStore) GetDeviceCodeByUserCode(ctx context.Context, userCode string) (*authkit.DeviceCodeRecord, error) {
	deviceCode, err := s.client.Get(ctx, userCodeKeyPrefix+userCode).Result()
	if errors.Is(err, redis.Nil) {
		return nil, authkit.ErrCodeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return s.GetDeviceCode(ctx, deviceCode)
}

func (s *DeviceStore) AuthorizeDeviceCode(ctx context.Context, userCode, identityID string) error {
	deviceCode, err := s.client.Get(ctx, userCodeKeyPrefix+userCode).Result()
	if errors.Is(err, redis.Nil) {
		return authkit.ErrCodeNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	status, err := authorizeDeviceLua.Run(
		ctx,
		s.client,
		[]string{deviceKey(deviceCode)},
		stateField(authkit.CodeRequested),
		stateField(authkit.CodeAuthorized),
		identityID,
	).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	switch status {
	case 0:
		return authkit.ErrCodeNotFound
	case 1:
		return authkit.ErrCodeConsumed
	default:
		return nil
	}
}

func (s *DeviceStore) ConsumeDeviceCode(ctx context.Context, deviceCode string) (*authkit.DeviceCodeRecord, error) {
	res, err := consumeDeviceLua.Run(
		ctx,
		s.client,
		[]string{deviceKey(deviceCode)},
		stateField(authkit.CodeAuthorized),
		stateField(authkit.CodeRedeemed),
	).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	reply, ok := res.([]interface{})
	if !ok || len(reply) == 0 {
		return nil, errors.New("device code consume: unexpected script reply")
	}
	status, _ := reply[0].(int64)
	switch status {
	case 0:
		return nil, authkit.ErrCodeNotFound
	case 1:
		return nil, authkit.ErrCodeConsumed
	case 2:
		if len(reply) < 3 {
			return nil, errors.New("device code consume: missing record payload")
		}
		var rec authkit.DeviceCodeRecord
		if err := decodeJSONField(reply[1], &rec); err != nil {
			return nil, fmt.Errorf("device code decode: %w", err)
		}
		rec.State = authkit.CodeRedeemed
		if id, ok := reply[2].(string); ok && id != "" {
			rec.IdentityID = id
		}
		return &rec, nil
	default:
		return nil, fmt.Errorf("device code consume: unknown status %d", status)
	}
}

func (s *DeviceStore) TouchPoll(ctx context.Context, deviceCode string, at time.Time) (time.Time, error) {
	res, err := touchPollLua.Run(
		ctx,
		s.client,
		[]string{deviceKey(deviceCode)},
		strconv.FormatInt(at.UnixNano(), 10),
	).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, authkit.ErrCodeNotFound
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	prev, _ := res.(string)
	if prev == "" {
		return time.Time{}, nil
	}
	return parsePollTime(prev), nil
}

/* ==== Field helpers ==== */

func stateField(state authkit.CodeState) string {
	return strconv.Itoa(int(state))
}

func parseStateField(raw interface{}, fallback authkit.CodeState) authkit.CodeState {
	str, ok := raw.(string)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(str)
	if err != nil {
		return fallback
	}
	return authkit.CodeState(n)
}

func parsePollTime(raw string) time.Time {
	nanos, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || nanos == 0 {
		return time.Time{}
	}
	return time.Unix(0, nanos)
}

func decodeJSONField(raw interface{}, out interface{}) error {
	switch v := raw.(type) {
	case string:
		return json.Unmarshal([]byte(v), out)
	case []byte:
		return json.Unmarshal(v, out)
	default:
		return fmt.Errorf("unexpected payload type %T", raw)
	}
}
