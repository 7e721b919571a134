package auth

import (
	"context"
	"encoding/json"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const redisTokenKeyPrefix = "auth:token:"

// consumeTokenScript performs the issued -> terminal transition server-side
// so concurrent redemptions across processes still yield a single winner.
// KEYS[1] record key, ARGV[1] target state, ARGV[2] consumed-at (RFC3339).
var consumeTokenScript = redis.NewScript(`
local raw = redis.call("GET", KEYS[1])
if not raw then
	return redis.error_reply("NOT_FOUND")
end
local record = cjson.decode(raw)
if record.state ~= "issued" then
	return redis.error_reply("ALREADY_USED")
end
record.state = ARGV[1]
record.consumed_at = ARGV[2]
local encoded = cjson.encode(record)
local ttl = redis.call("TTL", KEYS[1])
if ttl > 0 then
	redis.call("SET", KEYS[1], encoded, "EX", ttl)
else
	redis.call("SET", KEYS[1], encoded)
end
return encoded
`)

// redisTokenRecord is the wire shape stored in Redis. Kept flat and
// string-typed so the Lua script can transition state without knowing about
// the Go model.
type redisTokenRecord struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	UserID      string `json:"user_id,omitempty"`
	WorkspaceID string `json:"workspace_id,omitempty"`
	ClientID    string `json:"client_id,omitempty"`
	State       string `json:"state"`
	ExpiresAt   string `json:"expires_at"`
	ConsumedAt  string `json:"consumed_at,omitempty"`
}

// RedisTokenStateStore keeps single-use token state in Redis with a TTL
// matching the token's validity window plus a grace period, so replay
// attempts shortly after expiry still fail deterministically.
type RedisTokenStateStore struct {
	client *redis.Client
	grace  time.Duration
	now    func() time.Time
}

// RedisTokenStateStoreOption customizes the store.
type RedisTokenStateStoreOption func(*RedisTokenStateStore)

// WithRedisStoreGrace overrides how long consumed records outlive their
// expiry. Default is one hour.
func WithRedisStoreGrace(grace time.Duration) RedisTokenStateStoreOption {
	return func(s *RedisTokenStateStore) {
		if grace > 0 {
			s.grace = grace
		}
	}
}

// WithRedisStoreClock injects a custom clock (useful for tests).
func WithRedisStoreClock(clock func() time.Time) RedisTokenStateStoreOption {
	return func(s *RedisTokenStateStore) {
		if clock != nil {
			s.now = clock
		}
	}
}

// NewRedisTokenStateStore creates a store on the given client.
func NewRedisTokenStateStore(client *redis.Client, opts ...RedisTokenStateStoreOption) *RedisTokenStateStore {
	s := &RedisTokenStateStore{
		client: client,
		grace:  time.Hour,
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

var _ TokenStateStore = (*RedisTokenStateStore)(nil)

func (s *RedisTokenStateStore) key(id uuid.UUID) string {
	return redisTokenKeyPrefix + id.String()
}

// Issue stores the record with a TTL covering expiry plus grace.
func (s *RedisTokenStateStore) Issue(ctx context.Context, record *AppToken) error {
	if record == nil || record.ID == uuid.Nil {
		return goerrors.New("token record requires an id", goerrors.CategoryBadInput)
	}

	wire := toRedisRecord(record)
	if wire.State == "" {
		wire.State = AppTokenIssued
	}

	payload, err := json.Marshal(wire)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to encode token state")
	}

	ttl := record.ExpiresAt.Sub(s.now()) + s.grace
	if ttl <= 0 {
		ttl = s.grace
	}

	if err := s.client.Set(ctx, s.key(record.ID), payload, ttl).Err(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist token state")
	}

	return nil
}

// Get loads a record without transitioning it.
func (s *RedisTokenStateStore) Get(ctx context.Context, id uuid.UUID) (*AppToken, error) {
	raw, err := s.client.Get(ctx, s.key(id)).Result()
	if err != nil {
		if goerrors.Is(err, redis.Nil) {
			return nil, ErrTokenStateNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load token state")
	}

	return decodeRedisRecord([]byte(raw))
}

// Consume transitions issued -> consumed through the Lua script.
func (s *RedisTokenStateStore) Consume(ctx context.Context, id uuid.UUID) (*AppToken, error) {
	return s.transition(ctx, id, AppTokenConsumed)
}

// Revoke transitions issued -> revoked through the Lua script.
func (s *RedisTokenStateStore) Revoke(ctx context.Context, id uuid.UUID) error {
	_, err := s.transition(ctx, id, AppTokenRevoked)
	return err
}

func (s *RedisTokenStateStore) transition(ctx context.Context, id uuid.UUID, target AppTokenState) (*AppToken, error) {
	record, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if record.Expired(s.now()) {
		return nil, ErrTokenExpired
	}

	raw, err := consumeTokenScript.Run(ctx, s.client,
		[]string{s.key(id)},
		target,
		s.now().Format(time.RFC3339Nano),
	).Result()

	if err != nil {
		switch err.Error() {
		case "NOT_FOUND":
			return nil, ErrTokenStateNotFound
		case "ALREADY_USED":
			return nil, ErrTokenAlreadyUsed
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to transition token state")
	}

	encoded, ok := raw.(string)
	if !ok {
		return nil, goerrors.New("unexpected script reply", goerrors.CategoryInternal)
	}

	return decodeRedisRecord([]byte(encoded))
}

func toRedisRecord(record *AppToken) redisTokenRecord {
	wire := redisTokenRecord{
		ID:        record.ID.String(),
		Kind:      record.Kind,
		ClientID:  record.ClientID,
		State:     record.State,
		ExpiresAt: record.ExpiresAt.Format(time.RFC3339Nano),
	}
	if record.UserID != nil {
		wire.UserID = record.UserID.String()
	}
	if record.WorkspaceID != nil {
		wire.WorkspaceID = record.WorkspaceID.String()
	}
	if record.ConsumedAt != nil {
		wire.ConsumedAt = record.ConsumedAt.Format(time.RFC3339Nano)
	}
	return wire
}

func decodeRedisRecord(payload []byte) (*AppToken, error) {
	wire := redisTokenRecord{}
	if err := json.Unmarshal(payload, &wire); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to decode token state")
	}

	id, err := uuid.Parse(wire.ID)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "token state has invalid id")
	}

	record := &AppToken{
		ID:       id,
		Kind:     wire.Kind,
		ClientID: wire.ClientID,
		State:    wire.State,
	}

	if wire.UserID != "" {
		if uid, err := uuid.Parse(wire.UserID); err == nil {
			record.UserID = &uid
		}
	}
	if wire.WorkspaceID != "" {
		if wid, err := uuid.Parse(wire.WorkspaceID); err == nil {
			record.WorkspaceID = &wid
		}
	}
	if wire.ExpiresAt != "" {
		if ts, err := time.Parse(time.RFC3339Nano, wire.ExpiresAt); err == nil {
			record.ExpiresAt = ts
		}
	}
	if wire.ConsumedAt != "" {
		if ts, err := time.Parse(time.RFC3339Nano, wire.ConsumedAt); err == nil {
			record.ConsumedAt = &ts
		}
	}

	return record, nil
}
