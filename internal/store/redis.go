package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/zhouzirui/haven/backend/internal/model/chat"
)

const (
	redisSequenceKey      = "haven:messages:seq"
	redisSessionKeyPrefix = "haven:session:"
)

// appendScript assigns the id and pushes the entry atomically so list order
// always matches id order, even for concurrent appends to one session.
var appendScript = redis.NewScript(`
local id = redis.call('INCR', KEYS[1])
redis.call('RPUSH', KEYS[2], id .. '|' .. ARGV[1])
local ttl = tonumber(ARGV[2])
if ttl > 0 then
	redis.call('EXPIRE', KEYS[2], ttl)
end
local max = tonumber(ARGV[3])
if max > 0 then
	redis.call('LTRIM', KEYS[2], -max, -1)
end
return id
`)

// RedisOptions controls retention of session logs in Redis.
type RedisOptions struct {
	// SessionTTL expires a session log after this much inactivity. Zero keeps it forever.
	SessionTTL time.Duration
	// MaxMessages trims a session log to its newest entries. Zero keeps everything.
	MaxMessages int64
}

// RedisStore keeps each session as a Redis list of encoded messages.
type RedisStore struct {
	redis  *redis.Client
	opts   RedisOptions
	tracer trace.Tracer
	now    func() time.Time
}

type redisEntry struct {
	Role      chat.Role `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// NewRedisStore builds a Redis-backed Store.
func NewRedisStore(client *redis.Client, opts RedisOptions) *RedisStore {
	if client == nil {
		panic("store: redis client cannot be nil")
	}
	return &RedisStore{
		redis:  client,
		opts:   opts,
		tracer: otel.Tracer("haven.store.redis"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

var _ Store = (*RedisStore)(nil)

// Append encodes the message and pushes it onto the session list.
func (s *RedisStore) Append(ctx context.Context, sessionID string, role chat.Role, text string) (chat.Message, error) {
	ctx, span := s.tracer.Start(ctx, "store.append")
	defer span.End()

	if err := validateAppend(sessionID, role, text); err != nil {
		return chat.Message{}, err
	}

	entry := redisEntry{Role: role, Text: text, CreatedAt: s.now()}
	data, err := json.Marshal(entry)
	if err != nil {
		return chat.Message{}, fmt.Errorf("store: marshal message: %w", err)
	}

	ttlSeconds := int64(s.opts.SessionTTL / time.Second)
	id, err := appendScript.Run(ctx, s.redis,
		[]string{redisSequenceKey, sessionKey(sessionID)},
		string(data), ttlSeconds, s.opts.MaxMessages,
	).Int64()
	if err != nil {
		span.RecordError(err)
		return chat.Message{}, &StorageError{Backend: "redis", Op: "append", Err: err}
	}

	return chat.Message{
		ID:        id,
		SessionID: sessionID,
		Role:      entry.Role,
		Text:      entry.Text,
		CreatedAt: entry.CreatedAt,
	}, nil
}

// Recent reads the tail of the session list, which is already chronological.
func (s *RedisStore) Recent(ctx context.Context, sessionID string, limit int) ([]chat.Turn, error) {
	ctx, span := s.tracer.Start(ctx, "store.recent")
	defer span.End()

	if err := validateRecent(sessionID, limit); err != nil {
		return nil, err
	}

	raw, err := s.redis.LRange(ctx, sessionKey(sessionID), -int64(limit), -1).Result()
	if err != nil && err != redis.Nil {
		span.RecordError(err)
		return nil, &StorageError{Backend: "redis", Op: "recent", Err: err}
	}

	turns := make([]chat.Turn, 0, len(raw))
	for _, item := range raw {
		msg, err := decodeRedisEntry(sessionID, item)
		if err != nil {
			span.RecordError(err)
			return nil, &StorageError{Backend: "redis", Op: "recent", Err: err}
		}
		turns = append(turns, msg.Turn())
	}
	return turns, nil
}

func decodeRedisEntry(sessionID, item string) (chat.Message, error) {
	rawID, payload, ok := strings.Cut(item, "|")
	if !ok {
		return chat.Message{}, fmt.Errorf("malformed entry %q", item)
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return chat.Message{}, fmt.Errorf("malformed entry id %q: %w", rawID, err)
	}
	var entry redisEntry
	if err := json.Unmarshal([]byte(payload), &entry); err != nil {
		return chat.Message{}, fmt.Errorf("decode entry %d: %w", id, err)
	}
	return chat.Message{
		ID:        id,
		SessionID: sessionID,
		Role:      entry.Role,
		Text:      entry.Text,
		CreatedAt: entry.CreatedAt,
	}, nil
}

func sessionKey(sessionID string) string {
	return redisSessionKeyPrefix + sessionID
}
