package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/haven/backend/internal/model/chat"
)

func newRedisStore(t *testing.T, opts RedisOptions) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, opts), mr
}

func TestRedisStoreRoundTrip(t *testing.T) {
	s, _ := newRedisStore(t, RedisOptions{})
	appendAll(t, s, "s1", "m1", "m2", "m3")

	turns, err := s.Recent(context.Background(), "s1", 3)
	require.NoError(t, err)
	assert.Equal(t, []chat.Turn{
		{Role: chat.RoleUser, Text: "m1"},
		{Role: chat.RoleBot, Text: "m2"},
		{Role: chat.RoleUser, Text: "m3"},
	}, turns)

	turns, err = s.Recent(context.Background(), "s1", 2)
	require.NoError(t, err)
	assert.Equal(t, "m2", turns[0].Text)
	assert.Equal(t, "m3", turns[1].Text)
}

func TestRedisStoreGlobalSequence(t *testing.T) {
	s, _ := newRedisStore(t, RedisOptions{})
	ctx := context.Background()

	first, err := s.Append(ctx, "a", chat.RoleUser, "hello")
	require.NoError(t, err)
	second, err := s.Append(ctx, "b", chat.RoleUser, "hello")
	require.NoError(t, err)

	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, int64(2), second.ID)
}

func TestRedisStoreRetention(t *testing.T) {
	s, mr := newRedisStore(t, RedisOptions{SessionTTL: time.Hour, MaxMessages: 3})
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		_, err := s.Append(ctx, "s1", chat.RoleUser, fmt.Sprintf("m%d", i))
		require.NoError(t, err)
	}

	turns, err := s.Recent(ctx, "s1", 10)
	require.NoError(t, err)
	require.Len(t, turns, 3)
	assert.Equal(t, "m3", turns[0].Text)
	assert.Equal(t, time.Hour, mr.TTL(sessionKey("s1")))

	mr.FastForward(2 * time.Hour)
	turns, err = s.Recent(ctx, "s1", 10)
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestRedisStoreUnavailable(t *testing.T) {
	s, mr := newRedisStore(t, RedisOptions{})
	mr.Close()

	_, err := s.Append(context.Background(), "s1", chat.RoleUser, "hi")
	assert.True(t, IsStorageError(err))
	_, err = s.Recent(context.Background(), "s1", 1)
	assert.True(t, IsStorageError(err))
}

func TestDecodeRedisEntryRejectsMalformed(t *testing.T) {
	_, err := decodeRedisEntry("s1", "no-separator")
	assert.Error(t, err)
	_, err = decodeRedisEntry("s1", "x|{}")
	assert.Error(t, err)

	msg, err := decodeRedisEntry("s1", `7|{"role":"bot","text":"hi"}`)
	require.NoError(t, err)
	assert.Equal(t, int64(7), msg.ID)
	assert.Equal(t, chat.RoleBot, msg.Role)
}
