package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T, opts ...RedisOption) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	store := NewRedisStoreFromClient(client, opts...)
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestRedisStoreRoundtrip(t *testing.T) {
	store, _ := newTestRedis(t)
	ctx := context.Background()

	_, err := store.Get(ctx, 7)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Set(ctx, 7, "HANDLE_MENU"))
	got, err := store.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "HANDLE_MENU", got)
}

func TestRedisStoreKeyPrefix(t *testing.T) {
	store, mr := newTestRedis(t, WithPrefix("custom:"))
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, 42, "ECHO"))
	val, err := mr.Get("custom:42")
	require.NoError(t, err)
	assert.Equal(t, "ECHO", val)
}

func TestRedisStoreTTL(t *testing.T) {
	store, mr := newTestRedis(t, WithTTL(time.Hour))
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, 7, "HANDLE_CART"))
	assert.Equal(t, time.Hour, mr.TTL("shopbot:chat:7"))

	// TTL refreshes on every write.
	mr.FastForward(30 * time.Minute)
	require.NoError(t, store.Set(ctx, 7, "OBTAIN_EMAIL"))
	assert.Equal(t, time.Hour, mr.TTL("shopbot:chat:7"))

	// An idle conversation eventually expires.
	mr.FastForward(2 * time.Hour)
	_, err := store.Get(ctx, 7)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStoreNoTTLByDefault(t *testing.T) {
	store, mr := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, 7, "START"))
	assert.Equal(t, time.Duration(0), mr.TTL("shopbot:chat:7"))
}

func TestRedisStoreUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	store := NewRedisStoreFromClient(client)
	mr.Close()

	_, err := store.Get(context.Background(), 7)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)

	assert.Error(t, store.Set(context.Background(), 7, "ECHO"))
}
