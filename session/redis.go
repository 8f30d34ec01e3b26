package session

import (
	"context"
	"fmt"
	"strconv"
	"time"

	backend "github.com/redis/go-redis/v9"
)

// RedisStore implements Store on top of redis, the reference deployment for
// conversation state.
type RedisStore struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// RedisOption customises a RedisStore.
type RedisOption func(*RedisStore)

// WithTTL expires idle conversations after ttl. Zero keeps them forever.
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for conversation keys.
func WithPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// NewRedisStore creates a redis-backed store with its own client.
func NewRedisStore(addr, password string, db int, opts ...RedisOption) *RedisStore {
	client := backend.NewClient(&backend.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewRedisStoreFromClient(client, opts...)
}

// NewRedisStoreFromClient wraps an existing client, mainly for tests.
func NewRedisStoreFromClient(client *backend.Client, opts ...RedisOption) *RedisStore {
	store := &RedisStore{
		client: client,
		prefix: "shopbot:chat:",
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

func (s *RedisStore) key(chatID int64) string {
	return s.prefix + strconv.FormatInt(chatID, 10)
}

// Get returns the stored state name, or ErrNotFound for a fresh chat.
func (s *RedisStore) Get(ctx context.Context, chatID int64) (string, error) {
	val, err := s.client.Get(ctx, s.key(chatID)).Result()
	if err != nil {
		if err == backend.Nil {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("session: redis get: %w", err)
	}
	return val, nil
}

// Set stores the state name, refreshing the TTL when one is configured.
func (s *RedisStore) Set(ctx context.Context, chatID int64, state string) error {
	if err := s.client.Set(ctx, s.key(chatID), state, s.ttl).Err(); err != nil {
		return fmt.Errorf("session: redis set: %w", err)
	}
	return nil
}

// Ping verifies connectivity at bootstrap.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
