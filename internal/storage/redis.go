package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/raine/storefront/internal/auth"
)

// DefaultRedisPrefix namespaces the client's keys.
const DefaultRedisPrefix = "storefront"

// RedisStore implements Store on top of Redis. Useful when several machines
// share one storefront login.
type RedisStore struct {
	rdb           redis.UniversalClient
	prefix        string
	encryptionKey []byte
}

// NewRedisStore creates a store from a redis:// URL.
func NewRedisStore(ctx context.Context, redisURL, prefix string, encryptionKey []byte) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisStoreWithClient(rdb, prefix, encryptionKey), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(rdb redis.UniversalClient, prefix string, encryptionKey []byte) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{
		rdb:           rdb,
		prefix:        prefix,
		encryptionKey: encryptionKey,
	}
}

func (s *RedisStore) key(name string) string {
	return s.prefix + ":" + name
}

// LoadTokens reads and decrypts both token entries.
func (s *RedisStore) LoadTokens(ctx context.Context) (auth.TokenPair, bool, error) {
	vals, err := s.rdb.MGet(ctx, s.key(KeyAccessToken), s.key(KeyRefreshToken)).Result()
	if err != nil {
		return auth.TokenPair{}, false, fmt.Errorf("failed to query tokens: %w", err)
	}

	var pair auth.TokenPair
	found := false
	for i, v := range vals {
		encrypted, ok := v.(string)
		if !ok {
			continue
		}
		plain, err := Decrypt(encrypted, s.encryptionKey)
		if err != nil {
			return auth.TokenPair{}, false, fmt.Errorf("failed to decrypt token %d: %w", i, err)
		}
		found = true
		if i == 0 {
			pair.Access = string(plain)
		} else {
			pair.Refresh = string(plain)
		}
	}
	return pair, found, nil
}

// SaveTokens writes both token entries atomically.
func (s *RedisStore) SaveTokens(ctx context.Context, pair auth.TokenPair) error {
	access, err := Encrypt([]byte(pair.Access), s.encryptionKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt access token: %w", err)
	}
	refresh, err := Encrypt([]byte(pair.Refresh), s.encryptionKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt refresh token: %w", err)
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(KeyAccessToken), access, 0)
		pipe.Set(ctx, s.key(KeyRefreshToken), refresh, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save tokens: %w", err)
	}
	return nil
}

// DeleteTokens removes both token entries.
func (s *RedisStore) DeleteTokens(ctx context.Context) error {
	if err := s.rdb.Del(ctx, s.key(KeyAccessToken), s.key(KeyRefreshToken)).Err(); err != nil {
		return fmt.Errorf("failed to delete tokens: %w", err)
	}
	return nil
}

// LoadCart returns the cart JSON, or nil if none is stored.
func (s *RedisStore) LoadCart(ctx context.Context) ([]byte, error) {
	data, err := s.rdb.Get(ctx, s.key(KeyCart)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query cart: %w", err)
	}
	return data, nil
}

// SaveCart replaces the cart JSON.
func (s *RedisStore) SaveCart(ctx context.Context, data []byte) error {
	if err := s.rdb.Set(ctx, s.key(KeyCart), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}

// InstallationID returns the shared client id, generating one on first use.
func (s *RedisStore) InstallationID(ctx context.Context) (string, error) {
	key := s.key(KeyInstallationID)
	if _, err := s.rdb.SetNX(ctx, key, uuid.New().String(), 0).Result(); err != nil {
		return "", fmt.Errorf("failed to save installation id: %w", err)
	}
	id, err := s.rdb.Get(ctx, key).Result()
	if err != nil {
		return "", fmt.Errorf("failed to query installation id: %w", err)
	}
	return id, nil
}

// Close closes the redis client.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
