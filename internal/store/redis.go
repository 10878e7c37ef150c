package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rafiki-aymane-ar/SunshinePropertiesPHP-API-sub000/internal/models"
)

// DefaultTypingTTL bounds how long a typing key survives in Redis. Freshness
// is still decided by the caller; the TTL only keeps the keyspace clean.
const DefaultTypingTTL = 10 * time.Second

// RedisStore keeps ephemeral typing presence and backs the rate limiter.
type RedisStore struct {
	client    *redis.Client
	typingTTL time.Duration
}

// NewRedisStore creates a new Redis store.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return NewRedisStoreFromClient(client), nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, typingTTL: DefaultTypingTTL}
}

// WithTypingTTL overrides the key expiry for typing signals.
func (s *RedisStore) WithTypingTTL(ttl time.Duration) *RedisStore {
	if ttl > 0 {
		s.typingTTL = ttl
	}
	return s
}

// Client returns the underlying Redis client.
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// typingKey returns the key for a directed typing signal.
func typingKey(from, to models.ParticipantRef) string {
	return fmt.Sprintf("typing:%s:%d:%s:%d", from.Kind, from.ID, to.Kind, to.ID)
}

type typingValue struct {
	IsTyping  bool  `json:"t"`
	UpdatedAt int64 `json:"ts"` // Unix ms
}

// SetTyping overwrites the directed typing signal.
func (s *RedisStore) SetTyping(ctx context.Context, sig models.TypingSignal) error {
	data, err := json.Marshal(typingValue{
		IsTyping:  sig.IsTyping,
		UpdatedAt: sig.UpdatedAt.UnixMilli(),
	})
	if err != nil {
		return err
	}
	return s.client.Set(ctx, typingKey(sig.From, sig.To), data, s.typingTTL).Err()
}

// GetTyping retrieves the directed typing signal, or nil once it expired.
func (s *RedisStore) GetTyping(ctx context.Context, from, to models.ParticipantRef) (*models.TypingSignal, error) {
	data, err := s.client.Get(ctx, typingKey(from, to)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var v typingValue
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}

	return &models.TypingSignal{
		From:      from,
		To:        to,
		IsTyping:  v.IsTyping,
		UpdatedAt: time.UnixMilli(v.UpdatedAt),
	}, nil
}
