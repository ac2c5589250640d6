// Package idempotency remembers which order a client retry key produced, so
// a repeated checkout returns the first order instead of placing a second one.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/redis/go-redis/v9"
)

const pending = "pending"

// Store reserves a key before the order is placed and completes it with the
// order id afterwards.
type Store interface {
	// Reserve claims key. When the key was already claimed it returns
	// reserved=false and the stored order id, which is uuid.Nil while the
	// first request is still running.
	Reserve(ctx context.Context, key string) (orderID uuid.UUID, reserved bool, err error)
	Complete(ctx context.Context, key string, orderID uuid.UUID) error
	// Release drops a reservation whose request failed, so the client may retry.
	Release(ctx context.Context, key string) error
}

type RedisStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisStore(client redis.Cmdable, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func redisKey(key string) string {
	return "idempotency:order:" + key
}

func (s *RedisStore) Reserve(ctx context.Context, key string) (uuid.UUID, bool, error) {
	ok, err := s.client.SetNX(ctx, redisKey(key), pending, s.ttl).Result()
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("idempotency: failed to reserve key: %w", err)
	}
	if ok {
		return uuid.Nil, true, nil
	}

	raw, err := s.client.Get(ctx, redisKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		// Ключ истёк между SETNX и GET.
		return s.Reserve(ctx, key)
	}
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("idempotency: failed to read key: %w", err)
	}
	if raw == pending {
		return uuid.Nil, false, nil
	}

	orderID, err := uuid.FromString(raw)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("idempotency: malformed order id %q: %w", raw, err)
	}
	return orderID, false, nil
}

func (s *RedisStore) Complete(ctx context.Context, key string, orderID uuid.UUID) error {
	if err := s.client.Set(ctx, redisKey(key), orderID.String(), s.ttl).Err(); err != nil {
		return fmt.Errorf("idempotency: failed to complete key: %w", err)
	}
	return nil
}

func (s *RedisStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, redisKey(key)).Err(); err != nil {
		return fmt.Errorf("idempotency: failed to release key: %w", err)
	}
	return nil
}
