package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/storefront-bot/storefront/internal/core/domain"
)

const (
	sessionKeyPrefix      = "session:"
	idempotencyKeyPrefix  = "idem:"
	defaultIdempotencyTTL = 24 * time.Hour
)

// RedisAdapter keeps conversation sessions and idempotency keys in Redis.
// Sessions have no expiry.
type RedisAdapter struct {
	client         *redis.Client
	idempotencyTTL time.Duration
}

func NewRedisAdapter(client *redis.Client, idempotencyTTL time.Duration) *RedisAdapter {
	if idempotencyTTL <= 0 {
		idempotencyTTL = defaultIdempotencyTTL
	}
	return &RedisAdapter{client: client, idempotencyTTL: idempotencyTTL}
}

func sessionKey(userID int64) string {
	return sessionKeyPrefix + strconv.FormatInt(userID, 10)
}

func (r *RedisAdapter) LoadSession(ctx context.Context, userID int64) (domain.SessionState, error) {
	data, err := r.client.Get(ctx, sessionKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Idle{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return domain.UnmarshalState(data)
}

func (r *RedisAdapter) SaveSession(ctx context.Context, userID int64, state domain.SessionState) error {
	data, err := domain.MarshalState(state)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, sessionKey(userID), data, 0).Err(); err != nil {
		return fmt.Errorf("set session: %w", err)
	}
	return nil
}

func (r *RedisAdapter) SetIdempotency(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, idempotencyKeyPrefix+key, 1, r.idempotencyTTL).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

func (r *RedisAdapter) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
