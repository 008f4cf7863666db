package topup

import (
	"context"
	"time"

	"tsmarket/pkg/rediskey"

	"github.com/redis/go-redis/v9"
)

const (
	defaultMaxAttempts = 5
	defaultAttemptTTL  = 15 * time.Minute
)

// Throttle limits how many invalid codes a user may try per window.
type Throttle interface {
	Allow(ctx context.Context, userID string) (bool, error)
	Fail(ctx context.Context, userID string) error
	Reset(ctx context.Context, userID string) error
}

type RedisThrottle struct {
	client *redis.Client
	max    int64
	window time.Duration
}

func NewRedisThrottle(client *redis.Client, max int64, window time.Duration) *RedisThrottle {
	if max <= 0 {
		max = defaultMaxAttempts
	}
	if window <= 0 {
		window = defaultAttemptTTL
	}
	return &RedisThrottle{client: client, max: max, window: window}
}

func (t *RedisThrottle) Allow(ctx context.Context, userID string) (bool, error) {
	n, err := t.client.Get(ctx, rediskey.BuildRedeemAttemptKey(userID)).Int64()
	if err == redis.Nil {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return n < t.max, nil
}

func (t *RedisThrottle) Fail(ctx context.Context, userID string) error {
	key := rediskey.BuildRedeemAttemptKey(userID)
	pipe := t.client.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, t.window)
	_, err := pipe.Exec(ctx)
	return err
}

func (t *RedisThrottle) Reset(ctx context.Context, userID string) error {
	return t.client.Del(ctx, rediskey.BuildRedeemAttemptKey(userID)).Err()
}
