package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const resendKeyPrefix = "resend:"

// RedisThrottle rate-limits explicit resends per (application, kind) using
// SET NX with a TTL. Distributed deployments share the cooldown state.
//
// The throttle is advisory: on a Redis error the caller treats the resend as
// allowed, since a slow cache must not block staff from re-sending mail.
type RedisThrottle struct {
	client   *redis.Client
	cooldown time.Duration
}

// NewRedisThrottle constructs a redis-backed resend throttle.
func NewRedisThrottle(client *redis.Client, cooldown time.Duration) *RedisThrottle {
	return &RedisThrottle{client: client, cooldown: cooldown}
}

// Allow reports whether a resend for the given application and kind is
// outside the cooldown window, and opens a new window when it is.
func (t *RedisThrottle) Allow(ctx context.Context, applicationID string, kind Kind) (bool, error) {
	key := fmt.Sprintf("%s%s:%s", resendKeyPrefix, applicationID, kind)
	ok, err := t.client.SetNX(ctx, key, "1", t.cooldown).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}
