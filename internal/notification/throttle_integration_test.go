//go:build integration

package notification_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"enrolldesk/internal/notification"
	"enrolldesk/pkg/testutil/containers"
)

func TestRedisThrottle_Integration(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	ctx := context.Background()

	t.Run("first resend opens cooldown window", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))
		throttle := notification.NewRedisThrottle(rc.Client, time.Minute)

		allowed, err := throttle.Allow(ctx, "app-1", notification.KindPaymentRequest)
		require.NoError(t, err)
		assert.True(t, allowed)

		allowed, err = throttle.Allow(ctx, "app-1", notification.KindPaymentRequest)
		require.NoError(t, err)
		assert.False(t, allowed)
	})

	t.Run("windows are scoped per application and kind", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))
		throttle := notification.NewRedisThrottle(rc.Client, time.Minute)

		allowed, err := throttle.Allow(ctx, "app-1", notification.KindPaymentRequest)
		require.NoError(t, err)
		require.True(t, allowed)

		allowed, err = throttle.Allow(ctx, "app-1", notification.KindStatusRejected)
		require.NoError(t, err)
		assert.True(t, allowed)

		allowed, err = throttle.Allow(ctx, "app-2", notification.KindPaymentRequest)
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("window expires", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))
		throttle := notification.NewRedisThrottle(rc.Client, time.Second)

		allowed, err := throttle.Allow(ctx, "app-1", notification.KindPaymentRequest)
		require.NoError(t, err)
		require.True(t, allowed)

		time.Sleep(1500 * time.Millisecond)

		allowed, err = throttle.Allow(ctx, "app-1", notification.KindPaymentRequest)
		require.NoError(t, err)
		assert.True(t, allowed)
	})
}
