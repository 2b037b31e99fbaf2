package redis

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"activityhub.io/notifications/internal/domain"
)

func TestKeySeparatesTiers(t *testing.T) {
	id := uuid.MustParse("6f1c1c1e-7d0e-4a8e-9d55-1b9b1d7c0a01")
	require.Equal(t, "notifications:unread:6f1c1c1e-7d0e-4a8e-9d55-1b9b1d7c0a01:premium", key(id, true))
	require.Equal(t, "notifications:unread:6f1c1c1e-7d0e-4a8e-9d55-1b9b1d7c0a01:standard", key(id, false))
	require.Equal(t, "notifications:unread:6f1c1c1e-7d0e-4a8e-9d55-1b9b1d7c0a01:gen", genKey(id))
}

func TestGenerationParsing(t *testing.T) {
	gen, err := generation(nil)
	require.NoError(t, err)
	require.Zero(t, gen)

	gen, err = generation("7")
	require.NoError(t, err)
	require.Equal(t, int64(7), gen)

	_, err = generation("seven")
	require.Error(t, err)

	_, err = generation(int64(7))
	require.Error(t, err)

	require.Nil(t, nilIfEmpty(""))
	require.Equal(t, "3", nilIfEmpty("3"))
}

func TestGenerationOutlivesCountTTL(t *testing.T) {
	require.Equal(t, minGenerationTTL, NewCountCache(nil, time.Minute).genTTL)
	require.Equal(t, 96*time.Hour, NewCountCache(nil, 48*time.Hour).genTTL)
}

func TestUnreachableRedisDegradesToMiss(t *testing.T) {
	client := goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	cache := NewCountCache(client, time.Minute)
	ctx := context.Background()
	user := uuid.New()

	cache.Set(ctx, user, false, 0, &domain.UnreadCount{Total: 3})
	got, gen, ok := cache.Get(ctx, user, false)
	require.False(t, ok)
	require.Nil(t, got)
	require.Negative(t, gen)
	cache.Invalidate(ctx, user)
	require.Error(t, cache.Ping(ctx))
}
