package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sh6drack/actually-waxfeed-sub002/internal/recommend"
	"github.com/stretchr/testify/assert"
)

// unreachableRedis points at a closed port so every command fails fast
func unreachableRedis(t *testing.T) *RedisClient {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { client.Close() })
	return WrapClient(client)
}

func TestProfileCache_UnavailableRedisIsAMiss(t *testing.T) {
	pc := NewProfileCache(unreachableRedis(t), time.Minute)
	ctx := context.Background()

	assert.NotPanics(t, func() {
		pc.SetProfile(ctx, &recommend.TasteProfile{UserID: "u1"})
		pc.InvalidateProfile(ctx, "u1")
	})

	p, ok := pc.GetProfile(ctx, "u1")
	assert.False(t, ok)
	assert.Nil(t, p)
}

func TestProfileCache_NilIsANoop(t *testing.T) {
	var pc *ProfileCache
	ctx := context.Background()

	pc.SetProfile(ctx, &recommend.TasteProfile{UserID: "u1"})
	_, ok := pc.GetProfile(ctx, "u1")
	assert.False(t, ok)

	empty := NewProfileCache(nil, 0)
	assert.Equal(t, DefaultProfileTTL, empty.ttl)
	_, ok = empty.GetProfile(ctx, "u1")
	assert.False(t, ok)
}

func TestProfileKey(t *testing.T) {
	assert.Equal(t, "waxfeed:taste_profile:abc", profileKey("abc"))
}
