package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sh6drack/actually-waxfeed-sub002/internal/logger"
	"github.com/sh6drack/actually-waxfeed-sub002/internal/metrics"
	"github.com/sh6drack/actually-waxfeed-sub002/internal/recommend"
	"go.uber.org/zap"
)

const (
	profileKeyPrefix  = "waxfeed:taste_profile:"
	DefaultProfileTTL = 15 * time.Minute

	// profileOpTimeout bounds each cache round trip so a slow Redis
	// degrades to a rebuild instead of stalling the request
	profileOpTimeout = 250 * time.Millisecond
)

// ProfileCache stores taste profiles in Redis as JSON. Every failure is
// logged and reported as a miss.
type ProfileCache struct {
	redis *RedisClient
	ttl   time.Duration
}

// NewProfileCache creates a profile cache; ttl <= 0 uses DefaultProfileTTL
func NewProfileCache(rc *RedisClient, ttl time.Duration) *ProfileCache {
	if ttl <= 0 {
		ttl = DefaultProfileTTL
	}
	return &ProfileCache{redis: rc, ttl: ttl}
}

func profileKey(userID string) string {
	return profileKeyPrefix + userID
}

func observe(op string, start time.Time, err error) {
	status := "success"
	if err != nil && !errors.Is(err, redis.Nil) {
		status = "error"
	}
	m := metrics.Get()
	m.RedisOperationDuration.WithLabelValues(op, "taste_profile").Observe(time.Since(start).Seconds())
	m.RedisOperationsTotal.WithLabelValues(op, status).Inc()
}

// GetProfile returns a cached profile
func (pc *ProfileCache) GetProfile(ctx context.Context, userID string) (*recommend.TasteProfile, bool) {
	if pc == nil || pc.redis == nil {
		return nil, false
	}
	ctx, cancel := context.WithTimeout(ctx, profileOpTimeout)
	defer cancel()

	start := time.Now()
	raw, err := pc.redis.Get(ctx, profileKey(userID))
	observe("get", start, err)
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Log.Warn("Profile cache read failed", logger.WithUserID(userID), zap.Error(err))
		}
		return nil, false
	}

	var profile recommend.TasteProfile
	if err := json.Unmarshal([]byte(raw), &profile); err != nil {
		logger.Log.Warn("Profile cache entry unreadable", logger.WithUserID(userID), zap.Error(err))
		return nil, false
	}
	return &profile, true
}

// SetProfile stores a profile for the cache TTL
func (pc *ProfileCache) SetProfile(ctx context.Context, profile *recommend.TasteProfile) {
	if pc == nil || pc.redis == nil || profile == nil {
		return
	}
	raw, err := json.Marshal(profile)
	if err != nil {
		logger.Log.Warn("Profile cache encode failed", logger.WithUserID(profile.UserID), zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, profileOpTimeout)
	defer cancel()
	start := time.Now()
	err = pc.redis.SetEx(ctx, profileKey(profile.UserID), raw, pc.ttl)
	observe("setex", start, err)
	if err != nil {
		logger.Log.Warn("Profile cache write failed", logger.WithUserID(profile.UserID), zap.Error(err))
	}
}

// InvalidateProfile drops a cached profile, e.g. after the user writes a review
func (pc *ProfileCache) InvalidateProfile(ctx context.Context, userID string) {
	if pc == nil || pc.redis == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, profileOpTimeout)
	defer cancel()
	start := time.Now()
	err := pc.redis.Del(ctx, profileKey(userID))
	observe("del", start, err)
	if err != nil {
		logger.Log.Warn("Profile cache invalidate failed", logger.WithUserID(userID), zap.Error(err))
	}
}

var _ recommend.ProfileCache = (*ProfileCache)(nil)
