package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sh6drack/actually-waxfeed-sub002/internal/cache"
	apierrors "github.com/sh6drack/actually-waxfeed-sub002/internal/errors"
	"github.com/sh6drack/actually-waxfeed-sub002/internal/logger"
	"github.com/sh6drack/actually-waxfeed-sub002/internal/util"
	"go.uber.org/zap"
)

func redisAvailable() bool {
	return cache.GetRedisClient() != nil
}

// RedisRateLimitMiddleware creates a fixed-window rate limiter shared by every
// instance through Redis
func RedisRateLimitMiddleware(config RateLimitConfig) gin.HandlerFunc {
	if config.KeyFunc == nil {
		config.KeyFunc = ClientKey
	}
	return func(c *gin.Context) {
		redisClient := cache.GetRedisClient()
		if redisClient == nil {
			logger.Log.Warn("Redis rate limiter unavailable, allowing request")
			c.Next()
			return
		}

		clientKey := config.KeyFunc(c)
		key := fmt.Sprintf("rate_limit:%s:%s", c.FullPath(), clientKey)
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		count, err := redisClient.Incr(ctx, key)
		if err != nil {
			// Fail closed: an unmetered API is worse than a brief outage
			logger.Log.Error("Rate limit check failed - rejecting request",
				zap.String("client", clientKey),
				zap.Error(err),
			)
			util.RespondWithAPIError(c, apierrors.ServiceUnavailable("rate limiter"))
			c.Abort()
			return
		}

		if count == 1 {
			if err := redisClient.Expire(ctx, key, config.Window); err != nil {
				logger.Log.Warn("Failed to set rate limit expiration",
					zap.String("client", clientKey),
					zap.Error(err),
				)
			}
		}

		if count > int64(config.Limit) {
			logger.Log.Warn("Rate limit exceeded",
				zap.String("client", clientKey),
				zap.Int("max_requests", config.Limit),
				zap.Int64("current_requests", count),
			)
			RecordRateLimitExceeded(c.FullPath(), c.Request.Method)
			c.Header("Retry-After", strconv.Itoa(int(config.Window.Seconds())))
			util.RespondWithAPIError(c, apierrors.RateLimited(""))
			c.Abort()
			return
		}

		c.Next()
	}
}
