package middleware

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	apierrors "github.com/sh6drack/actually-waxfeed-sub002/internal/errors"
	"github.com/sh6drack/actually-waxfeed-sub002/internal/util"
)

// RateLimitConfig holds configuration for rate limiting
type RateLimitConfig struct {
	// Requests per window
	Limit int
	// Window duration
	Window time.Duration
	// KeyFunc picks the bucket a request is charged to
	KeyFunc func(c *gin.Context) string
}

// ClientKey charges the authenticated user when known, else the client IP
func ClientKey(c *gin.Context) string {
	if userID, ok := c.Get(util.UserIDKey); ok {
		if s, ok := userID.(string); ok && s != "" {
			return "user:" + s
		}
	}
	return "ip:" + c.ClientIP()
}

// DefaultRateLimitConfig returns sensible defaults
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Limit:   100,
		Window:  time.Minute,
		KeyFunc: ClientKey,
	}
}

// RecommendationRateLimitConfig returns limits for the recommendation
// endpoints, each of which fans out into several catalog queries
func RecommendationRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Limit:   30,
		Window:  time.Minute,
		KeyFunc: ClientKey,
	}
}

// FeedbackRateLimitConfig returns limits for skip and click reporting
func FeedbackRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Limit:   120,
		Window:  time.Minute,
		KeyFunc: ClientKey,
	}
}

// TokenBucket for rate limiting
type TokenBucket struct {
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time
	mu         sync.Mutex
}

// NewTokenBucket creates a new token bucket
func NewTokenBucket(maxTokens float64, refillRate float64) *TokenBucket {
	return &TokenBucket{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

// Allow checks if a request is allowed based on token availability
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill(time.Now())
	if tb.tokens >= 1 {
		tb.tokens--
		return true
	}
	return false
}

func (tb *TokenBucket) refill(now time.Time) {
	elapsed := now.Sub(tb.lastRefill).Seconds()
	tb.tokens = minFloat(tb.maxTokens, tb.tokens+elapsed*tb.refillRate)
	tb.lastRefill = now
}

// full reports whether the bucket has refilled completely, i.e. is idle
func (tb *TokenBucket) full(now time.Time) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.refill(now)
	return tb.tokens >= tb.maxTokens
}

// GetRetryAfter returns seconds to wait before next request
func (tb *TokenBucket) GetRetryAfter() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	if tb.tokens < 1 {
		timeToToken := (1 - tb.tokens) / tb.refillRate
		return int(timeToToken) + 1
	}
	return 0
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// RateLimiter keeps one token bucket per key
type RateLimiter struct {
	buckets map[string]*TokenBucket
	config  RateLimitConfig
	mu      sync.Mutex
}

// NewRateLimiter creates a new in-memory rate limiting middleware
func NewRateLimiter(config RateLimitConfig) gin.HandlerFunc {
	if config.KeyFunc == nil {
		config.KeyFunc = ClientKey
	}
	rl := &RateLimiter{
		buckets: make(map[string]*TokenBucket),
		config:  config,
	}
	go rl.cleanupRoutine(time.NewTicker(time.Minute))

	return func(c *gin.Context) {
		key := config.KeyFunc(c)
		if !rl.Allow(key) {
			retryAfter := rl.GetRetryAfter(key)
			RecordRateLimitExceeded(c.FullPath(), c.Request.Method)
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.Header("X-RateLimit-Limit", strconv.Itoa(config.Limit))
			c.Header("X-RateLimit-Remaining", "0")
			util.RespondWithAPIError(c, apierrors.RateLimited("").
				WithDetails(fmt.Sprintf("retry after %ds", retryAfter)))
			c.Abort()
			return
		}
		c.Next()
	}
}

// Allow checks if a key is allowed to make a request
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	bucket, exists := rl.buckets[key]
	if !exists {
		refillRate := float64(rl.config.Limit) / rl.config.Window.Seconds()
		bucket = NewTokenBucket(float64(rl.config.Limit), refillRate)
		rl.buckets[key] = bucket
	}
	rl.mu.Unlock()

	return bucket.Allow()
}

// GetRetryAfter gets retry-after seconds for a key
func (rl *RateLimiter) GetRetryAfter(key string) int {
	rl.mu.Lock()
	bucket, exists := rl.buckets[key]
	rl.mu.Unlock()
	if !exists {
		return 1
	}
	return bucket.GetRetryAfter()
}

// cleanupRoutine drops buckets that have refilled completely
func (rl *RateLimiter) cleanupRoutine(ticker *time.Ticker) {
	for now := range ticker.C {
		rl.sweep(now)
	}
}

func (rl *RateLimiter) sweep(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, bucket := range rl.buckets {
		if bucket.full(now) {
			delete(rl.buckets, key)
		}
	}
}

// RateLimit returns a middleware with default configuration
func RateLimit() gin.HandlerFunc {
	return NewRateLimiter(DefaultRateLimitConfig())
}

// RateLimitSmart prefers the shared Redis limiter and falls back to an
// in-process limiter when Redis is not configured
func RateLimitSmart(config RateLimitConfig) gin.HandlerFunc {
	local := NewRateLimiter(config)
	distributed := RedisRateLimitMiddleware(config)
	return func(c *gin.Context) {
		if redisAvailable() {
			distributed(c)
			return
		}
		local(c)
	}
}
