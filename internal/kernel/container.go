// Package kernel provides dependency injection management for the Waxfeed
// recommendation backend. It consolidates all services and provides type-safe
// access to dependencies.
package kernel

import (
	"context"
	"sync"
	"time"

	"github.com/sh6drack/actually-waxfeed-sub002/internal/auth"
	"github.com/sh6drack/actually-waxfeed-sub002/internal/cache"
	"github.com/sh6drack/actually-waxfeed-sub002/internal/logger"
	"github.com/sh6drack/actually-waxfeed-sub002/internal/recommend"
	"github.com/sh6drack/actually-waxfeed-sub002/internal/repository"
	"github.com/sh6drack/actually-waxfeed-sub002/internal/telemetry"
	"github.com/sh6drack/actually-waxfeed-sub002/internal/tracking"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Kernel holds all application dependencies and provides type-safe access.
type Kernel struct {
	// Core infrastructure
	db     *gorm.DB
	logger *zap.Logger
	cache  *cache.RedisClient

	// Data access
	catalog repository.CatalogRepository
	history repository.HistoryRepository
	users   repository.UserRepository

	// Recommendation services
	engine   *recommend.Engine
	profiles *cache.ProfileCache
	tracker  *tracking.Tracker
	events   *telemetry.BusinessEvents

	tokens *auth.TokenService

	// Lifecycle hooks
	cleanupFuncs []func(context.Context) error
	mu           sync.RWMutex
}

// New creates a new empty kernel.
// Services should be registered using Set* methods or Bootstrap.
func New() *Kernel {
	return &Kernel{
		cleanupFuncs: make([]func(context.Context) error, 0),
	}
}

// Options configures Bootstrap
type Options struct {
	Engine          recommend.Config
	ProfileCacheTTL time.Duration
	JWTSecret       []byte
	EngineOptions   []recommend.Option
}

// Bootstrap wires repositories, the profile cache, the engine, the tracker and
// the token service over db. rc may be nil, in which case profiles are always
// rebuilt.
func Bootstrap(db *gorm.DB, rc *cache.RedisClient, opts Options) (*Kernel, error) {
	k := New().
		WithDB(db).
		WithCache(rc).
		WithRepositories(
			repository.NewCatalogRepository(db),
			repository.NewHistoryRepository(db),
			repository.NewUserRepository(db),
		)

	engineOpts := append([]recommend.Option(nil), opts.EngineOptions...)
	if rc != nil {
		k.profiles = cache.NewProfileCache(rc, opts.ProfileCacheTTL)
		engineOpts = append(engineOpts, recommend.WithProfileCache(k.profiles))
	}

	engine, err := recommend.NewEngine(k.catalog, k.history, opts.Engine, engineOpts...)
	if err != nil {
		return nil, err
	}

	k.SetEngine(engine).
		SetTracker(tracking.NewTracker(db)).
		SetBusinessEvents(telemetry.NewBusinessEvents()).
		SetTokenService(auth.NewTokenService(opts.JWTSecret))

	return k, nil
}

// ============================================================================
// CORE INFRASTRUCTURE SETTERS/GETTERS
// ============================================================================

// SetDB registers the database connection
func (c *Kernel) SetDB(db *gorm.DB) *Kernel {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.db = db
	return c
}

// DB returns the database connection
func (c *Kernel) DB() *gorm.DB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.db
}

// SetLogger registers the logger
func (c *Kernel) SetLogger(l *zap.Logger) *Kernel {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logger = l
	return c
}

// Logger returns the logger instance
func (c *Kernel) Logger() *zap.Logger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loggerLocked()
}

func (c *Kernel) loggerLocked() *zap.Logger {
	if c.logger == nil {
		return logger.Log
	}
	return c.logger
}

// SetCache registers the Redis cache client
func (c *Kernel) SetCache(client *cache.RedisClient) *Kernel {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = client
	return c
}

// Cache returns the Redis cache client
func (c *Kernel) Cache() *cache.RedisClient {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cache
}

// ============================================================================
// DATA ACCESS SETTERS/GETTERS
// ============================================================================

// SetRepositories registers the catalog, history and user repositories
func (c *Kernel) SetRepositories(catalog repository.CatalogRepository, history repository.HistoryRepository, users repository.UserRepository) *Kernel {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.catalog = catalog
	c.history = history
	c.users = users
	return c
}

// Catalog returns the album catalog repository
func (c *Kernel) Catalog() repository.CatalogRepository {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.catalog
}

// History returns the review and skip history repository
func (c *Kernel) History() repository.HistoryRepository {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.history
}

// Users returns the user repository
func (c *Kernel) Users() repository.UserRepository {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.users
}

// ============================================================================
// RECOMMENDATION SETTERS/GETTERS
// ============================================================================

// SetEngine registers the recommendation engine
func (c *Kernel) SetEngine(engine *recommend.Engine) *Kernel {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.engine = engine
	return c
}

// Engine returns the recommendation engine
func (c *Kernel) Engine() *recommend.Engine {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.engine
}

// SetProfileCache registers the taste profile cache
func (c *Kernel) SetProfileCache(profiles *cache.ProfileCache) *Kernel {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.profiles = profiles
	return c
}

// ProfileCache returns the taste profile cache, nil when Redis is off
func (c *Kernel) ProfileCache() *cache.ProfileCache {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.profiles
}

// SetTracker registers the impression/click tracker
func (c *Kernel) SetTracker(tracker *tracking.Tracker) *Kernel {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tracker = tracker
	return c
}

// Tracker returns the impression/click tracker
func (c *Kernel) Tracker() *tracking.Tracker {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tracker
}

// SetBusinessEvents registers the span helper
func (c *Kernel) SetBusinessEvents(events *telemetry.BusinessEvents) *Kernel {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = events
	return c
}

// Events returns the span helper
func (c *Kernel) Events() *telemetry.BusinessEvents {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.events == nil {
		return telemetry.NewBusinessEvents()
	}
	return c.events
}

// SetTokenService registers the bearer token service
func (c *Kernel) SetTokenService(tokens *auth.TokenService) *Kernel {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens = tokens
	return c
}

// Tokens returns the bearer token service
func (c *Kernel) Tokens() *auth.TokenService {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tokens
}

// ============================================================================
// LIFECYCLE MANAGEMENT
// ============================================================================

// OnCleanup registers a cleanup function to be called during shutdown.
// Cleanup functions are called in LIFO order (last registered, first cleaned up).
func (c *Kernel) OnCleanup(fn func(context.Context) error) *Kernel {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanupFuncs = append(c.cleanupFuncs, fn)
	return c
}

// Cleanup performs graceful shutdown of all registered services.
// It calls cleanup functions in reverse order of registration and returns the
// first failure after running them all.
func (c *Kernel) Cleanup(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var firstErr error
	for i := len(c.cleanupFuncs) - 1; i >= 0; i-- {
		if err := c.cleanupFuncs[i](ctx); err != nil {
			c.loggerLocked().Error("Cleanup function failed",
				zap.Int("index", i),
				zap.Error(err),
			)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	c.cleanupFuncs = c.cleanupFuncs[:0]

	return firstErr
}

// ============================================================================
// VALIDATION
// ============================================================================

// Validate checks that all required dependencies are registered.
// This should be called after initialization and before starting the server.
func (c *Kernel) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	missingDeps := []string{}

	if c.db == nil {
		missingDeps = append(missingDeps, "database (DB)")
	}
	if c.catalog == nil || c.history == nil || c.users == nil {
		missingDeps = append(missingDeps, "repositories")
	}
	if c.engine == nil {
		missingDeps = append(missingDeps, "recommendation engine")
	}
	if c.tokens == nil {
		missingDeps = append(missingDeps, "token service")
	}

	if len(missingDeps) > 0 {
		return NewInitializationError("Missing required dependencies", missingDeps)
	}

	if c.cache == nil {
		c.loggerLocked().Warn("Redis not configured, taste profiles will be rebuilt on every request")
	}
	if c.tracker == nil {
		c.loggerLocked().Warn("Tracker not configured, impressions will not be recorded")
	}

	return nil
}

// ============================================================================
// FLUENT API SUPPORT
// ============================================================================

// WithDB is a fluent setter for database
func (c *Kernel) WithDB(db *gorm.DB) *Kernel {
	return c.SetDB(db)
}

// WithLogger is a fluent setter for logger
func (c *Kernel) WithLogger(l *zap.Logger) *Kernel {
	return c.SetLogger(l)
}

// WithCache is a fluent setter for cache
func (c *Kernel) WithCache(client *cache.RedisClient) *Kernel {
	return c.SetCache(client)
}

// WithRepositories is a fluent setter for the repositories
func (c *Kernel) WithRepositories(catalog repository.CatalogRepository, history repository.HistoryRepository, users repository.UserRepository) *Kernel {
	return c.SetRepositories(catalog, history, users)
}
