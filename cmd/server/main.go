package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sh6drack/actually-waxfeed-sub002/internal/cache"
	"github.com/sh6drack/actually-waxfeed-sub002/internal/config"
	"github.com/sh6drack/actually-waxfeed-sub002/internal/database"
	"github.com/sh6drack/actually-waxfeed-sub002/internal/handlers"
	"github.com/sh6drack/actually-waxfeed-sub002/internal/kernel"
	"github.com/sh6drack/actually-waxfeed-sub002/internal/logger"
	"github.com/sh6drack/actually-waxfeed-sub002/internal/metrics"
	"github.com/sh6drack/actually-waxfeed-sub002/internal/middleware"
	"github.com/sh6drack/actually-waxfeed-sub002/internal/telemetry"
	"github.com/sh6drack/actually-waxfeed-sub002/internal/tracking"
	"go.uber.org/zap"
)

const serviceName = "waxfeed-recommendations"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Initialize(cfg.LogLevel, cfg.LogFile); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close()

	logger.Log.Info("=== Waxfeed recommendation server starting ===",
		zap.String("environment", cfg.Environment))

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	metrics.Initialize()

	tp, err := telemetry.InitTracer(telemetry.Config{
		ServiceName:  serviceName,
		Environment:  cfg.Environment,
		OTLPEndpoint: cfg.OTLPEndpoint,
		Enabled:      cfg.OTLPEndpoint != "",
		Insecure:     cfg.OTLPInsecure,
		SamplingRate: cfg.TraceSampleRate,
	})
	if err != nil {
		logger.WarnWithFields("Tracing disabled", err)
	}

	if err := database.Initialize(); err != nil {
		logger.FatalWithFields("Failed to initialize database", err)
	}
	if err := database.Migrate(); err != nil {
		logger.FatalWithFields("Failed to run migrations", err)
	}
	if tp != nil {
		if err := database.DB.Use(telemetry.GORMTracingPlugin()); err != nil {
			logger.WarnWithFields("Failed to register GORM tracing plugin", err)
		}
	}

	var redisClient *cache.RedisClient
	if cfg.RedisEnabled() {
		redisClient, err = cache.NewRedisClient(cfg.RedisHost, cfg.RedisPort, cfg.RedisPassword)
		if err != nil {
			logger.WarnWithFields("Redis unavailable, profiles will not be cached", err)
			redisClient = nil
		}
	}

	recommendCfg, err := config.LoadRecommendConfig(cfg.RecommendConfigPath)
	if err != nil {
		logger.FatalWithFields("Failed to load recommendation config", err)
	}

	jwtSecret := []byte(cfg.JWTSecret)
	if len(jwtSecret) == 0 {
		logger.Log.Warn("JWT_SECRET not set, using an insecure development secret")
		jwtSecret = []byte("waxfeed-dev-secret")
	}

	k, err := kernel.Bootstrap(database.DB, redisClient, kernel.Options{
		Engine:          recommendCfg,
		ProfileCacheTTL: cfg.ProfileCacheTTL,
		JWTSecret:       jwtSecret,
	})
	if err != nil {
		logger.FatalWithFields("Failed to bootstrap kernel", err)
	}
	k.SetLogger(logger.Log)
	if redisClient != nil {
		k.OnCleanup(func(context.Context) error { return redisClient.Close() })
	}
	k.OnCleanup(func(context.Context) error { return database.Close() })
	k.OnCleanup(func(context.Context) error { return telemetry.Shutdown(tp, 5*time.Second) })
	if err := k.Validate(); err != nil {
		logger.FatalWithFields("Kernel validation failed", err)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.GinLoggerMiddleware())
	r.Use(middleware.MetricsMiddleware())
	r.Use(middleware.TracingMiddleware(serviceName))
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Request-ID"}
	r.Use(cors.New(corsConfig))

	r.GET("/health", func(c *gin.Context) {
		status := http.StatusOK
		dbStatus := "ok"
		if err := database.Health(); err != nil {
			status = http.StatusServiceUnavailable
			dbStatus = err.Error()
		}
		c.JSON(status, gin.H{
			"status":    http.StatusText(status),
			"database":  dbStatus,
			"cache":     redisClient != nil,
			"timestamp": time.Now().UTC(),
			"service":   serviceName,
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	h := handlers.NewHandlers(k)
	h.RegisterRoutes(r.Group("/api/v1"))

	// hourly CTR summary in the logs
	ctrCtx, stopCTR := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctrCtx.Done():
				return
			case <-ticker.C:
				if err := tracking.LogCTRMetrics(ctrCtx, k.DB()); err != nil {
					logger.WarnWithFields("Failed to compute CTR metrics", err)
				}
			}
		}
	}()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.Info("Server listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.FatalWithFields("Failed to start server", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")
	stopCTR()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.ErrorWithFields("Server forced to shutdown", err)
	}
	if err := k.Cleanup(ctx); err != nil {
		logger.ErrorWithFields("Cleanup failed", err)
	}

	logger.Log.Info("Server exited")
}
