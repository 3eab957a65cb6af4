package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the process-level settings read from the environment
type Config struct {
	Environment string
	Port        string

	LogLevel string
	LogFile  string

	// JWTSecret signs and verifies bearer tokens
	JWTSecret string

	RedisHost       string
	RedisPort       string
	RedisPassword   string
	ProfileCacheTTL time.Duration

	// RecommendConfigPath points at an optional YAML file of engine tunables
	RecommendConfigPath string

	// OTLPEndpoint enables trace export when set
	OTLPEndpoint    string
	OTLPInsecure    bool
	TraceSampleRate float64

	CORSOrigins []string
}

// Load reads .env (if present) and the environment
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Environment:         getEnv("ENVIRONMENT", "development"),
		Port:                getEnv("PORT", "8787"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogFile:             getEnv("LOG_FILE", "waxfeed.log"),
		JWTSecret:           os.Getenv("JWT_SECRET"),
		RedisHost:           os.Getenv("REDIS_HOST"),
		RedisPort:           getEnv("REDIS_PORT", "6379"),
		RedisPassword:       os.Getenv("REDIS_PASSWORD"),
		RecommendConfigPath: os.Getenv("RECOMMEND_CONFIG"),
		OTLPEndpoint:        os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		CORSOrigins:         splitList(getEnv("CORS_ORIGINS", "*")),
	}

	ttl, err := time.ParseDuration(getEnv("PROFILE_CACHE_TTL", "15m"))
	if err != nil {
		return nil, fmt.Errorf("PROFILE_CACHE_TTL: %w", err)
	}
	cfg.ProfileCacheTTL = ttl

	cfg.OTLPInsecure, err = strconv.ParseBool(getEnv("OTEL_EXPORTER_OTLP_INSECURE", strconv.FormatBool(!cfg.IsProduction())))
	if err != nil {
		return nil, fmt.Errorf("OTEL_EXPORTER_OTLP_INSECURE: %w", err)
	}
	cfg.TraceSampleRate, err = strconv.ParseFloat(getEnv("OTEL_TRACES_SAMPLER_ARG", "1"), 64)
	if err != nil || cfg.TraceSampleRate < 0 || cfg.TraceSampleRate > 1 {
		return nil, fmt.Errorf("OTEL_TRACES_SAMPLER_ARG must be a number in [0,1], got %q", os.Getenv("OTEL_TRACES_SAMPLER_ARG"))
	}

	if cfg.IsProduction() && cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required in production")
	}
	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return nil, fmt.Errorf("PORT must be numeric, got %q", cfg.Port)
	}

	return cfg, nil
}

// IsProduction reports whether ENVIRONMENT is production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// RedisEnabled reports whether a Redis host was configured
func (c *Config) RedisEnabled() bool {
	return c.RedisHost != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
