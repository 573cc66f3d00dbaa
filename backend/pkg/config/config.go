package config

import (
	stderrors "errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	apperrors "digital-twin/backend/pkg/errors"
)

// Config holds all application configuration
type Config struct {
	// App
	Port     string `validate:"required,numeric"`
	Env      string `validate:"oneof=development production test"`
	LogLevel string

	// Graph store
	StoreBackend  string `validate:"oneof=memory neo4j"`
	Neo4jURI      string `validate:"required_if=StoreBackend neo4j"`
	Neo4jUser     string `validate:"required_if=StoreBackend neo4j"`
	Neo4jPassword string `validate:"required_if=StoreBackend neo4j"`
	Neo4jDatabase string

	// Traversal
	DefaultTraversalDepth int `validate:"gt=0,ltefield=MaxTraversalDepth"`
	MaxTraversalDepth     int `validate:"gt=0"`

	// Rate limiting
	RateLimitBackend       string        `validate:"oneof=memory redis"`
	RedisAddr              string        `validate:"required_if=RateLimitBackend redis"`
	RedisPassword          string
	RedisDB                int           `validate:"gte=0"`
	RateLimitPrefix        string        `validate:"required"`
	RateLimitSweepInterval time.Duration `validate:"gt=0"`

	// Per-operation policies, "limit/windowSeconds/strategy"
	RateLimitRead     string `validate:"required"`
	RateLimitWrite    string `validate:"required"`
	RateLimitTraverse string `validate:"required"`
}

var validate = validator.New()

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		Port:                   getEnv("PORT", "8080"),
		Env:                    getEnv("ENV", "development"),
		LogLevel:               getEnv("LOG_LEVEL", ""),
		StoreBackend:           getEnv("STORE_BACKEND", "memory"),
		Neo4jURI:               getEnv("NEO4J_URI", "bolt://localhost:7687"),
		Neo4jUser:              getEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword:          getEnv("NEO4J_PASSWORD", "password"),
		Neo4jDatabase:          getEnv("NEO4J_DATABASE", ""),
		DefaultTraversalDepth:  getEnvInt("DEFAULT_TRAVERSAL_DEPTH", 2),
		MaxTraversalDepth:      getEnvInt("MAX_TRAVERSAL_DEPTH", 10),
		RateLimitBackend:       getEnv("RATE_LIMIT_BACKEND", "memory"),
		RedisAddr:              getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:          getEnv("REDIS_PASSWORD", ""),
		RedisDB:                getEnvInt("REDIS_DB", 0),
		RateLimitPrefix:        getEnv("RATE_LIMIT_PREFIX", "twin:ratelimit"),
		RateLimitSweepInterval: getEnvDuration("RATE_LIMIT_SWEEP_INTERVAL", 30*time.Second),
		RateLimitRead:          getEnv("RATE_LIMIT_READ", "300/60/subject"),
		RateLimitWrite:         getEnv("RATE_LIMIT_WRITE", "60/60/subject"),
		RateLimitTraverse:      getEnv("RATE_LIMIT_TRAVERSE", "30/60/subject"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if stderrors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		if fe.Tag() == "required" || fe.Tag() == "required_if" {
			return apperrors.NewConfigMissingRequired(fe.Field())
		}
		return apperrors.NewConfigValidationFailed(fe.Field(), fmt.Sprintf("failed %q check (value %v)", fe.Tag(), fe.Value()))
	}
	return err
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if result, err := strconv.Atoi(value); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if result, err := time.ParseDuration(value); err == nil {
			return result
		}
	}
	return defaultValue
}
