package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // BUSINESS_TIMEZONE must resolve in minimal containers

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Config holds all configuration for the application
type Config struct {
	// Database
	DatabaseURL string
	AutoMigrate bool

	// Auth0
	Auth0Domain   string
	Auth0Audience string
	AdminAuth0IDs []string

	// Server
	Port           string
	CORSOrigins    []string
	Env            string
	InternalAPIKey string

	Billing   BillingConfig
	Cache     CacheConfig
	RabbitMQ  RabbitMQConfig
	RateLimit RateLimitConfig
	Razorpay  RazorpayConfig
	WebSocket WebSocketConfig

	// S3 archive of finalized bills
	S3 S3Config
}

// BillingConfig controls pro-ration and the month rollover
type BillingConfig struct {
	MonthlyFee       decimal.Decimal
	Currency         string
	Location         *time.Location
	FinalizeCron     string // empty disables the in-process scheduler
	HistoryMaxMonths int
}

// CacheConfig selects the dashboard cache backend
type CacheConfig struct {
	Driver        string
	TTL           time.Duration
	RedisAddr     string
	RedisPassword string
}

// RabbitMQConfig holds the event broker settings
type RabbitMQConfig struct {
	URL      string // empty = log-only fallback
	Exchange string
}

// RateLimitConfig holds per-gym request limits
type RateLimitConfig struct {
	PerMinute int
	Burst     int
}

// RazorpayConfig holds the gateway secret used to verify payment signatures
type RazorpayConfig struct {
	KeySecret string
}

// WebSocketConfig holds dashboard connection limits
type WebSocketConfig struct {
	MaxConnectionsPerGym int // 0 = unlimited
	SendBuffer           int
}

// S3Config holds AWS S3 configuration
type S3Config struct {
	Region          string
	Bucket          string // empty disables archiving
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string // Optional: for MinIO/LocalStack local dev
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	monthlyFee, err := decimal.NewFromString(getEnv("BILLING_MONTHLY_FEE", "500"))
	if err != nil {
		return nil, fmt.Errorf("BILLING_MONTHLY_FEE is not a decimal: %w", err)
	}

	cfg := &Config{
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		AutoMigrate:    getEnvBool("AUTO_MIGRATE", false),
		Auth0Domain:    getEnv("AUTH0_DOMAIN", ""),
		Auth0Audience:  getEnv("AUTH0_AUDIENCE", ""),
		AdminAuth0IDs:  splitList(getEnv("ADMIN_AUTH0_IDS", "")),
		Port:           getEnv("PORT", "8080"),
		CORSOrigins:    splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		Env:            getEnv("ENV", "development"),
		InternalAPIKey: getEnv("INTERNAL_API_KEY", ""),
		Billing: BillingConfig{
			MonthlyFee:       monthlyFee,
			Currency:         getEnv("BILLING_CURRENCY", "INR"),
			Location:         loadLocation(getEnv("BUSINESS_TIMEZONE", "Asia/Kolkata")),
			FinalizeCron:     getEnv("BILLING_FINALIZE_CRON", ""),
			HistoryMaxMonths: getEnvInt("BILLING_HISTORY_MAX_MONTHS", 24),
		},
		Cache: CacheConfig{
			Driver:        getEnv("CACHE_DRIVER", "memory"),
			TTL:           getEnvDuration("DASHBOARD_CACHE_TTL", 5*time.Minute),
			RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
		},
		RabbitMQ: RabbitMQConfig{
			URL:      getEnv("RABBITMQ_URL", ""),
			Exchange: getEnv("BILLING_EVENTS_EXCHANGE", "gymcrm.billing"),
		},
		RateLimit: RateLimitConfig{
			PerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
			Burst:     getEnvInt("RATE_LIMIT_BURST", 20),
		},
		Razorpay: RazorpayConfig{
			KeySecret: getEnv("RAZORPAY_KEY_SECRET", ""),
		},
		WebSocket: WebSocketConfig{
			MaxConnectionsPerGym: getEnvInt("WS_MAX_CONNECTIONS_PER_GYM", 20),
			SendBuffer:           getEnvInt("WS_SEND_BUFFER", 64),
		},
		S3: S3Config{
			Region:          getEnv("S3_REGION", "ap-south-1"),
			Bucket:          getEnv("S3_BUCKET", ""),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			Endpoint:        getEnv("S3_ENDPOINT", ""), // Empty = use AWS, set for MinIO/LocalStack
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// IsProduction reports whether the service runs in production
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Auth0Domain == "" {
		return fmt.Errorf("AUTH0_DOMAIN is required")
	}
	if c.Auth0Audience == "" {
		return fmt.Errorf("AUTH0_AUDIENCE is required")
	}
	if c.Billing.MonthlyFee.IsNegative() {
		return fmt.Errorf("BILLING_MONTHLY_FEE cannot be negative")
	}
	if c.Billing.HistoryMaxMonths < 1 {
		return fmt.Errorf("BILLING_HISTORY_MAX_MONTHS must be at least 1")
	}
	if c.Cache.Driver != "memory" && c.Cache.Driver != "redis" {
		return fmt.Errorf("CACHE_DRIVER must be memory or redis, got %q", c.Cache.Driver)
	}
	if c.RateLimit.PerMinute < 1 || c.RateLimit.Burst < 1 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE and RATE_LIMIT_BURST must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.Warn().Str("key", key).Str("value", raw).Msg("Invalid integer, using default")
		return defaultValue
	}
	return v
}

func getEnvBool(key string, defaultValue bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		log.Warn().Str("key", key).Str("value", raw).Msg("Invalid boolean, using default")
		return defaultValue
	}
	return v
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v <= 0 {
		log.Warn().Str("key", key).Str("value", raw).Msg("Invalid duration, using default")
		return defaultValue
	}
	return v
}

// loadLocation falls back to UTC when the zone database does not know name
func loadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Warn().Err(err).Str("timezone", name).Msg("Unknown BUSINESS_TIMEZONE, falling back to UTC")
		return time.UTC
	}
	return loc
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
