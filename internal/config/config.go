// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
// It is loaded once at startup and treated as read-only afterwards.
type Config struct {
	// Port is the HTTP listen port.
	Port string `mapstructure:"PORT"`
	// Env is the application environment ("dev", "production", ...).
	Env string `mapstructure:"APP_ENV"`
	// DatabaseURL is the Postgres DSN. Required.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// RunMigrations applies embedded migrations and constraint back-filling at startup.
	RunMigrations bool `mapstructure:"RUN_MIGRATIONS"`

	// JWTSecret is the HS256 signing secret. Required.
	JWTSecret string `mapstructure:"JWT_SECRET"`
	// JWTExpiresMin is the token lifetime in minutes (default 30 days).
	JWTExpiresMin int `mapstructure:"JWT_EXPIRES_MIN"`

	// OTPTTL is how long an issued code stays valid (e.g. "10m").
	OTPTTL time.Duration `mapstructure:"OTP_TTL"`
	// OTPHashCost is the bcrypt cost used to store codes at rest.
	OTPHashCost int `mapstructure:"OTP_HASH_COST"`
	// OTPStore selects the code store: "memory" or "redis".
	OTPStore string `mapstructure:"OTP_STORE"`
	// RedisURL is used when OTPStore is "redis" (e.g. redis://localhost:6379/0).
	RedisURL string `mapstructure:"REDIS_URL"`
	// OTPPurgeSchedule is the cron spec for dropping expired in-memory codes.
	OTPPurgeSchedule string `mapstructure:"OTP_PURGE_SCHEDULE"`

	// SMSAPIKey enables SMS delivery of codes; when empty codes are only logged.
	SMSAPIKey  string `mapstructure:"SMS_API_KEY"`
	SMSBaseURL string `mapstructure:"SMS_BASE_URL"`
	SMSSender  string `mapstructure:"SMS_SENDER"`

	// Supabase Storage for attachments.
	SupabaseURL        string `mapstructure:"SUPABASE_URL"`
	SupabaseServiceKey string `mapstructure:"SUPABASE_SERVICE_KEY"`
	SupabaseBucket     string `mapstructure:"SUPABASE_BUCKET"`

	// AuthRateLimitRPS limits /api/auth/* per client IP; 0 disables the limiter.
	AuthRateLimitRPS   float64 `mapstructure:"AUTH_RATE_LIMIT_RPS"`
	AuthRateLimitBurst int     `mapstructure:"AUTH_RATE_LIMIT_BURST"`

	// StrictTransitions switches the request lifecycle to forward-only transitions.
	StrictTransitions bool `mapstructure:"STRICT_TRANSITIONS"`

	LogLevel    string `mapstructure:"LOG_LEVEL"`
	LogFormat   string `mapstructure:"LOG_FORMAT"`
	CORSOrigins string `mapstructure:"CORS_ORIGINS"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored. Env vars override .env.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	// Every key needs a default so Unmarshal sees env-only values.
	v.SetDefault("PORT", "3000")
	v.SetDefault("APP_ENV", "dev")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("RUN_MIGRATIONS", true)
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_EXPIRES_MIN", 43200)
	v.SetDefault("OTP_TTL", "10m")
	v.SetDefault("OTP_HASH_COST", 10)
	v.SetDefault("OTP_STORE", "memory")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("OTP_PURGE_SCHEDULE", "@every 1m")
	v.SetDefault("SMS_API_KEY", "")
	v.SetDefault("SMS_BASE_URL", "")
	v.SetDefault("SMS_SENDER", "")
	v.SetDefault("SUPABASE_URL", "")
	v.SetDefault("SUPABASE_SERVICE_KEY", "")
	v.SetDefault("SUPABASE_BUCKET", "attachments")
	v.SetDefault("AUTH_RATE_LIMIT_RPS", 5.0)
	v.SetDefault("AUTH_RATE_LIMIT_BURST", 10)
	v.SetDefault("STRICT_TRANSITIONS", false)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("CORS_ORIGINS", "*")

	// viper's default decode hooks turn "10m"-style strings into time.Duration
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return errors.New("config: DATABASE_URL must be set")
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		return errors.New("config: JWT_SECRET must be set")
	}
	if c.IsProduction() && len(c.JWTSecret) < 16 {
		return errors.New("config: JWT_SECRET must be at least 16 bytes in production")
	}
	if c.JWTExpiresMin <= 0 {
		return errors.New("config: JWT_EXPIRES_MIN must be positive")
	}
	switch c.OTPStore {
	case "memory":
	case "redis":
		if c.RedisURL == "" {
			return errors.New("config: REDIS_URL must be set when OTP_STORE=redis")
		}
	default:
		return errors.New("config: OTP_STORE must be memory or redis")
	}
	if c.OTPTTL <= 0 {
		return errors.New("config: OTP_TTL must be a positive duration")
	}
	if c.OTPHashCost < 4 || c.OTPHashCost > 31 {
		return errors.New("config: OTP_HASH_COST must be between 4 and 31")
	}
	if c.AuthRateLimitRPS < 0 {
		return errors.New("config: AUTH_RATE_LIMIT_RPS must not be negative")
	}
	return nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production") || strings.EqualFold(c.Env, "prod")
}

// TokenTTL is the bearer token lifetime.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.JWTExpiresMin) * time.Minute
}

// CodeTTL is the lifetime of an issued code.
func (c *Config) CodeTTL() time.Duration {
	return c.OTPTTL
}
