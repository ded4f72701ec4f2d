package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

const defaultJWTSecret = "a-very-secret-key-should-be-longer-and-random"

// Config holds application configuration.
type Config struct {
	DatabaseURL        string
	Port               string
	IsProduction       bool
	EnableDBCheck      bool
	JWTSecret          string
	JWTIssuer          string
	RateLimit          string
	CORSAllowedOrigins []string
	MigrationsPath     string

	RedisURL          string
	DashboardCacheTTL time.Duration

	// FieldEncryptionKey is a 32-byte key, hex or base64 encoded.
	FieldEncryptionKey string

	OverrideMaxLevels int
	// OverrideRates maps hierarchy level to percentage. Unlisted levels earn 0%.
	OverrideRates map[int]decimal.Decimal

	PosthogAPIKey   string
	PosthogEndpoint string
}

// OverrideRate returns the configured override percentage for a level.
func (c *Config) OverrideRate(level int) decimal.Decimal {
	if rate, ok := c.OverrideRates[level]; ok {
		return rate
	}
	return decimal.Zero
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("ENABLE_DB_CHECK", false)
	viper.SetDefault("JWT_SECRET", defaultJWTSecret)
	viper.SetDefault("JWT_ISSUER", "onesuite")
	viper.SetDefault("RATE_LIMIT", "100-M")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	viper.SetDefault("MIGRATIONS_PATH", "file://migrations")
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("DASHBOARD_CACHE_TTL", "5m")
	viper.SetDefault("FIELD_ENCRYPTION_KEY", "")
	viper.SetDefault("OVERRIDE_MAX_LEVELS", 2)
	viper.SetDefault("OVERRIDE_RATE_L1", "2.00")
	viper.SetDefault("OVERRIDE_RATE_L2", "1.00")
	viper.SetDefault("POSTHOG_API_KEY", "")
	viper.SetDefault("POSTHOG_ENDPOINT", "https://eu.i.posthog.com")

	// Environment variables override defaults and .env values.
	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.DatabaseURL = viper.GetString("PGSQL_URL")
	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}

	cfg.Port = viper.GetString("PORT")
	if cfg.Port == "" {
		cfg.Port = "8080"
		log.Printf("Warning: PORT environment variable not set. Defaulting to %s\n", cfg.Port)
	}

	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")
	cfg.EnableDBCheck = viper.GetBool("ENABLE_DB_CHECK")

	cfg.JWTSecret = viper.GetString("JWT_SECRET")
	if cfg.JWTSecret == "" || cfg.JWTSecret == defaultJWTSecret {
		cfg.JWTSecret = defaultJWTSecret // !! CHANGE IN PRODUCTION !!
		log.Println("Warning: JWT_SECRET environment variable not set. Using default insecure key.")
		if cfg.IsProduction {
			return nil, fmt.Errorf("JWT_SECRET must be set in production")
		}
	}
	cfg.JWTIssuer = viper.GetString("JWT_ISSUER")

	cfg.RateLimit = viper.GetString("RATE_LIMIT")
	cfg.MigrationsPath = viper.GetString("MIGRATIONS_PATH")

	for _, origin := range strings.Split(viper.GetString("CORS_ALLOWED_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, origin)
		}
	}

	cfg.RedisURL = viper.GetString("REDIS_URL")
	if cfg.RedisURL == "" {
		log.Println("Warning: REDIS_URL not set. Dashboard caching is disabled.")
	}

	ttlStr := viper.GetString("DASHBOARD_CACHE_TTL")
	ttl, err := time.ParseDuration(ttlStr)
	if err != nil || ttl <= 0 {
		ttl = 5 * time.Minute
		log.Printf("Warning: Invalid value for DASHBOARD_CACHE_TTL ('%s'). Defaulting to %s.\n", ttlStr, ttl.String())
	}
	cfg.DashboardCacheTTL = ttl

	cfg.FieldEncryptionKey = viper.GetString("FIELD_ENCRYPTION_KEY")
	if cfg.FieldEncryptionKey == "" {
		if cfg.IsProduction {
			return nil, fmt.Errorf("FIELD_ENCRYPTION_KEY must be set in production")
		}
		log.Println("Warning: FIELD_ENCRYPTION_KEY not set. A random key will be generated; encrypted fields will not survive a restart.")
	}

	cfg.OverrideMaxLevels = viper.GetInt("OVERRIDE_MAX_LEVELS")
	if cfg.OverrideMaxLevels < 0 {
		return nil, fmt.Errorf("OVERRIDE_MAX_LEVELS must not be negative, got %d", cfg.OverrideMaxLevels)
	}

	cfg.OverrideRates = make(map[int]decimal.Decimal, cfg.OverrideMaxLevels)
	for level := 1; level <= cfg.OverrideMaxLevels; level++ {
		key := fmt.Sprintf("OVERRIDE_RATE_L%d", level)
		raw := viper.GetString(key)
		if raw == "" {
			continue
		}
		rate, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", key, raw, err)
		}
		if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
			return nil, fmt.Errorf("%s must be between 0 and 100, got %s", key, raw)
		}
		cfg.OverrideRates[level] = rate
	}

	cfg.PosthogAPIKey = viper.GetString("POSTHOG_API_KEY")
	cfg.PosthogEndpoint = viper.GetString("POSTHOG_ENDPOINT")

	return cfg, nil
}
