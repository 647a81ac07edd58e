package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string
	Environment string
	Database    DatabaseConfig
	Webhook     WebhookConfig
	RateLimit   RateLimitConfig
	Notify      NotifyConfig
	Admin       AdminConfig
	LogLevel    string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// WebhookConfig controls signature verification of inbound webhooks.
// An empty Secret disables verification entirely.
type WebhookConfig struct {
	Secret       string
	TimestampMax time.Duration
}

// RateLimitConfig carries the per-tier window/ceiling pairs. The webhook
// tier is deliberately permissive: third-party form builders burst.
type RateLimitConfig struct {
	WebhookWindow time.Duration
	WebhookMax    int
	APIWindow     time.Duration
	APIMax        int
	AuthWindow    time.Duration
	AuthMax       int
}

// NotifyConfig points at the downstream notification dispatcher
type NotifyConfig struct {
	URL     string
	Token   string
	Timeout time.Duration
}

type AdminConfig struct {
	APIKeyHash string
}

func Load() (*Config, error) {
	viper.SetConfigType("env")
	viper.SetConfigName(".env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")

	// Set defaults
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("LOG_LEVEL", "info")

	// Read from environment variables
	viper.AutomaticEnv()

	// Try to read .env file (optional)
	if err := viper.ReadInConfig(); err != nil {
		// It's okay if .env doesn't exist, we'll use env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{
		Port:        getEnvOrViper("PORT", "8080"),
		Environment: getEnvOrViper("ENVIRONMENT", "development"),
		Database: DatabaseConfig{
			Host:     getEnvOrViper("DB_HOST", "localhost"),
			Port:     getEnvOrViper("DB_PORT", "5432"),
			User:     getEnvOrViper("DB_USER", "postgres"),
			Password: getEnvOrViper("DB_PASSWORD", "postgres"),
			DBName:   getEnvOrViper("DB_NAME", "orderhook"),
			SSLMode:  getEnvOrViper("DB_SSLMODE", "disable"),
		},
		Webhook: WebhookConfig{
			Secret:       getEnvOrViper("WEBHOOK_SECRET", ""),
			TimestampMax: getDuration("WEBHOOK_TIMESTAMP_MAX", 5*time.Minute),
		},
		RateLimit: RateLimitConfig{
			WebhookWindow: getDuration("RATELIMIT_WEBHOOK_WINDOW", time.Minute),
			WebhookMax:    getInt("RATELIMIT_WEBHOOK_MAX", 2000),
			APIWindow:     getDuration("RATELIMIT_API_WINDOW", time.Minute),
			APIMax:        getInt("RATELIMIT_API_MAX", 300),
			AuthWindow:    getDuration("RATELIMIT_AUTH_WINDOW", 15*time.Minute),
			AuthMax:       getInt("RATELIMIT_AUTH_MAX", 10),
		},
		Notify: NotifyConfig{
			URL:     getEnvOrViper("NOTIFY_URL", ""),
			Token:   getEnvOrViper("NOTIFY_TOKEN", ""),
			Timeout: getDuration("NOTIFY_TIMEOUT", 10*time.Second),
		},
		Admin: AdminConfig{
			APIKeyHash: getEnvOrViper("ADMIN_API_KEY_HASH", ""),
		},
		LogLevel: getEnvOrViper("LOG_LEVEL", "info"),
	}

	return cfg, nil
}

func getEnvOrViper(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	if viper.IsSet(key) {
		return viper.GetString(key)
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	raw := getEnvOrViper(key, "")
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return defaultValue
	}
	return n
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw := getEnvOrViper(key, "")
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return defaultValue
	}
	return d
}
