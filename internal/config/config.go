package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// Redis configuration (alert queue)
	Redis RedisConfig

	// JWT configuration
	JWT JWTConfig

	// Flight content providers
	Providers ProvidersConfig

	// Payment processor configuration
	Payment PaymentConfig

	// Channel routing configuration
	Routing RoutingConfig

	// Customer pricing configuration
	Markup MarkupConfig

	// Booking pipeline configuration
	Booking BookingConfig

	// Operator alerting configuration
	Alerts AlertsConfig

	// CORS configuration
	CORS CORSConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        string
	Environment string // development, staging, production
	LogLevel    string // debug, info, warn, error
	SearchURL   string // frontend search page used in sold-out responses
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// RedisConfig holds the alert queue connection configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds JWT-related configuration
type JWTConfig struct {
	Secret            string
	AccessTokenExpiry time.Duration
}

// ProviderConfig holds the connection settings for one flight provider
type ProviderConfig struct {
	BaseURL   string
	APIKey    string
	APISecret string
	Timeout   time.Duration
}

// ProvidersConfig groups the two upstream content sources
type ProvidersConfig struct {
	GDS     ProviderConfig
	Instant ProviderConfig
}

// PaymentConfig holds the card processor configuration
type PaymentConfig struct {
	BaseURL       string
	SecretKey     string // never expose to client
	WebhookSecret string
	Timeout       time.Duration
}

// RoutingConfig holds channel selection thresholds
type RoutingConfig struct {
	InstantThreshold float64 // net price below this books instantly
}

// MarkupConfig holds customer pricing parameters
type MarkupConfig struct {
	Percentage float64 // applied to net price, e.g. 0.07
	FlatFee    float64 // added after the percentage
}

// BookingConfig holds pipeline retry and hold settings
type BookingConfig struct {
	PersistAttempts  int
	PersistBaseDelay time.Duration
	Disabled         bool // kill switch, rejects new bookings with 503
}

// AlertsConfig holds Telegram delivery settings and queue naming
type AlertsConfig struct {
	TelegramToken string
	AdminChatIDs  []string
	QueueName     string
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			SearchURL:   getEnv("SEARCH_URL", "/flights"),
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    time.Duration(getEnvAsInt("DATABASE_CONN_MAX_LIFETIME", 300)) * time.Second,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:            getEnv("JWT_SECRET", ""),
			AccessTokenExpiry: time.Duration(getEnvAsInt("JWT_ACCESS_TOKEN_EXPIRY", 3600)) * time.Second,
		},
		Providers: ProvidersConfig{
			GDS: ProviderConfig{
				BaseURL:   getEnv("GDS_BASE_URL", ""),
				APIKey:    getEnv("GDS_API_KEY", ""),
				APISecret: getEnv("GDS_API_SECRET", ""),
				Timeout:   time.Duration(getEnvAsInt("GDS_TIMEOUT_SECONDS", 30)) * time.Second,
			},
			Instant: ProviderConfig{
				BaseURL: getEnv("INSTANT_BASE_URL", ""),
				APIKey:  getEnv("INSTANT_API_KEY", ""),
				Timeout: time.Duration(getEnvAsInt("INSTANT_TIMEOUT_SECONDS", 30)) * time.Second,
			},
		},
		Payment: PaymentConfig{
			BaseURL:       getEnv("PAYMENT_BASE_URL", "https://api.stripe.com/v1"),
			SecretKey:     getEnv("PAYMENT_SECRET_KEY", ""),
			WebhookSecret: getEnv("PAYMENT_WEBHOOK_SECRET", ""),
			Timeout:       time.Duration(getEnvAsInt("PAYMENT_TIMEOUT_SECONDS", 30)) * time.Second,
		},
		Routing: RoutingConfig{
			InstantThreshold: getEnvAsFloat("ROUTING_INSTANT_THRESHOLD", 500),
		},
		Markup: MarkupConfig{
			Percentage: getEnvAsFloat("MARKUP_PERCENTAGE", 0.07),
			FlatFee:    getEnvAsFloat("MARKUP_FLAT_FEE", 0),
		},
		Booking: BookingConfig{
			PersistAttempts:  getEnvAsInt("BOOKING_PERSIST_ATTEMPTS", 3),
			PersistBaseDelay: time.Duration(getEnvAsInt("BOOKING_PERSIST_BASE_DELAY_MS", 1000)) * time.Millisecond,
			Disabled:         getEnvAsBool("BOOKING_DISABLED", false),
		},
		Alerts: AlertsConfig{
			TelegramToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
			AdminChatIDs:  getEnvAsSlice("TELEGRAM_ADMIN_CHAT_IDS", nil),
			QueueName:     getEnv("ALERT_QUEUE_NAME", "booking_alerts"),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
		},
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.Markup.Percentage < 0 || c.Markup.Percentage > 1 {
		return fmt.Errorf("MARKUP_PERCENTAGE must be between 0 and 1")
	}

	if c.Routing.InstantThreshold <= 0 {
		return fmt.Errorf("ROUTING_INSTANT_THRESHOLD must be positive")
	}

	if c.Booking.PersistAttempts < 1 {
		return fmt.Errorf("BOOKING_PERSIST_ATTEMPTS must be at least 1")
	}

	// Providers and payment are validated in production only so local
	// development can run against stubs
	if c.Server.Environment == "production" {
		if c.Providers.GDS.BaseURL == "" || c.Providers.GDS.APIKey == "" {
			return fmt.Errorf("GDS_BASE_URL and GDS_API_KEY are required in production")
		}

		if c.Providers.Instant.BaseURL == "" || c.Providers.Instant.APIKey == "" {
			return fmt.Errorf("INSTANT_BASE_URL and INSTANT_API_KEY are required in production")
		}

		if c.Payment.SecretKey == "" {
			return fmt.Errorf("PAYMENT_SECRET_KEY is required in production")
		}

		if c.Payment.WebhookSecret == "" {
			return fmt.Errorf("PAYMENT_WEBHOOK_SECRET is required in production")
		}
	}

	return nil
}

// Helper functions to get environment variables

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid integer value for %s, using default: %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Invalid float value for %s, using default: %g", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Invalid boolean value for %s, using default: %t", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var result []string
	for _, v := range strings.Split(valueStr, ",") {
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
