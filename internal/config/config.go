package config

import (
	"os"      // For environment variables
	"strconv" // For string to int conversion
	"strings" // For broker list splitting
	"time"    // For timeout durations
	"wallet_engine/internal/domain" // Money floors

	"github.com/joho/godotenv"     // For loading .env files
	"github.com/shopspring/decimal" // Decimal parsing of money floors
)

// Config holds the application configuration
type Config struct {
	AppPort    string // Application port
	DBUser     string // Database user
	DBPassword string // Database password
	DBHost     string // Database host
	DBPort     string // Database port
	DBName     string // Database name
	JWTSecret  string // JWT secret key
	RedisAddr  string // Redis server address
	RedisPass  string // Redis password
	RedisDB    int    // Redis database number
	IsProd     bool   // Is production environment

	MinThreshold    domain.Money  // Platform floor for auto-recharge thresholds
	MinRecharge     domain.Money  // Platform floor for auto-recharge amounts
	GatewayURL      string        // Payment gateway charge endpoint
	GatewayTimeout  time.Duration // Upper bound on a single gateway call
	RechargeLockTTL time.Duration // Expiry of the per-wallet single-flight lock
	KafkaBrokers    []string      // Kafka broker addresses, empty disables event publishing
	KafkaTopic      string        // Topic for wallet events
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	redisDB, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	return &Config{
		AppPort:    os.Getenv("APP_PORT"),          // Application port
		DBUser:     os.Getenv("DB_USER"),           // Database user
		DBPassword: os.Getenv("DB_PASSWORD"),       // Database password
		DBHost:     os.Getenv("DB_HOST"),           // Database host
		DBPort:     os.Getenv("DB_PORT"),           // Database port
		DBName:     os.Getenv("DB_NAME"),           // Database name
		JWTSecret:  os.Getenv("JWT_SECRET"),        // JWT secret key
		RedisAddr:  os.Getenv("REDIS_ADDR"),        // Redis server address
		RedisPass:  os.Getenv("REDIS_PASS"),        // Redis password
		RedisDB:    redisDB,                        // Redis database number
		IsProd:     os.Getenv("IS_PROD") == "true", // Is production environment

		MinThreshold:    envMoney("MIN_THRESHOLD", "1.00"),                            // Default floor $1.00
		MinRecharge:     envMoney("MIN_RECHARGE", "5.00"),                             // Default floor $5.00
		GatewayURL:      os.Getenv("GATEWAY_URL"),                                     // Payment gateway endpoint
		GatewayTimeout:  envSeconds("GATEWAY_TIMEOUT_SECONDS", 30),                    // Gateway call timeout
		RechargeLockTTL: envSeconds("RECHARGE_LOCK_TTL_SECONDS", 60),                  // Single-flight lock TTL
		KafkaBrokers:    envList("KAFKA_BROKERS"),                                     // Kafka brokers
		KafkaTopic:      envDefault("KAFKA_TOPIC", "wallet.events"),                   // Wallet events topic
	}
}

// envMoney parses a decimal money amount from the environment
func envMoney(key, fallback string) domain.Money {
	raw := os.Getenv(key)
	if raw == "" {
		raw = fallback // Use default when unset
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		d, _ = decimal.NewFromString(fallback) // Fall back on malformed values
	}
	return domain.MoneyFromDecimal(d)
}

// envSeconds parses a duration given in whole seconds
func envSeconds(key string, fallback int) time.Duration {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil && v > 0 {
		return time.Duration(v) * time.Second
	}
	return time.Duration(fallback) * time.Second
}

// envList parses a comma-separated list, empty when unset
func envList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// envDefault returns the variable or a fallback when unset
func envDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
