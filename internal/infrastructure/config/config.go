package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	// Database configuration
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string

	// Redis configuration (authentication session store)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// SessionTTL bounds how long an unfinished or unredeemed session lives
	SessionTTL time.Duration

	// Signing key configuration
	HMACKeyID     string
	HMACKeySecret string
	RSAKeyID      string
	RSAKeyPath    string

	// DevPolicyEnabled registers the built-in development login policy
	DevPolicyEnabled bool

	// Server configuration
	ServerPort int
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load .env from project root
	_ = godotenv.Load()

	sessionTTL, err := time.ParseDuration(getEnv("SESSION_TTL", "10m"))
	if err != nil {
		return nil, err
	}

	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnvInt("DB_PORT", 5432),
		DBUser:     getEnv("DB_USER", "owner"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "authz"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		SessionTTL: sessionTTL,

		HMACKeyID:     getEnv("JWT_HMAC_KEY_ID", "hmac-main"),
		HMACKeySecret: getEnv("JWT_HMAC_SECRET", ""),
		RSAKeyID:      getEnv("JWT_RSA_KEY_ID", "rsa-main"),
		RSAKeyPath:    getEnv("JWT_RSA_KEY_PATH", "keys/jwt-signing-key.pem"),

		DevPolicyEnabled: getEnvBool("DEV_POLICY_ENABLED", false),

		ServerPort: getEnvInt("PORT", 8080),
	}, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvInt gets an environment variable as an integer or returns a default value
func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		intValue, err := strconv.Atoi(value)
		if err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool gets an environment variable as a boolean or returns a default value
func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		boolValue, err := strconv.ParseBool(value)
		if err == nil {
			return boolValue
		}
	}
	return defaultValue
}
