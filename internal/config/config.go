package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	ServerPort     string
	DatabaseType   string
	DatabasePath   string
	DatabaseURL    string
	MigrationsPath string

	SessionSecret   string
	SessionDuration time.Duration
	OTPLifetime     time.Duration

	AppBaseURL   string
	AWSRegion    string
	SESFromEmail string
	SESFromName  string
	EmailDebug   bool

	AdminEmail    string
	AdminPassword string
}

// Load reads configuration from environment variables with sensible defaults.
// A local .env file is honoured when present.
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env")
	}

	return &Config{
		ServerPort:     getEnv("PORT", "8080"),
		DatabaseType:   getEnv("DB_TYPE", "sqlite"),
		DatabasePath:   getEnv("DB_PATH", "./uniportal.db"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "./migrations"),

		SessionSecret:   getEnv("SESSION_SECRET", "complex_password_at_least_32_characters_long"),
		SessionDuration: getDuration("SESSION_DURATION", 24*time.Hour),
		OTPLifetime:     getDuration("OTP_TTL", 10*time.Minute),

		AppBaseURL:   getEnv("APP_BASE_URL", "http://localhost:8080"),
		AWSRegion:    getEnv("AWS_REGION", "eu-west-1"),
		SESFromEmail: getEnv("SES_FROM_EMAIL", ""),
		SESFromName:  getEnv("SES_FROM_NAME", "UniPortal"),
		EmailDebug:   getEnv("EMAIL_DEBUG", "") == "true",

		AdminEmail:    getEnv("ADMIN_EMAIL", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
	}
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDuration reads a duration from the environment, falling back on parse failure
func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Invalid duration for %s: %q, using default %s", key, value, defaultValue)
		return defaultValue
	}
	return d
}
