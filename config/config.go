package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	ServerPort string
	ServerHost string

	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Redis configuration (rate limiting); optional
	RedisURL string

	// JWT configuration for admin sessions
	JWTSecret string

	// SecretKey signs time-boxed Telegram links. Must match the bot's key.
	SecretKey string

	// Admin account seeded at startup
	AdminUsername string
	AdminPassword string

	// Telegram bot configuration
	TelegramBotToken string
	// WebAppURL is the externally reachable base URL embedded in signed links.
	WebAppURL string

	// Pagination
	ResponsesPerPage int
}

// LoadConfig creates a new Config instance with values from environment
// variables, falling back to development defaults. Sensitive values may also
// come from Docker secrets in the SECRETS_DIR directory.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),
		ServerHost: getEnv("SERVER_HOST", "0.0.0.0"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnvOrSecret("DB_PASSWORD", "db_password", "postgres"),
		DBName:     getEnv("DB_NAME", "flipnotify"),
		DBSSLMode:  getEnv("DB_SSL_MODE", "disable"),

		RedisURL: getEnv("REDIS_URL", ""),

		JWTSecret: getEnvOrSecret("JWT_SECRET", "jwt_secret", "dev-jwt-secret"),
		SecretKey: getEnvOrSecret("SECRET_KEY", "secret_key", "dev-secret-key-change-in-production"),

		AdminUsername: getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword: getEnvOrSecret("ADMIN_PASSWORD", "admin_password", "admin"),

		TelegramBotToken: getEnvOrSecret("TELEGRAM_BOT_TOKEN", "telegram_bot_token", ""),
		WebAppURL:        getEnv("WEBAPP_URL", "http://localhost:8080"),

		ResponsesPerPage: getEnvInt("RESPONSES_PER_PAGE", 10),
	}

	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// getEnv returns the environment variable value or a default
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getEnvInt returns the environment variable parsed as an int or a default
func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

// getEnvOrSecret prefers the environment variable, then a Docker secret,
// then the default
func getEnvOrSecret(envKey, secretName, fallback string) string {
	if value := os.Getenv(envKey); value != "" {
		return value
	}
	if value := readSecret(secretName); value != "" {
		return value
	}
	return fallback
}

// readSecret reads a Docker secret from the secrets directory
func readSecret(name string) string {
	secretsDir := os.Getenv("SECRETS_DIR")
	if secretsDir == "" {
		secretsDir = "/run/secrets"
	}
	secretPath := filepath.Join(secretsDir, name)
	if data, err := os.ReadFile(secretPath); err == nil {
		return strings.TrimSpace(string(data))
	}
	return ""
}
