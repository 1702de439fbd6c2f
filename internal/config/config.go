package config

import (
	"crypto/rand"
	"encoding/hex"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	// HTTP Server Configuration
	HTTPPort int

	// Database Configuration. Postgres DSN or a sqlite file path.
	DatabaseURL string

	// LLM Configuration. An empty API key switches the whole system to
	// the deterministic mock provider.
	OpenAIAPIKey         string
	OpenAIBaseURL        string
	OpenAIModel          string
	OpenAIEmbeddingModel string

	// Monitoring Configuration
	EventInterval time.Duration
	PollInterval  time.Duration

	// Paths
	KBDir     string
	RulesFile string

	// Slack notification configuration (optional)
	SlackBotToken      string
	SlackAlertsChannel string

	// Authentication Configuration
	AdminUsername  string
	AdminPassword  string
	JWTSecret      string
	JWTExpiryHours int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.HTTPPort = getEnvAsIntOrDefault("HTTP_PORT", 8080)

	cfg.DatabaseURL = getEnvOrDefault("DATABASE_URL", "deskwatch.db")

	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	cfg.OpenAIBaseURL = os.Getenv("OPENAI_BASE_URL")
	cfg.OpenAIModel = getEnvOrDefault("OPENAI_MODEL", "gpt-4o-mini")
	cfg.OpenAIEmbeddingModel = getEnvOrDefault("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small")

	cfg.EventInterval = getEnvAsDurationOrDefault("EVENT_INTERVAL", 2*time.Second)
	cfg.PollInterval = getEnvAsDurationOrDefault("MONITOR_POLL_INTERVAL", 3*time.Second)

	cfg.KBDir = getEnvOrDefault("KB_DIR", "kb")
	cfg.RulesFile = os.Getenv("RULES_FILE") // optional; built-in defaults apply

	cfg.SlackBotToken = os.Getenv("SLACK_BOT_TOKEN")
	cfg.SlackAlertsChannel = getEnvOrDefault("SLACK_ALERTS_CHANNEL", "#eng-alerts")

	cfg.AdminUsername = getEnvOrDefault("ADMIN_USERNAME", "admin")
	cfg.AdminPassword = os.Getenv("ADMIN_PASSWORD") // empty disables auth
	cfg.JWTExpiryHours = getEnvAsIntOrDefault("JWT_EXPIRY_HOURS", 24)
	cfg.JWTSecret = loadOrGenerateJWTSecret(getEnvOrDefault("JWT_SECRET_FILE", ".jwt_secret"))

	return cfg, nil
}

// loadOrGenerateJWTSecret loads the JWT secret from env or file, or
// generates and persists a new one
func loadOrGenerateJWTSecret(secretPath string) string {
	if envSecret := os.Getenv("JWT_SECRET"); envSecret != "" {
		return envSecret
	}

	if data, err := os.ReadFile(secretPath); err == nil {
		secret := strings.TrimSpace(string(data))
		if secret != "" {
			return secret
		}
	}

	secret := generateSecureSecret(32) // 256 bits

	if dir := filepath.Dir(secretPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Printf("Warning: Could not create directory for JWT secret: %v", err)
			return secret
		}
	}

	if err := os.WriteFile(secretPath, []byte(secret), 0600); err != nil {
		log.Printf("Warning: Could not save JWT secret to file: %v", err)
	} else {
		log.Printf("Generated and saved new JWT secret to %s", secretPath)
	}

	return secret
}

// generateSecureSecret generates a cryptographically secure random string
func generateSecureSecret(bytes int) string {
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		log.Printf("Warning: Could not generate secure random bytes: %v", err)
		return "fallback-insecure-secret-please-set-jwt-secret-env"
	}
	return hex.EncodeToString(b)
}

// getEnvOrDefault returns the value of an environment variable or a default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault returns the value of an environment variable as an integer or a default value
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvAsDurationOrDefault parses an environment variable as a
// time.Duration ("500ms", "2s") or returns the default
func getEnvAsDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
		log.Printf("Warning: invalid duration for %s: %q, using %v", key, value, defaultValue)
	}
	return defaultValue
}
