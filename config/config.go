// Package config provides configuration for the triage orchestrator.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the orchestrator configuration.
type Config struct {
	// Server settings
	HTTPPort     int
	InternalPort int

	// Database
	DatabaseURL string

	// Extraction service
	ExtractorURL     string
	ExtractorAPIKey  string
	ExtractorModel   string
	ExtractorTimeout time.Duration

	// Session policy
	InactivityWindow time.Duration

	// Disposition policy override; empty means the built-in policy.
	PolicyPath string

	// Sender identity hashing
	HashSalt string

	// Logging
	LogMode string
}

// Load loads configuration from environment variables.
func Load() *Config {
	cfg := &Config{
		HTTPPort:         getEnvInt("HTTP_PORT", 8080),
		InternalPort:     getEnvInt("INTERNAL_PORT", 8081),
		DatabaseURL:      getEnv("DATABASE_URL", "file:triage.db?cache=shared&mode=rwc"),
		ExtractorURL:     getEnv("EXTRACTOR_URL", "http://localhost:4000"),
		ExtractorAPIKey:  getEnv("EXTRACTOR_API_KEY", ""),
		ExtractorModel:   getEnv("EXTRACTOR_MODEL", "gpt-4o-mini"),
		ExtractorTimeout: time.Duration(getEnvInt("EXTRACTOR_TIMEOUT_MS", 10000)) * time.Millisecond,
		InactivityWindow: time.Duration(getEnvInt("INACTIVITY_WINDOW_MS", 1800000)) * time.Millisecond,
		PolicyPath:       getEnv("POLICY_PATH", ""),
		HashSalt:         getEnv("PATIENT_HASH_SALT", "triage-dev-salt"),
		LogMode:          getEnv("LOG_MODE", "dev"),
	}
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}
