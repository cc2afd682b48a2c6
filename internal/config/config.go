package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	// Local cache (always SQLite)
	CachePath string

	// Remote document store
	DatabaseType string // sqlite, postgres, or mysql
	DatabaseURL  string // connection URL for postgres/mysql
	DatabasePath string // file path when the remote store is sqlite

	// Sync engine
	SyncTimeout         time.Duration // bound on a single remote reconciliation attempt
	SyncRetryInterval   time.Duration // periodic drain while online
	WordRefreshInterval time.Duration
	ProbeInterval       time.Duration
	RemoteMaxAttempts   int
	RemoteBackoff       time.Duration
	MaxConflictRetries  int

	// Status endpoints
	StatusPort string

	// Identity of the student this agent syncs for
	JWTSecret string
	Token     string

	// Certificate emails
	AWSRegion    string
	SESFromEmail string
	SESFromName  string

	DefaultTeacherName string
	Debug              bool
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is loaded first when present.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: failed to load .env file: %v", err)
	}

	return &Config{
		CachePath:           getEnv("CACHE_PATH", "./wordhero-cache.db"),
		DatabaseType:        getEnv("DATABASE_TYPE", "sqlite"),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		DatabasePath:        getEnv("DATABASE_PATH", "./wordhero.db"),
		SyncTimeout:         getEnvDuration("SYNC_TIMEOUT", 10*time.Second),
		SyncRetryInterval:   getEnvDuration("SYNC_RETRY_INTERVAL", 5*time.Minute),
		WordRefreshInterval: getEnvDuration("WORD_REFRESH_INTERVAL", 30*time.Minute),
		ProbeInterval:       getEnvDuration("CONNECTIVITY_PROBE_INTERVAL", 15*time.Second),
		RemoteMaxAttempts:   getEnvInt("REMOTE_MAX_ATTEMPTS", 3),
		RemoteBackoff:       getEnvDuration("REMOTE_BACKOFF", 500*time.Millisecond),
		MaxConflictRetries:  getEnvInt("MAX_CONFLICT_RETRIES", 3),
		StatusPort:          getEnv("STATUS_PORT", "8090"),
		JWTSecret:           getEnv("JWT_SECRET", ""),
		Token:               getEnv("WORDHERO_TOKEN", ""),
		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		SESFromEmail:        getEnv("SES_FROM_EMAIL", ""),
		SESFromName:         getEnv("SES_FROM_NAME", "Word Hero"),
		DefaultTeacherName:  getEnv("DEFAULT_TEACHER_NAME", "The Word Master AI"),
		Debug:               getEnvBool("DEBUG", false),
	}
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Warning: invalid integer for %s=%q, using %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Warning: invalid duration for %s=%q, using %s", key, value, defaultValue)
		return defaultValue
	}
	return d
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}
