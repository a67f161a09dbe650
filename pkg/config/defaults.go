// Package config provides centralized default values for the ga4-events server
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

var envLoaded sync.Once

// loadEnvFile applies a .env file from the working directory. Variables
// already set in the environment win.
func loadEnvFile() {
	envLoaded.Do(func() {
		if _, err := os.Stat(".env"); err != nil {
			return
		}
		log.Println("Loading configuration overrides from .env file...")
		if err := godotenv.Load(); err != nil {
			log.Printf("Failed to load .env file: %v", err)
		}
	})
}

func getEnvInt(key string, defaultValue int) int {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.Atoi(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%d (default: %d)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvString(key string, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		if val != defaultValue {
			log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
		}
		return val
	}
	return defaultValue
}

// getEnvSecret is getEnvString without echoing the value.
func getEnvSecret(key string, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		if val != defaultValue {
			log.Printf("Config override: %s=<redacted>", key)
		}
		return val
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.ParseBool(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%t (default: %t)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := time.ParseDuration(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(valStr, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	log.Printf("Config override: %s=%s", key, strings.Join(out, ","))
	return out
}

var (
	// Server Configuration
	Port               string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	ServerIdleTimeout  time.Duration
	GinMode            string
	CORSAllowedOrigins []string

	// Database
	DBDriver             string
	DBDSN                string
	DBMaxOpenConns       int
	DBMaxIdleConns       int
	DBConnMaxLifetime    time.Duration
	SlowQueryThreshold   time.Duration
	SlowRequestThreshold time.Duration

	// Tracking
	EventsFile    string
	StoragePrefix string
	PublicBaseURL string

	// Security
	JWTSecret         string
	AdminPasswordHash string
	AdminTokenTTL     time.Duration
	LogTokenTTL       time.Duration

	// Debug log sink
	LogRateLimitPerMinute int
	EventLogListLimit     int
	StreamSendBuffer      int

	// Attribution store
	AttributionTTL             time.Duration
	AttributionCleanupInterval time.Duration

	// Logging
	LogDirectory string
	LogLevel     string
	LogJSON      bool
	LogToFile    bool
)

func init() {
	loadEnvFile()

	// Server Configuration
	Port = getEnvString("PORT", "8080")
	ServerReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second)
	ServerWriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second)
	ServerIdleTimeout = getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second)
	GinMode = getEnvString("GIN_MODE", "debug")
	CORSAllowedOrigins = getEnvList("CORS_ALLOWED_ORIGINS", []string{
		"http://localhost:3000",
		"http://localhost:8080",
		"http://127.0.0.1:3000",
		"http://127.0.0.1:8080",
	})

	// Database
	DBDriver = getEnvString("DB_DRIVER", "sqlite3")
	DBDSN = getEnvSecret("DB_DSN", "file:ga4-events.db?_foreign_keys=on")
	DBMaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", 10)
	DBMaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", 3)
	DBConnMaxLifetime = time.Duration(getEnvInt("DB_CONN_MAX_LIFETIME_MINUTES", 30)) * time.Minute
	SlowQueryThreshold = getEnvDuration("SLOW_QUERY_THRESHOLD", 500*time.Millisecond)
	SlowRequestThreshold = getEnvDuration("SLOW_REQUEST_THRESHOLD", time.Second)

	// Tracking
	EventsFile = getEnvString("EVENTS_FILE", "events.yaml")
	StoragePrefix = getEnvString("STORAGE_PREFIX", "anticipater")
	PublicBaseURL = getEnvString("PUBLIC_BASE_URL", "")

	// Security
	JWTSecret = getEnvSecret("JWT_SECRET", "")
	AdminPasswordHash = getEnvSecret("ADMIN_PASSWORD_HASH", "")
	AdminTokenTTL = getEnvDuration("ADMIN_TOKEN_TTL", 24*time.Hour)
	LogTokenTTL = getEnvDuration("LOG_TOKEN_TTL", 24*time.Hour)

	// Debug log sink
	LogRateLimitPerMinute = getEnvInt("LOG_RATE_LIMIT_PER_MINUTE", 60)
	EventLogListLimit = getEnvInt("EVENT_LOG_LIST_LIMIT", 100)
	StreamSendBuffer = getEnvInt("STREAM_SEND_BUFFER", 64)

	// Attribution store
	AttributionTTL = getEnvDuration("ATTRIBUTION_TTL", 30*time.Minute)
	AttributionCleanupInterval = getEnvDuration("ATTRIBUTION_CLEANUP_INTERVAL", 5*time.Minute)

	// Logging
	LogDirectory = getEnvString("LOG_DIRECTORY", "logs")
	LogLevel = getEnvString("LOG_LEVEL", "INFO")
	LogJSON = getEnvBool("LOG_JSON", false)
	LogToFile = getEnvBool("LOG_TO_FILE", false)
}
