package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port        string
	Environment string
	DatabaseURL string
	JWKSURL     string // empty outside prod = static dev auth
	CORSOrigins string
	TablePrefix string
	// Worker pool
	WorkerCount      int
	PollInterval     time.Duration
	GenerationDelay  time.Duration // simulated latency of the lorem provider
	AllocationTries  int           // version-allocation retry ceiling; 0 = kind registry default
	DevUserID        string
	Debug            bool
	// Logging
	LogDir      string // empty = stdout only
	LogMaxFiles int
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")

	return &Config{
		Port:            getEnv("PORT", "8080"),
		Environment:     env,
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		JWKSURL:         getEnv("JWKS_URL", ""),
		CORSOrigins:     getEnv("CORS_ORIGINS", "http://localhost:3000"),
		TablePrefix:     getTablePrefix(env),
		WorkerCount:     getEnvInt("WORKER_COUNT", 2),
		PollInterval:    getEnvDuration("WORKER_POLL_INTERVAL", 2*time.Second),
		GenerationDelay: getEnvDuration("GENERATION_DELAY", 3*time.Second),
		AllocationTries: getEnvInt("ALLOCATION_MAX_ATTEMPTS", 0),
		DevUserID:       getEnv("DEV_USER_ID", "dev-user"),
		Debug:           getEnv("DEBUG", getDefaultDebug(env)) == "true",
		LogDir:          getEnv("LOG_DIR", ""),
		LogMaxFiles:     getEnvInt("LOG_MAX_FILES", 10),
	}
}

// getDefaultDebug returns the default debug setting based on environment
func getDefaultDebug(env string) string {
	if env == "prod" {
		return "false"
	}
	return "true"
}

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	if prefix := os.Getenv("TABLE_PREFIX"); prefix != "" {
		return prefix
	}

	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
