// Package config loads service configuration from the environment
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	AppName                       string
	Port                          int
	LogLevel                      string
	PrettyLogs                    bool
	HttpServerWriteTimeoutSeconds int
	HttpServerReadTimeoutSeconds  int
	HttpServerIdleTimeoutSeconds  int
	MaxHeaderBytes                int
	AllowOrigins                  []string
	AllowMethods                  []string

	// PostgreSQL
	DatabaseDriver              string
	DatabaseHost                string
	DatabasePort                string
	DatabaseUserName            string
	DatabasePassword            string
	DatabaseName                string
	DatabaseSSLMode             string
	DatabaseMaxOpenConns        int
	DatabaseMaxIdleConns        int
	DatabaseConnMaxLifetime     time.Duration
	DatabaseMigrationFolderPath string
	DatabaseMigrationVersion    int
	DatabaseMigrationForce      int

	// Matching
	ReconcileExactEpsilon    decimal.Decimal
	ReconcileManualTolerance decimal.Decimal
	DiscrepancyMinDifference decimal.Decimal

	// Uploads
	MaxUploadSizeMB int
}

// Load reads configuration from the environment, with .env overlays for
// local runs.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		AppName:                       envString("APP_NAME", "cotejo-api"),
		Port:                          envInt("PORT", 8080),
		LogLevel:                      envString("LOG_LEVEL", "info"),
		PrettyLogs:                    envBool("PRETTY_LOGS", false),
		HttpServerWriteTimeoutSeconds: envInt("HTTP_SERVER_WRITE_TIMEOUT_SECONDS", 30),
		HttpServerReadTimeoutSeconds:  envInt("HTTP_SERVER_READ_TIMEOUT_SECONDS", 30),
		HttpServerIdleTimeoutSeconds:  envInt("HTTP_SERVER_IDLE_TIMEOUT_SECONDS", 30),
		MaxHeaderBytes:                envInt("HTTP_SERVER_MAX_HEADER_BYTES", 64000),
		AllowOrigins:                  envList("HTTP_SERVER_ALLOW_ORIGINS", "*"),
		AllowMethods:                  envList("HTTP_SERVER_ALLOW_METHODS", "GET,POST,PUT,DELETE"),

		DatabaseDriver:              envString("DB_DRIVER", "postgres"),
		DatabaseHost:                envString("DB_HOST", "localhost"),
		DatabasePort:                envString("DB_PORT", "5432"),
		DatabaseUserName:            envString("DB_USER_NAME", ""),
		DatabasePassword:            envString("DB_PASSWORD", ""),
		DatabaseName:                envString("DB_NAME", "cotejo"),
		DatabaseSSLMode:             envString("DB_SSL_MODE", "disable"),
		DatabaseMaxOpenConns:        envInt("DB_MAX_OPEN_CONNS", 25),
		DatabaseMaxIdleConns:        envInt("DB_MAX_IDLE_CONNS", 10),
		DatabaseConnMaxLifetime:     envDuration("DB_CONN_MAX_LIFETIME", 10*time.Second),
		DatabaseMigrationFolderPath: envString("DB_MIGRATION_FOLDER_PATH", "db/pg"),
		DatabaseMigrationVersion:    envInt("DB_MIGRATION_VERSION", 0),
		DatabaseMigrationForce:      envInt("DB_MIGRATION_FORCE", 0),

		ReconcileExactEpsilon:    envDecimal("RECONCILE_EXACT_EPSILON", decimal.NewFromFloat(0.01)),
		ReconcileManualTolerance: envDecimal("RECONCILE_MANUAL_TOLERANCE", decimal.NewFromInt(1000)),
		DiscrepancyMinDifference: envDecimal("DISCREPANCY_MIN_DIFFERENCE", decimal.Zero),

		MaxUploadSizeMB: envInt("MAX_UPLOAD_SIZE_MB", 20),
	}

	return cfg, nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key, fallback string) []string {
	raw := envString(key, fallback)
	parts := strings.Split(raw, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func envDecimal(key string, fallback decimal.Decimal) decimal.Decimal {
	if v := os.Getenv(key); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			return d
		}
	}
	return fallback
}
