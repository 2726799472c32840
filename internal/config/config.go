package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Storage  StorageConfig
	App      AppConfig
	Scan     ScanConfig
}

type ServerConfig struct {
	Host        string
	Port        int
	Secure      bool   // Use HTTPS-only cookies and HSTS
	Environment string // "development", "production", "test"
	Debug       bool
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type StorageConfig struct {
	// Dir is the root for uploaded card images.
	Dir         string
	MaxUploadMB int
}

type AppConfig struct {
	// PublicBaseURL is set only when the app is embedded on another
	// origin; card views then open externally against it. Empty means
	// single-origin mode, where QR links fall back to the request
	// origin.
	PublicBaseURL string
}

type ScanConfig struct {
	Interval time.Duration
	Device   int
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:        getEnv("SERVER_HOST", "0.0.0.0"),
			Port:        getEnvInt("SERVER_PORT", 8080),
			Secure:      getEnvBool("SERVER_SECURE", false),
			Environment: getEnv("APP_ENV", "development"),
			Debug:       getEnvBool("DEBUG", false),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "russekort"),
			Password: getEnv("DB_PASSWORD", "russekort"),
			DBName:   getEnv("DB_NAME", "russekort"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Storage: StorageConfig{
			Dir:         getEnvNonEmpty("STORAGE_DIR", "./data/media"),
			MaxUploadMB: getEnvInt("STORAGE_MAX_UPLOAD_MB", 8),
		},
		App: AppConfig{
			PublicBaseURL: getEnv("APP_BASE_URL", ""),
		},
		Scan: ScanConfig{
			Interval: getEnvDuration("SCAN_INTERVAL", 350*time.Millisecond),
			Device:   getEnvInt("SCAN_DEVICE", 0),
		},
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvNonEmpty(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		if strings.TrimSpace(value) != "" {
			return value
		}
		return defaultValue
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}
