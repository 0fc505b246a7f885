// Package config loads runtime settings from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	// Load .env file to environments
	_ "github.com/joho/godotenv/autoload"
)

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	UseConnectionStr   bool
	ConnectionStr      string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// StorageConfig selects the object store for uploads. Driver is one of
// "gcs", "minio" or "db".
type StorageConfig struct {
	Driver         string
	GCSBucket      string
	GCSCredentials string
	MinIO          MinIOConfig
	MaxUploadBytes int64
}

// MinIOConfig holds S3-compatible object storage settings.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// RedisConfig holds the Redis connection used for rate limiting and token revocation.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Enabled reports whether a Redis address was configured.
func (r RedisConfig) Enabled() bool { return r.Addr != "" }

// AppConfig is the centralized configuration of the service.
type AppConfig struct {
	Port           int
	Env            string
	SecretKey      string
	JWTTTL         time.Duration
	AllowOrigins   []string
	RateLimit      uint
	SweepInterval  time.Duration
	AuthLogging    bool
	AdminUsername  string
	AdminPassword  string
	AMQPURL        string
	MetricsEnabled bool
	Database       DatabaseConfig
	Storage        StorageConfig
	Redis          RedisConfig
}

// Load reads configuration from environment variables.
func Load() *AppConfig {
	return &AppConfig{
		Port:           getEnvInt("PORT", 8080),
		Env:            getEnv("APP_ENV", "local"),
		SecretKey:      getEnv("SECRET_KEY", ""),
		JWTTTL:         getEnvDuration("JWT_TTL", time.Hour),
		AllowOrigins:   splitList(getEnv("ALLOW_ORIGIN", "http://localhost:3000")),
		RateLimit:      uint(max(getEnvInt("RATE_LIMIT_REQUESTS_PER_SECOND", 5), 1)),
		SweepInterval:  getEnvDuration("SWEEP_INTERVAL", 5*time.Minute),
		AuthLogging:    getEnvBool("LOGGING", false),
		AdminUsername:  getEnv("ADMIN_USERNAME", ""),
		AdminPassword:  getEnv("ADMIN_PASSWORD", ""),
		AMQPURL:        getEnv("RABBITMQ_URL", getEnv("AMQP_URL", "")),
		MetricsEnabled: getEnvBool("METRICS_ENABLED", true),
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USERNAME", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_DATABASE", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			UseConnectionStr:   getEnvBool("USE_CONNECTION_STR", false),
			ConnectionStr:      getEnv("DB_CONNECTION_STR", ""),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		Storage: StorageConfig{
			Driver:         strings.ToLower(getEnv("STORAGE_DRIVER", "db")),
			GCSBucket:      getEnv("GCS_BUCKET_NAME", ""),
			GCSCredentials: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
			MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_BYTES", 10<<20)),
			MinIO: MinIOConfig{
				Endpoint:  getEnv("MINIO_ENDPOINT", ""),
				AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
				SecretKey: getEnv("MINIO_SECRET_KEY", ""),
				Bucket:    getEnv("MINIO_BUCKET", ""),
				UseSSL:    getEnvBool("MINIO_USE_SSL", false),
			},
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

// getEnvDuration accepts Go durations ("90s", "5m") and "0" to disable.
func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil && d >= 0 {
			return d
		}
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
