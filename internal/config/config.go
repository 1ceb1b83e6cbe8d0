package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends.
const (
	StoreAPI      = "api"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Retry queue backends.
const (
	QueueMemory = "memory"
	QueueRedis  = "redis"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Store        StoreConfig
	API          APIConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	Polling      PollingConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Backend string
}

// APIConfig points at the external complaint API used by the api backend.
type APIConfig struct {
	BaseURL        string
	Token          string
	TimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines bearer token verification.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
}

// NotificationConfig tunes delivery and retry.
type NotificationConfig struct {
	RetryBaseDelayMS int
	MaxAttempts      int
	WebhookURL       string
	RetryQueue       string
	RetryQueueSize   int
}

// PollingConfig tunes per-session inbox polling.
type PollingConfig struct {
	BaseIntervalSeconds int
	MaxIntervalSeconds  int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "complaint-workflow"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Store: StoreConfig{
			Backend: strings.ToLower(getEnv("STORE_BACKEND", StoreAPI)),
		},
		API: APIConfig{
			BaseURL:        strings.TrimRight(getEnv("API_BASE_URL", "http://localhost:8000/api"), "/"),
			Token:          os.Getenv("API_TOKEN"),
			TimeoutSeconds: getEnvAsInt("API_TIMEOUT_SECONDS", 15),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
		},
		Notification: NotificationConfig{
			RetryBaseDelayMS: getEnvAsInt("NOTIFY_RETRY_BASE_DELAY_MS", 1000),
			MaxAttempts:      getEnvAsInt("NOTIFY_MAX_ATTEMPTS", 3),
			WebhookURL:       getEnv("NOTIFY_WEBHOOK_URL", ""),
			RetryQueue:       strings.ToLower(getEnv("RETRY_QUEUE", QueueMemory)),
			RetryQueueSize:   getEnvAsInt("RETRY_QUEUE_SIZE", 256),
		},
		Polling: PollingConfig{
			BaseIntervalSeconds: getEnvAsInt("POLL_BASE_INTERVAL_SECONDS", 60),
			MaxIntervalSeconds:  getEnvAsInt("POLL_MAX_INTERVAL_SECONDS", 300),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Backend {
	case StoreAPI:
		if c.API.BaseURL == "" {
			return fmt.Errorf("API_BASE_URL is required for the api store backend")
		}
	case StorePostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required for the postgres store backend")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("invalid STORE_BACKEND %q", c.Store.Backend)
	}
	switch c.Notification.RetryQueue {
	case QueueMemory, QueueRedis:
	default:
		return fmt.Errorf("invalid RETRY_QUEUE %q", c.Notification.RetryQueue)
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("AUTH_JWT_SECRET is required")
	}
	if c.Notification.MaxAttempts < 1 {
		return fmt.Errorf("NOTIFY_MAX_ATTEMPTS must be at least 1")
	}
	if c.Polling.BaseIntervalSeconds <= 0 || c.Polling.MaxIntervalSeconds < c.Polling.BaseIntervalSeconds {
		return fmt.Errorf("poll intervals must satisfy 0 < base <= max")
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Timeout returns the per-request timeout for the external API.
func (a APIConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// RetryBaseDelay returns the first retry wait.
func (n NotificationConfig) RetryBaseDelay() time.Duration {
	return time.Duration(n.RetryBaseDelayMS) * time.Millisecond
}

// BaseInterval returns the healthy polling interval.
func (p PollingConfig) BaseInterval() time.Duration {
	return time.Duration(p.BaseIntervalSeconds) * time.Second
}

// MaxInterval returns the polling backoff cap.
func (p PollingConfig) MaxInterval() time.Duration {
	return time.Duration(p.MaxIntervalSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
