package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends for durable session data.
const (
	StorageMemory   = "memory"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
)

// Config aggregates runtime configuration for the session daemon, the CLI and the auth API.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	SQLite       SQLiteConfig
	Logger       LoggerConfig
	Session      SessionConfig
	API          APIConfig
	Auth         AuthConfig
	Notification NotificationConfig
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

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// SQLiteConfig points at the local storage file.
type SQLiteConfig struct {
	Path string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// SessionConfig tunes the client session lifecycle.
type SessionConfig struct {
	Storage                   string
	Namespace                 string
	ValidationIntervalSeconds int
	MaxTimerSegmentHours      int
	TokenSecret               string
	LoginPath                 string
}

// APIConfig points at the travel REST API.
type APIConfig struct {
	BaseURL        string
	TimeoutSeconds int
	// ListenAddr is where cmd/authapi binds; defaults to the host of BaseURL.
	ListenAddr     string
}

// AuthConfig defines token issuing parameters for the development auth API.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	RefreshTokenTTLHours  int
	BcryptCost            int
}

// NotificationConfig holds stub endpoints notified on session events.
type NotificationConfig struct {
	WebhookURL string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	baseURL := getEnv("API_BASE_URL", "http://127.0.0.1:8080")

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "travel-session"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "127.0.0.1"),
			Port:                  getEnv("APP_PORT", "8090"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		SQLite: SQLiteConfig{
			Path: getEnv("SQLITE_PATH", "session.db"),
		},
		Logger: LoggerConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			File:       os.Getenv("LOG_FILE"),
			MaxSizeMB:  getEnvAsInt("LOG_MAX_SIZE_MB", 50),
			MaxBackups: getEnvAsInt("LOG_MAX_BACKUPS", 3),
			MaxAgeDays: getEnvAsInt("LOG_MAX_AGE_DAYS", 14),
		},
		Session: SessionConfig{
			Storage:                   getEnv("SESSION_STORAGE", StorageMemory),
			Namespace:                 getEnv("SESSION_NAMESPACE", "default"),
			ValidationIntervalSeconds: getEnvAsInt("SESSION_VALIDATION_INTERVAL_SECONDS", 60),
			MaxTimerSegmentHours:      getEnvAsInt("SESSION_MAX_TIMER_SEGMENT_HOURS", 24),
			TokenSecret:               os.Getenv("SESSION_TOKEN_SECRET"),
			LoginPath:                 getEnv("SESSION_LOGIN_PATH", "/login"),
		},
		API: APIConfig{
			BaseURL:        baseURL,
			TimeoutSeconds: getEnvAsInt("API_TIMEOUT_SECONDS", 15),
			ListenAddr:     getEnv("AUTH_API_ADDR", hostOf(baseURL)),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			RefreshTokenTTLHours:  getEnvAsInt("AUTH_REFRESH_TOKEN_TTL_HOURS", 24*7),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Notification: NotificationConfig{
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
	}

	if err := cfg.Session.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (s SessionConfig) validate() error {
	switch s.Storage {
	case StorageMemory, StorageRedis, StoragePostgres, StorageSQLite:
		return nil
	default:
		return fmt.Errorf("invalid SESSION_STORAGE %q", s.Storage)
	}
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

// ValidationInterval returns the periodic validator interval.
func (s SessionConfig) ValidationInterval() time.Duration {
	if s.ValidationIntervalSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(s.ValidationIntervalSeconds) * time.Second
}

// MaxTimerSegment returns the longest single timer the scheduler arms.
func (s SessionConfig) MaxTimerSegment() time.Duration {
	if s.MaxTimerSegmentHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(s.MaxTimerSegmentHours) * time.Hour
}

// Timeout returns the REST API call timeout.
func (a APIConfig) Timeout() time.Duration {
	if a.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.TimeoutSeconds) * time.Second
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "127.0.0.1:8080"
	}
	return u.Host
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
