package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Realtime RealtimeConfig
	Seed     SeedConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Relay    RelayConfig
	Logger   LoggerConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	PublicBaseURL         string
	RequestTimeoutSeconds int
}

// RealtimeConfig tunes the live update channel.
type RealtimeConfig struct {
	Path                string
	QueueSize           int
	WriteTimeoutSeconds int
	PingIntervalSeconds int
}

// SeedConfig selects the startup record source.
type SeedConfig struct {
	Disabled bool
	File     string
}

// PostgresConfig locates the database read once at startup to seed the
// in-memory store.
type PostgresConfig struct {
	DSN                   string
	ConnectTimeoutSeconds int
	QueryTimeoutSeconds   int
}

// RedisConfig holds Redis connection values. An empty Addr disables the relay.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RelayConfig controls forwarding of change events to Redis.
type RelayConfig struct {
	Channel               string
	QueueSize             int
	PublishTimeoutSeconds int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
	// Development switches to zap's development mode (stack traces on warn,
	// DPanic panics). Derived from APP_ENV.
	Development bool
	// Encoding is "json" or "console".
	Encoding string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	port := getEnv("APP_PORT", "5000")
	env := getEnv("APP_ENV", "development")
	development := env == "development" || env == "dev"
	defaultEncoding := "json"
	if development {
		defaultEncoding = "console"
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "officehours"),
			Env:                   env,
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  port,
			Version:               getEnv("APP_VERSION", "dev"),
			PublicBaseURL:         getEnv("PUBLIC_BASE_URL", "http://localhost:"+port),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Realtime: RealtimeConfig{
			Path:                getEnv("WS_PATH", "/ws"),
			QueueSize:           getEnvAsInt("WS_QUEUE_SIZE", 64),
			WriteTimeoutSeconds: getEnvAsInt("WS_WRITE_TIMEOUT_SECONDS", 10),
			PingIntervalSeconds: getEnvAsInt("WS_PING_INTERVAL_SECONDS", 30),
		},
		Seed: SeedConfig{
			Disabled: getEnvAsBool("SEED_DISABLED", false),
			File:     os.Getenv("SEED_FILE"),
		},
		Postgres: PostgresConfig{
			DSN:                   os.Getenv("POSTGRES_DSN"),
			ConnectTimeoutSeconds: getEnvAsInt("POSTGRES_CONNECT_TIMEOUT_SECONDS", 10),
			QueryTimeoutSeconds:   getEnvAsInt("POSTGRES_QUERY_TIMEOUT_SECONDS", 30),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Relay: RelayConfig{
			Channel:               getEnv("RELAY_CHANNEL", "officehours:events"),
			QueueSize:             getEnvAsInt("RELAY_QUEUE_SIZE", 256),
			PublishTimeoutSeconds: getEnvAsInt("RELAY_PUBLISH_TIMEOUT_SECONDS", 5),
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Development: development,
			Encoding:    getEnv("LOG_FORMAT", defaultEncoding),
		},
	}

	if cfg.Realtime.QueueSize <= 0 {
		return nil, fmt.Errorf("invalid WS_QUEUE_SIZE: must be positive, got %d", cfg.Realtime.QueueSize)
	}
	if enc := cfg.Logger.Encoding; enc != "json" && enc != "console" {
		return nil, fmt.Errorf("invalid LOG_FORMAT %q: want json or console", enc)
	}
	if cfg.Relay.QueueSize <= 0 {
		return nil, fmt.Errorf("invalid RELAY_QUEUE_SIZE: must be positive, got %d", cfg.Relay.QueueSize)
	}

	return cfg, nil
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

// WriteTimeout returns the per-frame write deadline, zero meaning none.
func (r RealtimeConfig) WriteTimeout() time.Duration {
	return seconds(r.WriteTimeoutSeconds)
}

// PingInterval returns the keepalive period, zero meaning disabled.
func (r RealtimeConfig) PingInterval() time.Duration {
	return seconds(r.PingIntervalSeconds)
}

// ConnectTimeout bounds the initial connection, zero meaning none.
func (p PostgresConfig) ConnectTimeout() time.Duration {
	return seconds(p.ConnectTimeoutSeconds)
}

// QueryTimeout bounds the seed import, zero meaning none.
func (p PostgresConfig) QueryTimeout() time.Duration {
	return seconds(p.QueryTimeoutSeconds)
}

// PublishTimeout bounds one relay publish, zero meaning none.
func (r RelayConfig) PublishTimeout() time.Duration {
	return seconds(r.PublishTimeoutSeconds)
}

func seconds(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
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
