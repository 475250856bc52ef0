package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	commoncfg "github.com/tejasnaveen/Shakti/common/config"
)

// Store backends selectable through STORE_BACKEND.
const (
	BackendPostgres = "postgres"
	BackendRest     = "rest"
	BackendMemory   = "memory"
)

// Config shakti (HTTP API) configuration
type Config struct {
	HTTP struct {
		Addr string
	}
	StoreBackend string
	Database     commoncfg.DatabaseConfig
	Rest         RestConfig
	Redis        commoncfg.RedisConfig
	RedisEnabled bool
	MQTT         MQTTConfig
	Log          struct {
		Level  string
		Format string
	}
	Domain   DomainConfig
	Session  SessionConfig
	Lockout  LockoutConfig
	Audit    AuditConfig
	SeedFile string
}

// RestConfig hosted data store (PostgREST dialect) settings.
type RestConfig struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	RetryCount int
}

// MQTTConfig audit event sink over MQTT (disabled by default).
type MQTTConfig struct {
	Enabled bool
	commoncfg.MQTTConfig
	Topic string
}

// DomainConfig decides how tenant subdomain URLs are built.
type DomainConfig struct {
	Environment string // "production" or "development"
	BaseDomain  string
	Scheme      string
}

// SessionConfig session persistence.
type SessionConfig struct {
	KeyPrefix string
	TTL       time.Duration // 0 = no expiry
}

// LockoutConfig repeated-failure lockout.
type LockoutConfig struct {
	Enabled     bool
	MaxAttempts int
	Window      time.Duration
}

// AuditConfig auth event stream.
type AuditConfig struct {
	Stream       string
	StreamMaxLen int64
}

func Load() (*Config, error) {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	cfg.StoreBackend = strings.ToLower(getEnv("STORE_BACKEND", BackendPostgres))
	switch cfg.StoreBackend {
	case BackendPostgres, BackendRest, BackendMemory:
	default:
		return nil, fmt.Errorf("unsupported STORE_BACKEND %q", cfg.StoreBackend)
	}

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "shakti")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = parseInt(getEnv("DB_MAX_CONNS", "10"), 10)
	cfg.Database.MaxIdle = parseInt(getEnv("DB_MAX_IDLE", "5"), 5)

	cfg.Rest.BaseURL = getEnv("REST_URL", "")
	cfg.Rest.APIKey = getEnv("REST_API_KEY", "")
	cfg.Rest.Timeout = parseDuration(getEnv("REST_TIMEOUT", "10s"), 10*time.Second)
	cfg.Rest.RetryCount = parseInt(getEnv("REST_RETRY_COUNT", "0"), 0)
	if cfg.StoreBackend == BackendRest && cfg.Rest.BaseURL == "" {
		return nil, fmt.Errorf("REST_URL is required when STORE_BACKEND=%s", BackendRest)
	}

	cfg.RedisEnabled = getEnv("REDIS_ENABLED", "true") == "true"
	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = parseInt(getEnv("REDIS_DB", "0"), 0)

	cfg.MQTT.Enabled = getEnv("MQTT_ENABLED", "false") == "true"
	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "shakti-auth")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.QoS = byte(parseInt(getEnv("MQTT_QOS", "1"), 1))
	cfg.MQTT.Topic = getEnv("MQTT_TOPIC", "shakti/auth/events")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	cfg.Domain.Environment = getEnv("APP_ENV", "development")
	cfg.Domain.BaseDomain = getEnv("BASE_DOMAIN", "")
	cfg.Domain.Scheme = getEnv("URL_SCHEME", "https")

	cfg.Session.KeyPrefix = getEnv("SESSION_KEY_PREFIX", "shakti:session:")
	cfg.Session.TTL = parseDuration(getEnv("SESSION_TTL", "0"), 0)

	cfg.Lockout.Enabled = getEnv("LOCKOUT_ENABLED", "true") == "true"
	cfg.Lockout.MaxAttempts = parseInt(getEnv("LOCKOUT_MAX_ATTEMPTS", "5"), 5)
	cfg.Lockout.Window = parseDuration(getEnv("LOCKOUT_WINDOW", "15m"), 15*time.Minute)

	cfg.Audit.Stream = getEnv("AUDIT_STREAM", "shakti:auth:events")
	cfg.Audit.StreamMaxLen = int64(parseInt(getEnv("AUDIT_STREAM_MAXLEN", "10000"), 10000))

	cfg.SeedFile = getEnv("SEED_FILE", "")

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

// parseDuration accepts Go durations ("15m") or plain seconds ("900").
func parseDuration(s string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second
	}
	return def
}
