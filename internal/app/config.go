package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/crm-console/internal/gateway"
)

// EnvPrefix — префикс переменных окружения консоли.
const EnvPrefix = "CRM"

const (
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"
)

// Режимы кэша сессий; пустое значение отключает кэш.
const (
	SessionCacheOff    = ""
	SessionCacheMemory = "memory"
	SessionCacheRedis  = "redis"
)

// Config описывает настройки запуска консоли.
type Config struct {
	HTTPAddr    string `envconfig:"HTTP_ADDR"`
	MetricsAddr string `envconfig:"METRICS_ADDR"`

	APIBaseURL           string        `envconfig:"API_BASE_URL"`
	AuthBaseURL          string        `envconfig:"AUTH_BASE_URL"`
	UpstreamTimeout      time.Duration `envconfig:"UPSTREAM_TIMEOUT"`
	UpstreamReadAttempts int           `envconfig:"UPSTREAM_READ_ATTEMPTS"`
	UpstreamRetryDelay   time.Duration `envconfig:"UPSTREAM_RETRY_DELAY"`
	RequestTimeout       time.Duration `envconfig:"REQUEST_TIMEOUT"`

	StorageDriver       string `envconfig:"STORAGE_DRIVER"`
	PostgresDSN         string `envconfig:"POSTGRES_DSN"`
	PostgresAutoMigrate bool   `envconfig:"POSTGRES_AUTO_MIGRATE"`

	KafkaBrokers  []string `envconfig:"KAFKA_BROKERS"`
	KafkaTopic    string   `envconfig:"KAFKA_TOPIC"`
	KafkaDLQTopic string   `envconfig:"KAFKA_DLQ_TOPIC"`

	OutboxPollInterval    time.Duration `envconfig:"OUTBOX_POLL_INTERVAL"`
	OutboxBatchSize       int           `envconfig:"OUTBOX_BATCH_SIZE"`
	OutboxMaxAttempts     int           `envconfig:"OUTBOX_MAX_ATTEMPTS"`
	OutboxRetryDelay      time.Duration `envconfig:"OUTBOX_RETRY_DELAY"`
	OutboxRetention       time.Duration `envconfig:"OUTBOX_RETENTION"`
	OutboxCleanupInterval time.Duration `envconfig:"OUTBOX_CLEANUP_INTERVAL"`

	SessionCache    string        `envconfig:"SESSION_CACHE"`
	SessionCacheTTL time.Duration `envconfig:"SESSION_CACHE_TTL"`
	RedisAddr       string        `envconfig:"REDIS_ADDR"`

	LogLevel string `envconfig:"LOG_LEVEL"`
}

// DefaultConfig возвращает настройки для локального запуска.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:              ":8080",
		MetricsAddr:           ":9090",
		APIBaseURL:            "http://localhost:8081",
		AuthBaseURL:           "http://localhost:8082",
		UpstreamTimeout:       10 * time.Second,
		UpstreamReadAttempts:  3,
		UpstreamRetryDelay:    100 * time.Millisecond,
		RequestTimeout:        30 * time.Second,
		StorageDriver:         StorageDriverMemory,
		PostgresAutoMigrate:   true,
		KafkaTopic:            "crm.console.events",
		KafkaDLQTopic:         "crm.console.dlq",
		OutboxPollInterval:    time.Second,
		OutboxBatchSize:       100,
		OutboxMaxAttempts:     3,
		OutboxRetryDelay:      50 * time.Millisecond,
		OutboxRetention:       24 * time.Hour,
		OutboxCleanupInterval: 10 * time.Minute,
		SessionCacheTTL:       30 * time.Second,
		LogLevel:              "info",
	}
}

// LoadConfig накладывает переменные окружения CRM_* на DefaultConfig.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("read environment: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.StorageDriver = strings.ToLower(strings.TrimSpace(c.StorageDriver))
	c.PostgresDSN = strings.TrimSpace(c.PostgresDSN)
	c.APIBaseURL = strings.TrimRight(strings.TrimSpace(c.APIBaseURL), "/")
	c.AuthBaseURL = strings.TrimRight(strings.TrimSpace(c.AuthBaseURL), "/")
	c.SessionCache = strings.ToLower(strings.TrimSpace(c.SessionCache))
	c.RedisAddr = strings.TrimSpace(c.RedisAddr)

	brokers := c.KafkaBrokers[:0]
	for _, b := range c.KafkaBrokers {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	c.KafkaBrokers = brokers
}

// Validate проверяет согласованность настроек.
func (c Config) Validate() error {
	switch c.StorageDriver {
	case StorageDriverMemory:
	case StorageDriverPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("CRM_POSTGRES_DSN is required for storage driver %q", c.StorageDriver)
		}
	default:
		return fmt.Errorf("unsupported storage driver %q", c.StorageDriver)
	}
	if c.APIBaseURL == "" || c.AuthBaseURL == "" {
		return fmt.Errorf("CRM_API_BASE_URL and CRM_AUTH_BASE_URL are required")
	}
	if c.UpstreamReadAttempts <= 0 || c.UpstreamRetryDelay < 0 {
		return fmt.Errorf("CRM_UPSTREAM_READ_ATTEMPTS must be positive and CRM_UPSTREAM_RETRY_DELAY non-negative")
	}
	if c.OutboxBatchSize <= 0 || c.OutboxMaxAttempts <= 0 || c.OutboxPollInterval <= 0 {
		return fmt.Errorf("outbox batch size, max attempts and poll interval must be positive")
	}
	if c.OutboxRetention <= 0 || c.OutboxCleanupInterval <= 0 {
		return fmt.Errorf("outbox retention and cleanup interval must be positive")
	}
	switch c.SessionCache {
	case SessionCacheOff, SessionCacheMemory:
	case SessionCacheRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("CRM_REDIS_ADDR is required for session cache %q", c.SessionCache)
		}
	default:
		return fmt.Errorf("unsupported session cache %q", c.SessionCache)
	}
	if c.SessionCache != SessionCacheOff && c.SessionCacheTTL <= 0 {
		return fmt.Errorf("CRM_SESSION_CACHE_TTL must be positive")
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid CRM_LOG_LEVEL: %w", err)
	}
	return nil
}

// UpstreamRetry возвращает политику повтора чтений у upstream.
func (c Config) UpstreamRetry() gateway.RetryPolicy {
	policy := gateway.DefaultRetryPolicy()
	policy.MaxAttempts = c.UpstreamReadAttempts
	policy.InitialDelay = c.UpstreamRetryDelay
	if policy.MaxDelay < c.UpstreamRetryDelay {
		policy.MaxDelay = c.UpstreamRetryDelay
	}
	return policy
}

// KafkaEnabled сообщает, настроены ли брокеры для публикации событий.
func (c Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}
