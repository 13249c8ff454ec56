// Package config provides configuration structures and validation for the e-document
// exchange services. It covers the HTTP gateway, the storage backends, the messaging
// layer, the status poller and every government endpoint the transport layer talks to.
package config

import (
	"errors"
	"strings"
	"time"
)

// Config holds the complete application configuration with settings for all components.
// Each field represents a major subsystem's configuration and is validated during
// application startup.
type Config struct {
	Application ApplicationConfig
	Logging     LoggingConfig
	Server      ServerConfig
	Kafka       KafkaConfig
	Postgres    PostgresConfig
	MongoDB     MongoDBConfig
	Redis       RedisConfig
	Poller      PollerConfig
	Outbox      OutboxConfig
	WorkerPool  WorkerPoolConfig
	Aggregator  AggregatorConfig
	ANAF        ANAFConfig
	ETransport  ETransportConfig
	QRIS        QRISConfig
	JoFotara    JoFotaraConfig
	JPK         JPKConfig
}

// ApplicationConfig contains general application configuration
type ApplicationConfig struct {
	Env  string
	Name string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port            int           // Port to listen on
	ShutdownTimeout time.Duration // Grace period for server shutdown
	ReadTimeout     time.Duration // Maximum duration for reading entire request
	WriteTimeout    time.Duration // Maximum duration for writing response
	IdleTimeout     time.Duration // Maximum duration to wait for next request
}

// KafkaConfig contains Kafka configuration
type KafkaConfig struct {
	Brokers           string
	RequestTopic      string // Submission requests coming from the host ERP
	EventTopic        string // Document lifecycle events
	NumPartitions     int
	ReplicationFactor int
	ConsumerGroup     string
	MinBytes          int
	MaxBytes          int
	MaxWait           time.Duration
	StartOffset       int64
	DLQTopic          string
}

// PostgresConfig contains PostgreSQL configuration
type PostgresConfig struct {
	URL             string
	MaxConns        int32
	MinConns        int32
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	MigrationsPath  string
}

// MongoDBConfig contains MongoDB configuration
type MongoDBConfig struct {
	URI             string
	Database        string
	Timeout         time.Duration
	MaxPoolSize     uint64
	MinPoolSize     uint64
	MaxConnIdleTime time.Duration
}

// RedisConfig contains Redis configuration used for rate-limit cooldowns and poller locks
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// PollerConfig contains status poller configuration
type PollerConfig struct {
	PollingInterval   time.Duration
	BatchSize         int
	RateLimitCooldown time.Duration // How long a company/profile pair is skipped after HTTP 204
	TickLockTTL       time.Duration
	QRISExpiry        time.Duration
}

// OutboxConfig contains lifecycle event publishing configuration
type OutboxConfig struct {
	PollingInterval  time.Duration
	BatchSize        int
	MaxRetryAttempts int
	// ClaimLease is how long a claimed event stays hidden from other pollers.
	ClaimLease time.Duration
}

// WorkerPoolConfig contains worker pool configuration
type WorkerPoolConfig struct {
	Size int
}

// AggregatorConfig contains periodic report aggregation settings
type AggregatorConfig struct {
	MaxRecordsPerFlow int
	SyncInterval      time.Duration
}

// ANAFConfig contains Romanian e-Factura endpoint and OAuth settings
type ANAFConfig struct {
	BaseURL  string
	Mode     string // "test" or "prod"
	TokenURL string
	Timeout  time.Duration
}

// ETransportConfig contains Romanian eTransport endpoint settings
type ETransportConfig struct {
	BaseURL string
	Mode    string
	Timeout time.Duration
}

// QRISConfig contains Indonesian QRIS endpoint settings
type QRISConfig struct {
	BaseURL    string
	APIKey     string
	MerchantID string
	Timeout    time.Duration
}

// JoFotaraConfig contains Jordanian JoFotara endpoint settings
type JoFotaraConfig struct {
	URL     string
	Token   string
	Timeout time.Duration
}

// JPKConfig contains Polish JPK gateway settings
type JPKConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// validate performs validation of all configuration values,
// ensuring they meet minimum requirements and logical constraints
func (c *Config) validate() error {
	var validationErrors []string

	// Validate Server config
	if c.Server.Port <= 0 {
		validationErrors = append(validationErrors, "SERVER_PORT must be greater than 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_SHUTDOWN_TIMEOUT must be greater than 0")
	}
	if c.Server.ReadTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_READ_TIMEOUT must be greater than 0")
	}
	if c.Server.WriteTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_WRITE_TIMEOUT must be greater than 0")
	}
	if c.Server.IdleTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_IDLE_TIMEOUT must be greater than 0")
	}

	// Validate Kafka config
	if len(c.Kafka.Brokers) == 0 {
		validationErrors = append(validationErrors, "KAFKA_BROKERS is required")
	}
	if c.Kafka.RequestTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_REQUEST_TOPIC is required")
	}
	if c.Kafka.EventTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_EVENT_TOPIC is required")
	}
	if c.Kafka.ConsumerGroup == "" {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_GROUP is required")
	}
	if c.Kafka.MinBytes <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MIN_BYTES must be greater than 0")
	}
	if c.Kafka.MaxBytes <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_BYTES must be greater than 0")
	}
	if c.Kafka.MaxWait <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_WAIT must be greater than 0")
	}

	// Validate PostgreSQL config
	if c.Postgres.URL == "" {
		validationErrors = append(validationErrors, "POSTGRES_URL is required")
	}
	if c.Postgres.MaxConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONNS must be greater than 0")
	}
	if c.Postgres.MinConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MIN_CONNS must be greater than 0")
	}
	if c.Postgres.ConnMaxLifetime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_LIFETIME must be greater than 0")
	}
	if c.Postgres.ConnMaxIdleTime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// Validate MongoDB config
	if c.MongoDB.URI == "" {
		validationErrors = append(validationErrors, "MONGO_URI is required")
	}
	if c.MongoDB.Database == "" {
		validationErrors = append(validationErrors, "MONGO_DATABASE is required")
	}
	if c.MongoDB.Timeout <= 0 {
		validationErrors = append(validationErrors, "MONGO_TIMEOUT must be greater than 0")
	}
	if c.MongoDB.MaxPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_POOL_SIZE must be greater than 0")
	}

	// Validate Redis config
	if c.Redis.Addr == "" {
		validationErrors = append(validationErrors, "REDIS_ADDR is required")
	}

	// Validate Poller config
	if c.Poller.PollingInterval <= 0 {
		validationErrors = append(validationErrors, "POLLER_INTERVAL must be greater than 0")
	}
	if c.Poller.BatchSize <= 0 {
		validationErrors = append(validationErrors, "POLLER_BATCH_SIZE must be greater than 0")
	}
	if c.Poller.RateLimitCooldown <= 0 {
		validationErrors = append(validationErrors, "POLLER_RATE_LIMIT_COOLDOWN must be greater than 0")
	}
	if c.Poller.QRISExpiry <= 0 {
		validationErrors = append(validationErrors, "POLLER_QRIS_EXPIRY must be greater than 0")
	}

	// Validate Outbox config
	if c.Outbox.PollingInterval <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_POLLING_INTERVAL must be greater than 0")
	}
	if c.Outbox.BatchSize <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_BATCH_SIZE must be greater than 0")
	}
	if c.Outbox.MaxRetryAttempts <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_MAX_RETRY_ATTEMPTS must be greater than 0")
	}
	if c.Outbox.ClaimLease < c.Outbox.PollingInterval {
		validationErrors = append(validationErrors, "OUTBOX_CLAIM_LEASE must not be shorter than OUTBOX_POLLING_INTERVAL")
	}

	// Validate WorkerPool config
	if c.WorkerPool.Size <= 0 {
		validationErrors = append(validationErrors, "WORKER_POOL_SIZE must be greater than 0")
	}

	// Validate Aggregator config
	if c.Aggregator.MaxRecordsPerFlow <= 0 {
		validationErrors = append(validationErrors, "AGGREGATOR_MAX_RECORDS_PER_FLOW must be greater than 0")
	}

	// Validate government endpoints
	if c.ANAF.Mode != "test" && c.ANAF.Mode != "prod" {
		validationErrors = append(validationErrors, "ANAF_MODE must be either test or prod")
	}
	if c.ANAF.Timeout < 60*time.Second {
		validationErrors = append(validationErrors, "ANAF_TIMEOUT must be at least 60s")
	}
	if c.ETransport.Mode != "test" && c.ETransport.Mode != "prod" {
		validationErrors = append(validationErrors, "ETRANSPORT_MODE must be either test or prod")
	}
	if c.QRIS.Timeout < 35*time.Second {
		validationErrors = append(validationErrors, "QRIS_TIMEOUT must be at least 35s")
	}
	if c.JPK.Timeout < 300*time.Second {
		validationErrors = append(validationErrors, "JPK_TIMEOUT must be at least 300s")
	}
	if c.JoFotara.Timeout <= 0 {
		validationErrors = append(validationErrors, "JOFOTARA_TIMEOUT must be greater than 0")
	}

	if len(validationErrors) > 0 {
		return errors.New(strings.Join(validationErrors, ", "))
	}

	return nil
}
