package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// Event bus configuration
	Bus BusConfig

	// NATS configuration, used when Bus.Backend is "nats"
	NATS NATSConfig

	// Kafka configuration, used when Bus.Backend is "kafka"
	Kafka KafkaConfig

	// Notification stream configuration
	Stream StreamConfig

	// Auth configuration
	Auth AuthConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	HTTPPort     int           `env:"HTTP_PORT,default=8080"`
	GRPCPort     int           `env:"GRPC_PORT,default=9090"`
	Environment  string        `env:"ENVIRONMENT,default=development"`
	ServiceName  string        `env:"SERVICE_NAME,default=pulse"`
	LogLevel     string        `env:"LOG_LEVEL,default=info"`
	ShutdownTime time.Duration `env:"SHUTDOWN_TIMEOUT,default=30s"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver       string        `env:"DB_DRIVER,default=sqlite"` // sqlite or postgres
	SQLitePath   string        `env:"DB_SQLITE_PATH,default=pulse.db"`
	Host         string        `env:"DB_HOST,default=localhost"`
	Port         int           `env:"DB_PORT,default=5432"`
	User         string        `env:"DB_USER,default=pulse"`
	Password     string        `env:"DB_PASSWORD,default=pulse"`
	Database     string        `env:"DB_NAME,default=pulse"`
	SSLMode      string        `env:"DB_SSLMODE,default=disable"`
	MaxOpenConns int           `env:"DB_MAX_OPEN_CONNS,default=25"`
	MaxIdleConns int           `env:"DB_MAX_IDLE_CONNS,default=5"`
	MaxLifetime  time.Duration `env:"DB_MAX_LIFETIME,default=5m"`
}

// BusConfig holds event bus configuration
type BusConfig struct {
	Backend   string `env:"BUS_BACKEND,default=memory"` // memory, nats or kafka
	Workers   int    `env:"BUS_WORKERS,default=8"`
	QueueSize int    `env:"BUS_QUEUE_SIZE,default=1024"`
}

// NATSConfig holds NATS configuration
type NATSConfig struct {
	URL           string        `env:"NATS_URL,default=nats://localhost:4222"`
	Subject       string        `env:"NATS_SUBJECT,default=pulse.events"`
	QueueGroup    string        `env:"NATS_QUEUE_GROUP,default=pulse-delivery"`
	MaxReconnect  int           `env:"NATS_MAX_RECONNECT,default=60"`
	ReconnectWait time.Duration `env:"NATS_RECONNECT_WAIT,default=2s"`
}

// KafkaConfig holds Kafka configuration
type KafkaConfig struct {
	Brokers string `env:"KAFKA_BROKERS,default=localhost:9092"` // comma separated
	Topic   string `env:"KAFKA_TOPIC,default=pulse.events"`
	GroupID string `env:"KAFKA_GROUP_ID,default=pulse-delivery"`
}

// BrokerList splits Brokers into addresses.
func (k KafkaConfig) BrokerList() []string {
	var out []string
	for _, b := range strings.Split(k.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// StreamConfig holds subscriber stream configuration
type StreamConfig struct {
	BufferSize        int           `env:"STREAM_BUFFER_SIZE,default=256"`
	HeartbeatInterval time.Duration `env:"STREAM_HEARTBEAT_INTERVAL,default=30s"`
	IdleTimeout       time.Duration `env:"STREAM_IDLE_TIMEOUT,default=2m"`
}

// AuthConfig holds access token verification settings
type AuthConfig struct {
	JWTSecret string `env:"JWT_SECRET"`
	Issuer    string `env:"JWT_ISSUER,default=matemarket"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromEnvSet builds a configuration from an explicit variable set.
func FromEnvSet(set map[string]string) (*Config, error) {
	var cfg Config
	if err := env.Unmarshal(env.EnvSet(set), &cfg); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings that have no safe fallback.
func (c *Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be sqlite or postgres, got %q", c.Database.Driver))
	}
	switch c.Bus.Backend {
	case "memory", "nats":
	case "kafka":
		if len(c.Kafka.BrokerList()) == 0 {
			errs = append(errs, errors.New("KAFKA_BROKERS is required for the kafka bus"))
		}
	default:
		errs = append(errs, fmt.Errorf("BUS_BACKEND must be memory, nats or kafka, got %q", c.Bus.Backend))
	}
	if c.Bus.Workers <= 0 {
		errs = append(errs, errors.New("BUS_WORKERS must be positive"))
	}
	if c.Bus.QueueSize <= 0 {
		errs = append(errs, errors.New("BUS_QUEUE_SIZE must be positive"))
	}
	if c.Stream.BufferSize <= 0 {
		errs = append(errs, errors.New("STREAM_BUFFER_SIZE must be positive"))
	}
	if c.Stream.HeartbeatInterval <= 0 || c.Stream.IdleTimeout <= c.Stream.HeartbeatInterval {
		errs = append(errs, errors.New("STREAM_IDLE_TIMEOUT must exceed a positive STREAM_HEARTBEAT_INTERVAL"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	return errors.Join(errs...)
}

// DSN returns the database connection string
func (d DatabaseConfig) DSN() string {
	if d.Driver == "sqlite" {
		return d.SQLitePath
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode)
}
