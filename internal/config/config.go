// Package config loads runtime configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"turnq/internal/validation"
)

type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"
	StoragePostgres StorageDriver = "postgres"
)

type TransportDriver string

const (
	TransportSimulated TransportDriver = "simulated"
	TransportRedis     TransportDriver = "redis"
	TransportRabbitMQ  TransportDriver = "rabbitmq"
)

type Config struct {
	Instance string `env:"TURNQ_INSTANCE" envDefault:"turnq-1"`
	HTTPAddr string `env:"TURNQ_HTTP_ADDR" envDefault:":8080"`

	StorageDriver   StorageDriver   `env:"TURNQ_STORAGE_DRIVER" envDefault:"memory"`
	TransportDriver TransportDriver `env:"TURNQ_TRANSPORT" envDefault:"simulated"`

	WorkerCount       int           `env:"TURNQ_WORKER_COUNT" envDefault:"5"`
	ExecutionTimeout  time.Duration `env:"TURNQ_EXECUTION_TIMEOUT" envDefault:"1m"`
	JobRetention      time.Duration `env:"TURNQ_JOB_RETENTION" envDefault:"1h"`
	OverwriteExisting bool          `env:"TURNQ_OVERWRITE_EXISTING" envDefault:"false"`

	RetryBase        int `env:"TURNQ_RETRY_BASE" envDefault:"5"`
	RetryMaxAttempts int `env:"TURNQ_RETRY_MAX_ATTEMPTS" envDefault:"3"`

	WaitingTimeCron string `env:"TURNQ_WAITING_TIME_CRON" envDefault:"0 */5 * * * *"`
	CleanupCron     string `env:"TURNQ_CLEANUP_CRON" envDefault:"0 0 2 * * *"`

	// Simulated transport only.
	DeliverySuccessRate float64 `env:"TURNQ_DELIVERY_SUCCESS_RATE" envDefault:"0.9"`

	Postgres PostgresConfig `envPrefix:"TURNQ_POSTGRES_"`
	Redis    RedisConfig    `envPrefix:"TURNQ_REDIS_"`
	RabbitMQ RabbitMQConfig `envPrefix:"TURNQ_RABBITMQ_"`
}

type PostgresConfig struct {
	ConnectionURL string `env:"URL"`
}

type RedisConfig struct {
	Address  string `env:"ADDR" envDefault:"localhost:6379"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
	Channel  string `env:"CHANNEL" envDefault:"turnq:notifications"`
}

type RabbitMQConfig struct {
	URL        string `env:"URL"`
	Exchange   string `env:"EXCHANGE" envDefault:"turnq"`
	Queue      string `env:"QUEUE" envDefault:"turnq.notifications"`
	RoutingKey string `env:"ROUTING_KEY" envDefault:"notifications"`
}

// Load parses the environment and validates cross-field requirements.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	errs := &validation.Error{}

	switch c.StorageDriver {
	case StorageMemory:
	case StoragePostgres:
		if c.Postgres.ConnectionURL == "" {
			errs.Add(errors.New("postgres storage requires TURNQ_POSTGRES_URL"))
		}
	default:
		errs.Add(fmt.Errorf("unknown storage driver %q", c.StorageDriver))
	}

	switch c.TransportDriver {
	case TransportSimulated, TransportRedis:
	case TransportRabbitMQ:
		if c.RabbitMQ.URL == "" {
			errs.Add(errors.New("rabbitmq transport requires TURNQ_RABBITMQ_URL"))
		}
	default:
		errs.Add(fmt.Errorf("unknown transport driver %q", c.TransportDriver))
	}

	if c.WorkerCount < 1 {
		errs.Add(errors.New("worker count must be positive"))
	}
	if c.RetryBase < 1 {
		errs.Add(errors.New("retry base must be positive"))
	}
	if c.RetryMaxAttempts < 1 {
		errs.Add(errors.New("retry max attempts must be positive"))
	}
	return errs.ErrOrNil()
}
