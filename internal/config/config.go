package config

import (
	"fmt"
	"time"

	env "github.com/caarlos0/env/v11"
)

type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`
	JWTSecret   string `env:"JWT_SECRET,required,notEmpty"`
	Port        int    `env:"PORT" envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv      string `env:"APP_ENV" envDefault:"production"`

	// Action commands go to Kafka when brokers are set, otherwise to WorkflowURL.
	WorkflowURL       string   `env:"WORKFLOW_URL" envDefault:"http://mock-workflow:8081"`
	KafkaBrokers      []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaActionsTopic string   `env:"KAFKA_ACTIONS_TOPIC" envDefault:"order-actions"`

	DispatchIntervalMS int `env:"DISPATCH_INTERVAL_MS" envDefault:"1000"`
	DispatchBatchSize  int `env:"DISPATCH_BATCH_SIZE" envDefault:"10"`

	DBMaxOpenConns     int `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns     int `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBConnMaxLifetimeS int `env:"DB_CONN_MAX_LIFETIME_S" envDefault:"300"`
	DBConnMaxIdleTimeS int `env:"DB_CONN_MAX_IDLE_TIME_S" envDefault:"60"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	if cfg.DispatchBatchSize <= 0 {
		return nil, fmt.Errorf("config.Load: DISPATCH_BATCH_SIZE must be positive, got %d", cfg.DispatchBatchSize)
	}
	if cfg.DispatchIntervalMS <= 0 {
		return nil, fmt.Errorf("config.Load: DISPATCH_INTERVAL_MS must be positive, got %d", cfg.DispatchIntervalMS)
	}
	return &cfg, nil
}

func (c *Config) DispatchInterval() time.Duration {
	return time.Duration(c.DispatchIntervalMS) * time.Millisecond
}
