package config

import (
	"fmt"

	"github.com/Netflix/go-env"
)

type Config struct {
	DatabaseDSN          string `env:"DATABASE_DSN,required=true"`
	RedisURL             string `env:"REDIS_URL,required=true"`
	RabbitMQURL          string `env:"RABBITMQ_URL,required=true"`
	APIPort              int    `env:"API_PORT,default=8080"`
	LogLevel             string `env:"LOG_LEVEL,default=info"`
	SchedulerIntervalSec int    `env:"SCHEDULER_INTERVAL_SEC,default=60"`
	SchedulerScanLimit   int    `env:"SCHEDULER_SCAN_LIMIT,default=200"`
	SweepLockTTLSec      int    `env:"SWEEP_LOCK_TTL_SEC,default=30"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
